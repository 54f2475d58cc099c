package infer

import (
	"image"
	"math"
)

// clampRect clips a rectangle to the frame bounds.
func clampRect(rect image.Rectangle, width, height int) image.Rectangle {
	return rect.Intersect(image.Rect(0, 0, width, height))
}

// squareRect expands a detection box to a square region for classification:
// side = max(width, height), centered on the box's center, clipped to the
// frame. If clipping collapses the square to near-zero area, it falls back
// to the clipped original box.
func squareRect(rect image.Rectangle, frameWidth, frameHeight int) image.Rectangle {
	if rect.Empty() {
		return rect
	}

	side := rect.Dx()
	if rect.Dy() > side {
		side = rect.Dy()
	}
	cx := rect.Min.X + rect.Dx()/2
	cy := rect.Min.Y + rect.Dy()/2

	square := image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side)
	square = clampRect(square, frameWidth, frameHeight)

	if square.Dx() <= 1 || square.Dy() <= 1 {
		return clampRect(rect, frameWidth, frameHeight)
	}
	return square
}

// mapToSource maps a box detected on a downscaled frame back to source
// coordinates by dividing by the scale factor, rounding each component.
func mapToSource(rect image.Rectangle, scale float64) image.Rectangle {
	if scale == 1 {
		return rect
	}

	x := int(math.Round(float64(rect.Min.X) / scale))
	y := int(math.Round(float64(rect.Min.Y) / scale))
	w := int(math.Round(float64(rect.Dx()) / scale))
	h := int(math.Round(float64(rect.Dy()) / scale))
	return image.Rect(x, y, x+w, y+h)
}

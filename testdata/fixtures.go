// Package testdata builds synthetic camera frames for tests. Frames are
// generated rather than embedded so tests do not depend on capture
// hardware or binary assets.
package testdata

import (
	"image"

	"gocv.io/x/gocv"
)

// SolidFrame returns a single-color BGR frame.
func SolidFrame(width, height int, value float64) *gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(value, value, value, 0),
		height, width, gocv.MatTypeCV8UC3,
	)
	return &mat
}

// FaceFrame returns a dark frame with a bright square region where a face
// would be, bright enough to produce a usable crop.
func FaceFrame(width, height int, faceBox image.Rectangle) *gocv.Mat {
	frame := SolidFrame(width, height, 20)

	region := frame.Region(faceBox.Intersect(image.Rect(0, 0, width, height)))
	region.SetTo(gocv.NewScalar(180, 160, 150, 0))
	region.Close()

	return frame
}

// MotionSequence returns frames that alternate between dark and bright so
// a motion gate always sees an active scene. The caller owns the Mats.
func MotionSequence(width, height, count int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, count)
	for i := 0; i < count; i++ {
		value := 20.0
		if i%2 == 1 {
			value = 200.0
		}
		frames = append(frames, SolidFrame(width, height, value))
	}
	return frames
}

// CloseFrames releases every Mat in the slice.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

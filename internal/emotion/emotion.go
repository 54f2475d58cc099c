// Package emotion defines the emotion class model shared by the detection
// pipeline: the fixed class count, the mapping from model output indexes to
// classes, and per-class display labels and overlay colors.
package emotion

import "image/color"

// ClassCount is the number of classes produced by the emotion model,
// including the uncertain sentinel.
const ClassCount = 8

// Emotion identifies one emotion class.
type Emotion int

const (
	Happy Emotion = iota
	Sad
	Angry
	Fear
	Surprise
	Disgust
	Neutral
	// Uncertain is the sentinel class used when no class clears the
	// confidence threshold.
	Uncertain
)

// FromModelIndex maps an index in the model's output vector to its emotion
// class. The model's class order differs from the declaration order above;
// indexes outside the vector map to Uncertain.
func FromModelIndex(index int) Emotion {
	switch index {
	case 0:
		return Neutral
	case 1:
		return Happy
	case 2:
		return Surprise
	case 3:
		return Sad
	case 4:
		return Angry
	case 5:
		return Disgust
	case 6:
		return Fear
	case 7:
		return Uncertain
	default:
		return Uncertain
	}
}

// String returns the display label for the emotion.
func (e Emotion) String() string {
	switch e {
	case Happy:
		return "Happy"
	case Sad:
		return "Sad"
	case Angry:
		return "Angry"
	case Fear:
		return "Fear"
	case Surprise:
		return "Surprise"
	case Disgust:
		return "Disgust"
	case Neutral:
		return "Neutral"
	case Uncertain:
		return "Uncertain"
	default:
		return "Uncertain"
	}
}

// Color returns the overlay color used when drawing boxes and labels for
// faces carrying this emotion.
func (e Emotion) Color() color.RGBA {
	switch e {
	case Happy:
		return color.RGBA{R: 255, G: 220, B: 0, A: 255}
	case Sad:
		return color.RGBA{R: 32, G: 96, B: 255, A: 255}
	case Angry:
		return color.RGBA{R: 240, G: 32, B: 32, A: 255}
	case Fear:
		return color.RGBA{R: 220, G: 0, B: 180, A: 255}
	case Surprise:
		return color.RGBA{R: 120, G: 255, B: 0, A: 255}
	case Disgust:
		return color.RGBA{R: 80, G: 180, B: 80, A: 255}
	case Neutral:
		return color.RGBA{R: 200, G: 200, B: 200, A: 255}
	case Uncertain:
		return color.RGBA{R: 100, G: 100, B: 100, A: 255}
	default:
		return color.RGBA{R: 100, G: 100, B: 100, A: 255}
	}
}

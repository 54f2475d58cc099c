// Package vision provides the face detection and emotion classification
// adapters consumed by the inference worker.
package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/mimika/internal/emotion"
)

// Detection is one face detector hit: a bounding box in the coordinates of
// the frame handed to DetectFaces, plus the detector's raw score.
type Detection struct {
	Box   image.Rectangle
	Score float32
}

// FaceDetector locates faces in a frame.
type FaceDetector interface {
	// DetectFaces analyzes a BGR frame and returns detected faces.
	// Returns an empty slice if no faces are found.
	DetectFaces(frame gocv.Mat) ([]Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// EmotionClassifier scores a face crop against the emotion classes.
type EmotionClassifier interface {
	// Classify runs the emotion model on a BGR face crop and returns the raw
	// model output. The output is not necessarily a probability
	// distribution; callers normalize it.
	Classify(face gocv.Mat) ([emotion.ClassCount]float32, error)

	// Close releases any resources held by the classifier.
	Close() error
}

// Config holds tuning options for the gocv-backed adapters.
type Config struct {
	// ScoreThreshold is the face detector's minimum score (0.0-1.0).
	ScoreThreshold float32

	// NMSThreshold is the detector's non-maximum-suppression overlap.
	NMSThreshold float32

	// TopK caps the detector's candidate count before suppression.
	TopK int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold: 0.7,
		NMSThreshold:   0.3,
		TopK:           5000,
	}
}

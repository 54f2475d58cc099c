package vision

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// yunetOutputCols is the column count of the YuNet output matrix: box (4),
// five landmark points (10), and the score in the last column.
const (
	yunetOutputCols = 15
	yunetScoreCol   = 14
)

// YuNetDetector implements FaceDetector using the OpenCV YuNet model.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	mu       sync.Mutex
	closed   bool
}

// NewYuNetDetector loads a YuNet model from the given ONNX file.
func NewYuNetDetector(modelPath string, config Config) (*YuNetDetector, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("face model %s: %w", modelPath, err)
	}

	detector := gocv.NewFaceDetectorYN(modelPath, "", image.Pt(320, 320))
	detector.SetScoreThreshold(config.ScoreThreshold)
	detector.SetNMSThreshold(config.NMSThreshold)
	detector.SetTopK(config.TopK)

	return &YuNetDetector{detector: detector}, nil
}

// DetectFaces runs YuNet on the frame and returns every hit with a positive
// score. Boxes are in the frame's own coordinates.
func (d *YuNetDetector) DetectFaces(frame gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("face detector is closed")
	}
	if frame.Empty() {
		return nil, nil
	}

	d.detector.SetInputSize(image.Pt(frame.Cols(), frame.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	count := d.detector.Detect(frame, &faces)
	if count <= 0 || faces.Empty() {
		return nil, nil
	}

	detections := make([]Detection, 0, faces.Rows())
	for row := 0; row < faces.Rows(); row++ {
		if faces.Cols() < yunetOutputCols {
			continue
		}

		score := faces.GetFloatAt(row, yunetScoreCol)
		if score <= 0 {
			continue
		}

		x := int(faces.GetFloatAt(row, 0))
		y := int(faces.GetFloatAt(row, 1))
		w := int(faces.GetFloatAt(row, 2))
		h := int(faces.GetFloatAt(row, 3))

		detections = append(detections, Detection{
			Box:   image.Rect(x, y, x+w, y+h),
			Score: score,
		})
	}

	return detections, nil
}

// Close releases the underlying model.
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.detector.Close()
}

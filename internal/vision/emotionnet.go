package vision

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mimika/internal/emotion"
)

// emotionInputSize is the side length of the square grayscale input the
// emotion model expects.
const emotionInputSize = 64

// EmotionNet implements EmotionClassifier using an ONNX emotion model run
// through the OpenCV DNN module.
type EmotionNet struct {
	net    gocv.Net
	mu     sync.Mutex
	closed bool
}

// NewEmotionNet loads the emotion model from the given ONNX file.
func NewEmotionNet(modelPath string) (*EmotionNet, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("emotion model %s: %w", modelPath, err)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("emotion model %s: failed to load network", modelPath)
	}

	return &EmotionNet{net: net}, nil
}

// Classify preprocesses the face crop (grayscale, 64x64, histogram
// equalization) and returns the model's raw output vector.
func (c *EmotionNet) Classify(face gocv.Mat) ([emotion.ClassCount]float32, error) {
	var output [emotion.ClassCount]float32

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return output, fmt.Errorf("emotion classifier is closed")
	}
	if face.Empty() {
		return output, nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if face.Channels() > 1 {
		gocv.CvtColor(face, &gray, gocv.ColorBGRToGray)
	} else {
		face.CopyTo(&gray)
	}

	gocv.Resize(gray, &gray, image.Pt(emotionInputSize, emotionInputSize), 0, 0, gocv.InterpolationLinear)
	gocv.EqualizeHist(gray, &gray)

	grayFloat := gocv.NewMat()
	defer grayFloat.Close()
	gray.ConvertTo(&grayFloat, gocv.MatTypeCV32F)

	blob := gocv.BlobFromImage(grayFloat, 1.0, image.Pt(emotionInputSize, emotionInputSize), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	result := c.net.Forward("")
	defer result.Close()

	if result.Empty() {
		return output, nil
	}

	flattened := result.Reshape(1, 1)
	defer flattened.Close()

	count := flattened.Cols()
	if count > emotion.ClassCount {
		count = emotion.ClassCount
	}
	for i := 0; i < count; i++ {
		output[i] = flattened.GetFloatAt(0, i)
	}

	return output, nil
}

// Close releases the underlying network.
func (c *EmotionNet) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.net.Close()
}

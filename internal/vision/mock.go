package vision

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mimika/internal/emotion"
)

// MockFaceDetector is a test implementation of the FaceDetector interface.
// It lets tests control detection results and observe the frames the worker
// hands to it.
type MockFaceDetector struct {
	mu         sync.Mutex
	detections []Detection
	err        error
	calls      int
	frameSizes []image.Point
	gate       chan struct{}
}

// NewMockFaceDetector creates a new MockFaceDetector instance.
func NewMockFaceDetector() *MockFaceDetector {
	return &MockFaceDetector{}
}

// SetDetections sets the detections that will be returned by DetectFaces.
func (m *MockFaceDetector) SetDetections(detections []Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = detections
}

// SetError sets the error that will be returned by DetectFaces.
func (m *MockFaceDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Gate installs a channel the next DetectFaces calls block on. Tests use it
// to hold the worker mid-iteration while they submit more frames.
func (m *MockFaceDetector) Gate(gate chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = gate
}

// Calls returns the number of DetectFaces invocations so far.
func (m *MockFaceDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// FrameSizes returns the width/height of every frame seen, in call order.
func (m *MockFaceDetector) FrameSizes() []image.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]image.Point, len(m.frameSizes))
	copy(sizes, m.frameSizes)
	return sizes
}

// DetectFaces returns the pre-configured detections or error.
func (m *MockFaceDetector) DetectFaces(frame gocv.Mat) ([]Detection, error) {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.frameSizes = append(m.frameSizes, image.Pt(frame.Cols(), frame.Rows()))
	if m.err != nil {
		return nil, m.err
	}
	return m.detections, nil
}

// Close is a no-op for the mock detector.
func (m *MockFaceDetector) Close() error {
	return nil
}

// MockEmotionClassifier is a test implementation of the EmotionClassifier
// interface returning a fixed raw output vector.
type MockEmotionClassifier struct {
	mu     sync.Mutex
	output [emotion.ClassCount]float32
	err    error
	calls  int
}

// NewMockEmotionClassifier creates a new MockEmotionClassifier instance.
func NewMockEmotionClassifier() *MockEmotionClassifier {
	return &MockEmotionClassifier{}
}

// SetOutput sets the raw scores that will be returned by Classify.
func (m *MockEmotionClassifier) SetOutput(output [emotion.ClassCount]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.output = output
}

// SetError sets the error that will be returned by Classify.
func (m *MockEmotionClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Classify invocations so far.
func (m *MockEmotionClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Classify returns the pre-configured raw scores or error.
func (m *MockEmotionClassifier) Classify(face gocv.Mat) ([emotion.ClassCount]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return [emotion.ClassCount]float32{}, m.err
	}
	return m.output, nil
}

// Close is a no-op for the mock classifier.
func (m *MockEmotionClassifier) Close() error {
	return nil
}

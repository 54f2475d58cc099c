package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion gate constants.
const (
	// gateWidth is the width frames are downscaled to before differencing.
	// Motion gating only needs coarse change detection.
	gateWidth = 160
	// gateBlurSize is the kernel size for the noise-reduction blur.
	gateBlurSize = 9
	// gateDiffThreshold is the binary threshold for pixel differences.
	gateDiffThreshold = 25
)

// MotionGate decides whether a scene is active by frame differencing. The
// app uses it to lower the capture rate when nothing moves in front of the
// camera, so the inference worker idles instead of reclassifying a static
// scene.
type MotionGate struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionGate creates a MotionGate. The threshold is the percentage of
// pixels that must change for the scene to count as active, e.g. 1.0 for 1%.
func NewMotionGate(threshold float64) *MotionGate {
	return &MotionGate{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares the frame against the previous one and reports whether the
// scene is active, plus the percentage of pixels that changed. The first
// frame only establishes the baseline and reports no motion.
func (g *MotionGate) Detect(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	// Downscale before differencing: full resolution adds nothing here.
	if gray.Cols() > gateWidth {
		scaledHeight := gray.Rows() * gateWidth / gray.Cols()
		if scaledHeight < 1 {
			scaledHeight = 1
		}
		gocv.Resize(gray, &gray, image.Pt(gateWidth, scaledHeight), 0, 0, gocv.InterpolationArea)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(gateBlurSize, gateBlurSize), 0, 0, gocv.BorderDefault)

	if !g.initialized {
		blurred.CopyTo(&g.prevGray)
		g.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, gateDiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	totalPixels := thresh.Rows() * thresh.Cols()
	changePercent := float64(nonZero) / float64(totalPixels) * 100.0

	blurred.CopyTo(&g.prevGray)

	return changePercent > g.threshold, changePercent
}

// Reset clears the baseline so the next frame starts a fresh comparison.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.prevGray.Empty() {
		g.prevGray.Close()
		g.prevGray = gocv.NewMat()
	}
	g.initialized = false
}

// Close releases resources held by the gate.
func (g *MotionGate) Close() {
	g.Reset()
}

// SetThreshold updates the activity threshold.
// Values less than or equal to 0 are ignored.
func (g *MotionGate) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.threshold = threshold
}

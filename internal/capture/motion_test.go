package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewMotionGate(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
	}{
		{name: "default threshold", threshold: 1.0},
		{name: "high threshold", threshold: 5.0},
		{name: "low threshold", threshold: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewMotionGate(tt.threshold)
			if g == nil {
				t.Fatal("NewMotionGate returned nil")
			}
			defer g.Close()

			if g.threshold != tt.threshold {
				t.Errorf("threshold = %f, want %f", g.threshold, tt.threshold)
			}
			if g.initialized {
				t.Error("motion gate should not be initialized initially")
			}
		})
	}
}

func TestMotionGate_SetThreshold(t *testing.T) {
	g := NewMotionGate(1.0)
	defer g.Close()

	g.SetThreshold(2.5)
	if g.threshold != 2.5 {
		t.Errorf("threshold = %f, want 2.5", g.threshold)
	}

	// Non-positive values are ignored.
	g.SetThreshold(0)
	g.SetThreshold(-1)
	if g.threshold != 2.5 {
		t.Errorf("threshold = %f after ignored updates, want 2.5", g.threshold)
	}
}

func TestMotionGate_NoMotionOnStaticScene(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	// First frame establishes the baseline.
	if active, _ := g.Detect(&frame1); active {
		t.Error("first frame reported motion")
	}

	active, changed := g.Detect(&frame2)
	if active {
		t.Errorf("identical frames reported motion (%.2f%% changed)", changed)
	}
}

func TestMotionGate_DetectsSceneChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	dark := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer dark.Close()

	bright := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer bright.Close()

	g.Detect(&dark)

	active, changed := g.Detect(&bright)
	if !active {
		t.Errorf("full-frame change not reported as motion (%.2f%% changed)", changed)
	}
}

func TestMotionGate_ResetClearsBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0)
	defer g.Close()

	dark := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer dark.Close()
	bright := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer bright.Close()

	g.Detect(&dark)
	g.Reset()

	// After Reset the bright frame is a new baseline, not a change.
	if active, _ := g.Detect(&bright); active {
		t.Error("frame right after Reset reported motion")
	}
}

func TestMotionGate_NilAndEmptyFrames(t *testing.T) {
	g := NewMotionGate(1.0)
	defer g.Close()

	if active, changed := g.Detect(nil); active || changed != 0 {
		t.Errorf("Detect(nil) = (%v, %f), want (false, 0)", active, changed)
	}
}

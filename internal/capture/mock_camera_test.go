package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_ReadBeforeOpen(t *testing.T) {
	c := NewMockCamera(nil, false)

	if _, _, err := c.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame before Open error = %v, want ErrCameraNotOpen", err)
	}
}

func TestMockCamera_PlaybackAndTimestamps(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame1 := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	c := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)
	if err := c.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	got1, ts1, err := c.ReadFrame()
	if err != nil {
		t.Fatalf("first ReadFrame error = %v", err)
	}
	got1.Close()

	got2, ts2, err := c.ReadFrame()
	if err != nil {
		t.Fatalf("second ReadFrame error = %v", err)
	}
	got2.Close()

	if ts2 <= ts1 {
		t.Errorf("timestamps not increasing: %d then %d", ts1, ts2)
	}

	// Sequence exhausted without looping.
	if _, _, err := c.ReadFrame(); err == nil {
		t.Error("expected error after sequence end")
	}
}

func TestMockCamera_Loop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	c := NewMockCamera([]*gocv.Mat{&frame}, true)
	if err := c.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer c.Close()

	for i := 0; i < 3; i++ {
		got, _, err := c.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d error = %v", i, err)
		}
		got.Close()
	}
}

package infer

import (
	"image"
	"testing"
)

func TestSquareRect(t *testing.T) {
	tests := []struct {
		name   string
		rect   image.Rectangle
		width  int
		height int
		want   image.Rectangle
	}{
		{
			name:   "wide box becomes square on long side",
			rect:   image.Rect(100, 100, 200, 150),
			width:  640,
			height: 480,
			// side 100 centered on (150, 125)
			want: image.Rect(100, 75, 200, 175),
		},
		{
			name:   "tall box becomes square on long side",
			rect:   image.Rect(100, 100, 140, 200),
			width:  640,
			height: 480,
			// side 100 centered on (120, 150)
			want: image.Rect(70, 100, 170, 200),
		},
		{
			name:   "square clipped at frame edge",
			rect:   image.Rect(0, 0, 60, 30),
			width:  640,
			height: 480,
			// side 60 centered on (30, 15): top clipped at 0
			want: image.Rect(0, 0, 60, 45),
		},
		{
			name:   "empty box stays empty",
			rect:   image.Rectangle{},
			width:  640,
			height: 480,
			want:   image.Rectangle{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := squareRect(tt.rect, tt.width, tt.height)
			if got != tt.want {
				t.Errorf("squareRect(%v) = %v, want %v", tt.rect, got, tt.want)
			}
		})
	}
}

func TestSquareRect_CollapseFallsBackToClippedBox(t *testing.T) {
	// A thin sliver at the very edge: the centered square lands almost
	// entirely outside the frame and collapses, so the clipped original box
	// is used instead.
	rect := image.Rect(-100, 200, 1, 203)
	got := squareRect(rect, 640, 480)

	want := clampRect(rect, 640, 480)
	if got != want {
		t.Errorf("squareRect fallback = %v, want clipped original %v", got, want)
	}
	if got.Empty() {
		t.Error("fallback rect is empty")
	}
}

func TestClampRect(t *testing.T) {
	tests := []struct {
		name string
		rect image.Rectangle
		want image.Rectangle
	}{
		{name: "inside", rect: image.Rect(10, 10, 20, 20), want: image.Rect(10, 10, 20, 20)},
		{name: "overhangs right", rect: image.Rect(600, 10, 700, 20), want: image.Rect(600, 10, 640, 20)},
		{name: "negative origin", rect: image.Rect(-10, -10, 20, 20), want: image.Rect(0, 0, 20, 20)},
		{name: "fully outside", rect: image.Rect(700, 500, 800, 600), want: image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampRect(tt.rect, 640, 480)
			if tt.want.Empty() {
				if !got.Empty() {
					t.Errorf("clampRect = %v, want empty", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("clampRect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapToSource(t *testing.T) {
	// A box detected at half scale maps back to double size.
	got := mapToSource(image.Rect(50, 40, 150, 120), 0.5)
	want := image.Rect(100, 80, 300, 240)
	if got != want {
		t.Errorf("mapToSource = %v, want %v", got, want)
	}

	// Unit scale is the identity.
	rect := image.Rect(3, 7, 11, 19)
	if got := mapToSource(rect, 1); got != rect {
		t.Errorf("mapToSource at scale 1 = %v, want %v", got, rect)
	}
}

// Package server provides the HTTP server for the mimika emotion overlay.
package server

import (
	"fmt"
	"image"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mimika/internal/app"
	"github.com/ayusman/mimika/internal/track"
)

// StreamHandler serves MJPEG frames from the camera with the emotion
// overlay drawn in.
type StreamHandler struct {
	app *app.App
}

// NewStreamHandler creates a new StreamHandler over the given app.
func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{app: a}
}

// drawOverlay paints tracked faces onto the frame: a box per face in the
// emotion's color, with the label and smoothed confidence above it.
func drawOverlay(frame *gocv.Mat, faces []track.Face) {
	for _, face := range faces {
		c := face.Label.Color()
		gocv.Rectangle(frame, face.Box, c, 2)

		text := fmt.Sprintf("%s %.2f", face.Label, face.Confidence)
		org := image.Pt(face.Box.Min.X, face.Box.Min.Y-8)
		if org.Y < 12 {
			org.Y = face.Box.Min.Y + 16
		}
		gocv.PutText(frame, text, org, gocv.FontHersheySimplex, 0.6, c, 2)
	}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	camera := h.app.Camera()

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, _, err := camera.ReadFrame()
		if err != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		drawOverlay(frame, h.app.LatestFaces())

		// Encode as JPEG
		buf, err := gocv.IMEncode(".jpg", *frame)
		frame.Close()
		if err != nil {
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(66 * time.Millisecond) // ~15 FPS
	}
}

// Package server provides the HTTP server for the mimika emotion overlay.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mimika/internal/infer"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// faceMessage is the wire form of one tracked face.
type faceMessage struct {
	TrackID    int     `json:"track_id"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

// FacesHandler pushes finished inference results to WebSocket clients.
// Results arrive via Publish; the handler never touches the camera or the
// worker itself.
type FacesHandler struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewFacesHandler creates a new FacesHandler.
func NewFacesHandler() *FacesHandler {
	return &FacesHandler{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *FacesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish sends one inference result to all connected clients. It is safe
// to call with no clients connected.
func (h *FacesHandler) Publish(result infer.Result) {
	h.mu.RLock()
	empty := len(h.clients) == 0
	h.mu.RUnlock()
	if empty {
		return
	}

	faces := make([]faceMessage, 0, len(result.Faces))
	for _, face := range result.Faces {
		faces = append(faces, faceMessage{
			TrackID:    face.TrackID,
			X:          face.Box.Min.X,
			Y:          face.Box.Min.Y,
			Width:      face.Box.Dx(),
			Height:     face.Box.Dy(),
			Label:      face.Label.String(),
			Confidence: face.Confidence,
		})
	}

	msg, _ := json.Marshal(map[string]any{
		"faces":        faces,
		"timestamp_ns": result.TimestampNS,
		"inference_ms": result.InferenceMS,
	})

	h.mu.RLock()
	for conn := range h.clients {
		conn.WriteMessage(websocket.TextMessage, msg)
	}
	h.mu.RUnlock()
}

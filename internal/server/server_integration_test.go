package server

import (
	"bytes"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mimika/internal/emotion"
	"github.com/ayusman/mimika/internal/infer"
	"github.com/ayusman/mimika/internal/store"
	"github.com/ayusman/mimika/internal/track"
)

func TestAPI_PresetWorkflow(t *testing.T) {
	// Setup
	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "test.db"))
	defer s.Close()

	srv := New(Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Create a preset
	createBody := `{"name": "close-up", "max_faces": 1, "inference_width": 320}`
	resp, err := client.Post(ts.URL+"/api/presets", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/presets error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var created struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		MaxFaces int    `json:"max_faces"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Name != "close-up" {
		t.Errorf("created name = %s, want close-up", created.Name)
	}
	if created.MaxFaces != 1 {
		t.Errorf("created max_faces = %d, want 1", created.MaxFaces)
	}

	// 2. List presets
	resp, _ = client.Get(ts.URL + "/api/presets")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/presets status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var listed struct {
		Presets []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"presets"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Presets) != 1 || listed.Presets[0].ID != created.ID {
		t.Fatalf("listed presets = %+v, want the created preset", listed.Presets)
	}

	// 3. Update the preset
	updateBody := `{"confidence_threshold": 0.5}`
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/presets/"+created.ID, bytes.NewBufferString(updateBody))
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/presets/{id} error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// 4. Delete the preset
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/presets/"+created.ID, nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("DELETE /api/presets/{id} error = %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 5. Gone
	resp, _ = client.Get(ts.URL + "/api/presets/" + created.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET deleted preset status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestFacesHandler_PublishesToClients(t *testing.T) {
	h := NewFacesHandler()

	ts := httptest.NewServer(h)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the client before publishing.
	deadline := time.Now().Add(2 * time.Second)
	published := false
	result := infer.Result{
		Faces: []track.Face{
			{
				TrackID:    7,
				Box:        image.Rect(10, 20, 110, 140),
				Label:      emotion.Happy,
				Confidence: 0.91,
			},
		},
		InferenceMS: 12.5,
		TimestampNS: 123456789,
	}

	conn.SetReadDeadline(deadline)

	var payload struct {
		Faces []struct {
			TrackID    int     `json:"track_id"`
			X          int     `json:"x"`
			Y          int     `json:"y"`
			Width      int     `json:"width"`
			Height     int     `json:"height"`
			Label      string  `json:"label"`
			Confidence float32 `json:"confidence"`
		} `json:"faces"`
		InferenceMS float64 `json:"inference_ms"`
	}

	// The handler registers the connection on its own goroutine, so retry
	// the publish until the message comes through.
	for time.Now().Before(deadline) {
		h.Publish(result)
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			continue
		}
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal push message: %v", err)
		}
		published = true
		break
	}

	if !published {
		t.Fatal("no message received from faces websocket")
	}

	if len(payload.Faces) != 1 {
		t.Fatalf("got %d faces, want 1", len(payload.Faces))
	}
	face := payload.Faces[0]
	if face.TrackID != 7 {
		t.Errorf("track_id = %d, want 7", face.TrackID)
	}
	if face.X != 10 || face.Y != 20 || face.Width != 100 || face.Height != 120 {
		t.Errorf("box = (%d,%d %dx%d), want (10,20 100x120)", face.X, face.Y, face.Width, face.Height)
	}
	if face.Label != "Happy" {
		t.Errorf("label = %q, want Happy", face.Label)
	}
	if payload.InferenceMS != 12.5 {
		t.Errorf("inference_ms = %v, want 12.5", payload.InferenceMS)
	}
}

func TestFacesHandler_PublishWithoutClients(t *testing.T) {
	h := NewFacesHandler()

	// Must not panic or block with nobody connected.
	h.Publish(infer.Result{})
}

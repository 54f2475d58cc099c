// Package server provides the HTTP server for the mimika emotion overlay.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mimika/internal/app"
	"github.com/ayusman/mimika/internal/server/api"
	"github.com/ayusman/mimika/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
}

// Server represents the HTTP server for the mimika application.
type Server struct {
	config Config
	mux    *http.ServeMux
	faces  *FacesHandler
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Register preset and session API handlers if Store is configured
	if s.config.Store != nil {
		presetHandler := api.NewPresetHandler(s.config.Store)

		// Use a wrapper to route preset apply requests, which need the
		// running app: /api/presets/{id}/apply
		presetRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/apply") {
				s.handleApplyPreset(w, r)
				return
			}
			presetHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/presets", presetRouter)
		s.mux.Handle("/api/presets/", presetRouter)

		sessionHandler := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessionHandler)
		s.mux.Handle("/api/sessions/", sessionHandler)
	}

	if s.config.App != nil {
		// MJPEG stream with the emotion overlay drawn in.
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))

		// WebSocket push of finished face results.
		s.faces = NewFacesHandler()
		s.config.App.OnResult(s.faces.Publish)
		s.mux.Handle("/api/faces", s.faces)

		s.mux.HandleFunc("/api/detection", s.handleDetection)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleApplyPreset handles POST /api/presets/{id}/apply. It loads the
// preset and pushes its values to the inference worker.
func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.App == nil {
		http.Error(w, "Detection pipeline not running", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/presets/")
	id := strings.TrimSuffix(path, "/apply")

	preset, err := s.config.Store.Presets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Preset not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get preset", http.StatusInternalServerError)
		return
	}

	s.config.App.ApplyPreset(preset)

	config := s.config.App.WorkerConfig()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":               "applied",
		"max_faces":            config.MaxFaces,
		"inference_width":      config.InferenceWidth,
		"confidence_threshold": config.ConfidenceThreshold,
		"smoothing_seconds":    config.SmoothingSeconds,
	})
}

// handleDetection reports and toggles the detection pipeline state.
// GET returns the current state, POST {"enabled": bool} changes it.
func (s *Server) handleDetection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"enabled": s.config.App.IsEnabled()})
	case http.MethodPost:
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		s.config.App.SetEnabled(*req.Enabled)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"enabled": s.config.App.IsEnabled()})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

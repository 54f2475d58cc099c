// Package api provides HTTP API handlers for the mimika emotion overlay.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mimika/internal/store"
)

// PresetHandler handles HTTP requests for worker tuning presets.
type PresetHandler struct {
	store *store.Store
}

// NewPresetHandler creates a new PresetHandler with the given store.
func NewPresetHandler(s *store.Store) *PresetHandler {
	return &PresetHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *PresetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Parse the path to determine if this is a collection or item request
	// Expected paths: /api/presets or /api/presets/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/presets")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		// Collection endpoint: /api/presets
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// Item endpoint: /api/presets/{id}
	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createPresetRequest struct {
	Name                string   `json:"name"`
	MaxFaces            int      `json:"max_faces"`
	InferenceWidth      int      `json:"inference_width"`
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
	SmoothingSeconds    *float64 `json:"smoothing_seconds"`
}

type updatePresetRequest struct {
	Name                string   `json:"name"`
	MaxFaces            *int     `json:"max_faces"`
	InferenceWidth      *int     `json:"inference_width"`
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
	SmoothingSeconds    *float64 `json:"smoothing_seconds"`
}

type presetResponse struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	MaxFaces            int     `json:"max_faces"`
	InferenceWidth      int     `json:"inference_width"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	SmoothingSeconds    float64 `json:"smoothing_seconds"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

type listPresetsResponse struct {
	Presets []presetResponse `json:"presets"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Preset to a presetResponse.
func toResponse(p *store.Preset) presetResponse {
	return presetResponse{
		ID:                  p.ID,
		Name:                p.Name,
		MaxFaces:            p.MaxFaces,
		InferenceWidth:      p.InferenceWidth,
		ConfidenceThreshold: p.ConfidenceThreshold,
		SmoothingSeconds:    p.SmoothingSeconds,
		CreatedAt:           p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:           p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// validThreshold reports whether the confidence threshold is usable.
func validThreshold(v float64) bool {
	return v >= 0 && v <= 1
}

// list handles GET /api/presets and returns all presets.
func (h *PresetHandler) list(w http.ResponseWriter, r *http.Request) {
	presets, err := h.store.Presets().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list presets")
		return
	}

	response := listPresetsResponse{
		Presets: make([]presetResponse, 0, len(presets)),
	}

	for _, p := range presets {
		response.Presets = append(response.Presets, toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/presets/{id} and returns a single preset.
func (h *PresetHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	preset, err := h.store.Presets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get preset")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(preset))
}

// create handles POST /api/presets and creates a new preset.
func (h *PresetHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate required fields
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	// Fill in worker defaults for anything not provided
	maxFaces := req.MaxFaces
	if maxFaces == 0 {
		maxFaces = 3
	}
	if maxFaces < 1 {
		writeError(w, http.StatusBadRequest, "max_faces must be at least 1")
		return
	}

	inferenceWidth := req.InferenceWidth
	if inferenceWidth == 0 {
		inferenceWidth = 640
	}
	if inferenceWidth < 0 {
		writeError(w, http.StatusBadRequest, "inference_width must not be negative")
		return
	}

	confidenceThreshold := 0.30
	if req.ConfidenceThreshold != nil {
		confidenceThreshold = *req.ConfidenceThreshold
	}
	if !validThreshold(confidenceThreshold) {
		writeError(w, http.StatusBadRequest, "confidence_threshold must be in [0, 1]")
		return
	}

	smoothingSeconds := 0.6
	if req.SmoothingSeconds != nil {
		smoothingSeconds = *req.SmoothingSeconds
	}

	preset := &store.Preset{
		ID:                  uuid.New().String(),
		Name:                req.Name,
		MaxFaces:            maxFaces,
		InferenceWidth:      inferenceWidth,
		ConfidenceThreshold: confidenceThreshold,
		SmoothingSeconds:    smoothingSeconds,
	}

	if err := h.store.Presets().Create(preset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create preset")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(preset))
}

// update handles PUT /api/presets/{id} and updates an existing preset.
func (h *PresetHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	// First, get the existing preset
	preset, err := h.store.Presets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get preset")
		return
	}

	var req updatePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Update fields if provided
	if req.Name != "" {
		preset.Name = req.Name
	}
	if req.MaxFaces != nil {
		if *req.MaxFaces < 1 {
			writeError(w, http.StatusBadRequest, "max_faces must be at least 1")
			return
		}
		preset.MaxFaces = *req.MaxFaces
	}
	if req.InferenceWidth != nil {
		if *req.InferenceWidth < 0 {
			writeError(w, http.StatusBadRequest, "inference_width must not be negative")
			return
		}
		preset.InferenceWidth = *req.InferenceWidth
	}
	if req.ConfidenceThreshold != nil {
		if !validThreshold(*req.ConfidenceThreshold) {
			writeError(w, http.StatusBadRequest, "confidence_threshold must be in [0, 1]")
			return
		}
		preset.ConfidenceThreshold = *req.ConfidenceThreshold
	}
	if req.SmoothingSeconds != nil {
		preset.SmoothingSeconds = *req.SmoothingSeconds
	}

	if err := h.store.Presets().Update(preset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update preset")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(preset))
}

// delete handles DELETE /api/presets/{id} and removes a preset.
func (h *PresetHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Presets().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Preset not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete preset")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

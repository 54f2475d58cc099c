// Package app wires the capture, inference and storage pieces of the mimika
// emotion overlay together and drives the frame loop.
package app

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/mimika/internal/capture"
	"github.com/ayusman/mimika/internal/infer"
	"github.com/ayusman/mimika/internal/store"
	"github.com/ayusman/mimika/internal/track"
	"github.com/ayusman/mimika/internal/vision"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when the scene is static.
	IdleFPS = 5
	// ActiveFPS is the frame rate while motion is present.
	ActiveFPS = 15
	// IdleTimeoutMs is how long motion must be absent before dropping back
	// to the idle rate.
	IdleTimeoutMs = 2000
)

// Config holds configuration options for the application.
type Config struct {
	Store            *store.Store
	CameraID         int
	FaceModelPath    string
	EmotionModelPath string
	MotionThresh     float64
	Worker           infer.Config
}

// App owns the camera, the motion gate and the inference worker, and runs
// the loop that feeds frames in and fans results out.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionGate
	worker     *infer.Worker
	detector   vision.FaceDetector
	classifier vision.EmotionClassifier

	mu           sync.RWMutex
	enabled      bool
	stopCh       chan struct{}
	pipelineDone chan struct{}

	onResult func(infer.Result)

	latestMu    sync.RWMutex
	latestFaces []track.Face

	sessionID     string
	sessionFrames int64
	sessionFaces  int64
	emotionCounts map[string]int64
	statsMu       sync.Mutex
}

// New creates a new App instance with the given configuration. Classifier
// adapters are loaded separately via LoadModels or injected with
// SetAdapters.
func New(config Config) *App {
	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // 1% pixel change
	}

	return &App{
		config:        config,
		camera:        capture.NewCamera(config.CameraID),
		motion:        capture.NewMotionGate(motionThreshold),
		worker:        infer.NewWorker(),
		enabled:       true,
		emotionCounts: make(map[string]int64),
	}
}

// LoadModels creates the gocv-backed face detector and emotion classifier
// from the configured model paths.
func (a *App) LoadModels() error {
	detector, err := vision.NewYuNetDetector(a.config.FaceModelPath, vision.DefaultConfig())
	if err != nil {
		return err
	}

	classifier, err := vision.NewEmotionNet(a.config.EmotionModelPath)
	if err != nil {
		detector.Close()
		return err
	}

	a.SetAdapters(detector, classifier)
	return nil
}

// SetAdapters injects the classifier adapters. Tests use this to supply
// mocks instead of model files.
func (a *App) SetAdapters(detector vision.FaceDetector, classifier vision.EmotionClassifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = detector
	a.classifier = classifier
}

// SetCamera replaces the camera implementation. Tests use this to supply a
// playback camera.
func (a *App) SetCamera(camera capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = camera
}

// SetEnabled enables or disables detection. While disabled the loop keeps
// ticking but submits no frames.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// OnResult registers a callback invoked for every consumed worker result.
// Must be set before Start.
func (a *App) OnResult(fn func(infer.Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onResult = fn
}

// LatestFaces returns a snapshot of the most recently published face list,
// without consuming the worker's result cache. Used by the overlay stream.
func (a *App) LatestFaces() []track.Face {
	a.latestMu.RLock()
	defer a.latestMu.RUnlock()

	faces := make([]track.Face, len(a.latestFaces))
	copy(faces, a.latestFaces)
	return faces
}

// UpdateWorkerConfig pushes new tuning values to the worker. They take
// effect on its next iteration.
func (a *App) UpdateWorkerConfig(config infer.Config) {
	a.mu.Lock()
	a.config.Worker = config
	a.mu.Unlock()
	a.worker.UpdateConfig(config)
}

// ApplyPreset converts a stored preset into worker configuration and
// applies it.
func (a *App) ApplyPreset(p *store.Preset) {
	a.UpdateWorkerConfig(infer.Config{
		MaxFaces:            p.MaxFaces,
		InferenceWidth:      p.InferenceWidth,
		ConfidenceThreshold: float32(p.ConfidenceThreshold),
		SmoothingSeconds:    float32(p.SmoothingSeconds),
	})
}

// WorkerConfig returns the currently configured worker tuning values.
func (a *App) WorkerConfig() infer.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.Worker
}

// Start opens the camera, starts the inference worker and launches the
// frame loop. A database session is opened when a store is configured.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	if err := a.worker.Start(a.detector, a.classifier, a.config.Worker); err != nil {
		a.camera.Close()
		return err
	}

	a.camera.SetFPS(IdleFPS)

	a.statsMu.Lock()
	a.sessionID = uuid.New().String()
	a.sessionFrames = 0
	a.sessionFaces = 0
	a.emotionCounts = make(map[string]int64)
	a.statsMu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Begin(&store.Session{ID: a.sessionID}); err != nil {
			log.Printf("Failed to open session: %v", err)
		}
	}

	a.stopCh = make(chan struct{})
	a.pipelineDone = make(chan struct{})
	go a.runPipeline(a.stopCh, a.pipelineDone)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the frame loop, stops the worker and releases the camera,
// then records the session summary.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh := a.stopCh
	done := a.pipelineDone
	a.stopCh = nil
	a.pipelineDone = nil
	a.mu.Unlock()

	// Join the frame loop before tearing anything down: it reads the
	// camera, feeds the worker and publishes results, and it takes the
	// app mutex on its way, so the wait happens unlocked.
	if stopCh != nil {
		close(stopCh)
	}
	if done != nil {
		<-done
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.worker.Stop()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()

	a.latestMu.Lock()
	a.latestFaces = nil
	a.latestMu.Unlock()

	a.statsMu.Lock()
	sessionID := a.sessionID
	frames := a.sessionFrames
	faces := a.sessionFaces
	counts := a.emotionCounts
	a.sessionID = ""
	a.emotionCounts = make(map[string]int64)
	a.statsMu.Unlock()

	if a.config.Store != nil && sessionID != "" {
		if err := a.config.Store.Sessions().Finish(sessionID, frames, faces, counts); err != nil {
			log.Printf("Failed to close session: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// CloseAdapters releases the classifier adapters. Called once the app is
// fully shut down.
func (a *App) CloseAdapters() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing face detector: %v", err)
		}
		a.detector = nil
	}
	if a.classifier != nil {
		if err := a.classifier.Close(); err != nil {
			log.Printf("Error closing emotion classifier: %v", err)
		}
		a.classifier = nil
	}
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Worker returns the inference worker.
func (a *App) Worker() *infer.Worker {
	return a.worker
}

// handleResult records session stats, refreshes the overlay snapshot and
// notifies the registered callback.
func (a *App) handleResult(result infer.Result) {
	a.latestMu.Lock()
	a.latestFaces = result.Faces
	a.latestMu.Unlock()

	a.statsMu.Lock()
	a.sessionFaces += int64(len(result.Faces))
	for _, face := range result.Faces {
		a.emotionCounts[face.Label.String()]++
	}
	a.statsMu.Unlock()

	a.mu.RLock()
	fn := a.onResult
	a.mu.RUnlock()
	if fn != nil {
		fn(result)
	}
}

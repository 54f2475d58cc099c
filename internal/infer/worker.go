// Package infer runs face detection and emotion classification on a single
// background goroutine, decoupled from the frame-delivery rate.
//
// Frames enter through a capacity-1 freshest-wins queue: a new submission
// evicts any frame still waiting, so the worker always processes the newest
// frame and never builds up a backlog. Results leave through a capacity-1
// consume-once cache polled by the caller; if the caller polls slower than
// the worker publishes, intermediate results are silently replaced.
package infer

import (
	"errors"
	"image"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mimika/internal/track"
	"github.com/ayusman/mimika/internal/vision"
)

// ErrNoDetector is returned by Start when no face detector is supplied.
var ErrNoDetector = errors.New("face detector not initialized")

// ErrNoClassifier is returned by Start when no emotion classifier is supplied.
var ErrNoClassifier = errors.New("emotion classifier not initialized")

// Config holds the worker's hot-reloadable tuning knobs. Values are expected
// to be pre-validated by the caller.
type Config struct {
	// MaxFaces is the maximum number of faces tracked per frame.
	MaxFaces int

	// InferenceWidth is the width frames are downscaled to before detection.
	// 0 disables downscaling.
	InferenceWidth int

	// ConfidenceThreshold is the minimum smoothed probability for a label;
	// below it a face is reported as uncertain.
	ConfidenceThreshold float32

	// SmoothingSeconds is the EMA time constant for label stabilization.
	// 0 disables smoothing.
	SmoothingSeconds float32
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxFaces:            3,
		InferenceWidth:      640,
		ConfidenceThreshold: 0.30,
		SmoothingSeconds:    0.6,
	}
}

// Result is one fully processed frame's output.
type Result struct {
	Faces       []track.Face
	InferenceMS float64
	TimestampNS uint64
}

// frameTask is one submitted frame awaiting inference. The worker owns the
// frame Mat and closes it after processing or eviction.
type frameTask struct {
	frame        gocv.Mat
	timestampNS  uint64
	sourceWidth  int
	sourceHeight int
}

type resultPacket struct {
	faces       []track.Face
	inferenceMS float64
	timestampNS uint64
	valid       bool
}

// Worker owns the inference goroutine, the frame queue, and the result
// cache. The zero value is not usable; create instances with NewWorker.
type Worker struct {
	configMu sync.Mutex
	config   Config

	queueMu       sync.Mutex
	queueCond     *sync.Cond
	pending       *frameTask
	stopRequested bool

	resultMu sync.Mutex
	latest   resultPacket

	running atomic.Bool
	done    chan struct{}

	detector   vision.FaceDetector
	classifier vision.EmotionClassifier
	tracker    *track.Tracker
}

// NewWorker creates a stopped Worker.
func NewWorker() *Worker {
	w := &Worker{tracker: track.NewTracker()}
	w.queueCond = sync.NewCond(&w.queueMu)
	return w
}

// Start resets all worker state and spawns the inference goroutine. It fails
// without spawning anything if either adapter is missing. A running worker
// is stopped first.
//
// Start and Stop are meant to be driven from a single owner goroutine;
// SubmitFrame, TryConsumeLatest and UpdateConfig may be called from any.
func (w *Worker) Start(detector vision.FaceDetector, classifier vision.EmotionClassifier, config Config) error {
	w.Stop()

	if detector == nil {
		return ErrNoDetector
	}
	if classifier == nil {
		return ErrNoClassifier
	}

	w.detector = detector
	w.classifier = classifier

	w.configMu.Lock()
	w.config = config
	w.configMu.Unlock()

	w.queueMu.Lock()
	w.dropPendingLocked()
	w.stopRequested = false
	w.queueMu.Unlock()

	w.resultMu.Lock()
	w.latest = resultPacket{}
	w.resultMu.Unlock()

	w.tracker.Reset()

	done := make(chan struct{})
	w.done = done
	go w.loop(done)
	w.running.Store(true)
	return nil
}

// Stop signals the inference goroutine to exit, waits for it, then clears
// the queue, the result cache and the tracker. Idempotent; safe to call
// before Start. An in-flight inference is allowed to finish.
func (w *Worker) Stop() {
	w.queueMu.Lock()
	w.stopRequested = true
	w.queueMu.Unlock()
	w.queueCond.Broadcast()

	if w.done != nil {
		<-w.done
		w.done = nil
	}

	w.queueMu.Lock()
	w.dropPendingLocked()
	w.stopRequested = false
	w.queueMu.Unlock()

	w.resultMu.Lock()
	w.latest = resultPacket{}
	w.resultMu.Unlock()

	w.running.Store(false)
	w.tracker.Reset()
}

// UpdateConfig replaces the active configuration. The new values take effect
// at the start of the next iteration, never mid-iteration.
func (w *Worker) UpdateConfig(config Config) {
	w.configMu.Lock()
	defer w.configMu.Unlock()
	w.config = config
}

// SubmitFrame copies the frame and enqueues it for inference. A frame still
// waiting in the queue is evicted: the freshest submission wins. No-op when
// the worker is not running or the frame is empty; never blocks on
// inference.
func (w *Worker) SubmitFrame(frame gocv.Mat, timestampNS uint64, sourceWidth, sourceHeight int) {
	if !w.running.Load() || frame.Empty() {
		return
	}

	task := &frameTask{
		frame:        frame.Clone(),
		timestampNS:  timestampNS,
		sourceWidth:  sourceWidth,
		sourceHeight: sourceHeight,
	}

	w.queueMu.Lock()
	w.dropPendingLocked()
	w.pending = task
	w.queueMu.Unlock()

	w.queueCond.Signal()
}

// TryConsumeLatest returns the most recent unread result, marking it
// consumed. It never blocks; ok is false when no new result has been
// published since the last successful consume.
func (w *Worker) TryConsumeLatest() (Result, bool) {
	w.resultMu.Lock()
	defer w.resultMu.Unlock()

	if !w.latest.valid {
		return Result{}, false
	}

	result := Result{
		Faces:       w.latest.faces,
		InferenceMS: w.latest.inferenceMS,
		TimestampNS: w.latest.timestampNS,
	}
	w.latest.valid = false
	return result, true
}

// QueueSize returns the number of frames waiting for inference (0 or 1).
func (w *Worker) QueueSize() int {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	if w.pending != nil {
		return 1
	}
	return 0
}

// IsRunning reports whether the inference goroutine is active.
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// dropPendingLocked discards the queued frame, if any. Caller holds queueMu.
func (w *Worker) dropPendingLocked() {
	if w.pending != nil {
		w.pending.frame.Close()
		w.pending = nil
	}
}

// loop is the worker goroutine body. It checks the stop flag only between
// frames; a running inference is never preempted.
func (w *Worker) loop(done chan struct{}) {
	defer close(done)

	for {
		w.queueMu.Lock()
		for w.pending == nil && !w.stopRequested {
			w.queueCond.Wait()
		}
		if w.stopRequested && w.pending == nil {
			w.queueMu.Unlock()
			return
		}
		task := w.pending
		w.pending = nil
		w.queueMu.Unlock()

		started := time.Now()
		faces := w.runInference(task)
		inferenceMS := float64(time.Since(started)) / float64(time.Millisecond)
		task.frame.Close()

		w.resultMu.Lock()
		w.latest = resultPacket{
			faces:       faces,
			inferenceMS: inferenceMS,
			timestampNS: task.timestampNS,
			valid:       true,
		}
		w.resultMu.Unlock()
	}
}

// runInference performs one iteration: optional downscale, face detection,
// per-face square crop and classification, then a tracker update. Any
// adapter error or panic degrades the frame to zero detections and resets
// tracking continuity; nothing propagates out of the loop.
func (w *Worker) runInference(task *frameTask) (faces []track.Face) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("inference failed: %v", r)
			w.tracker.Reset()
			faces = nil
		}
	}()

	w.configMu.Lock()
	config := w.config
	w.configMu.Unlock()

	if task.frame.Empty() {
		w.tracker.Reset()
		return nil
	}

	inferenceFrame := task.frame
	scale := 1.0
	if config.InferenceWidth > 0 && task.frame.Cols() > config.InferenceWidth {
		scale = float64(config.InferenceWidth) / float64(task.frame.Cols())
		resizedHeight := int(math.Round(float64(task.frame.Rows()) * scale))
		if resizedHeight < 1 {
			resizedHeight = 1
		}

		scaled := gocv.NewMat()
		gocv.Resize(task.frame, &scaled, image.Pt(config.InferenceWidth, resizedHeight), 0, 0, gocv.InterpolationLinear)
		defer scaled.Close()
		inferenceFrame = scaled
	}

	hits, err := w.detector.DetectFaces(inferenceFrame)
	if err != nil {
		log.Printf("face detection failed: %v", err)
		w.tracker.Reset()
		return nil
	}

	detections := make([]track.Detection, 0, len(hits))
	for _, hit := range hits {
		if hit.Score <= 0 {
			continue
		}

		box := mapToSource(hit.Box, scale)
		box = clampRect(box, task.sourceWidth, task.sourceHeight)
		if box.Empty() {
			continue
		}

		// Classify on a square crop from the original unscaled frame.
		roi := squareRect(box, task.sourceWidth, task.sourceHeight)
		crop := task.frame.Region(roi)
		raw, err := w.classifier.Classify(crop)
		crop.Close()
		if err != nil {
			log.Printf("emotion classification failed: %v", err)
			w.tracker.Reset()
			return nil
		}

		detections = append(detections, track.Detection{
			Box:   box,
			Probs: NormalizeScores(raw),
		})
	}

	return w.tracker.Update(detections, task.timestampNS, config.MaxFaces, config.SmoothingSeconds, config.ConfidenceThreshold)
}

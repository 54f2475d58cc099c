package app

import (
	"log"
	"time"
)

// runPipeline is the frame loop. Each tick it reads a camera frame, runs
// the motion gate, hands active frames to the inference worker and drains
// any finished result. The capture rate switches between idle and active
// based on motion, so the worker is not fed a static scene at full rate.
//
// The worker is never waited on here: frame submission is freshest-wins and
// result consumption is a non-blocking poll, so a slow inference pass only
// means skipped frames, never a stalled loop.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	activeMode := false
	lastMotionTime := time.Now()

	frameInterval := time.Second / time.Duration(IdleFPS)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// Drain a finished result even while disabled or idle, so the
			// last inference never goes stale in the cache.
			if result, ok := a.worker.TryConsumeLatest(); ok {
				a.handleResult(result)
			}

			if !a.IsEnabled() {
				continue
			}

			frame, timestampNS, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			motionDetected, _ := a.motion.Detect(frame)

			if motionDetected {
				lastMotionTime = time.Now()

				if !activeMode {
					activeMode = true
					a.camera.SetFPS(ActiveFPS)
					frameInterval = time.Second / time.Duration(ActiveFPS)
					ticker.Reset(frameInterval)
					log.Println("Switched to active mode")
				}
			} else if activeMode {
				if time.Since(lastMotionTime) > time.Duration(IdleTimeoutMs)*time.Millisecond {
					activeMode = false
					a.camera.SetFPS(IdleFPS)
					frameInterval = time.Second / time.Duration(IdleFPS)
					ticker.Reset(frameInterval)
					log.Println("Switched to idle mode")
				}
			}

			if activeMode {
				a.worker.SubmitFrame(*frame, timestampNS, frame.Cols(), frame.Rows())

				a.statsMu.Lock()
				a.sessionFrames++
				a.statsMu.Unlock()
			}

			frame.Close()
		}
	}
}

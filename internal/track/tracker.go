// Package track maintains persistent face identities across frames.
//
// The tracker matches each frame's unordered face detections against the
// tracks from the previous frame using greedy IoU matching, smooths each
// track's class probabilities with a time-aware exponential moving average,
// and derives a stable label from the smoothed distribution. Tracks that go
// unmatched for a single frame are dropped; re-detection creates a new id.
package track

import (
	"image"
	"math"
	"sort"

	"github.com/ayusman/mimika/internal/emotion"
)

// iouThreshold is the minimum overlap for a detection to continue a track.
const iouThreshold = 0.2

// defaultFrameSeconds is the assumed frame interval when a track has no
// usable previous timestamp (first update, or a non-monotonic clock).
const defaultFrameSeconds = 1.0 / 15.0

// Detection is one raw detector hit handed to the tracker: a bounding box in
// source-frame coordinates plus the normalized per-class probabilities from
// the emotion classifier.
type Detection struct {
	Box   image.Rectangle
	Probs [emotion.ClassCount]float32
}

// Face is one track's snapshot for a single frame. Values are copies; the
// consumer owns them.
type Face struct {
	TrackID     int
	Box         image.Rectangle
	Probs       [emotion.ClassCount]float32
	Label       emotion.Emotion
	Confidence  float32
	TimestampNS uint64
}

// trackState is a persistent face identity carried between Update calls.
type trackState struct {
	id         int
	box        image.Rectangle
	emaProbs   [emotion.ClassCount]float32
	label      emotion.Emotion
	confidence float32
	lastSeenNS uint64
}

// Tracker assigns stable identities and smoothed labels to per-frame face
// detections. It is not safe for concurrent use; the inference worker owns
// it exclusively.
type Tracker struct {
	nextID int
	tracks []trackState
}

// NewTracker creates an empty tracker. Track ids start at 1.
func NewTracker() *Tracker {
	return &Tracker{nextID: 1}
}

// Reset drops all tracks. The id counter is not rewound, so ids stay unique
// for the lifetime of the tracker.
func (t *Tracker) Reset() {
	t.tracks = nil
}

// Update processes one frame's detections and returns the faces to publish,
// sorted by box area descending.
//
// An empty detections slice clears all tracks: no stale identities survive a
// frame the detector saw nothing in. When detections exceed maxFaces, only
// the largest boxes are kept. smoothingSeconds <= 0 disables smoothing (the
// raw probabilities replace the average instantly).
func (t *Tracker) Update(detections []Detection, timestampNS uint64, maxFaces int, smoothingSeconds, confidenceThreshold float32) []Face {
	if len(detections) == 0 {
		t.tracks = nil
		return nil
	}

	limited := make([]Detection, len(detections))
	copy(limited, detections)
	sort.SliceStable(limited, func(i, j int) bool {
		return area(limited[i].Box) > area(limited[j].Box)
	})

	clampedMax := maxFaces
	if clampedMax < 1 {
		clampedMax = 1
	}
	if len(limited) > clampedMax {
		limited = limited[:clampedMax]
	}

	trackToDetection := t.matchGreedy(limited)

	nextTracks := make([]trackState, 0, len(limited))
	faces := make([]Face, 0, len(limited))
	detectionUsed := make([]bool, len(limited))

	for trackIndex := range t.tracks {
		detectionIndex := trackToDetection[trackIndex]
		if detectionIndex < 0 {
			// Unmatched this frame: the track is dropped.
			continue
		}
		detectionUsed[detectionIndex] = true

		track := t.tracks[trackIndex]
		detection := limited[detectionIndex]

		dtSeconds := defaultFrameSeconds
		if track.lastSeenNS > 0 && timestampNS >= track.lastSeenNS {
			dtSeconds = float64(timestampNS-track.lastSeenNS) / 1e9
		}
		alpha := emaAlpha(dtSeconds, smoothingSeconds)

		for i := range track.emaProbs {
			track.emaProbs[i] = alpha*detection.Probs[i] + (1-alpha)*track.emaProbs[i]
		}
		track.box = detection.Box
		track.lastSeenNS = timestampNS
		track.label, track.confidence = stableLabel(track.emaProbs, confidenceThreshold)

		nextTracks = append(nextTracks, track)
		faces = append(faces, Face{
			TrackID:     track.id,
			Box:         detection.Box,
			Probs:       detection.Probs,
			Label:       track.label,
			Confidence:  track.confidence,
			TimestampNS: timestampNS,
		})
	}

	for detectionIndex, detection := range limited {
		if detectionUsed[detectionIndex] {
			continue
		}

		track := trackState{
			id:         t.nextID,
			box:        detection.Box,
			emaProbs:   detection.Probs,
			lastSeenNS: timestampNS,
		}
		t.nextID++
		track.label, track.confidence = stableLabel(track.emaProbs, confidenceThreshold)

		nextTracks = append(nextTracks, track)
		faces = append(faces, Face{
			TrackID:     track.id,
			Box:         track.box,
			Probs:       detection.Probs,
			Label:       track.label,
			Confidence:  track.confidence,
			TimestampNS: timestampNS,
		})
	}

	t.tracks = nextTracks

	sort.SliceStable(faces, func(i, j int) bool {
		return area(faces[i].Box) > area(faces[j].Box)
	})
	return faces
}

// matchGreedy pairs tracks with detections by repeatedly taking the highest
// IoU among unmatched pairs until no pair exceeds the threshold. Greedy, not
// globally optimal; ties keep the first pair found in iteration order so
// results are deterministic for a given input ordering.
func (t *Tracker) matchGreedy(detections []Detection) []int {
	trackToDetection := make([]int, len(t.tracks))
	for i := range trackToDetection {
		trackToDetection[i] = -1
	}

	trackUsed := make([]bool, len(t.tracks))
	detectionUsed := make([]bool, len(detections))

	for {
		bestIoU := float32(iouThreshold)
		bestTrack := -1
		bestDetection := -1

		for trackIndex := range t.tracks {
			if trackUsed[trackIndex] {
				continue
			}
			for detectionIndex := range detections {
				if detectionUsed[detectionIndex] {
					continue
				}
				overlap := iou(t.tracks[trackIndex].box, detections[detectionIndex].Box)
				if overlap > bestIoU {
					bestIoU = overlap
					bestTrack = trackIndex
					bestDetection = detectionIndex
				}
			}
		}

		if bestTrack < 0 || bestDetection < 0 {
			return trackToDetection
		}

		trackUsed[bestTrack] = true
		detectionUsed[bestDetection] = true
		trackToDetection[bestTrack] = bestDetection
	}
}

// iou computes intersection-over-union for two boxes, in [0,1].
func iou(a, b image.Rectangle) float32 {
	intersection := a.Intersect(b)
	if intersection.Empty() {
		return 0
	}

	intersectionArea := float32(area(intersection))
	unionArea := float32(area(a)+area(b)) - intersectionArea
	if unionArea <= 0 {
		return 0
	}
	return intersectionArea / unionArea
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// emaAlpha derives the EMA blend factor from the elapsed time and the
// configured time constant. smoothingSeconds <= 0 forces alpha = 1.
func emaAlpha(dtSeconds float64, smoothingSeconds float32) float32 {
	if smoothingSeconds <= 0 {
		return 1
	}

	tau := math.Max(0.001, float64(smoothingSeconds))
	alpha := 1 - math.Exp(-math.Max(0, dtSeconds)/tau)
	return clamp01(float32(alpha))
}

// stableLabel returns the argmax class of the smoothed distribution, forced
// to Uncertain when its probability falls below the threshold.
func stableLabel(probs [emotion.ClassCount]float32, confidenceThreshold float32) (emotion.Emotion, float32) {
	bestIndex := 0
	bestValue := probs[0]
	for i := 1; i < len(probs); i++ {
		if probs[i] > bestValue {
			bestValue = probs[i]
			bestIndex = i
		}
	}

	label := emotion.FromModelIndex(bestIndex)
	if bestValue < confidenceThreshold {
		label = emotion.Uncertain
	}
	return label, clamp01(bestValue)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package infer

import (
	"math"

	"github.com/ayusman/mimika/internal/emotion"
)

const floatEpsilon = 1.1920929e-07

// looksLikeProbabilities reports whether the model output already resembles
// a probability distribution: every value finite and within [-0.001, 1.001],
// summing to roughly 1. The loose band absorbs float rounding noise from
// models that emit softmaxed output.
func looksLikeProbabilities(values [emotion.ClassCount]float32) bool {
	var sum float32
	for _, value := range values {
		v64 := float64(value)
		if math.IsNaN(v64) || math.IsInf(v64, 0) {
			return false
		}
		if value < -0.001 || value > 1.001 {
			return false
		}
		sum += value
	}
	return sum > 0.85 && sum < 1.15
}

// NormalizeScores turns a raw model output vector into a valid probability
// distribution. Output that already looks like probabilities is clamped to
// [0,1] and renormalized; anything else is treated as unnormalized scores
// and passed through a numerically stable softmax. A degenerate sum falls
// back to a uniform distribution.
func NormalizeScores(modelOutput [emotion.ClassCount]float32) [emotion.ClassCount]float32 {
	var probs [emotion.ClassCount]float32

	if looksLikeProbabilities(modelOutput) {
		var sum float32
		for i, value := range modelOutput {
			if value < 0 {
				value = 0
			} else if value > 1 {
				value = 1
			}
			probs[i] = value
			sum += value
		}

		if sum > floatEpsilon {
			for i := range probs {
				probs[i] /= sum
			}
			return probs
		}
	}

	maxLogit := modelOutput[0]
	for _, value := range modelOutput[1:] {
		if value > maxLogit {
			maxLogit = value
		}
	}

	var sum float32
	for i, value := range modelOutput {
		probs[i] = float32(math.Exp(float64(value - maxLogit)))
		sum += probs[i]
	}

	// Written so a NaN sum (non-finite model output) also takes the
	// uniform fallback.
	if !(sum > floatEpsilon) {
		for i := range probs {
			probs[i] = 1.0 / float32(emotion.ClassCount)
		}
		return probs
	}

	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

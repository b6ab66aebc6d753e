package engine

import (
	"math/rand"
	"time"

	"github.com/instmulti/instmulti/chain"
	"github.com/instmulti/instmulti/config"
)

// sensitiveSteps are the action types the platform watches most closely;
// they get a longer pause afterwards.
var sensitiveSteps = map[chain.StepType]bool{
	chain.StepFollow:       true,
	chain.StepSendDM:       true,
	chain.StepReplyStories: true,
}

// adaptiveDelay computes the pause after a step: a uniform draw from the
// configured range, stretched for sensitive steps and after failures, plus a
// small symmetric jitter. The result never drops below one second.
func adaptiveDelay(rnd *rand.Rand, r config.DelayRange, stepType chain.StepType, succeeded bool) time.Duration {
	d := uniform(rnd, r)
	if sensitiveSteps[stepType] {
		d *= 1.5
	}
	if !succeeded {
		d *= 2
	}
	d += -2 + rnd.Float64()*5 // jitter in [-2, +3)
	if d < 1 {
		d = 1
	}
	return time.Duration(d * float64(time.Second))
}

// uniform draws a duration in seconds from [r.Min, r.Max).
func uniform(rnd *rand.Rand, r config.DelayRange) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rnd.Float64()*(r.Max-r.Min)
}

// uniformDuration is uniform converted to a time.Duration.
func uniformDuration(rnd *rand.Rand, r config.DelayRange) time.Duration {
	return time.Duration(uniform(rnd, r) * float64(time.Second))
}

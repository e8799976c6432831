package device

import (
	"math"
	"time"
)

// Gamma maps a brightness percentage to a duty fraction in [0, 1] using a
// 2.8 gamma curve, so equal steps look evenly spaced to the eye.
func Gamma(percent float64) float64 {
	if percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return 1
	}
	return math.Pow(percent/100, 2.8)
}

// PulseLevel is the network LED brightness, in percent, at elapsed time t
// for a pulse of hz cycles per second. It swings between 20 and 100.
func PulseLevel(t time.Duration, hz float64) float64 {
	return math.Sin(t.Seconds()*math.Pi*2*hz)*40 + 60
}

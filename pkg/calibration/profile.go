// Package calibration computes and stores per-channel sensor calibration.
//
// A Profile is built from raw readings collected while the glove is at rest:
// the mean becomes the channel baseline and the touch threshold is set three
// standard deviations above it, so rest-state noise alone cannot register as
// contact. Profiles are immutable values; recalibrating a channel replaces
// the whole profile atomically through the Store.
package calibration

import (
	"errors"
	"math"
	"time"
)

// ErrInsufficientSamples is returned when a calibration run is requested
// with no samples to average.
var ErrInsufficientSamples = errors.New("insufficient calibration samples")

// Sensitivity bounds. Out-of-range values are clamped, not rejected, so a
// bad setting degrades the reading instead of stopping the device.
const (
	MinSensitivity = 0.1
	MaxSensitivity = 10.0
)

// sigmaFactor sets the touch threshold at baseline + 3 standard deviations.
const sigmaFactor = 3.0

// Profile holds the calibration of a single scalar channel.
type Profile struct {
	Baseline    float64   `json:"baseline"`
	StdDev      float64   `json:"std_dev"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Threshold   float64   `json:"threshold"`
	Sensitivity float64   `json:"sensitivity"`
	ComputedAt  time.Time `json:"computed_at"`
}

// Calibrate builds a Profile from raw rest-state readings. rangeMin and
// rangeMax bound the calibrated output; sensitivity scales the
// baseline-corrected reading and is clamped to [MinSensitivity,
// MaxSensitivity]. Identical sample streams reproduce identical baselines
// and thresholds.
func Calibrate(samples []float64, rangeMin, rangeMax, sensitivity float64) (Profile, error) {
	if len(samples) == 0 {
		return Profile{}, ErrInsufficientSamples
	}

	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	variance := 0.0
	for _, s := range samples {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(samples))
	std := math.Sqrt(variance)

	return Profile{
		Baseline:    mean,
		StdDev:      std,
		Min:         rangeMin,
		Max:         rangeMax,
		Threshold:   mean + sigmaFactor*std,
		Sensitivity: ClampSensitivity(sensitivity),
		ComputedAt:  time.Now(),
	}, nil
}

// Apply converts a raw reading into a calibrated value:
// clamp((raw - baseline) * sensitivity, [min, max]).
// It is total: any raw input yields a value inside [Min, Max].
func (p Profile) Apply(raw float64) float64 {
	v := (raw - p.Baseline) * ClampSensitivity(p.Sensitivity)
	return clamp(v, p.Min, p.Max)
}

// WithSensitivity returns a copy of the profile with the given sensitivity,
// clamped to the valid range.
func (p Profile) WithSensitivity(s float64) Profile {
	p.Sensitivity = ClampSensitivity(s)
	return p
}

// ClampSensitivity bounds a sensitivity setting to [MinSensitivity, MaxSensitivity].
func ClampSensitivity(s float64) float64 {
	return clamp(s, MinSensitivity, MaxSensitivity)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

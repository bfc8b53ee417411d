// Package channel models a single scalar sensor channel (a flex strip on a
// finger or a pressure pad) with per-channel calibration and touch
// detection.
//
// Each channel owns its calibration profile and a small touch state machine,
// so the five flex channels and six pressure pads run independent instances
// with no shared state.
package channel

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/calibration"
)

// ErrCalibrating is returned while a calibration run is in progress; live
// readings are withheld rather than fed downstream half-calibrated.
var ErrCalibrating = errors.New("channel is calibrating")

// FlexNames lists the flex channels in classifier order, thumb to pinky.
var FlexNames = [5]string{"thumb", "index", "middle", "ring", "pinky"}

// PressureNames lists the pressure pad locations.
var PressureNames = [6]string{"palm", "thumb_tip", "index_tip", "middle_tip", "ring_tip", "pinky_tip"}

// Reading is one calibrated sample from a channel.
type Reading struct {
	Channel       string        `json:"channel"`
	Raw           float64       `json:"raw"`
	Value         float64       `json:"value"`
	Touching      bool          `json:"touching"`
	TouchDuration time.Duration `json:"touch_duration,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`

	// Derived readouts: pressure channels carry force and percentage, flex
	// channels a position band.
	ForceNewtons    float64 `json:"force_newtons,omitempty"`
	PressurePercent float64 `json:"pressure_percent,omitempty"`
	Position        string  `json:"position,omitempty"`
}

// Channel is a calibrated scalar input with touch detection.
type Channel struct {
	name     string
	rangeMin float64
	rangeMax float64

	mu          sync.Mutex
	profile     calibration.Profile
	calibrated  bool
	calibrating bool

	// Touch state machine: Idle <-> Touching.
	touching   bool
	touchStart time.Time
}

// New creates a channel with the given output range. Until calibration runs
// the channel uses a zero-baseline profile with an unreachable touch
// threshold, so an uncalibrated pad cannot fire touches.
func New(name string, rangeMin, rangeMax float64) *Channel {
	return &Channel{
		name:     name,
		rangeMin: rangeMin,
		rangeMax: rangeMax,
		profile: calibration.Profile{
			Min:         rangeMin,
			Max:         rangeMax,
			Threshold:   math.Inf(1),
			Sensitivity: 1.0,
		},
	}
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Profile returns the current calibration profile.
func (c *Channel) Profile() calibration.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Calibrated reports whether a calibration run has completed.
func (c *Channel) Calibrated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calibrated
}

// BeginCalibration marks the channel as calibrating. While set, Process
// refuses readings. Returns ErrCalibrating if a run is already in progress.
func (c *Channel) BeginCalibration() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calibrating {
		return ErrCalibrating
	}
	c.calibrating = true
	return nil
}

// CompleteCalibration computes a new profile from the collected samples and
// installs it atomically. On error the previous profile stays in place; the
// calibrating flag clears either way.
func (c *Channel) CompleteCalibration(samples []float64, sensitivity float64) (calibration.Profile, error) {
	p, err := calibration.Calibrate(samples, c.rangeMin, c.rangeMax, sensitivity)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calibrating = false
	if err != nil {
		return calibration.Profile{}, err
	}
	c.profile = p
	c.calibrated = true
	c.touching = false
	return p, nil
}

// AbortCalibration cancels an in-progress run, keeping the old profile.
func (c *Channel) AbortCalibration() {
	c.mu.Lock()
	c.calibrating = false
	c.mu.Unlock()
}

// Process applies calibration to a raw reading and advances the touch state
// machine. Idle -> Touching when the calibrated value reaches the threshold;
// Touching -> Idle below it, at which point the reading carries the touch
// duration. Returns ErrCalibrating while a calibration run is in progress.
func (c *Channel) Process(raw float64, now time.Time) (Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.calibrating {
		return Reading{}, ErrCalibrating
	}

	value := c.profile.Apply(raw)
	r := Reading{
		Channel:   c.name,
		Raw:       raw,
		Value:     value,
		Timestamp: now,
	}

	if value >= c.profile.Threshold {
		if !c.touching {
			c.touching = true
			c.touchStart = now
		}
		r.Touching = true
	} else if c.touching {
		c.touching = false
		r.TouchDuration = now.Sub(c.touchStart)
	}

	return r, nil
}

// Touching reports whether the channel is currently in the Touching state.
func (c *Channel) Touching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touching
}

// Package haptic drives the glove's vibration motor with a pattern per
// threat level.
package haptic

import (
	"sync"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/threat"
)

// Actuator is the physical motor behind the driver. Vibrate runs the motor
// at the given intensity (0..1) for the given duration and blocks until done.
type Actuator interface {
	Vibrate(intensity float64, d time.Duration) error
}

// Pattern describes one feedback pattern as a pulse train.
type Pattern struct {
	Name        string
	Pulses      int
	OnDuration  time.Duration
	OffDuration time.Duration
	Intensity   float64
}

// patterns maps each threat level to its feedback. Safe has no entry; the
// driver stays silent below Caution.
var patterns = map[threat.Level]Pattern{
	threat.Caution: {
		Name:        "gentle_pulse",
		Pulses:      2,
		OnDuration:  150 * time.Millisecond,
		OffDuration: 350 * time.Millisecond,
		Intensity:   0.4,
	},
	threat.Alert: {
		Name:        "rapid_pulse",
		Pulses:      5,
		OnDuration:  100 * time.Millisecond,
		OffDuration: 100 * time.Millisecond,
		Intensity:   0.7,
	},
	threat.Emergency: {
		Name:        "continuous_buzz",
		Pulses:      1,
		OnDuration:  2 * time.Second,
		OffDuration: 0,
		Intensity:   1.0,
	},
}

// Driver plays threat-level feedback patterns on an actuator. Playback is
// fire-and-forget: Feedback returns immediately and a new pattern preempts
// nothing, it simply queues behind the motor.
type Driver struct {
	actuator Actuator
	wg       sync.WaitGroup
}

// NewDriver creates a driver for the given actuator.
func NewDriver(actuator Actuator) *Driver {
	return &Driver{actuator: actuator}
}

// Feedback plays the pattern for the given level. Safe is a no-op.
func (d *Driver) Feedback(level threat.Level) error {
	pattern, ok := patterns[level]
	if !ok {
		return nil
	}

	log.Debug("haptic pattern", "pattern", pattern.Name, "level", level.String())

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.play(pattern)
	}()
	return nil
}

// Wait blocks until all in-flight patterns finish. Used on shutdown.
func (d *Driver) Wait() {
	d.wg.Wait()
}

func (d *Driver) play(pattern Pattern) {
	for i := 0; i < pattern.Pulses; i++ {
		if err := d.actuator.Vibrate(pattern.Intensity, pattern.OnDuration); err != nil {
			log.Warn("haptic actuator failed", "pattern", pattern.Name, "error", err)
			return
		}
		if i < pattern.Pulses-1 && pattern.OffDuration > 0 {
			time.Sleep(pattern.OffDuration)
		}
	}
}

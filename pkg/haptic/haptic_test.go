package haptic

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/threat"
)

type recordingActuator struct {
	mu     sync.Mutex
	pulses []float64
	fail   bool
}

func (a *recordingActuator) Vibrate(intensity float64, d time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return errors.New("motor fault")
	}
	a.pulses = append(a.pulses, intensity)
	return nil
}

func (a *recordingActuator) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pulses)
}

func TestFeedbackSafeIsNoOp(t *testing.T) {
	act := &recordingActuator{}
	d := NewDriver(act)

	if err := d.Feedback(threat.Safe); err != nil {
		t.Fatalf("Feedback failed: %v", err)
	}
	d.Wait()

	if act.count() != 0 {
		t.Errorf("Safe level must not drive the motor, got %d pulses", act.count())
	}
}

func TestFeedbackPulseCounts(t *testing.T) {
	cases := []struct {
		level  threat.Level
		pulses int
	}{
		{threat.Caution, 2},
		{threat.Alert, 5},
		{threat.Emergency, 1},
	}

	for _, tc := range cases {
		act := &recordingActuator{}
		d := NewDriver(act)

		if err := d.Feedback(tc.level); err != nil {
			t.Fatalf("Feedback(%v) failed: %v", tc.level, err)
		}
		d.Wait()

		if act.count() != tc.pulses {
			t.Errorf("Feedback(%v): got %d pulses, want %d", tc.level, act.count(), tc.pulses)
		}
	}
}

func TestFeedbackIntensityEscalates(t *testing.T) {
	act := &recordingActuator{}
	d := NewDriver(act)

	d.Feedback(threat.Caution)
	d.Wait()
	cautionIntensity := act.pulses[0]

	act.pulses = nil
	d.Feedback(threat.Emergency)
	d.Wait()
	emergencyIntensity := act.pulses[0]

	if emergencyIntensity <= cautionIntensity {
		t.Errorf("Emergency intensity %v should exceed caution %v", emergencyIntensity, cautionIntensity)
	}
}

func TestFeedbackActuatorFailureDoesNotPropagate(t *testing.T) {
	act := &recordingActuator{fail: true}
	d := NewDriver(act)

	// A motor fault is logged, not surfaced: feedback is best-effort.
	if err := d.Feedback(threat.Alert); err != nil {
		t.Errorf("Feedback must not surface actuator errors, got %v", err)
	}
	d.Wait()
}

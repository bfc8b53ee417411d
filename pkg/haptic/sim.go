package haptic

import (
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
)

// SimActuator stands in for the motor on bench setups without hardware. It
// logs each pulse and sleeps for its duration so pattern timing is realistic.
type SimActuator struct{}

func (SimActuator) Vibrate(intensity float64, d time.Duration) error {
	log.Debug("haptic pulse", "intensity", intensity, "duration", d)
	time.Sleep(d)
	return nil
}

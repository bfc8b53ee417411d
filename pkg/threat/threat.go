// Package threat maps fused glove evidence to a discrete threat level.
package threat

// Level is the discrete threat level, totally ordered.
type Level int

// Threat levels, lowest to highest.
const (
	Safe Level = iota
	Caution
	Alert
	Emergency
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case Safe:
		return "safe"
	case Caution:
		return "caution"
	case Alert:
		return "alert"
	case Emergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// Evidence is the per-cycle input to evaluation. Only the current cycle
// matters: the level is recomputed fresh each time and may fall as well as
// rise between cycles.
type Evidence struct {
	PersonCount       int     `json:"person_count"`
	PersonThreshold   int     `json:"person_threshold"`
	UnusualMovement   bool    `json:"unusual_movement"`
	EmergencyGesture  bool    `json:"emergency_gesture"`
	MovementMagnitude float64 `json:"movement_magnitude"`
}

// Evaluate computes the threat level as the maximum of all triggered
// floors: worst signal wins.
//
//	person count at or above threshold  -> at least Caution
//	unusual movement                    -> at least Alert
//	emergency gesture                   -> Emergency
//
// Evaluate is monotone in its inputs: adding a signal never lowers the
// result.
func Evaluate(e Evidence) Level {
	level := Safe

	if e.PersonThreshold > 0 && e.PersonCount >= e.PersonThreshold {
		level = max(level, Caution)
	}
	if e.UnusualMovement {
		level = max(level, Alert)
	}
	if e.EmergencyGesture {
		level = Emergency
	}

	return level
}

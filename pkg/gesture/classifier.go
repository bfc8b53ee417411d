// Package gesture classifies calibrated glove readings into discrete hand
// postures and movement flags. Classification is a pure function of the
// current cycle's values; nothing here persists between cycles.
package gesture

// Label is a discrete hand posture.
type Label string

// Recognized postures.
const (
	Fist      Label = "fist"
	OpenHand  Label = "open_hand"
	Pointing  Label = "pointing"
	PeaceSign Label = "peace_sign"
)

// Flex thresholds: a finger above closedThreshold counts as closed, below
// openThreshold as open; the band between is indeterminate.
const (
	closedThreshold = 0.7
	openThreshold   = 0.3
)

// Movement thresholds in m/s² of acceleration magnitude.
const (
	// UnusualMovementThreshold flags violent motion.
	UnusualMovementThreshold = 15.0
	// EmergencyMovementThreshold, combined with a fist, is the built-in
	// panic signal: a rapid clench while the hand is moving hard.
	EmergencyMovementThreshold = 10.0
)

// Set is the classification result for one cycle. Multiple labels may
// coexist.
type Set struct {
	Labels           []Label `json:"labels"`
	UnusualMovement  bool    `json:"unusual_movement"`
	EmergencyGesture bool    `json:"emergency_gesture"`
	HandClosure      float64 `json:"hand_closure"`
	GripStrength     float64 `json:"grip_strength"`
}

// Has reports whether a label is present in the set.
func (s Set) Has(l Label) bool {
	for _, have := range s.Labels {
		if have == l {
			return true
		}
	}
	return false
}

// Classify maps calibrated flex values (ordered thumb to pinky), pressure
// values and the IMU acceleration magnitude to a gesture set. Fewer than
// five flex values yield an empty label set; movement flags are still
// evaluated. Classify never fails.
func Classify(flex []float64, pressure []float64, movementMagnitude float64) Set {
	s := Set{
		UnusualMovement: movementMagnitude > UnusualMovementThreshold,
		HandClosure:     mean(flex),
		GripStrength:    mean(pressure),
	}

	if len(flex) >= 5 {
		closed := 0
		open := 0
		for _, v := range flex[:5] {
			if v > closedThreshold {
				closed++
			}
			if v < openThreshold {
				open++
			}
		}

		index := flex[1]
		pinky := flex[4]

		switch {
		case closed == 5:
			s.Labels = append(s.Labels, Fist)
		case open == 5:
			s.Labels = append(s.Labels, OpenHand)
		case closed == 4 && index < openThreshold:
			s.Labels = append(s.Labels, Pointing)
		case closed == 3 && index < openThreshold && pinky < openThreshold:
			s.Labels = append(s.Labels, PeaceSign)
		}
	}

	s.EmergencyGesture = s.Has(Fist) && movementMagnitude > EmergencyMovementThreshold
	return s
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

package threat

import "testing"

func TestEvaluateFloors(t *testing.T) {
	cases := []struct {
		name string
		e    Evidence
		want Level
	}{
		{"no signals", Evidence{PersonThreshold: 3}, Safe},
		{"crowd", Evidence{PersonCount: 4, PersonThreshold: 3}, Caution},
		{"crowd at threshold", Evidence{PersonCount: 3, PersonThreshold: 3}, Caution},
		{"below threshold", Evidence{PersonCount: 2, PersonThreshold: 3}, Safe},
		{"unusual movement", Evidence{PersonThreshold: 3, UnusualMovement: true}, Alert},
		{"movement and crowd", Evidence{PersonCount: 5, PersonThreshold: 3, UnusualMovement: true}, Alert},
		{"emergency gesture", Evidence{PersonThreshold: 3, EmergencyGesture: true}, Emergency},
		{"everything", Evidence{PersonCount: 9, PersonThreshold: 3, UnusualMovement: true, EmergencyGesture: true}, Emergency},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(tc.e); got != tc.want {
				t.Errorf("Evaluate(%+v) = %v, want %v", tc.e, got, tc.want)
			}
		})
	}
}

// Adding emergency_gesture to any evidence set must never yield a level
// below Emergency.
func TestEmergencyGestureMonotone(t *testing.T) {
	bases := []Evidence{
		{},
		{PersonThreshold: 3},
		{PersonCount: 1, PersonThreshold: 3},
		{PersonCount: 10, PersonThreshold: 3},
		{UnusualMovement: true, PersonThreshold: 3},
		{PersonCount: 10, PersonThreshold: 1, UnusualMovement: true},
	}

	for _, base := range bases {
		base.EmergencyGesture = true
		if got := Evaluate(base); got != Emergency {
			t.Errorf("Evaluate(%+v) = %v, want Emergency", base, got)
		}
	}
}

func TestZeroPersonThresholdDisablesCrowdFloor(t *testing.T) {
	if got := Evaluate(Evidence{PersonCount: 100}); got != Safe {
		t.Errorf("Expected Safe with crowd floor disabled, got %v", got)
	}
}

func TestLevelString(t *testing.T) {
	if Safe.String() != "safe" || Emergency.String() != "emergency" {
		t.Error("Unexpected level names")
	}
	if Level(42).String() != "unknown" {
		t.Error("Out-of-range level should stringify as unknown")
	}
}

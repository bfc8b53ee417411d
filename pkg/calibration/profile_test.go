package calibration

import (
	"errors"
	"math"
	"testing"
)

func TestCalibrate_BaselineAndThreshold(t *testing.T) {
	samples := []float64{0.1, 0.2, 0.3, 0.2, 0.2}

	p, err := Calibrate(samples, 0, 1, 1.0)
	if err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}

	if math.Abs(p.Baseline-0.2) > 1e-9 {
		t.Errorf("Expected baseline 0.2, got %v", p.Baseline)
	}

	wantStd := math.Sqrt(0.02 / 5.0)
	if math.Abs(p.StdDev-wantStd) > 1e-9 {
		t.Errorf("Expected std dev %v, got %v", wantStd, p.StdDev)
	}

	wantThreshold := 0.2 + 3*wantStd
	if math.Abs(p.Threshold-wantThreshold) > 1e-9 {
		t.Errorf("Expected threshold %v, got %v", wantThreshold, p.Threshold)
	}
}

func TestCalibrate_Idempotent(t *testing.T) {
	samples := []float64{0.41, 0.39, 0.40, 0.42, 0.38, 0.40}

	p1, err := Calibrate(samples, 0, 1, 1.0)
	if err != nil {
		t.Fatalf("first Calibrate failed: %v", err)
	}
	p2, err := Calibrate(samples, 0, 1, 1.0)
	if err != nil {
		t.Fatalf("second Calibrate failed: %v", err)
	}

	if math.Abs(p1.Baseline-p2.Baseline) > 1e-12 {
		t.Errorf("Baselines differ: %v vs %v", p1.Baseline, p2.Baseline)
	}
	if math.Abs(p1.Threshold-p2.Threshold) > 1e-12 {
		t.Errorf("Thresholds differ: %v vs %v", p1.Threshold, p2.Threshold)
	}
}

func TestCalibrate_NoSamples(t *testing.T) {
	_, err := Calibrate(nil, 0, 1, 1.0)
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("Expected ErrInsufficientSamples, got %v", err)
	}
}

func TestApply_ClampsForAnyInput(t *testing.T) {
	p, err := Calibrate([]float64{0.5, 0.5, 0.5}, 0, 1, 1.0)
	if err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}

	inputs := []float64{-1e9, -1, 0, 0.5, 1, 1e9, math.Inf(1), math.Inf(-1)}
	sensitivities := []float64{0.1, 0.5, 1.0, 5.0, 10.0}

	for _, s := range sensitivities {
		ps := p.WithSensitivity(s)
		for _, raw := range inputs {
			v := ps.Apply(raw)
			if v < ps.Min || v > ps.Max {
				t.Errorf("Apply(%v) with sensitivity %v = %v, outside [%v, %v]",
					raw, s, v, ps.Min, ps.Max)
			}
		}
	}
}

func TestSensitivity_ClampedNotRejected(t *testing.T) {
	p, err := Calibrate([]float64{0.5}, 0, 1, 50.0)
	if err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	if p.Sensitivity != MaxSensitivity {
		t.Errorf("Expected sensitivity clamped to %v, got %v", MaxSensitivity, p.Sensitivity)
	}

	if got := p.WithSensitivity(0.0001).Sensitivity; got != MinSensitivity {
		t.Errorf("Expected sensitivity clamped to %v, got %v", MinSensitivity, got)
	}
}

func TestCalibrateVector_GravityRemoval(t *testing.T) {
	samples := [][3]float64{
		{0.1, -0.1, 9.91},
		{0.1, -0.1, 9.91},
	}

	p, err := CalibrateVector(samples, true)
	if err != nil {
		t.Fatalf("CalibrateVector failed: %v", err)
	}

	if math.Abs(p.Bias[0]-0.1) > 1e-9 || math.Abs(p.Bias[1]+0.1) > 1e-9 {
		t.Errorf("Unexpected X/Y bias: %v", p.Bias)
	}
	// Z bias should be 9.91 - 9.81 = 0.1
	if math.Abs(p.Bias[2]-0.1) > 1e-9 {
		t.Errorf("Expected Z bias 0.1 after gravity removal, got %v", p.Bias[2])
	}

	corrected := p.Apply([3]float64{0.1, -0.1, 9.91})
	if math.Abs(corrected[2]-9.81) > 1e-9 {
		t.Errorf("Expected corrected Z to keep gravity, got %v", corrected[2])
	}
}

func TestCalibrateVector_NoSamples(t *testing.T) {
	_, err := CalibrateVector(nil, false)
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("Expected ErrInsufficientSamples, got %v", err)
	}
}

func TestStore_AtomicReplace(t *testing.T) {
	store := NewStore()

	p1, _ := Calibrate([]float64{0.1, 0.1}, 0, 1, 1.0)
	store.Put("flex_index", p1)

	got, ok := store.Get("flex_index")
	if !ok {
		t.Fatal("Expected profile for flex_index")
	}
	if got.Baseline != p1.Baseline {
		t.Errorf("Expected baseline %v, got %v", p1.Baseline, got.Baseline)
	}

	p2, _ := Calibrate([]float64{0.9, 0.9}, 0, 1, 1.0)
	store.Put("flex_index", p2)

	got, _ = store.Get("flex_index")
	if got.Baseline != p2.Baseline {
		t.Errorf("Expected replaced baseline %v, got %v", p2.Baseline, got.Baseline)
	}

	if _, ok := store.Get("flex_unknown"); ok {
		t.Error("Did not expect a profile for an uncalibrated channel")
	}
}

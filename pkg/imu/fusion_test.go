package imu

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/calibration"
)

func levelSample(ts time.Time) Sample {
	return Sample{
		Accel:     [3]float64{0, 0, 9.81},
		Gyro:      [3]float64{0, 0, 0},
		Mag:       [3]float64{20, 5, 40},
		Timestamp: ts,
	}
}

func TestReadBeforeReset(t *testing.T) {
	f := NewFusion()

	if _, err := f.Read(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized from Read, got %v", err)
	}
	if _, err := f.Update(levelSample(time.Now())); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized from Update, got %v", err)
	}
}

func TestFirstUpdateDoesNotIntegrate(t *testing.T) {
	f := NewFusion()
	f.Reset()

	s, err := f.Update(Sample{
		Accel:     [3]float64{5, 5, 30},
		Gyro:      [3]float64{3, 3, 3},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if s.Euler != ([3]float64{}) {
		t.Errorf("Expected zero orientation after first update, got %v", s.Euler)
	}
	if s.Velocity != ([3]float64{}) || s.Position != ([3]float64{}) {
		t.Errorf("Expected zero motion after first update, got v=%v p=%v", s.Velocity, s.Position)
	}
}

func TestLevelRestStaysLevel(t *testing.T) {
	f := NewFusion()
	f.Reset()

	ts := time.Now()
	for i := 0; i < 50; i++ {
		ts = ts.Add(10 * time.Millisecond)
		if _, err := f.Update(levelSample(ts)); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	s, _ := f.Read()
	if math.Abs(s.Euler[0]) > 1e-6 || math.Abs(s.Euler[1]) > 1e-6 || math.Abs(s.Euler[2]) > 1e-6 {
		t.Errorf("Expected level orientation at rest, got %v", s.Euler)
	}
	// Gravity removal should keep velocity near zero.
	if magnitude(s.Velocity) > 1e-6 {
		t.Errorf("Expected near-zero velocity at rest, got %v", s.Velocity)
	}
}

func TestQuaternionUnitNorm(t *testing.T) {
	f := NewFusion()
	f.Reset()

	ts := time.Now()
	samples := []Sample{
		{Accel: [3]float64{0, 0, 9.81}, Gyro: [3]float64{0.5, -0.3, 0.2}},
		{Accel: [3]float64{3, -2, 8}, Gyro: [3]float64{-1.2, 0.8, 2.0}},
		{Accel: [3]float64{-5, 7, 12}, Gyro: [3]float64{4.0, -3.5, 1.1}},
		{Accel: [3]float64{0.1, 0.1, 9.7}, Gyro: [3]float64{0, 0, -6.0}},
	}

	for i, in := range samples {
		ts = ts.Add(17 * time.Millisecond)
		in.Timestamp = ts
		s, err := f.Update(in)
		if err != nil {
			t.Fatalf("Update %d failed: %v", i, err)
		}
		q := s.Quaternion
		norm := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
		if math.Abs(norm-1.0) > 1e-6 {
			t.Errorf("Update %d: quaternion norm %v, want 1 within 1e-6", i, norm)
		}
	}
}

func TestGyroYawIntegration(t *testing.T) {
	f := NewFusion()
	f.Reset()

	ts := time.Now()
	f.Update(levelSample(ts))

	// 1 rad/s yaw for 1 simulated second in 10ms steps.
	for i := 0; i < 100; i++ {
		ts = ts.Add(10 * time.Millisecond)
		f.Update(Sample{
			Accel:     [3]float64{0, 0, 9.81},
			Gyro:      [3]float64{0, 0, 1.0},
			Timestamp: ts,
		})
	}

	s, _ := f.Read()
	wantYaw := 1.0 * radToDeg // ~57.3 degrees
	if math.Abs(s.Euler[2]-wantYaw) > 1.0 {
		t.Errorf("Expected yaw near %v deg, got %v", wantYaw, s.Euler[2])
	}
}

func TestAngleNormalization(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{181, -179},
		{-180, 180},
		{-181, 179},
		{540, 180},
		{-540, 180},
		{359, -1},
	}
	for _, tc := range cases {
		if got := normalizeAngle(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("normalizeAngle(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestVelocityDampingBoundsDrift(t *testing.T) {
	f := NewFusion()
	f.Reset()

	ts := time.Now()
	f.Update(levelSample(ts))

	// Constant small Z bias above gravity for a long run.
	for i := 0; i < 5000; i++ {
		ts = ts.Add(10 * time.Millisecond)
		f.Update(Sample{
			Accel:     [3]float64{0, 0, 9.81 + 0.5},
			Timestamp: ts,
		})
	}

	s, _ := f.Read()
	// With damping d and per-step increment a*dt the velocity converges to
	// a*dt*d/(1-d) instead of growing without bound.
	limit := 0.5 * 0.01 * velocityDamping / (1 - velocityDamping)
	if s.Velocity[2] > limit*1.05 {
		t.Errorf("Velocity %v exceeds damped bound %v", s.Velocity[2], limit)
	}
}

func TestBiasCorrectionApplied(t *testing.T) {
	f := NewFusion()
	f.Reset()

	accelSamples := [][3]float64{{0.2, -0.1, 9.91}, {0.2, -0.1, 9.91}}
	gyroSamples := [][3]float64{{0.05, 0.05, 0.05}, {0.05, 0.05, 0.05}}
	magSamples := [][3]float64{{21, 6, 41}, {21, 6, 41}}

	accelProf := mustVector(t, accelSamples, true)
	gyroProf := mustVector(t, gyroSamples, false)
	magProf := mustVector(t, magSamples, false)
	f.SetCalibration(accelProf, gyroProf, magProf)
	f.Reset()

	s, err := f.Update(Sample{
		Accel:     [3]float64{0.2, -0.1, 9.91},
		Gyro:      [3]float64{0.05, 0.05, 0.05},
		Mag:       [3]float64{21, 6, 41},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if math.Abs(s.Accel[0]) > 1e-9 || math.Abs(s.Accel[2]-9.81) > 1e-9 {
		t.Errorf("Expected bias-corrected accel {0,0,9.81}, got %v", s.Accel)
	}
	if math.Abs(s.Gyro[0]) > 1e-9 {
		t.Errorf("Expected bias-corrected gyro zero, got %v", s.Gyro)
	}
	if math.Abs(s.Mag[1]) > 1e-9 {
		t.Errorf("Expected bias-corrected mag zero, got %v", s.Mag)
	}
}

func mustVector(t *testing.T, samples [][3]float64, removeGravity bool) calibration.VectorProfile {
	t.Helper()
	p, err := calibration.CalibrateVector(samples, removeGravity)
	if err != nil {
		t.Fatalf("CalibrateVector failed: %v", err)
	}
	return p
}

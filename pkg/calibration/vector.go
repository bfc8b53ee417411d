package calibration

import (
	"math"
	"time"
)

// gravity is the assumed magnitude of gravitational acceleration on the Z
// axis while the glove rests level during calibration.
const gravity = 9.81

// VectorProfile holds bias calibration for a three-axis sensor
// (accelerometer, gyroscope or magnetometer).
type VectorProfile struct {
	Bias       [3]float64 `json:"bias"`
	StdDev     [3]float64 `json:"std_dev"`
	ComputedAt time.Time  `json:"computed_at"`
}

// CalibrateVector computes per-axis bias from rest-state samples. When
// removeGravity is set, 9.81 m/s² is subtracted from the Z bias so the
// accelerometer keeps reporting gravity after correction; the glove is
// assumed level during collection.
func CalibrateVector(samples [][3]float64, removeGravity bool) (VectorProfile, error) {
	if len(samples) == 0 {
		return VectorProfile{}, ErrInsufficientSamples
	}

	var mean [3]float64
	for _, s := range samples {
		for i := 0; i < 3; i++ {
			mean[i] += s[i]
		}
	}
	n := float64(len(samples))
	for i := 0; i < 3; i++ {
		mean[i] /= n
	}

	var variance [3]float64
	for _, s := range samples {
		for i := 0; i < 3; i++ {
			d := s[i] - mean[i]
			variance[i] += d * d
		}
	}

	var std [3]float64
	for i := 0; i < 3; i++ {
		std[i] = math.Sqrt(variance[i] / n)
	}

	if removeGravity {
		mean[2] -= gravity
	}

	return VectorProfile{
		Bias:       mean,
		StdDev:     std,
		ComputedAt: time.Now(),
	}, nil
}

// Apply subtracts the calibrated bias from a raw three-axis reading.
func (p VectorProfile) Apply(raw [3]float64) [3]float64 {
	return [3]float64{
		raw[0] - p.Bias[0],
		raw[1] - p.Bias[1],
		raw[2] - p.Bias[2],
	}
}

// Package imu fuses accelerometer, gyroscope and magnetometer samples into
// an orientation and motion estimate for the glove.
//
// Orientation uses a complementary filter: accelerometer tilt is low-drift
// but noisy, gyroscope integration is smooth but drifts, so the two are
// blended with a fixed trust weight. Yaw has no absolute reference and is
// integrated from the gyroscope alone; it drifts over time. The magnetometer
// is read and bias-corrected for diagnostics but does not correct yaw.
//
// Position is a double integration of approximately gravity-free
// acceleration with velocity damping. It is a qualitative motion estimate,
// not navigation: downstream code must only rely on relative magnitudes.
package imu

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/calibration"
)

// ErrNotInitialized is returned by Read and Update before Reset has run.
var ErrNotInitialized = errors.New("imu fusion not initialized")

const (
	// alpha is the complementary filter weight: trust the gyroscope short
	// term, let the accelerometer pull out the accumulated drift long term.
	alpha = 0.98

	// gravity is subtracted from the Z axis before motion integration.
	// This ignores current tilt, a known limitation.
	gravity = 9.81

	// velocityDamping bounds long-run drift of the velocity integral.
	velocityDamping = 0.99

	radToDeg = 180.0 / math.Pi
)

// Sample is one raw IMU reading: accelerometer in m/s², gyroscope in rad/s,
// magnetometer in µT.
type Sample struct {
	Accel     [3]float64 `json:"accel"`
	Gyro      [3]float64 `json:"gyro"`
	Mag       [3]float64 `json:"mag"`
	Timestamp time.Time  `json:"timestamp"`
}

// State is the fused output. Euler angles are degrees in (-180, 180],
// ordered roll, pitch, yaw; the quaternion is w, x, y, z and is re-derived
// from the Euler angles after every update.
type State struct {
	Euler      [3]float64 `json:"euler"`
	Quaternion [4]float64 `json:"quaternion"`
	Velocity   [3]float64 `json:"velocity"`
	Position   [3]float64 `json:"position"`

	Accel [3]float64 `json:"accel"`
	Gyro  [3]float64 `json:"gyro"`
	Mag   [3]float64 `json:"mag"`

	AccelMagnitude float64   `json:"accel_magnitude"`
	GyroMagnitude  float64   `json:"gyro_magnitude"`
	LastUpdate     time.Time `json:"last_update"`
}

// Fusion owns the filter state for one IMU.
type Fusion struct {
	mu sync.Mutex

	initialized bool
	hasPrev     bool

	accelBias calibration.VectorProfile
	gyroBias  calibration.VectorProfile
	magBias   calibration.VectorProfile

	state State
}

// NewFusion creates an uninitialized fusion unit. Reset must be called
// before the first Update.
func NewFusion() *Fusion {
	return &Fusion{}
}

// SetCalibration installs bias profiles for the three sensors.
func (f *Fusion) SetCalibration(accel, gyro, mag calibration.VectorProfile) {
	f.mu.Lock()
	f.accelBias = accel
	f.gyroBias = gyro
	f.magBias = mag
	f.mu.Unlock()
}

// Reset zeroes the filter state and marks the unit initialized. The next
// Update establishes the time reference and performs no integration.
func (f *Fusion) Reset() {
	f.mu.Lock()
	f.state = State{Quaternion: [4]float64{1, 0, 0, 0}}
	f.hasPrev = false
	f.initialized = true
	f.mu.Unlock()
}

// ResetPosition zeroes the velocity and position integrals without touching
// orientation.
func (f *Fusion) ResetPosition() {
	f.mu.Lock()
	f.state.Velocity = [3]float64{}
	f.state.Position = [3]float64{}
	f.mu.Unlock()
}

// Update feeds one raw sample through the filter and returns the new state.
// All numeric paths are total: out-of-range inputs are clamped or wrapped,
// never rejected.
func (f *Fusion) Update(s Sample) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.initialized {
		return State{}, ErrNotInitialized
	}

	accel := f.accelBias.Apply(s.Accel)
	gyro := f.gyroBias.Apply(s.Gyro)
	mag := f.magBias.Apply(s.Mag)

	if f.hasPrev {
		dt := s.Timestamp.Sub(f.state.LastUpdate).Seconds()
		if dt > 0 {
			f.updateOrientation(accel, gyro, dt)
			f.updateMotion(accel, dt)
		}
	}

	f.state.Accel = accel
	f.state.Gyro = gyro
	f.state.Mag = mag
	f.state.AccelMagnitude = magnitude(accel)
	f.state.GyroMagnitude = magnitude(gyro)
	f.state.LastUpdate = s.Timestamp
	f.hasPrev = true

	return f.state, nil
}

// Read returns a copy of the current fused state.
func (f *Fusion) Read() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return State{}, ErrNotInitialized
	}
	return f.state, nil
}

func (f *Fusion) updateOrientation(accel, gyro [3]float64, dt float64) {
	// Tilt from the accelerometer alone.
	accelRoll := math.Atan2(accel[1], accel[2]) * radToDeg
	accelPitch := math.Atan2(-accel[0], math.Sqrt(accel[1]*accel[1]+accel[2]*accel[2])) * radToDeg

	// Gyro integration on top of the previous estimate.
	gyroRoll := f.state.Euler[0] + gyro[0]*dt*radToDeg
	gyroPitch := f.state.Euler[1] + gyro[1]*dt*radToDeg
	gyroYaw := f.state.Euler[2] + gyro[2]*dt*radToDeg

	f.state.Euler[0] = normalizeAngle(alpha*gyroRoll + (1-alpha)*accelRoll)
	f.state.Euler[1] = normalizeAngle(alpha*gyroPitch + (1-alpha)*accelPitch)
	// Yaw is gyro-only: no absolute reference, drifts over time.
	f.state.Euler[2] = normalizeAngle(gyroYaw)

	// Re-derive the quaternion from the fused Euler angles every update so
	// no quaternion-specific numerical drift can accumulate.
	f.state.Quaternion = quaternionFromEuler(f.state.Euler)
}

func (f *Fusion) updateMotion(accel [3]float64, dt float64) {
	// Approximate gravity removal on Z only; current tilt is ignored.
	linear := [3]float64{accel[0], accel[1], accel[2] - gravity}

	for i := 0; i < 3; i++ {
		f.state.Velocity[i] += linear[i] * dt
		f.state.Position[i] += f.state.Velocity[i] * dt
		f.state.Velocity[i] *= velocityDamping
	}
}

// quaternionFromEuler converts roll, pitch, yaw in degrees to a unit
// quaternion using the standard ZYX convention.
func quaternionFromEuler(euler [3]float64) [4]float64 {
	roll := euler[0] / radToDeg
	pitch := euler[1] / radToDeg
	yaw := euler[2] / radToDeg

	cr := math.Cos(roll * 0.5)
	sr := math.Sin(roll * 0.5)
	cp := math.Cos(pitch * 0.5)
	sp := math.Sin(pitch * 0.5)
	cy := math.Cos(yaw * 0.5)
	sy := math.Sin(yaw * 0.5)

	return [4]float64{
		cr*cp*cy + sr*sp*sy, // w
		sr*cp*cy - cr*sp*sy, // x
		cr*sp*cy + sr*cp*sy, // y
		cr*cp*sy - sr*sp*cy, // z
	}
}

// normalizeAngle wraps a degree angle into (-180, 180].
func normalizeAngle(deg float64) float64 {
	for deg > 180 {
		deg -= 360
	}
	for deg <= -180 {
		deg += 360
	}
	return deg
}

func magnitude(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

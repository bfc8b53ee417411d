// Package sensors owns raw data acquisition: the source abstraction over
// the glove hardware, the high-rate sampling loop, and the fused snapshot
// the evaluation loop consumes.
package sensors

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/channel"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/imu"
)

// ErrNoData is returned by a source that has nothing to report yet.
var ErrNoData = errors.New("no sensor frame available")

// Source reads raw values from the glove hardware or a stand-in. Flex
// values follow channel.FlexNames order, pressure follows
// channel.PressureNames. Implementations must be safe for concurrent use:
// the sampling loop and calibration runs read in parallel.
type Source interface {
	ReadFlex() ([]float64, error)
	ReadPressure() ([]float64, error)
	ReadIMU() (imu.Sample, error)
}

// ScriptedSource is a deterministic test double. Set the current frame and
// every read returns it until changed.
type ScriptedSource struct {
	mu       sync.Mutex
	flex     []float64
	pressure []float64
	sample   imu.Sample
	err      error
}

// Set replaces the current frame.
func (s *ScriptedSource) Set(flex, pressure []float64, sample imu.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flex = append([]float64(nil), flex...)
	s.pressure = append([]float64(nil), pressure...)
	s.sample = sample
}

// Fail makes every read return err until cleared with Fail(nil).
func (s *ScriptedSource) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *ScriptedSource) ReadFlex() ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]float64(nil), s.flex...), nil
}

func (s *ScriptedSource) ReadPressure() ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]float64(nil), s.pressure...), nil
}

func (s *ScriptedSource) ReadIMU() (imu.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return imu.Sample{}, s.err
	}
	sample := s.sample
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}
	return sample, nil
}

// SimSource produces plausible bench data for running without hardware.
// The same seed yields the same stream.
type SimSource struct {
	mu  sync.Mutex
	rng *rand.Rand
	t   float64
}

// NewSimSource creates a simulated source from a seed.
func NewSimSource(seed int64) *SimSource {
	return &SimSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *SimSource) ReadFlex() ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t += 0.01
	out := make([]float64, len(channel.FlexNames))
	for i := range out {
		// Slow finger waves with sensor noise on top.
		out[i] = 0.5 + 0.4*math.Sin(s.t+float64(i)) + s.rng.NormFloat64()*0.02
	}
	return out, nil
}

func (s *SimSource) ReadPressure() ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(channel.PressureNames))
	for i := range out {
		out[i] = math.Abs(s.rng.NormFloat64() * 5)
	}
	return out, nil
}

func (s *SimSource) ReadIMU() (imu.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return imu.Sample{
		Accel: [3]float64{
			s.rng.NormFloat64() * 0.1,
			s.rng.NormFloat64() * 0.1,
			9.81 + s.rng.NormFloat64()*0.1,
		},
		Gyro: [3]float64{
			s.rng.NormFloat64() * 0.01,
			s.rng.NormFloat64() * 0.01,
			s.rng.NormFloat64() * 0.01,
		},
		Mag: [3]float64{
			25 + s.rng.NormFloat64(),
			s.rng.NormFloat64(),
			-40 + s.rng.NormFloat64(),
		},
		Timestamp: time.Now(),
	}, nil
}

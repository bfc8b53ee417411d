package sensors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/calibration"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/channel"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/imu"
)

// ErrUnknownChannel is returned when calibrating a channel name that does
// not exist.
var ErrUnknownChannel = errors.New("unknown sensor channel")

const (
	defaultRate               = 100
	defaultCalibrationSamples = 100

	flexRangeMin     = 0.0
	flexRangeMax     = 1.0
	pressureRangeMin = 0.0
	pressureRangeMax = 100.0
)

// Config wires a Manager to its source and tunables.
type Config struct {
	Source Source

	// Rate is the acquisition frequency in Hz. Zero means 100.
	Rate int

	// Sensitivity scales calibrated values on every channel.
	Sensitivity float64

	// CalibrationSamples is how many raw samples a calibration run
	// collects. Zero means 100.
	CalibrationSamples int
}

// Snapshot is one completed acquisition cycle. Consumers always get the
// latest completed snapshot; a cycle in progress is never visible.
type Snapshot struct {
	Flex     []channel.Reading `json:"flex"`
	Pressure []channel.Reading `json:"pressure"`
	Motion   imu.State         `json:"motion"`
	MotionOK bool              `json:"motion_ok"`

	Timestamp time.Time `json:"timestamp"`
}

// Manager owns the sensor channels and the fusion filter and runs the
// high-rate acquisition loop. The evaluation loop reads the latest snapshot
// at its own pace; being one cycle behind is acceptable and the staleness
// accessor makes the lag observable.
type Manager struct {
	cfg      Config
	flex     []*channel.Channel
	pressure []*channel.Channel
	fusion   *imu.Fusion
	store    *calibration.Store

	mu      sync.RWMutex
	snap    Snapshot
	hasSnap bool
}

// NewManager creates a manager with one channel per flex strip and pressure
// pad, all uncalibrated.
func NewManager(cfg Config) *Manager {
	if cfg.Rate <= 0 {
		cfg.Rate = defaultRate
	}
	if cfg.CalibrationSamples <= 0 {
		cfg.CalibrationSamples = defaultCalibrationSamples
	}
	if cfg.Sensitivity == 0 {
		cfg.Sensitivity = 1.0
	}

	m := &Manager{
		cfg:    cfg,
		fusion: imu.NewFusion(),
		store:  calibration.NewStore(),
	}
	for _, name := range channel.FlexNames {
		m.flex = append(m.flex, channel.New(name, flexRangeMin, flexRangeMax))
	}
	for _, name := range channel.PressureNames {
		m.pressure = append(m.pressure, channel.New(name, pressureRangeMin, pressureRangeMax))
	}
	m.fusion.Reset()
	return m
}

// Period returns the acquisition loop period.
func (m *Manager) Period() time.Duration {
	return time.Duration(float64(time.Second) / float64(m.cfg.Rate))
}

// Run drives the acquisition loop until the context is canceled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Period())
	defer ticker.Stop()

	log.Info("acquisition loop started", "rate_hz", m.cfg.Rate)
	for {
		select {
		case <-ctx.Done():
			log.Info("acquisition loop stopped")
			return
		case now := <-ticker.C:
			m.Step(now)
		}
	}
}

// Step runs one acquisition cycle; Run calls it on every tick. A read
// failure skips that sensor group for the cycle; a channel mid-calibration
// is left out of the snapshot so half-calibrated values never reach the
// evaluator.
func (m *Manager) Step(now time.Time) {
	snap := Snapshot{Timestamp: now}

	if raws, err := m.cfg.Source.ReadFlex(); err != nil {
		log.Debug("flex read failed", "error", err)
	} else {
		snap.Flex = m.processGroup(m.flex, raws, now)
		for i := range snap.Flex {
			snap.Flex[i].Position = channel.PositionDescription(snap.Flex[i].Value)
		}
	}

	if raws, err := m.cfg.Source.ReadPressure(); err != nil {
		log.Debug("pressure read failed", "error", err)
	} else {
		snap.Pressure = m.processGroup(m.pressure, raws, now)
		for i := range snap.Pressure {
			snap.Pressure[i].ForceNewtons = channel.ForceNewtons(snap.Pressure[i].Value)
			snap.Pressure[i].PressurePercent = channel.PressurePercent(snap.Pressure[i].Value, pressureRangeMax)
		}
	}

	if sample, err := m.cfg.Source.ReadIMU(); err != nil {
		log.Debug("imu read failed", "error", err)
	} else if state, err := m.fusion.Update(sample); err != nil {
		log.Debug("fusion update failed", "error", err)
	} else {
		snap.Motion = state
		snap.MotionOK = true
	}

	m.mu.Lock()
	m.snap = snap
	m.hasSnap = true
	m.mu.Unlock()
}

func (m *Manager) processGroup(chans []*channel.Channel, raws []float64, now time.Time) []channel.Reading {
	out := make([]channel.Reading, 0, len(chans))
	for i, ch := range chans {
		if i >= len(raws) {
			break
		}
		r, err := ch.Process(raws[i], now)
		if err != nil {
			// Calibration in progress on this channel.
			continue
		}
		out = append(out, r)
	}
	return out
}

// Snapshot returns the latest completed snapshot.
func (m *Manager) Snapshot() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap, m.hasSnap
}

// Staleness returns the age of the latest snapshot. ok is false before the
// first cycle completes.
func (m *Manager) Staleness() (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasSnap {
		return 0, false
	}
	return time.Since(m.snap.Timestamp), true
}

// Profiles returns the calibration store holding completed profiles.
func (m *Manager) Profiles() *calibration.Store {
	return m.store
}

// ChannelNames returns all channel names, flex then pressure.
func (m *Manager) ChannelNames() []string {
	out := make([]string, 0, len(m.flex)+len(m.pressure))
	for _, ch := range m.flex {
		out = append(out, ch.Name())
	}
	for _, ch := range m.pressure {
		out = append(out, ch.Name())
	}
	return out
}

// Calibrate runs a calibration cycle on one channel: the wearer holds the
// rest pose while raw samples are collected, then the new profile installs
// atomically. The channel's live readings are withheld for the duration;
// every other channel keeps flowing.
func (m *Manager) Calibrate(ctx context.Context, name string) (calibration.Profile, error) {
	ch, read, err := m.lookup(name)
	if err != nil {
		return calibration.Profile{}, err
	}

	if err := ch.BeginCalibration(); err != nil {
		return calibration.Profile{}, err
	}
	log.Info("calibration started", "channel", name, "samples", m.cfg.CalibrationSamples)

	samples := make([]float64, 0, m.cfg.CalibrationSamples)
	ticker := time.NewTicker(m.Period())
	defer ticker.Stop()

	for len(samples) < m.cfg.CalibrationSamples {
		select {
		case <-ctx.Done():
			ch.AbortCalibration()
			return calibration.Profile{}, ctx.Err()
		case <-ticker.C:
			raw, err := read()
			if err != nil {
				continue
			}
			samples = append(samples, raw)
		}
	}

	profile, err := ch.CompleteCalibration(samples, m.cfg.Sensitivity)
	if err != nil {
		return calibration.Profile{}, fmt.Errorf("calibrate %s: %w", name, err)
	}
	m.store.Put(name, profile)

	log.Info("calibration complete", "channel", name,
		"baseline", profile.Baseline, "threshold", profile.Threshold)
	return profile, nil
}

// CalibrateIMU collects still-pose IMU samples, computes per-axis bias
// profiles, and resets the fusion filter with them installed.
func (m *Manager) CalibrateIMU(ctx context.Context) error {
	log.Info("imu calibration started", "samples", m.cfg.CalibrationSamples)

	accel := make([][3]float64, 0, m.cfg.CalibrationSamples)
	gyro := make([][3]float64, 0, m.cfg.CalibrationSamples)
	mag := make([][3]float64, 0, m.cfg.CalibrationSamples)

	ticker := time.NewTicker(m.Period())
	defer ticker.Stop()

	for len(accel) < m.cfg.CalibrationSamples {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sample, err := m.cfg.Source.ReadIMU()
			if err != nil {
				continue
			}
			accel = append(accel, sample.Accel)
			gyro = append(gyro, sample.Gyro)
			mag = append(mag, sample.Mag)
		}
	}

	accelProfile, err := calibration.CalibrateVector(accel, true)
	if err != nil {
		return fmt.Errorf("imu accel calibration: %w", err)
	}
	gyroProfile, err := calibration.CalibrateVector(gyro, false)
	if err != nil {
		return fmt.Errorf("imu gyro calibration: %w", err)
	}
	magProfile, err := calibration.CalibrateVector(mag, false)
	if err != nil {
		return fmt.Errorf("imu mag calibration: %w", err)
	}

	m.fusion.SetCalibration(accelProfile, gyroProfile, magProfile)
	m.fusion.Reset()

	log.Info("imu calibration complete", "accel_bias", accelProfile.Bias, "gyro_bias", gyroProfile.Bias)
	return nil
}

// lookup resolves a channel name to its channel and a raw-value reader.
func (m *Manager) lookup(name string) (*channel.Channel, func() (float64, error), error) {
	for i, ch := range m.flex {
		if ch.Name() == name {
			idx := i
			return ch, func() (float64, error) { return m.readAt(m.cfg.Source.ReadFlex, idx) }, nil
		}
	}
	for i, ch := range m.pressure {
		if ch.Name() == name {
			idx := i
			return ch, func() (float64, error) { return m.readAt(m.cfg.Source.ReadPressure, idx) }, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
}

func (m *Manager) readAt(read func() ([]float64, error), idx int) (float64, error) {
	raws, err := read()
	if err != nil {
		return 0, err
	}
	if idx >= len(raws) {
		return 0, ErrNoData
	}
	return raws[idx], nil
}

// Package glove composes the acquisition, evaluation, and response
// subsystems into one supervised system.
package glove

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/config"
	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/escalation"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/gesture"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/ports"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/sensors"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/threat"
)

// ErrInvalidState is returned when a lifecycle call does not fit the
// current state, like starting a system twice.
var ErrInvalidState = errors.New("invalid lifecycle state")

// State is the system lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// System supervises the glove controller: the high-rate acquisition loop,
// the evaluation loop, and the escalation machine behind it. Children start
// in dependency order and stop in reverse.
type System struct {
	cfg     *config.Config
	sensors *sensors.Manager
	vision  ports.Vision
	machine *escalation.Machine

	mu          sync.Mutex
	state       State
	startedAt   time.Time
	lastCycle   time.Time
	gestures    gesture.Set
	cycleErrors uint64

	acqCancel  context.CancelFunc
	evalCancel context.CancelFunc
	acqDone    chan struct{}
	evalDone   chan struct{}
}

// New assembles a system from its subsystems. vision may be nil when no
// vision process is configured; the crowd floor then never trips.
func New(cfg *config.Config, mgr *sensors.Manager, vision ports.Vision, machine *escalation.Machine) *System {
	return &System{
		cfg:     cfg,
		sensors: mgr,
		vision:  vision,
		machine: machine,
		state:   StateReady,
	}
}

// Start launches the acquisition loop, then the evaluation loop on top of
// it. Only a Ready system can start.
func (s *System) Start() error {
	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, state)
	}
	s.state = StateRunning
	s.startedAt = time.Now()
	s.mu.Unlock()

	acqCtx, acqCancel := context.WithCancel(context.Background())
	evalCtx, evalCancel := context.WithCancel(context.Background())
	s.acqCancel = acqCancel
	s.evalCancel = evalCancel
	s.acqDone = make(chan struct{})
	s.evalDone = make(chan struct{})

	go func() {
		defer close(s.acqDone)
		s.sensors.Run(acqCtx)
	}()
	go func() {
		defer close(s.evalDone)
		s.runEvaluation(evalCtx)
	}()

	log.Info("glove system started",
		"main_loop_hz", s.cfg.MainLoopRate, "sensor_hz", s.cfg.SensorRate)
	return nil
}

// Stop tears the system down in reverse start order: evaluation loop first,
// then acquisition, then drains any in-flight response actions.
func (s *System) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot stop from %s", ErrInvalidState, state)
	}
	s.state = StateStopped
	s.mu.Unlock()

	s.evalCancel()
	<-s.evalDone
	s.acqCancel()
	<-s.acqDone
	s.machine.Wait()

	log.Info("glove system stopped")
	return nil
}

// State returns the lifecycle state.
func (s *System) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// runEvaluation is the main decision loop. It never terminates on a cycle
// fault; a failed cycle logs, backs off, and the loop resumes.
func (s *System) runEvaluation(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.MainLoopPeriod())
	defer ticker.Stop()

	log.Info("evaluation loop started", "rate_hz", s.cfg.MainLoopRate)
	for {
		select {
		case <-ctx.Done():
			log.Info("evaluation loop stopped")
			return
		case <-ticker.C:
			if err := s.cycle(); err != nil {
				s.mu.Lock()
				s.cycleErrors++
				s.mu.Unlock()
				log.Warn("evaluation cycle failed", "error", err)

				select {
				case <-ctx.Done():
					return
				case <-time.After(s.cfg.ErrorBackoff):
				}
			}
		}
	}
}

// cycle runs one evaluation pass: latest sensor snapshot plus the vision
// scene become gesture flags and threat evidence, which the machine acts on.
func (s *System) cycle() error {
	snap, ok := s.sensors.Snapshot()
	if !ok {
		return errors.New("no sensor snapshot yet")
	}
	if age := time.Since(snap.Timestamp); age > s.cfg.StalenessLimit {
		return fmt.Errorf("sensor snapshot stale by %s", age)
	}

	flex := make([]float64, 0, len(snap.Flex))
	for _, r := range snap.Flex {
		flex = append(flex, r.Value)
	}
	pressure := make([]float64, 0, len(snap.Pressure))
	for _, r := range snap.Pressure {
		pressure = append(pressure, r.Value)
	}

	var magnitude float64
	if snap.MotionOK {
		magnitude = snap.Motion.AccelMagnitude
	}

	set := gesture.Classify(flex, pressure, magnitude)

	var scene ports.VisionSnapshot
	if s.vision != nil {
		scene = s.vision.Latest()
	}

	evidence := threat.Evidence{
		PersonCount:       scene.PersonCount,
		PersonThreshold:   s.cfg.PersonThreshold,
		UnusualMovement:   set.UnusualMovement,
		EmergencyGesture:  set.EmergencyGesture,
		MovementMagnitude: magnitude,
	}
	s.machine.Observe(evidence)

	s.mu.Lock()
	s.lastCycle = time.Now()
	s.gestures = set
	s.mu.Unlock()

	return nil
}

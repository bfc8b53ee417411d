package glove

import (
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/escalation"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/gesture"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/sensors"
)

// Status is a point-in-time view of the system, safe to serialize.
type Status struct {
	State       string        `json:"state"`
	Uptime      time.Duration `json:"uptime"`
	ThreatLevel int           `json:"threat_level"`
	ThreatName  string        `json:"threat_name"`

	LastCycle    time.Time     `json:"last_cycle,omitzero"`
	SnapshotAge  time.Duration `json:"snapshot_age"`
	SensorsReady bool          `json:"sensors_ready"`
	CycleErrors  uint64        `json:"cycle_errors"`

	Gestures       gesture.Set        `json:"gestures"`
	AutoResponse   bool               `json:"auto_response"`
	LastTransition time.Time          `json:"last_transition,omitzero"`
	Active         *escalation.Record `json:"active_emergency,omitempty"`
}

// Status reports the current system state. Everything returned is a copy.
func (s *System) Status() Status {
	s.mu.Lock()
	state := s.state
	startedAt := s.startedAt
	lastCycle := s.lastCycle
	set := s.gestures
	cycleErrors := s.cycleErrors
	s.mu.Unlock()

	st := Status{
		State:          state.String(),
		ThreatLevel:    int(s.machine.Level()),
		ThreatName:     s.machine.Level().String(),
		LastCycle:      lastCycle,
		CycleErrors:    cycleErrors,
		Gestures:       set,
		AutoResponse:   s.machine.AutoResponse(),
		LastTransition: s.machine.LastChange(),
	}
	if state == StateRunning {
		st.Uptime = time.Since(startedAt)
	}
	if age, ok := s.sensors.Staleness(); ok {
		st.SnapshotAge = age
		st.SensorsReady = true
	}
	if rec, ok := s.machine.Active(); ok {
		st.Active = &rec
	}
	return st
}

// Machine exposes the escalation machine for the API layer.
func (s *System) Machine() *escalation.Machine {
	return s.machine
}

// Sensors exposes the sensor manager for the API layer.
func (s *System) Sensors() *sensors.Manager {
	return s.sensors
}

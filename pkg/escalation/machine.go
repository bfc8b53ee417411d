package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/ports"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/threat"
)

// Config wires a Machine to its collaborators and tunables.
type Config struct {
	Haptic ports.Haptic
	Alert  ports.Alert
	Stream ports.Stream

	// EmergencyContacts receive alerts from level Alert upward; the
	// AuthorityContact is only notified at Emergency.
	EmergencyContacts []string
	AuthorityContact  string

	// AutoResponse gates outbound alerts. When disabled, transitions are
	// still tracked and logged but no messages leave the device.
	AutoResponse bool

	// ActionTimeout bounds every collaborator call; an action that does
	// not complete in time is recorded as failed and the protocol moves on.
	ActionTimeout time.Duration

	HistoryCapacity int
	Location        string
}

// Machine holds the current threat level and drives the graduated response
// protocol on level changes. It owns the active emergency record and the
// bounded incident history; concurrent readers only ever see copies.
type Machine struct {
	cfg Config

	mu           sync.Mutex
	level        threat.Level
	current      *Record
	history      *history
	autoResponse bool
	lastChange   time.Time

	// wg tracks in-flight dispatch goroutines so shutdown and tests can
	// drain them.
	wg sync.WaitGroup
}

// NewMachine creates a machine at level Safe.
func NewMachine(cfg Config) *Machine {
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 5 * time.Second
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = 100
	}
	return &Machine{
		cfg:          cfg,
		history:      newHistory(cfg.HistoryCapacity),
		autoResponse: cfg.AutoResponse,
	}
}

// Level returns the current threat level.
func (m *Machine) Level() threat.Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// AutoResponse reports whether outbound alerts are currently enabled.
func (m *Machine) AutoResponse() bool {
	return m.autoResponseEnabled()
}

// SetAutoResponse enables or disables outbound alerts at runtime.
func (m *Machine) SetAutoResponse(enabled bool) {
	m.mu.Lock()
	m.autoResponse = enabled
	m.mu.Unlock()
	log.Info("auto response toggled", "enabled", enabled)
}

// Observe evaluates the cycle's evidence and, when the level changes,
// fires haptic feedback and the escalation protocol. The level is
// recomputed fresh every cycle, so it can fall as well as rise; protocol
// actions only run on rising transitions. Dispatch work runs off the
// caller's goroutine and never blocks the evaluation loop.
func (m *Machine) Observe(e threat.Evidence) threat.Level {
	level := threat.Evaluate(e)

	m.mu.Lock()
	prev := m.level
	if level != prev {
		m.level = level
		m.lastChange = time.Now()
	}
	m.mu.Unlock()

	if level == prev {
		return level
	}

	log.Info("threat level changed", "from", prev.String(), "to", level.String())

	if m.cfg.Haptic != nil {
		if err := m.cfg.Haptic.Feedback(level); err != nil {
			log.Warn("haptic feedback failed", "error", err)
		}
	}

	if level > prev && level >= threat.Caution {
		var rec *Record
		if level >= threat.Emergency {
			rec = m.openRecord(e, level)
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runProtocol(rec, level)
		}()
	}

	return level
}

// Dispatch explicitly triggers the response protocol for the given
// evidence, creating an emergency record regardless of level. It returns
// the new record's id immediately; actions run asynchronously.
func (m *Machine) Dispatch(e threat.Evidence) (string, error) {
	level := threat.Evaluate(e)

	m.mu.Lock()
	if level > m.level {
		m.level = level
		m.lastChange = time.Now()
	}
	m.mu.Unlock()

	rec := m.openRecord(e, level)
	log.Warn("emergency dispatch triggered", "id", rec.ID, "level", level.String())

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runProtocol(rec, level)
	}()

	return rec.ID, nil
}

// Resolve closes the active emergency. Only the currently active record can
// be resolved; an unknown or already-resolved id returns ErrUnknownRecord
// and leaves all state untouched.
func (m *Machine) Resolve(id, notes string) error {
	m.mu.Lock()
	if m.current == nil || m.current.ID != id {
		m.mu.Unlock()
		return ErrUnknownRecord
	}
	m.current.Status = StatusResolved
	m.current.ResolutionNotes = notes
	m.current.ResolvedAt = time.Now()
	m.current = nil
	m.mu.Unlock()

	if m.cfg.Stream != nil {
		if err := m.cfg.Stream.Stop(); err != nil {
			log.Warn("livestream stop failed", "error", err)
		}
	}

	log.Info("emergency resolved", "id", id)
	return nil
}

// Active returns a copy of the active emergency record, if any.
func (m *Machine) Active() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Record{}, false
	}
	return m.current.clone(), true
}

// History returns up to limit incident copies, newest first.
func (m *Machine) History(limit int) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.list(limit)
}

// LastChange returns when the level last transitioned.
func (m *Machine) LastChange() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChange
}

// Wait blocks until all in-flight dispatch actions complete. Used on
// shutdown and in tests.
func (m *Machine) Wait() {
	m.wg.Wait()
}

// openRecord creates and activates a new emergency record. Every record
// gets a fresh uuid, so rapid successive emergencies cannot collide.
func (m *Machine) openRecord(e threat.Evidence, level threat.Level) *Record {
	rec := &Record{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Level:     level,
		Location:  m.cfg.Location,
		Status:    StatusActive,
		Evidence:  e,
	}

	m.mu.Lock()
	m.current = rec
	m.history.add(rec)
	m.mu.Unlock()

	return rec
}

// runProtocol executes the cumulative response actions for every threshold
// the level reaches. Each action outcome is appended to the record's log;
// a failed action never aborts the remaining ones.
func (m *Machine) runProtocol(rec *Record, level threat.Level) {
	if level >= threat.Caution {
		m.handleCaution(rec)
	}
	if level >= threat.Alert {
		m.handleAlert(rec, level)
	}
	if level >= threat.Emergency {
		m.handleEmergency(rec)
	}
}

// handleCaution logs the event and pre-warms collaborator connections. No
// alert leaves the device at this tier.
func (m *Machine) handleCaution(rec *Record) {
	log.Info("executing caution level response")
	m.appendAction(rec, Action{
		Name:      "logged_event",
		Timestamp: time.Now(),
		Success:   true,
		Detail:    "caution level event logged",
	})

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ActionTimeout)
	defer cancel()
	if m.cfg.Alert != nil {
		if err := m.cfg.Alert.Prepare(ctx); err != nil {
			log.Warn("alert pre-warm failed", "error", err)
		}
	}
	if m.cfg.Stream != nil {
		if err := m.cfg.Stream.Prepare(ctx); err != nil {
			log.Warn("stream pre-warm failed", "error", err)
		}
	}
}

// handleAlert notifies the personal emergency contacts and starts the
// livestream. The authority contact is not involved at this tier.
func (m *Machine) handleAlert(rec *Record, level threat.Level) {
	log.Warn("executing alert level response")

	if m.autoResponseEnabled() {
		msg := contactMessage(int(level), m.cfg.Location, time.Now())
		for _, contact := range m.cfg.EmergencyContacts {
			err := m.sendAlert(contact, msg)
			m.appendAction(rec, Action{
				Name:      "sms_sent",
				Timestamp: time.Now(),
				Recipient: contact,
				Success:   err == nil,
				Detail:    errDetail(err),
			})
		}
	}

	if m.cfg.Stream != nil && !m.cfg.Stream.IsActive() {
		err := m.startStream()
		m.appendAction(rec, Action{
			Name:      "livestream_started",
			Timestamp: time.Now(),
			Success:   err == nil,
			Detail:    errDetail(err),
		})
	}
}

// handleEmergency notifies the authority contact and makes sure the
// livestream is running, starting it if the alert tier did not.
func (m *Machine) handleEmergency(rec *Record) {
	log.Error("executing emergency level response")

	if m.cfg.AuthorityContact != "" && m.autoResponseEnabled() {
		var msg string
		if rec != nil {
			msg = authorityMessage(rec)
		} else {
			msg = contactMessage(int(threat.Emergency), m.cfg.Location, time.Now())
		}
		err := m.sendAlert(m.cfg.AuthorityContact, msg)
		m.appendAction(rec, Action{
			Name:      "police_alert_sent",
			Timestamp: time.Now(),
			Recipient: m.cfg.AuthorityContact,
			Success:   err == nil,
			Detail:    errDetail(err),
		})
		if err != nil {
			log.Error("authority alert failed", "error", err)
		}
	}

	if m.cfg.Stream != nil && !m.cfg.Stream.IsActive() {
		err := m.startStream()
		m.appendAction(rec, Action{
			Name:      "emergency_livestream_started",
			Timestamp: time.Now(),
			Success:   err == nil,
			Detail:    errDetail(err),
		})
	}
}

func (m *Machine) sendAlert(recipient, message string) error {
	if m.cfg.Alert == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ActionTimeout)
	defer cancel()
	return m.cfg.Alert.Send(ctx, recipient, message)
}

func (m *Machine) startStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ActionTimeout)
	defer cancel()
	return m.cfg.Stream.Start(ctx)
}

// appendAction records an action outcome on the given record. Protocol runs
// without a record (caution and alert transitions observed before any
// emergency) only log the outcome.
func (m *Machine) appendAction(rec *Record, a Action) {
	log.Debug("response action", "action", a.Name, "recipient", a.Recipient, "success", a.Success)
	if rec == nil {
		return
	}
	m.mu.Lock()
	rec.Actions = append(rec.Actions, a)
	m.mu.Unlock()
}

func (m *Machine) autoResponseEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoResponse
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

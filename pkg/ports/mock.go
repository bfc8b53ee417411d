package ports

import (
	"context"
	"fmt"
	"sync"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/threat"
)

// MockHaptic records feedback calls.
type MockHaptic struct {
	mu     sync.Mutex
	Levels []threat.Level
}

// Feedback appends the level to the call record.
func (m *MockHaptic) Feedback(level threat.Level) error {
	m.mu.Lock()
	m.Levels = append(m.Levels, level)
	m.mu.Unlock()
	return nil
}

// Calls returns a copy of the recorded levels.
func (m *MockHaptic) Calls() []threat.Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]threat.Level, len(m.Levels))
	copy(out, m.Levels)
	return out
}

// SentMessage is one recorded Send call.
type SentMessage struct {
	Recipient string
	Message   string
}

// MockAlert records sends and can be scripted to fail per recipient.
type MockAlert struct {
	mu       sync.Mutex
	Sent     []SentMessage
	FailFor  map[string]bool
	Prepared int
}

// Send records the message, failing if the recipient is scripted to fail.
func (m *MockAlert) Send(_ context.Context, recipient, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFor[recipient] {
		return fmt.Errorf("%w: scripted failure for %s", ErrTransportFailure, recipient)
	}
	m.Sent = append(m.Sent, SentMessage{Recipient: recipient, Message: message})
	return nil
}

// Prepare counts pre-warm calls.
func (m *MockAlert) Prepare(context.Context) error {
	m.mu.Lock()
	m.Prepared++
	m.mu.Unlock()
	return nil
}

// Messages returns a copy of the recorded sends.
func (m *MockAlert) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// SentTo returns how many messages went to a recipient.
func (m *MockAlert) SentTo(recipient string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.Sent {
		if s.Recipient == recipient {
			n++
		}
	}
	return n
}

// MockStream tracks livestream state with optional scripted failures.
type MockStream struct {
	mu        sync.Mutex
	active    bool
	Starts    int
	Stops     int
	Prepared  int
	FailStart bool
}

// Start activates the stream unless scripted to fail. Starting an already
// active stream is counted but harmless.
func (m *MockStream) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Starts++
	if m.FailStart {
		return fmt.Errorf("%w: scripted stream failure", ErrTransportFailure)
	}
	m.active = true
	return nil
}

// Stop deactivates the stream.
func (m *MockStream) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stops++
	m.active = false
	return nil
}

// IsActive reports the stream state.
func (m *MockStream) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Prepare counts pre-warm calls.
func (m *MockStream) Prepare(context.Context) error {
	m.mu.Lock()
	m.Prepared++
	m.mu.Unlock()
	return nil
}

// SetActive forces the stream state, for tests covering ensure-running
// semantics.
func (m *MockStream) SetActive(active bool) {
	m.mu.Lock()
	m.active = active
	m.mu.Unlock()
}

// StartCount returns how many Start calls were made.
func (m *MockStream) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Starts
}

// StaticVision returns a fixed snapshot.
type StaticVision struct {
	Snapshot VisionSnapshot
}

// Latest returns the configured snapshot.
func (v *StaticVision) Latest() VisionSnapshot {
	return v.Snapshot
}

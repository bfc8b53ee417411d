// Package escalation holds the threat-escalation state machine and the
// graduated emergency-response protocol it drives.
package escalation

import (
	"errors"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/threat"
)

// ErrUnknownRecord is returned when resolving an id that is not the
// currently active emergency.
var ErrUnknownRecord = errors.New("unknown or inactive emergency record")

// Record status values.
const (
	StatusActive   = "active"
	StatusResolved = "resolved"
)

// Action is one entry in an emergency's ordered action log. Failures are
// recorded, never discarded.
type Action struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Recipient string    `json:"recipient,omitempty"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
}

// Record is one emergency incident. The machine owns the live record;
// everything handed out of the package is a deep copy.
type Record struct {
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	Level           threat.Level    `json:"level"`
	Location        string          `json:"location"`
	Actions         []Action        `json:"actions"`
	Status          string          `json:"status"`
	ResolutionNotes string          `json:"resolution_notes,omitempty"`
	ResolvedAt      time.Time       `json:"resolved_at,omitzero"`
	Evidence        threat.Evidence `json:"evidence"`
}

// clone returns a deep copy safe to hand to concurrent readers.
func (r *Record) clone() Record {
	out := *r
	out.Actions = make([]Action, len(r.Actions))
	copy(out.Actions, r.Actions)
	return out
}

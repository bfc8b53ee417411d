// Package ports defines the narrow collaborator interfaces the controller
// core depends on. Real transports (SMS gateways, streaming backends,
// vision processes, haptic drivers) live behind these; the core never
// imports a concrete transport.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/threat"
)

// ErrTransportFailure wraps any collaborator call that failed or timed out.
// Transport failures are recorded, never propagated into the control loop.
var ErrTransportFailure = errors.New("collaborator transport failure")

// Haptic drives the vibration actuators. Feedback is fire-and-forget.
type Haptic interface {
	Feedback(level threat.Level) error
}

// Alert delivers a text alert to one recipient. It is used for both
// emergency-contact and authority notifications.
type Alert interface {
	Send(ctx context.Context, recipient, message string) error
	// Prepare pre-warms the transport so a later Send is fast.
	Prepare(ctx context.Context) error
}

// Stream controls the emergency livestream.
type Stream interface {
	Start(ctx context.Context) error
	Stop() error
	IsActive() bool
	// Prepare pre-warms the stream so Start is fast.
	Prepare(ctx context.Context) error
}

// VisionSnapshot is the latest output of the external vision subsystem.
type VisionSnapshot struct {
	PersonCount int       `json:"person_count"`
	Gestures    []string  `json:"gestures"`
	Timestamp   time.Time `json:"timestamp"`
}

// Vision exposes the most recent vision analysis. Implementations return a
// zero snapshot rather than an error when no data has arrived yet.
type Vision interface {
	Latest() VisionSnapshot
}

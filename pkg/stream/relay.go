// Package stream pushes evidence frames to a remote relay while an
// emergency is active.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/ports"
)

var (
	// ErrAlreadyStreaming is returned by Start while a session is active.
	ErrAlreadyStreaming = errors.New("livestream already active")
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	defaultFrameRate = 10.0
)

// FrameSource supplies the next frame to forward. Returning an error skips
// the frame; the session keeps running.
type FrameSource func() ([]byte, error)

// Broadcaster mirrors frames to local dashboard clients.
type Broadcaster interface {
	BroadcastBinary(data []byte)
}

// Relay implements the stream port over a websocket connection to a relay
// server. Frames are pulled from the source at the configured rate and
// written to the relay; when a local broadcaster is set, each frame is
// mirrored to it as well.
type Relay struct {
	url      string
	source   FrameSource
	local    Broadcaster
	interval time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	active bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRelay creates a relay for the given websocket URL. source may be nil,
// in which case the session only holds the connection open with pings.
// local may be nil.
func NewRelay(url string, source FrameSource, local Broadcaster) *Relay {
	return &Relay{
		url:      url,
		source:   source,
		local:    local,
		interval: time.Duration(float64(time.Second) / defaultFrameRate),
	}
}

// SetLocal installs the dashboard mirror after construction. Must be called
// before Start.
func (r *Relay) SetLocal(local Broadcaster) {
	r.mu.Lock()
	r.local = local
	r.mu.Unlock()
}

// Start dials the relay and begins forwarding frames. Returns
// ErrAlreadyStreaming if a session is active.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return ErrAlreadyStreaming
	}
	r.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("%w: relay dial %s: %v", ports.ErrTransportFailure, r.url, err)
	}

	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		conn.Close()
		return ErrAlreadyStreaming
	}
	r.conn = conn
	r.active = true
	r.stopCh = make(chan struct{})
	local := r.local
	stopCh := r.stopCh
	r.mu.Unlock()

	log.Info("livestream started", "relay", r.url)

	r.wg.Add(1)
	go r.run(conn, stopCh, local)

	return nil
}

// Stop ends the active session. Stopping an inactive relay is a no-op.
func (r *Relay) Stop() error {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil
	}
	r.active = false
	close(r.stopCh)
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	conn.Close()
	r.wg.Wait()

	log.Info("livestream stopped")
	return nil
}

// IsActive reports whether a session is running.
func (r *Relay) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Prepare checks the relay is reachable so an emergency start does not pay
// for the first handshake.
func (r *Relay) Prepare(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("%w: relay probe %s: %v", ports.ErrTransportFailure, r.url, err)
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	return nil
}

// run forwards frames until the session is stopped or the connection dies.
func (r *Relay) run(conn *websocket.Conn, stopCh chan struct{}, local Broadcaster) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return

		case <-ticker.C:
			if r.source == nil {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					r.fail(err)
					return
				}
				continue
			}

			frame, err := r.source()
			if err != nil {
				log.Debug("frame source error", "error", err)
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				r.fail(err)
				return
			}

			if local != nil {
				local.BroadcastBinary(frame)
			}
		}
	}
}

// fail marks the session dead after a connection error. A later Start will
// dial fresh.
func (r *Relay) fail(err error) {
	r.mu.Lock()
	wasActive := r.active
	r.active = false
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if wasActive {
		log.Warn("livestream connection lost", "error", err)
	}
	if conn != nil {
		conn.Close()
	}
}

package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/ports"
)

// relayServer is a minimal websocket endpoint that collects binary frames.
type relayServer struct {
	srv *httptest.Server

	mu     sync.Mutex
	frames [][]byte
}

func newRelayServer(t *testing.T) *relayServer {
	t.Helper()
	rs := &relayServer{}
	upgrader := websocket.Upgrader{}

	rs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				rs.mu.Lock()
				rs.frames = append(rs.frames, data)
				rs.mu.Unlock()
			}
		}
	}))
	t.Cleanup(rs.srv.Close)
	return rs
}

func (rs *relayServer) url() string {
	return "ws" + strings.TrimPrefix(rs.srv.URL, "http")
}

func (rs *relayServer) frameCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.frames)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

type collectingBroadcaster struct {
	mu     sync.Mutex
	frames int
}

func (b *collectingBroadcaster) BroadcastBinary(data []byte) {
	b.mu.Lock()
	b.frames++
	b.mu.Unlock()
}

func (b *collectingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

func TestStartForwardsFrames(t *testing.T) {
	rs := newRelayServer(t)
	local := &collectingBroadcaster{}

	r := NewRelay(rs.url(), func() ([]byte, error) {
		return []byte{0xde, 0xad}, nil
	}, local)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	if !r.IsActive() {
		t.Error("Expected relay active after Start")
	}

	waitFor(t, 2*time.Second, func() bool { return rs.frameCount() >= 3 })
	waitFor(t, 2*time.Second, func() bool { return local.count() >= 3 })
}

func TestStartWhileActive(t *testing.T) {
	rs := newRelayServer(t)
	r := NewRelay(rs.url(), nil, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyStreaming) {
		t.Errorf("Expected ErrAlreadyStreaming, got %v", err)
	}
}

func TestStopLifecycle(t *testing.T) {
	rs := newRelayServer(t)
	r := NewRelay(rs.url(), nil, nil)

	// Stopping an idle relay is a no-op.
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop on idle relay failed: %v", err)
	}

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if r.IsActive() {
		t.Error("Expected relay inactive after Stop")
	}

	// Restart after stop dials fresh.
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	r.Stop()
}

func TestStartUnreachableRelay(t *testing.T) {
	r := NewRelay("ws://127.0.0.1:1/stream", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := r.Start(ctx)
	if !errors.Is(err, ports.ErrTransportFailure) {
		t.Errorf("Expected ErrTransportFailure, got %v", err)
	}
	if r.IsActive() {
		t.Error("Failed start must leave the relay inactive")
	}
}

func TestSourceErrorSkipsFrame(t *testing.T) {
	rs := newRelayServer(t)

	var mu sync.Mutex
	calls := 0
	r := NewRelay(rs.url(), func() ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls%2 == 0 {
			return nil, errors.New("sensor busy")
		}
		return []byte{0x01}, nil
	}, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	// The session survives source errors and keeps delivering good frames.
	waitFor(t, 2*time.Second, func() bool { return rs.frameCount() >= 2 })
	if !r.IsActive() {
		t.Error("Source errors must not kill the session")
	}
}

func TestPrepare(t *testing.T) {
	rs := newRelayServer(t)
	r := NewRelay(rs.url(), nil, nil)

	if err := r.Prepare(context.Background()); err != nil {
		t.Errorf("Prepare failed: %v", err)
	}
	if r.IsActive() {
		t.Error("Prepare must not leave a session active")
	}

	bad := NewRelay("ws://127.0.0.1:1/stream", nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := bad.Prepare(ctx); !errors.Is(err, ports.ErrTransportFailure) {
		t.Errorf("Expected ErrTransportFailure, got %v", err)
	}
}

// Package vision consumes person-detection snapshots published by the
// external vision process. No image processing happens on the glove; only
// the detection summary crosses the wire.
package vision

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/ports"
)

const (
	connectTimeout = 10 * time.Second
	// DefaultStaleness is how long a snapshot stays usable. Past it, the
	// subscriber reports an empty scene rather than acting on dead data.
	DefaultStaleness = 2 * time.Second
)

// frame is the wire format published on the vision topic.
type frame struct {
	PersonCount int      `json:"person_count"`
	Gestures    []string `json:"gestures"`
	TimestampMs int64    `json:"timestamp_ms"`
}

// Options configures a Subscriber.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string

	// Staleness bounds how old a snapshot may be before Latest stops
	// reporting it. Zero means DefaultStaleness.
	Staleness time.Duration
}

// Subscriber implements the vision port over an MQTT topic. It keeps only
// the most recent snapshot; staleness is judged by receipt time, so clock
// skew on the publisher cannot poison the threat evaluation.
type Subscriber struct {
	opts   Options
	client mqtt.Client

	mu         sync.RWMutex
	snap       ports.VisionSnapshot
	receivedAt time.Time
}

// NewSubscriber creates a subscriber; call Connect to start receiving.
func NewSubscriber(opts Options) *Subscriber {
	if opts.Staleness <= 0 {
		opts.Staleness = DefaultStaleness
	}
	return &Subscriber{opts: opts}
}

// Connect dials the broker and subscribes to the vision topic.
func (s *Subscriber) Connect() error {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(s.opts.Broker).
		SetClientID(s.opts.ClientID).
		SetUsername(s.opts.Username).
		SetPassword(s.opts.Password).
		SetKeepAlive(60 * time.Second).
		SetAutoReconnect(true)

	clientOpts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("vision broker connection lost", "error", err)
	}
	clientOpts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(s.opts.Topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			s.handleMessage(msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			log.Error("vision topic subscribe failed", "topic", s.opts.Topic, "error", token.Error())
		}
	}

	s.client = mqtt.NewClient(clientOpts)
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: vision broker connect timeout", ports.ErrTransportFailure)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: vision broker connect: %v", ports.ErrTransportFailure, err)
	}

	log.Info("vision subscriber connected", "broker", s.opts.Broker, "topic", s.opts.Topic)
	return nil
}

// Close disconnects from the broker.
func (s *Subscriber) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

// Latest returns the most recent snapshot, or an empty one when nothing
// fresh has arrived within the staleness window.
func (s *Subscriber) Latest() ports.VisionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.receivedAt.IsZero() || time.Since(s.receivedAt) > s.opts.Staleness {
		return ports.VisionSnapshot{}
	}
	return s.snap
}

func (s *Subscriber) handleMessage(payload []byte) {
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		log.Warn("malformed vision frame dropped", "error", err)
		return
	}

	snap := ports.VisionSnapshot{
		PersonCount: f.PersonCount,
		Gestures:    f.Gestures,
		Timestamp:   time.UnixMilli(f.TimestampMs),
	}

	s.mu.Lock()
	s.snap = snap
	s.receivedAt = time.Now()
	s.mu.Unlock()
}

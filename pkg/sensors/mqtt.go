package sensors

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/imu"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/ports"
)

const (
	mqttConnectTimeout = 10 * time.Second
	frameStaleness     = 500 * time.Millisecond
)

// rawFrame is the wire format the glove MCU publishes on the sample topic.
type rawFrame struct {
	Flex        []float64  `json:"flex"`
	Pressure    []float64  `json:"pressure"`
	Accel       [3]float64 `json:"accel"`
	Gyro        [3]float64 `json:"gyro"`
	Mag         [3]float64 `json:"mag"`
	TimestampMs int64      `json:"timestamp_ms"`
}

// MQTTOptions configures an MQTTSource.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// MQTTSource reads raw sample frames published by the glove MCU. Only the
// latest frame is kept; reads past the staleness window return ErrNoData so
// a silent MCU surfaces as an acquisition fault instead of frozen values.
type MQTTSource struct {
	opts   MQTTOptions
	client mqtt.Client

	mu         sync.RWMutex
	frame      rawFrame
	receivedAt time.Time
}

// NewMQTTSource creates a source; call Connect before reading.
func NewMQTTSource(opts MQTTOptions) *MQTTSource {
	return &MQTTSource{opts: opts}
}

// Connect dials the broker and subscribes to the sample topic.
func (m *MQTTSource) Connect() error {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(m.opts.Broker).
		SetClientID(m.opts.ClientID).
		SetUsername(m.opts.Username).
		SetPassword(m.opts.Password).
		SetKeepAlive(60 * time.Second).
		SetAutoReconnect(true)

	clientOpts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("sensor broker connection lost", "error", err)
	}
	clientOpts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(m.opts.Topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			m.handleMessage(msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			log.Error("sensor topic subscribe failed", "topic", m.opts.Topic, "error", token.Error())
		}
	}

	m.client = mqtt.NewClient(clientOpts)
	token := m.client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return fmt.Errorf("%w: sensor broker connect timeout", ports.ErrTransportFailure)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: sensor broker connect: %v", ports.ErrTransportFailure, err)
	}

	log.Info("sensor source connected", "broker", m.opts.Broker, "topic", m.opts.Topic)
	return nil
}

// Close disconnects from the broker.
func (m *MQTTSource) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}

func (m *MQTTSource) handleMessage(payload []byte) {
	var f rawFrame
	if err := json.Unmarshal(payload, &f); err != nil {
		log.Warn("malformed sensor frame dropped", "error", err)
		return
	}

	m.mu.Lock()
	m.frame = f
	m.receivedAt = time.Now()
	m.mu.Unlock()
}

func (m *MQTTSource) current() (rawFrame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.receivedAt.IsZero() || time.Since(m.receivedAt) > frameStaleness {
		return rawFrame{}, ErrNoData
	}
	return m.frame, nil
}

func (m *MQTTSource) ReadFlex() ([]float64, error) {
	f, err := m.current()
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), f.Flex...), nil
}

func (m *MQTTSource) ReadPressure() ([]float64, error) {
	f, err := m.current()
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), f.Pressure...), nil
}

func (m *MQTTSource) ReadIMU() (imu.Sample, error) {
	f, err := m.current()
	if err != nil {
		return imu.Sample{}, err
	}
	return imu.Sample{
		Accel:     f.Accel,
		Gyro:      f.Gyro,
		Mag:       f.Mag,
		Timestamp: time.UnixMilli(f.TimestampMs),
	}, nil
}

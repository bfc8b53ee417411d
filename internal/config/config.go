// Package config loads and validates controller configuration from the
// environment. A .env file in the working directory is honored when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidConfiguration is returned by Validate for settings the controller
// cannot safely start with. Configuration errors are fatal at startup only.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Config holds every tunable of the glove controller.
type Config struct {
	LogLevel string

	// Loop cadence
	MainLoopRate   float64 // Hz, evaluation loop
	SensorRate     float64 // Hz, acquisition loop
	ErrorBackoff   time.Duration
	StalenessLimit time.Duration

	// Sensing
	CalibrationSamples int
	Sensitivity        float64
	PersonThreshold    int

	// Escalation
	EmergencyContacts []string
	AuthorityContact  string
	AutoResponse      bool
	ActionTimeout     time.Duration
	HistoryCapacity   int
	Location          string

	// Transports
	TelegramBotToken string
	MQTTBroker       string
	MQTTUser         string
	MQTTPass         string
	SensorTopic      string
	VisionTopic      string
	StreamRelayURL   string

	// Dashboard
	WebPort string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MainLoopRate:   getEnvFloat("MAIN_LOOP_RATE", 10.0),
		SensorRate:     getEnvFloat("SENSOR_RATE", 100.0),
		ErrorBackoff:   getEnvDuration("ERROR_BACKOFF", time.Second),
		StalenessLimit: getEnvDuration("STALENESS_LIMIT", 500*time.Millisecond),

		CalibrationSamples: getEnvInt("CALIBRATION_SAMPLES", 100),
		Sensitivity:        getEnvFloat("SENSITIVITY", 1.0),
		PersonThreshold:    getEnvInt("PERSON_THRESHOLD", 3),

		EmergencyContacts: splitList(getEnv("EMERGENCY_CONTACTS", "")),
		AuthorityContact:  getEnv("AUTHORITY_CONTACT", ""),
		AutoResponse:      getEnvBool("AUTO_RESPONSE", true),
		ActionTimeout:     getEnvDuration("ACTION_TIMEOUT", 5*time.Second),
		HistoryCapacity:   getEnvInt("HISTORY_CAPACITY", 100),
		Location:          getEnv("DEVICE_LOCATION", "unknown"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		MQTTBroker:       getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTUser:         getEnv("MQTT_USER", ""),
		MQTTPass:         getEnv("MQTT_PASS", ""),
		SensorTopic:      getEnv("SENSOR_TOPIC", "glove/samples"),
		VisionTopic:      getEnv("VISION_TOPIC", "glove/vision"),
		StreamRelayURL:   getEnv("STREAM_RELAY_URL", ""),

		WebPort: getEnv("WEB_PORT", "8090"),
	}
}

// Validate checks startup-fatal invariants. The returned error wraps
// ErrInvalidConfiguration and names the offending setting.
func (c *Config) Validate() error {
	if c.MainLoopRate <= 0 {
		return fmt.Errorf("%w: MAIN_LOOP_RATE must be positive, got %v", ErrInvalidConfiguration, c.MainLoopRate)
	}
	if c.SensorRate <= 0 {
		return fmt.Errorf("%w: SENSOR_RATE must be positive, got %v", ErrInvalidConfiguration, c.SensorRate)
	}
	if c.CalibrationSamples <= 0 {
		return fmt.Errorf("%w: CALIBRATION_SAMPLES must be positive, got %d", ErrInvalidConfiguration, c.CalibrationSamples)
	}
	if c.Sensitivity < 0.1 || c.Sensitivity > 10.0 {
		return fmt.Errorf("%w: SENSITIVITY must be within [0.1, 10.0], got %v", ErrInvalidConfiguration, c.Sensitivity)
	}
	if c.PersonThreshold < 1 {
		return fmt.Errorf("%w: PERSON_THRESHOLD must be at least 1, got %d", ErrInvalidConfiguration, c.PersonThreshold)
	}
	if c.ActionTimeout <= 0 {
		return fmt.Errorf("%w: ACTION_TIMEOUT must be positive, got %v", ErrInvalidConfiguration, c.ActionTimeout)
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("%w: HISTORY_CAPACITY must be positive, got %d", ErrInvalidConfiguration, c.HistoryCapacity)
	}
	for _, contact := range c.EmergencyContacts {
		if contact == "" {
			return fmt.Errorf("%w: EMERGENCY_CONTACTS contains an empty entry", ErrInvalidConfiguration)
		}
	}
	return nil
}

// MainLoopPeriod returns the evaluation loop period.
func (c *Config) MainLoopPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.MainLoopRate)
}

// SensorPeriod returns the acquisition loop period.
func (c *Config) SensorPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.SensorRate)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

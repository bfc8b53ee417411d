package main

import (
	"encoding/json"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/config"
	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/alert"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/escalation"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/glove"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/haptic"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/ports"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/sensors"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/stream"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/vision"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/web"
)

func main() {
	sourceKind := flag.String("source", "mqtt", "Sensor source: mqtt or sim")
	seed := flag.Int64("seed", 1, "Seed for the sim source")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		stdlog.Fatalf("config: %v", err)
	}
	log.Init(cfg.LogLevel)

	// Sensor source.
	var source sensors.Source
	switch *sourceKind {
	case "sim":
		source = sensors.NewSimSource(*seed)
		log.Info("using simulated sensor source", "seed", *seed)
	default:
		mqttSource := sensors.NewMQTTSource(sensors.MQTTOptions{
			Broker:   cfg.MQTTBroker,
			ClientID: "visionglove-controller",
			Username: cfg.MQTTUser,
			Password: cfg.MQTTPass,
			Topic:    cfg.SensorTopic,
		})
		if err := mqttSource.Connect(); err != nil {
			stdlog.Fatalf("sensor source: %v", err)
		}
		defer mqttSource.Close()
		source = mqttSource
	}

	mgr := sensors.NewManager(sensors.Config{
		Source:             source,
		Rate:               int(cfg.SensorRate),
		Sensitivity:        cfg.Sensitivity,
		CalibrationSamples: cfg.CalibrationSamples,
	})

	// Vision is optional; without it the crowd floor never trips.
	var visionPort ports.Vision
	sub := vision.NewSubscriber(vision.Options{
		Broker:   cfg.MQTTBroker,
		ClientID: "visionglove-vision",
		Username: cfg.MQTTUser,
		Password: cfg.MQTTPass,
		Topic:    cfg.VisionTopic,
	})
	if err := sub.Connect(); err != nil {
		log.Warn("vision unavailable, crowd detection disabled", "error", err)
	} else {
		defer sub.Close()
		visionPort = sub
	}

	// Alert transport is optional the same way.
	var alertPort ports.Alert
	if cfg.TelegramBotToken != "" {
		tg, err := alert.NewTelegram(cfg.TelegramBotToken)
		if err != nil {
			log.Warn("telegram unavailable, alerts disabled", "error", err)
		} else {
			alertPort = tg
		}
	}

	// The livestream forwards sensor snapshots as JSON evidence frames.
	var relay *stream.Relay
	var streamPort ports.Stream
	if cfg.StreamRelayURL != "" {
		relay = stream.NewRelay(cfg.StreamRelayURL, func() ([]byte, error) {
			snap, ok := mgr.Snapshot()
			if !ok {
				return nil, sensors.ErrNoData
			}
			return json.Marshal(snap)
		}, nil)
		streamPort = relay
	}

	hapticDriver := haptic.NewDriver(haptic.SimActuator{})

	machine := escalation.NewMachine(escalation.Config{
		Haptic:            hapticDriver,
		Alert:             alertPort,
		Stream:            streamPort,
		EmergencyContacts: cfg.EmergencyContacts,
		AuthorityContact:  cfg.AuthorityContact,
		AutoResponse:      cfg.AutoResponse,
		ActionTimeout:     cfg.ActionTimeout,
		HistoryCapacity:   cfg.HistoryCapacity,
		Location:          cfg.Location,
	})

	system := glove.New(cfg, mgr, visionPort, machine)
	server := web.NewServer(cfg.WebPort, system)
	if relay != nil {
		// Mirror relayed frames to dashboard clients.
		relay.SetLocal(server.StreamHub())
	}

	if err := system.Start(); err != nil {
		stdlog.Fatalf("start: %v", err)
	}
	server.StartAsync()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		log.Warn("web shutdown failed", "error", err)
	}
	if err := system.Stop(); err != nil {
		log.Warn("system stop failed", "error", err)
	}
	if relay != nil {
		relay.Stop()
	}
	hapticDriver.Wait()
}

// Command calibrate runs a calibration cycle on one or all glove channels
// from the bench: hold the rest pose, run it, read the installed profiles.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/config"
	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/sensors"
)

func main() {
	channelName := flag.String("channel", "all", "Channel to calibrate: a channel name, imu, or all")
	samples := flag.Int("samples", 0, "Samples per channel (0 = configured default)")
	sourceKind := flag.String("source", "mqtt", "Sensor source: mqtt or sim")
	seed := flag.Int64("seed", 1, "Seed for the sim source")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		stdlog.Fatalf("config: %v", err)
	}
	log.Init(cfg.LogLevel)

	if *samples > 0 {
		cfg.CalibrationSamples = *samples
	}

	var source sensors.Source
	switch *sourceKind {
	case "sim":
		source = sensors.NewSimSource(*seed)
	default:
		mqttSource := sensors.NewMQTTSource(sensors.MQTTOptions{
			Broker:   cfg.MQTTBroker,
			ClientID: "visionglove-calibrate",
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	var names []string
	switch *channelName {
	case "all":
		names = append(mgr.ChannelNames(), "imu")
	default:
		names = []string{*channelName}
	}

	fmt.Printf("Calibrating %d channel(s), %d samples each. Hold the rest pose.\n",
		len(names), cfg.CalibrationSamples)

	for _, name := range names {
		fmt.Printf("  %-12s ... ", name)

		if name == "imu" {
			if err := mgr.CalibrateIMU(ctx); err != nil {
				fmt.Printf("FAILED: %v\n", err)
				continue
			}
			fmt.Println("ok")
			continue
		}

		start := time.Now()
		profile, err := mgr.Calibrate(ctx, name)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}
		fmt.Printf("baseline=%.4f stddev=%.4f threshold=%.4f (%.1fs)\n",
			profile.Baseline, profile.StdDev, profile.Threshold,
			time.Since(start).Seconds())
	}
}

// Command sensorgen publishes mock glove sensor frames over MQTT for bench
// testing the controller without hardware.
package main

import (
	"encoding/json"
	"flag"
	stdlog "log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
)

var (
	rate       = flag.Int("rate", 100, "Frames per second")
	broker     = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	user       = flag.String("user", "", "MQTT username")
	pass       = flag.String("pass", "", "MQTT password")
	topic      = flag.String("topic", "glove/samples", "MQTT topic to publish to")
	seed       = flag.Int64("seed", 1, "Random seed; same seed, same stream")
	emergency  = flag.Float64("emergency", 0.0, "Probability per frame of an emergency burst (0.0-1.0)")
	burstTicks = flag.Int("burst", 20, "Frames an emergency burst lasts")
)

// frame mirrors the controller's raw sample wire format.
type frame struct {
	Flex        []float64  `json:"flex"`
	Pressure    []float64  `json:"pressure"`
	Accel       [3]float64 `json:"accel"`
	Gyro        [3]float64 `json:"gyro"`
	Mag         [3]float64 `json:"mag"`
	TimestampMs int64      `json:"timestamp_ms"`
}

// generator produces a plausible sensor stream: slow finger waves at rest,
// a clenched fist with a hard jolt during emergency bursts.
type generator struct {
	rng   *rand.Rand
	t     float64
	burst int
}

func (g *generator) next() frame {
	g.t += 0.01

	if g.burst == 0 && g.rng.Float64() < *emergency {
		g.burst = *burstTicks
		log.Warn("injecting emergency burst", "frames", *burstTicks)
	}

	f := frame{
		Flex:        make([]float64, 5),
		Pressure:    make([]float64, 6),
		TimestampMs: time.Now().UnixMilli(),
	}

	if g.burst > 0 {
		g.burst--
		// Clenched fist and a hard jolt.
		for i := range f.Flex {
			f.Flex[i] = 0.85 + g.rng.Float64()*0.1
		}
		for i := range f.Pressure {
			f.Pressure[i] = 40 + g.rng.Float64()*30
		}
		f.Accel = [3]float64{
			12 + g.rng.NormFloat64(),
			g.rng.NormFloat64() * 2,
			9.81 + g.rng.NormFloat64()*2,
		}
		f.Gyro = [3]float64{g.rng.NormFloat64(), g.rng.NormFloat64(), g.rng.NormFloat64()}
	} else {
		for i := range f.Flex {
			f.Flex[i] = 0.3 + 0.15*math.Sin(g.t+float64(i)) + g.rng.NormFloat64()*0.02
		}
		for i := range f.Pressure {
			f.Pressure[i] = math.Abs(g.rng.NormFloat64() * 3)
		}
		f.Accel = [3]float64{
			g.rng.NormFloat64() * 0.2,
			g.rng.NormFloat64() * 0.2,
			9.81 + g.rng.NormFloat64()*0.2,
		}
		f.Gyro = [3]float64{
			g.rng.NormFloat64() * 0.02,
			g.rng.NormFloat64() * 0.02,
			g.rng.NormFloat64() * 0.02,
		}
	}

	f.Mag = [3]float64{
		25 + g.rng.NormFloat64(),
		g.rng.NormFloat64(),
		-40 + g.rng.NormFloat64(),
	}
	return f
}

func main() {
	flag.Parse()
	log.Init("info")

	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID("visionglove-sensorgen").
		SetUsername(*user).
		SetPassword(*pass).
		SetKeepAlive(60 * time.Second)

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Error("broker connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		stdlog.Fatalf("broker connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	log.Info("publishing mock sensor frames",
		"broker", *broker, "topic", *topic, "rate_hz", *rate, "seed", *seed)

	gen := &generator{rng: rand.New(rand.NewSource(*seed))}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / float64(*rate)))
	defer ticker.Stop()

	var published uint64
	for {
		select {
		case <-sigChan:
			log.Info("stopping", "frames_published", published)
			return
		case <-ticker.C:
			payload, err := json.Marshal(gen.next())
			if err != nil {
				continue
			}
			client.Publish(*topic, 0, false, payload)
			published++
		}
	}
}

// Package web exposes the controller's REST API and dashboard telemetry.
package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/rmadatt/VisionGlove-by-Claude/internal/log"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/glove"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/hub"
)

// telemetryPeriod is how often the current status is pushed to dashboard
// clients.
const telemetryPeriod = 500 * time.Millisecond

// Server is the HTTP/websocket front of the glove controller.
type Server struct {
	app    *fiber.App
	port   string
	system *glove.System

	telemetryHub *hub.Hub
	streamHub    *hub.Hub

	stop chan struct{}
}

// NewServer wires the routes for a running system.
func NewServer(port string, system *glove.System) *Server {
	s := &Server{
		port:         port,
		system:       system,
		telemetryHub: hub.New("telemetry"),
		streamHub:    hub.New("stream"),
		stop:         make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "VisionGlove Controller",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/history", s.handleHistory)
	api.Get("/channels", s.handleChannels)
	api.Post("/dispatch", s.handleDispatch)
	api.Post("/resolve/:id", s.handleResolve)
	api.Post("/calibrate/:channel", s.handleCalibrate)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))
	app.Get("/ws/stream", websocket.New(s.handleStreamWS))

	s.app = app
	return s
}

// Start runs the hubs, the telemetry pusher, and the listener. Blocks until
// Shutdown.
func (s *Server) Start() error {
	log.Info("web server listening", "port", s.port)

	go s.telemetryHub.Run()
	go s.streamHub.Run()
	go s.pushTelemetry()

	return s.app.Listen(":" + s.port)
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server failed", "error", err)
		}
	}()
}

// StreamHub returns the hub that mirrors livestream frames to the
// dashboard.
func (s *Server) StreamHub() *hub.Hub {
	return s.streamHub
}

// Shutdown stops the listener and the telemetry pusher.
func (s *Server) Shutdown() error {
	close(s.stop)
	return s.app.Shutdown()
}

// pushTelemetry broadcasts the system status at a fixed rate while any
// dashboard client is connected.
func (s *Server) pushTelemetry() {
	ticker := time.NewTicker(telemetryPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.telemetryHub.ClientCount() == 0 {
				continue
			}
			if err := s.telemetryHub.BroadcastJSON(s.system.Status()); err != nil {
				log.Warn("telemetry encode failed", "error", err)
			}
		}
	}
}

// handleTelemetryWS serves live status updates.
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	c.WriteJSON(s.system.Status())
	client := hub.NewClient(s.telemetryHub, c)
	client.Run()
}

// handleStreamWS serves the mirrored livestream frames.
func (s *Server) handleStreamWS(c *websocket.Conn) {
	client := hub.NewClient(s.streamHub, c)
	client.Run()
}

package web

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/rmadatt/VisionGlove-by-Claude/pkg/escalation"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/sensors"
	"github.com/rmadatt/VisionGlove-by-Claude/pkg/threat"
)

// handleStatus returns the full system status.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.system.Status())
}

// handleHistory returns recent emergency records, newest first.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "0"))
	return c.JSON(fiber.Map{
		"records": s.system.Machine().History(limit),
	})
}

// handleChannels returns channel names and their calibration profiles.
func (s *Server) handleChannels(c *fiber.Ctx) error {
	mgr := s.system.Sensors()
	out := fiber.Map{}
	for _, name := range mgr.ChannelNames() {
		if profile, ok := mgr.Profiles().Get(name); ok {
			out[name] = profile
		} else {
			out[name] = nil
		}
	}
	return c.JSON(out)
}

// handleDispatch triggers the emergency protocol manually, the panic-button
// path: the wearer's explicit request counts as an emergency gesture.
func (s *Server) handleDispatch(c *fiber.Ctx) error {
	id, err := s.system.Machine().Dispatch(threat.Evidence{EmergencyGesture: true})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"id": id})
}

// resolveRequest is the body for resolving an emergency.
type resolveRequest struct {
	Notes string `json:"notes"`
}

// handleResolve closes the active emergency.
func (s *Server) handleResolve(c *fiber.Ctx) error {
	var req resolveRequest
	c.BodyParser(&req)

	err := s.system.Machine().Resolve(c.Params("id"), req.Notes)
	if errors.Is(err, escalation.ErrUnknownRecord) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"resolved": c.Params("id")})
}

// handleCalibrate runs a calibration cycle on one channel. The request
// blocks for the duration of the sample collection; "imu" calibrates the
// motion unit instead of a scalar channel.
func (s *Server) handleCalibrate(c *fiber.Ctx) error {
	name := c.Params("channel")
	mgr := s.system.Sensors()

	if name == "imu" {
		if err := mgr.CalibrateIMU(c.Context()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"calibrated": "imu"})
	}

	profile, err := mgr.Calibrate(c.Context(), name)
	if errors.Is(err, sensors.ErrUnknownChannel) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"calibrated": name,
		"profile":    profile,
	})
}

package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-dora/pkg/camera"
	"github.com/teslashibe/go-dora/pkg/session"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// TurnResponse answers the chat and voice routes. Turn is nil when there
// was nothing to answer.
type TurnResponse struct {
	Turn       *session.Turn  `json:"turn"`
	Transcript []session.Turn `json:"transcript"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

func (s *Server) handleTranscript(c *fiber.Ctx) error {
	return c.JSON(s.turns())
}

// handleClear empties the transcript and tells every client.
func (s *Server) handleClear(c *fiber.Ctx) error {
	s.loop.Clear()
	if err := s.transcriptHub.BroadcastEvent(EventTranscript, []session.Turn{}); err != nil {
		s.logger.Warn("publish clear", "error", err)
	}
	s.PublishStatus()
	return c.JSON([]session.Turn{})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	turn, err := s.loop.HandleText(c.UserContext(), req.Message)
	if err != nil {
		s.logger.Error("chat failed", "error", err)
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(TurnResponse{Turn: turn, Transcript: s.turns()})
}

func (s *Server) handleVoice(c *fiber.Ctx) error {
	turn, err := s.loop.HandleVoice(c.UserContext())
	if err != nil {
		s.logger.Error("voice input failed", "error", err)
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(TurnResponse{Turn: turn, Transcript: s.turns()})
}

func (s *Server) handleCameraStart(c *fiber.Ctx) error {
	if _, err := s.cam.Start(); err != nil {
		s.logger.Warn("camera start failed", "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "camera unavailable: "+err.Error())
	}
	s.PublishStatus()
	return c.JSON(s.cam.Status())
}

func (s *Server) handleCameraStop(c *fiber.Ctx) error {
	if err := s.cam.Stop(); err != nil {
		s.logger.Warn("camera release failed", "error", err)
	}
	s.PublishStatus()
	return c.JSON(s.cam.Status())
}

// handleCameraFrame serves the latest frame as JPEG, or 204 when there
// has never been one.
func (s *Server) handleCameraFrame(c *fiber.Ctx) error {
	frame := s.cam.Frame()
	if len(frame) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(frame)
}

func (s *Server) handleCameraConfig(c *fiber.Ctx) error {
	return c.JSON(s.cam.Manager().GetConfigJSON())
}

func (s *Server) handleCameraConfigUpdate(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.cam.Manager().UpdateConfig(params); err != nil {
		code := fiber.StatusBadRequest
		if errors.Is(err, camera.ErrUnavailable) {
			code = fiber.StatusServiceUnavailable
		}
		return fiber.NewError(code, err.Error())
	}
	s.PublishStatus()
	return c.JSON(s.cam.Manager().GetConfigJSON())
}

package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
)

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"status": "ok", "data": data})
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"status": "error", "message": msg})
}

// statusOf maps service errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrMaintenance), errors.Is(err, apperr.ErrChannelDisabled):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrUnauthorized):
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

// respondErr writes err with its mapped status. Internal errors are logged
// and hidden from the client.
func (s *Server) respondErr(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	if status == fiber.StatusInternalServerError {
		s.log.Errorw("request failed", "path", c.Path(), "err", err)
		return fail(c, status, "internal server error")
	}
	return fail(c, status, err.Error())
}

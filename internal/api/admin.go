package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) stats(c *fiber.Ctx) error {
	st, err := s.Coordinator.Stats(c.UserContext())
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, st)
}

// GET /api/admin/users?page=1&limit=20
func (s *Server) listUsers(c *fiber.Ctx) error {
	page, err := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}
	limit := limitParam(c, 20)

	users, total, err := s.Store.Users.List(c.UserContext(), (page-1)*limit, limit)
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (s *Server) recentQueries(c *fiber.Ctx) error {
	list, err := s.Coordinator.RecentQueries(c.UserContext(), limitParam(c, 10))
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, list)
}

func (s *Server) getSettings(c *fiber.Ctx) error {
	st, err := s.Settings.Get(c.UserContext())
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, st)
}

// PUT /api/admin/settings applies the fields present in the body on top of
// the current settings.
func (s *Server) updateSettings(c *fiber.Ctx) error {
	cur, err := s.Settings.Get(c.UserContext())
	if err != nil {
		return s.respondErr(c, err)
	}
	if err := c.BodyParser(&cur); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	next, err := s.Settings.Update(c.UserContext(), cur)
	if err != nil {
		return s.respondErr(c, err)
	}
	s.log.Infow("settings updated", "user_id", c.Locals("user_id"), "maintenance", next.MaintenanceMode)
	return ok(c, fiber.StatusOK, next)
}

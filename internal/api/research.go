package api

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
)

// GET /api/research/sources
func (s *Server) researchSources(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, s.Research.Sources())
}

// GET /api/research/topic?topic=bail&keywords=plea,remand
func (s *Server) researchTopic(c *fiber.Ctx) error {
	topic := strings.TrimSpace(c.Query("topic"))
	if topic == "" {
		return s.respondErr(c, apperr.Invalid("topic", "is required"))
	}
	var keywords []string
	for _, k := range strings.Split(c.Query("keywords"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	res, err := s.Research.Topic(c.UserContext(), topic, keywords)
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, res)
}

// GET /api/research/statute/:name?section=296
func (s *Server) researchStatute(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || strings.TrimSpace(name) == "" {
		return s.respondErr(c, apperr.Invalid("name", "is not a valid statute name"))
	}
	res, err := s.Research.Statute(c.UserContext(), name, strings.TrimSpace(c.Query("section")))
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, res)
}

// GET /api/research/caselaw?reference=murder
func (s *Server) researchCaseLaw(c *fiber.Ctx) error {
	ref := strings.TrimSpace(c.Query("reference"))
	if ref == "" {
		return s.respondErr(c, apperr.Invalid("reference", "is required"))
	}
	res, err := s.Research.CaseLaw(c.UserContext(), ref)
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, res)
}

// GET /api/caselaw/citation?citation=[2017] eKLR
func (s *Server) caseByCitation(c *fiber.Ctx) error {
	citation := strings.TrimSpace(c.Query("citation"))
	if citation == "" {
		return s.respondErr(c, apperr.Invalid("citation", "is required"))
	}
	res, err := s.CaseLaw.ByCitation(c.UserContext(), citation)
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, res)
}

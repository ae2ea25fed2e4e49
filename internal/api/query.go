package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/coordinator"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

const defaultHistoryLimit = 20

type submitQueryRequest struct {
	QueryText string `json:"queryText" validate:"required"`
	UserID    string `json:"userId" validate:"omitempty,len=24,hexadecimal"`
}

// optionalID parses an optional hex ObjectID; empty means none.
func optionalID(field, hex string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid(field, "is not a valid id")
	}
	return id, nil
}

// requireID rejects path ids that are not ObjectIDs before they reach the
// store.
func requireID(c *fiber.Ctx, param string) (string, error) {
	id := c.Params(param)
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return "", apperr.Invalid(param, "is not a valid id")
	}
	return id, nil
}

func limitParam(c *fiber.Ctx, def int64) int64 {
	n, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, 100)
}

func (s *Server) submitQuery(c *fiber.Ctx) error {
	var req submitQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := check(req); err != nil {
		return s.respondErr(c, err)
	}
	userID, err := optionalID("userId", req.UserID)
	if err != nil {
		return s.respondErr(c, err)
	}

	rcpt, err := s.Coordinator.SubmitQuery(c.UserContext(), coordinator.QueryRequest{
		Text:   req.QueryText,
		UserID: userID,
		Source: models.SourceWeb,
	})
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusAccepted, fiber.Map{
		"queryId":       rcpt.ID,
		"status":        rcpt.Status,
		"estimatedTime": rcpt.EstimatedTime,
		"message":       rcpt.Message,
	})
}

func (s *Server) getQuery(c *fiber.Ctx) error {
	id, err := requireID(c, "id")
	if err != nil {
		return s.respondErr(c, err)
	}
	q, err := s.Coordinator.GetQueryStatus(c.UserContext(), id)
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, s.Delivery.QueryView(q))
}

func (s *Server) queryHistory(c *fiber.Ctx) error {
	id, err := requireID(c, "userId")
	if err != nil {
		return s.respondErr(c, err)
	}
	userID, _ := primitive.ObjectIDFromHex(id)
	list, err := s.Coordinator.QueryHistory(c.UserContext(), userID, limitParam(c, defaultHistoryLimit))
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, list)
}

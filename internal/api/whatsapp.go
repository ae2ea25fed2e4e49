package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/classifier"
	"github.com/kenyawebs/Tana-Delta/internal/delivery"
	"github.com/kenyawebs/Tana-Delta/internal/models"
	"github.com/kenyawebs/Tana-Delta/internal/whatsapp"
)

// POST /api/whatsapp/webhook
func (s *Server) webhook(c *fiber.Ctx) error {
	st, err := s.Settings.Get(c.UserContext())
	if err != nil {
		return s.respondErr(c, err)
	}
	if !st.WhatsAppEnabled {
		return s.respondErr(c, apperr.ErrChannelDisabled)
	}

	msgs, err := whatsapp.ParseWebhook(c.Body())
	if errors.Is(err, whatsapp.ErrNoMessage) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
	}
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid webhook payload")
	}

	// one bad message in a batch does not stop the rest
	var (
		intent  classifier.Intent
		lastErr error
		handled int
	)
	for _, m := range msgs {
		res, err := s.Conversation.Handle(c.UserContext(), m)
		if err != nil {
			s.log.Errorw("inbound whatsapp message not handled", "phone", m.From, "err", err)
			lastErr = err
			continue
		}
		intent = res.Intent
		handled++
	}
	if handled == 0 {
		return s.respondErr(c, lastErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "intent": intent})
}

type sendRequest struct {
	To      string `json:"to" validate:"required_without=Phone"`
	Phone   string `json:"phone"`
	Message string `json:"message" validate:"required"`
}

// POST /api/whatsapp/send
func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := check(req); err != nil {
		return s.respondErr(c, err)
	}
	to := req.To
	if to == "" {
		to = req.Phone
	}
	if !whatsapp.ValidPhone(to) {
		return s.respondErr(c, apperr.Invalid("to", "invalid phone number"))
	}

	userID := primitive.NilObjectID
	if u, err := s.Store.Users.FindByPhone(c.UserContext(), whatsapp.FormatPhoneNumber(to)); err == nil {
		userID = u.ID
	}
	id, err := s.Delivery.Reply(c.UserContext(), to, userID, req.Message, delivery.Related{})
	if err != nil {
		s.log.Errorw("whatsapp send failed", "phone", to, "err", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "message": "message could not be sent"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "messageId": id})
}

type templateRequest struct {
	To         string `json:"to" validate:"required"`
	Template   string `json:"template" validate:"required"`
	Components []any  `json:"components"`
}

// POST /api/whatsapp/template
func (s *Server) sendTemplate(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := check(req); err != nil {
		return s.respondErr(c, err)
	}
	if !whatsapp.ValidPhone(req.To) {
		return s.respondErr(c, apperr.Invalid("to", "invalid phone number"))
	}
	id, err := s.WhatsApp.SendTemplate(c.UserContext(), req.To, req.Template, req.Components)
	if err != nil {
		s.log.Errorw("whatsapp template failed", "phone", req.To, "template", req.Template, "err", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "message": "template could not be sent"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "messageId": id})
}

// GET /api/whatsapp/history/:phone
func (s *Server) messageHistory(c *fiber.Ctx) error {
	phone := c.Params("phone")
	if !whatsapp.ValidPhone(phone) {
		return s.respondErr(c, apperr.Invalid("phone", "invalid phone number"))
	}
	msgs, err := s.Store.Messages.ListByPhone(c.UserContext(), whatsapp.FormatPhoneNumber(phone), limitParam(c, 50))
	if err != nil {
		return s.respondErr(c, err)
	}
	return ok(c, fiber.StatusOK, msgs)
}

type mediaRequest struct {
	To        string             `json:"to" validate:"required"`
	MediaType models.MessageType `json:"mediaType" validate:"required,oneof=image document audio video"`
	Link      string             `json:"link" validate:"required,url"`
	Caption   string             `json:"caption"`
}

// POST /api/whatsapp/media
func (s *Server) sendMedia(c *fiber.Ctx) error {
	var req mediaRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := check(req); err != nil {
		return s.respondErr(c, err)
	}
	if !whatsapp.ValidPhone(req.To) {
		return s.respondErr(c, apperr.Invalid("to", "invalid phone number"))
	}

	userID := primitive.NilObjectID
	if u, err := s.Store.Users.FindByPhone(c.UserContext(), whatsapp.FormatPhoneNumber(req.To)); err == nil {
		userID = u.ID
	}
	id, err := s.Delivery.SendMedia(c.UserContext(), req.To, userID, req.MediaType, req.Link, req.Caption)
	if err != nil {
		s.log.Errorw("whatsapp media failed", "phone", req.To, "type", req.MediaType, "err", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "message": "media could not be sent"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "messageId": id})
}

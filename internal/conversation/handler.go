// Package conversation answers inbound WhatsApp messages. Most intents get a
// canned reply on the spot; general questions and documents are handed to
// the coordinator and answered when processing finishes.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/classifier"
	"github.com/kenyawebs/Tana-Delta/internal/coordinator"
	"github.com/kenyawebs/Tana-Delta/internal/delivery"
	"github.com/kenyawebs/Tana-Delta/internal/models"
	"github.com/kenyawebs/Tana-Delta/internal/repository"
	"github.com/kenyawebs/Tana-Delta/internal/whatsapp"
)

type Submitter interface {
	SubmitQuery(ctx context.Context, req coordinator.QueryRequest) (*coordinator.Receipt, error)
	SubmitDocument(ctx context.Context, req coordinator.DocumentRequest) (*coordinator.Receipt, error)
}

type Replier interface {
	Reply(ctx context.Context, phone string, userID primitive.ObjectID, body string, rel delivery.Related) (string, error)
}

// Result describes how a message was answered.
type Result struct {
	Intent          classifier.Intent   `json:"intent"`
	Message         string              `json:"message"`
	RelatedQuery    *primitive.ObjectID `json:"relatedQuery,omitempty"`
	RelatedDocument *primitive.ObjectID `json:"relatedDocument,omitempty"`
}

type Handler struct {
	users    repository.Users
	queries  repository.Queries
	messages repository.Messages
	submit   Submitter
	reply    Replier
	log      *zap.SugaredLogger
}

func NewHandler(store *repository.Store, submit Submitter, reply Replier, log *zap.SugaredLogger) *Handler {
	return &Handler{
		users:    store.Users,
		queries:  store.Queries,
		messages: store.Messages,
		submit:   submit,
		reply:    reply,
		log:      log,
	}
}

// Handle records the inbound message, answers it and records the answer.
// A reply that cannot be sent is logged; the result is still returned.
func (h *Handler) Handle(ctx context.Context, in whatsapp.Inbound) (*Result, error) {
	if !whatsapp.ValidPhone(in.From) {
		return nil, apperr.Invalid("from", "invalid phone number %q", in.From)
	}
	phone := whatsapp.FormatPhoneNumber(in.From)
	h.log.Infow("whatsapp message received", "phone", phone, "type", in.MessageType)

	user, err := h.findOrCreateUser(ctx, phone)
	if err != nil {
		return nil, err
	}
	if err := h.saveIncoming(ctx, user.ID, phone, in); err != nil {
		return nil, err
	}

	intent := classifier.DetectIntent(in.Body)
	if in.MessageType == models.DocumentMessage && in.MediaURL != "" {
		intent = classifier.IntentDocument
	}

	res, err := h.respond(ctx, user, intent, in)
	if err != nil {
		return nil, err
	}
	if _, err := h.reply.Reply(ctx, phone, user.ID, res.Message, delivery.Related{Query: res.RelatedQuery, Document: res.RelatedDocument}); err != nil {
		h.log.Errorw("whatsapp reply not sent", "phone", phone, "intent", intent, "err", err)
	}
	return res, nil
}

func (h *Handler) findOrCreateUser(ctx context.Context, phone string) (*models.User, error) {
	u, err := h.users.FindByPhone(ctx, phone)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	u = &models.User{
		Name:             "WhatsApp User " + phone[len(phone)-4:],
		Phone:            phone,
		Role:             "user",
		WhatsAppVerified: true,
	}
	if err := h.users.Create(ctx, u); err != nil {
		// a concurrent message from the same number may have won
		if existing, findErr := h.users.FindByPhone(ctx, phone); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create whatsapp user: %w", err)
	}
	h.log.Infow("whatsapp user created", "phone", phone, "user_id", u.ID.Hex())
	return u, nil
}

func (h *Handler) saveIncoming(ctx context.Context, userID primitive.ObjectID, phone string, in whatsapp.Inbound) error {
	kind := in.MessageType
	if kind == "" {
		kind = models.TextMessage
	}
	msg := &models.WhatsAppMessage{
		UserID:      userID,
		PhoneNumber: phone,
		Direction:   models.Incoming,
		MessageType: kind,
		Content:     in.Body,
		MediaURL:    in.MediaURL,
		Status:      models.DeliveryDelivered,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("save incoming message: %w", err)
	}
	return nil
}

func (h *Handler) respond(ctx context.Context, user *models.User, intent classifier.Intent, in whatsapp.Inbound) (*Result, error) {
	res := &Result{Intent: intent}

	if text, ok := staticReplies[intent]; ok {
		res.Message = text
		return res, nil
	}
	if c, ok := cannedQueries[intent]; ok {
		id, err := h.recordCanned(ctx, user.ID, in.Body, c)
		if err != nil {
			return nil, err
		}
		res.Message = c.answer
		res.RelatedQuery = &id
		return res, nil
	}
	if intent == classifier.IntentDocument {
		return h.intakeDocument(ctx, user, in, res)
	}

	rcpt, err := h.submit.SubmitQuery(ctx, coordinator.QueryRequest{
		Text:   in.Body,
		UserID: user.ID,
		Source: models.SourceWhatsApp,
	})
	if msg, handled := rejection(err); handled {
		res.Message = msg
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	id, _ := primitive.ObjectIDFromHex(rcpt.ID)
	res.Message = generalReply
	res.RelatedQuery = &id
	return res, nil
}

// recordCanned stores a canned answer as a query that went through the
// normal lifecycle.
func (h *Handler) recordCanned(ctx context.Context, userID primitive.ObjectID, text string, c canned) (primitive.ObjectID, error) {
	q := &models.Query{
		UserID:     userID,
		QueryText:  text,
		QueryType:  c.queryType,
		Keywords:   classifier.ExtractKeywords(text),
		Status:     models.StatusReceived,
		Source:     models.SourceWhatsApp,
		References: []models.Reference{},
		CaseLaws:   []models.CaseLaw{},
	}
	if err := h.queries.Create(ctx, q); err != nil {
		return primitive.NilObjectID, fmt.Errorf("record canned query: %w", err)
	}
	if err := h.queries.MarkProcessing(ctx, q.ID); err != nil {
		return primitive.NilObjectID, err
	}
	result := models.QueryResult{
		Answer:     c.answer,
		References: append([]models.Reference{}, c.references...),
		CaseLaws:   []models.CaseLaw{},
	}
	if err := h.queries.Complete(ctx, q.ID, result, c.took); err != nil {
		return primitive.NilObjectID, err
	}
	return q.ID, nil
}

var documentPrefixes = []string{"document:", "file:"}

// documentTitle is the first line of body without its document: or file:
// marker, cut to the title limit.
func documentTitle(body string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	lower := strings.ToLower(line)
	for _, p := range documentPrefixes {
		if i := strings.Index(lower, p); i >= 0 {
			line = line[:i] + line[i+len(p):]
			break
		}
	}
	line = strings.TrimSpace(line)
	if line == "" {
		line = "WhatsApp document"
	}
	if utf8.RuneCountInString(line) > models.MaxTitleLength {
		line = string([]rune(line)[:models.MaxTitleLength])
	}
	return line
}

func (h *Handler) intakeDocument(ctx context.Context, user *models.User, in whatsapp.Inbound, res *Result) (*Result, error) {
	title := documentTitle(in.Body)
	desc := strings.TrimSpace(in.Body)
	if utf8.RuneCountInString(desc) > models.MaxDescriptionLength {
		desc = string([]rune(desc)[:models.MaxDescriptionLength])
	}
	rcpt, err := h.submit.SubmitDocument(ctx, coordinator.DocumentRequest{
		Title:       title,
		Description: desc,
		UserID:      user.ID,
		Source:      models.SourceWhatsApp,
		File:        models.FileInfo{URL: in.MediaURL, Type: "text/plain"},
	})
	if msg, handled := rejection(err); handled {
		res.Message = msg
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	id, _ := primitive.ObjectIDFromHex(rcpt.ID)
	res.Message = fmt.Sprintf("Your document \"%s\" has been received and is being processed. You will receive the analysis shortly.", title)
	res.RelatedDocument = &id
	return res, nil
}

// rejection turns intake refusals into a reply for the user.
func rejection(err error) (string, bool) {
	var verr *apperr.ValidationError
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, apperr.ErrMaintenance):
		return maintenanceReply, true
	case errors.As(err, &verr):
		return fmt.Sprintf("Sorry, we could not accept your message: %s.", verr.Message), true
	}
	return "", false
}

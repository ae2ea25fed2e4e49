// Package delivery turns finished queries and documents into channel
// messages. WhatsApp entities get a text layout sent through the messaging
// client and logged to the message ledger; web entities are served as-is.
package delivery

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/events"
	"github.com/kenyawebs/Tana-Delta/internal/models"
	"github.com/kenyawebs/Tana-Delta/internal/repository"
	"github.com/kenyawebs/Tana-Delta/internal/whatsapp"
)

// URLSigner turns a stored object key into a time-limited download link.
type URLSigner interface {
	URL(ctx context.Context, key string) (string, error)
}

// Related ties an outgoing message to the entity it reports on.
type Related struct {
	Query    *primitive.ObjectID
	Document *primitive.ObjectID
}

type Adapter struct {
	client   whatsapp.Client
	users    repository.Users
	messages repository.Messages
	signer   URLSigner
	log      *zap.SugaredLogger
}

func New(client whatsapp.Client, store *repository.Store, signer URLSigner, log *zap.SugaredLogger) *Adapter {
	return &Adapter{
		client:   client,
		users:    store.Users,
		messages: store.Messages,
		signer:   signer,
		log:      log,
	}
}

// QueryFinished delivers a terminal WhatsApp query to its owner. Delivery
// failures are logged and never change the query.
func (a *Adapter) QueryFinished(ctx context.Context, q *models.Query) {
	if q.Source != models.SourceWhatsApp {
		return
	}
	var body string
	switch q.Status {
	case models.StatusCompleted:
		body = RenderQuery(q)
	case models.StatusFailed:
		body = RenderFailure(events.KindQuery)
	default:
		return
	}
	id := q.ID
	a.deliver(ctx, q.UserID, body, Related{Query: &id})
}

func (a *Adapter) DocumentFinished(ctx context.Context, d *models.Document) {
	if d.Source != models.SourceWhatsApp {
		return
	}
	var body string
	switch d.Status {
	case models.StatusCompleted:
		body = RenderDocument(d)
	case models.StatusFailed:
		body = RenderFailure(events.KindDocument)
	default:
		return
	}
	id := d.ID
	a.deliver(ctx, d.UserID, body, Related{Document: &id})
}

func (a *Adapter) deliver(ctx context.Context, userID primitive.ObjectID, body string, rel Related) {
	phone, err := a.phoneOf(ctx, userID)
	if err != nil {
		a.log.Errorw("whatsapp delivery skipped", "user_id", userID.Hex(), "err", err)
		return
	}
	if _, err := a.Reply(ctx, phone, userID, body, rel); err != nil {
		a.log.Errorw("whatsapp delivery failed", "phone", phone, "err", err)
	}
}

func (a *Adapter) phoneOf(ctx context.Context, userID primitive.ObjectID) (string, error) {
	if userID.IsZero() {
		return "", fmt.Errorf("entity has no owner")
	}
	u, err := a.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.Phone == "" {
		return "", fmt.Errorf("phone number not found for user %s", userID.Hex())
	}
	return u.Phone, nil
}

// Reply sends body to phone and records it in the ledger as outgoing, with
// status failed when the send did not go through. The send error is
// returned; a ledger write failure is only logged.
func (a *Adapter) Reply(ctx context.Context, phone string, userID primitive.ObjectID, body string, rel Related) (string, error) {
	phone = whatsapp.FormatPhoneNumber(phone)
	providerID, sendErr := a.client.SendText(ctx, phone, body)
	msg := &models.WhatsAppMessage{
		UserID:          userID,
		PhoneNumber:     phone,
		MessageType:     models.TextMessage,
		Content:         body,
		RelatedQuery:    rel.Query,
		RelatedDocument: rel.Document,
	}
	return a.record(ctx, msg, providerID, sendErr)
}

// SendMedia sends the file at link with an optional caption and records it
// like Reply does.
func (a *Adapter) SendMedia(ctx context.Context, phone string, userID primitive.ObjectID, mediaType models.MessageType, link, caption string) (string, error) {
	phone = whatsapp.FormatPhoneNumber(phone)
	providerID, sendErr := a.client.SendMedia(ctx, phone, mediaType, link, caption)
	msg := &models.WhatsAppMessage{
		UserID:      userID,
		PhoneNumber: phone,
		MessageType: mediaType,
		Content:     caption,
		MediaURL:    link,
	}
	return a.record(ctx, msg, providerID, sendErr)
}

func (a *Adapter) record(ctx context.Context, msg *models.WhatsAppMessage, providerID string, sendErr error) (string, error) {
	msg.Direction = models.Outgoing
	msg.Status = models.DeliverySent
	msg.ProviderID = providerID
	msg.CreatedAt = time.Now().UTC()
	if sendErr != nil {
		msg.Status = models.DeliveryFailed
	}
	if err := a.messages.Create(ctx, msg); err != nil {
		a.log.Errorw("record outgoing message", "phone", msg.PhoneNumber, "err", err)
	}
	if sendErr != nil {
		return "", sendErr
	}
	a.log.Infow("whatsapp message recorded", "phone", msg.PhoneNumber, "type", msg.MessageType, "message_id", providerID)
	return providerID, nil
}

// DocumentView is the web representation of a document. DownloadURL is set
// when the file lives in object storage.
type DocumentView struct {
	*models.Document
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// QueryView returns the query unchanged; the web channel renders the
// structured fields itself.
func (a *Adapter) QueryView(q *models.Query) *models.Query {
	return q
}

func (a *Adapter) DocumentView(ctx context.Context, d *models.Document) DocumentView {
	v := DocumentView{Document: d}
	if a.signer == nil || d.File.Key == "" {
		return v
	}
	url, err := a.signer.URL(ctx, d.File.Key)
	if err != nil {
		a.log.Warnw("document url not signed", "document_id", d.ID.Hex(), "err", err)
		return v
	}
	v.DownloadURL = url
	return v
}

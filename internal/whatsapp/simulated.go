package whatsapp

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/metrics"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

// Sent is one message accepted by the simulated client.
type Sent struct {
	ID       string
	To       string
	Type     string
	Body     string
	Template string
	Link     string
}

// SimulatedClient accepts every message without calling the provider and
// answers with a wamid.<uuid> id. It is used when no API credentials are
// configured and in tests.
type SimulatedClient struct {
	log *zap.SugaredLogger

	mu   sync.Mutex
	sent []Sent
}

func NewSimulatedClient(log *zap.SugaredLogger) *SimulatedClient {
	return &SimulatedClient{log: log}
}

func (s *SimulatedClient) SendText(ctx context.Context, to, body string) (string, error) {
	m := textMessage(to, body)
	return s.accept(ctx, Sent{To: m.To, Type: m.Type, Body: body})
}

func (s *SimulatedClient) SendTemplate(ctx context.Context, to, name string, components []any) (string, error) {
	m := templateMessage(to, name, components)
	return s.accept(ctx, Sent{To: m.To, Type: m.Type, Template: name})
}

func (s *SimulatedClient) SendMedia(ctx context.Context, to string, mediaType models.MessageType, link, caption string) (string, error) {
	m, err := mediaMessage(to, mediaType, link, caption)
	if err != nil {
		return "", err
	}
	return s.accept(ctx, Sent{To: m.To, Type: m.Type, Body: caption, Link: link})
}

func (s *SimulatedClient) accept(ctx context.Context, m Sent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.ID = "wamid." + uuid.NewString()

	s.mu.Lock()
	s.sent = append(s.sent, m)
	s.mu.Unlock()

	metrics.WhatsAppSent.WithLabelValues("simulated").Inc()
	s.log.Infow("simulated whatsapp message", "phone", m.To, "type", m.Type, "message_id", m.ID)
	return m.ID, nil
}

// Sent returns a copy of every accepted message, oldest first.
func (s *SimulatedClient) Sent() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.sent...)
}

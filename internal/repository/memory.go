package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

// NewMemoryStore returns repositories backed by process memory. Values are
// copied in and out so callers never share state with the store.
func NewMemoryStore() *Store {
	return &Store{
		Queries:   &memQueries{rows: map[primitive.ObjectID]models.Query{}},
		Documents: &memDocuments{rows: map[primitive.ObjectID]models.Document{}},
		Messages:  &memMessages{},
		Users:     &memUsers{rows: map[primitive.ObjectID]models.User{}},
		Settings:  &memSettings{s: models.DefaultSettings()},
	}
}

func takeLimit[T any](rows []T, limit int64) []T {
	if limit > 0 && int64(len(rows)) > limit {
		return rows[:limit]
	}
	return rows
}

func hasStatus(s models.Status, statuses []models.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

type memQueries struct {
	mu   sync.RWMutex
	rows map[primitive.ObjectID]models.Query
}

func (m *memQueries) Create(_ context.Context, q *models.Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if q.ID.IsZero() {
		q.ID = primitive.NewObjectID()
	}
	q.CreatedAt, q.UpdatedAt = now, now
	m.rows[q.ID] = *q
	return nil
}

func (m *memQueries) Get(_ context.Context, id primitive.ObjectID) (*models.Query, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("query", id.Hex())
	}
	return &q, nil
}

func (m *memQueries) update(id primitive.ObjectID, from models.Status, apply func(*models.Query)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.rows[id]
	if !ok || q.Status != from {
		return fmt.Errorf("query %s: %w", id.Hex(), ErrStaleStatus)
	}
	apply(&q)
	q.UpdatedAt = time.Now().UTC()
	m.rows[id] = q
	return nil
}

func (m *memQueries) MarkProcessing(_ context.Context, id primitive.ObjectID) error {
	return m.update(id, models.StatusReceived, func(q *models.Query) {
		q.Status = models.StatusProcessing
	})
}

func (m *memQueries) Complete(_ context.Context, id primitive.ObjectID, res models.QueryResult, took float64) error {
	return m.update(id, models.StatusProcessing, func(q *models.Query) {
		q.Status = models.StatusCompleted
		q.Answer = res.Answer
		q.References = res.References
		q.CaseLaws = res.CaseLaws
		q.ProcessingTime = took
	})
}

func (m *memQueries) Fail(_ context.Context, id primitive.ObjectID, reason string, took float64) error {
	return m.update(id, models.StatusProcessing, func(q *models.Query) {
		q.Status = models.StatusFailed
		q.Error = reason
		q.ProcessingTime = took
	})
}

func (m *memQueries) filter(keep func(models.Query) bool, limit int64) []models.Query {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Query{}
	for _, q := range m.rows {
		if keep(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return takeLimit(out, limit)
}

func (m *memQueries) ListByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]models.Query, error) {
	return m.filter(func(q models.Query) bool { return q.UserID == userID }, limit), nil
}

func (m *memQueries) Recent(_ context.Context, limit int64) ([]models.Query, error) {
	return m.filter(func(models.Query) bool { return true }, limit), nil
}

func (m *memQueries) Count(_ context.Context, statuses ...models.Status) (int64, error) {
	return int64(len(m.filter(func(q models.Query) bool { return hasStatus(q.Status, statuses) }, 0))), nil
}

func (m *memQueries) ActiveUsers(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[primitive.ObjectID]struct{}{}
	for _, q := range m.rows {
		if !q.UserID.IsZero() {
			seen[q.UserID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

type memDocuments struct {
	mu   sync.RWMutex
	rows map[primitive.ObjectID]models.Document
}

func (m *memDocuments) Create(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	d.CreatedAt, d.UpdatedAt = now, now
	m.rows[d.ID] = *d
	return nil
}

func (m *memDocuments) Get(_ context.Context, id primitive.ObjectID) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("document", id.Hex())
	}
	return &d, nil
}

func (m *memDocuments) update(id primitive.ObjectID, from models.Status, apply func(*models.Document)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[id]
	if !ok || d.Status != from {
		return fmt.Errorf("document %s: %w", id.Hex(), ErrStaleStatus)
	}
	apply(&d)
	d.UpdatedAt = time.Now().UTC()
	m.rows[id] = d
	return nil
}

func (m *memDocuments) MarkProcessing(_ context.Context, id primitive.ObjectID) error {
	return m.update(id, models.StatusReceived, func(d *models.Document) {
		d.Status = models.StatusProcessing
	})
}

func (m *memDocuments) Complete(_ context.Context, id primitive.ObjectID, res models.DocumentResult, cases []models.CaseLaw, took float64) error {
	return m.update(id, models.StatusProcessing, func(d *models.Document) {
		d.Status = models.StatusCompleted
		d.Analysis = res.Analysis
		d.Recommendations = res.Recommendations
		d.CaseLawReferences = cases
		d.ProcessingTime = took
	})
}

func (m *memDocuments) Fail(_ context.Context, id primitive.ObjectID, reason string, took float64) error {
	return m.update(id, models.StatusProcessing, func(d *models.Document) {
		d.Status = models.StatusFailed
		d.Error = reason
		d.ProcessingTime = took
	})
}

func (m *memDocuments) ListByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Document{}
	for _, d := range m.rows {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return takeLimit(out, limit), nil
}

func (m *memDocuments) Count(_ context.Context, statuses ...models.Status) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, d := range m.rows {
		if hasStatus(d.Status, statuses) {
			n++
		}
	}
	return n, nil
}

type memMessages struct {
	mu   sync.RWMutex
	rows []models.WhatsAppMessage
}

func (m *memMessages) Create(_ context.Context, msg *models.WhatsAppMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	msg.CreatedAt = time.Now().UTC()
	m.rows = append(m.rows, *msg)
	return nil
}

// ListByPhone returns newest first.
func (m *memMessages) ListByPhone(_ context.Context, phone string, limit int64) ([]models.WhatsAppMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.WhatsAppMessage{}
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].PhoneNumber == phone {
			out = append(out, m.rows[i])
		}
	}
	return takeLimit(out, limit), nil
}

type memUsers struct {
	mu   sync.RWMutex
	rows map[primitive.ObjectID]models.User
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Phone != "" {
		for _, existing := range m.rows {
			if existing.Phone == u.Phone {
				return fmt.Errorf("user with phone %s already exists", u.Phone)
			}
		}
	}
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt, u.UpdatedAt = now, now
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("user", id.Hex())
	}
	return &u, nil
}

func (m *memUsers) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.rows {
		if u.Phone == phone {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user", phone)
}

func (m *memUsers) List(_ context.Context, skip, limit int64) ([]models.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.rows))
	for _, u := range m.rows {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if skip >= total {
		return []models.User{}, total, nil
	}
	return takeLimit(out[skip:], limit), total, nil
}

type memSettings struct {
	mu sync.RWMutex
	s  models.Settings
}

func (m *memSettings) Get(context.Context) (models.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.s
	s.AllowedDocumentTypes = append([]string(nil), m.s.AllowedDocumentTypes...)
	return s, nil
}

func (m *memSettings) Save(_ context.Context, s models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.UpdatedAt = time.Now().UTC()
	m.s = s
	return nil
}

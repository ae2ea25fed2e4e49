package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

// ErrStaleStatus is returned by conditional status writes when the entity
// is no longer in the expected status.
var ErrStaleStatus = errors.New("entity is not in the expected status")

const opTimeout = 3 * time.Second

// Queries persists legal queries. Status writes only apply when the stored
// status still equals the status the caller expects to leave.
type Queries interface {
	Create(ctx context.Context, q *models.Query) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Query, error)
	MarkProcessing(ctx context.Context, id primitive.ObjectID) error
	Complete(ctx context.Context, id primitive.ObjectID, res models.QueryResult, took float64) error
	Fail(ctx context.Context, id primitive.ObjectID, reason string, took float64) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Query, error)
	Recent(ctx context.Context, limit int64) ([]models.Query, error)
	Count(ctx context.Context, statuses ...models.Status) (int64, error)
	ActiveUsers(ctx context.Context) (int64, error)
}

type Documents interface {
	Create(ctx context.Context, d *models.Document) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Document, error)
	MarkProcessing(ctx context.Context, id primitive.ObjectID) error
	Complete(ctx context.Context, id primitive.ObjectID, res models.DocumentResult, cases []models.CaseLaw, took float64) error
	Fail(ctx context.Context, id primitive.ObjectID, reason string, took float64) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Document, error)
	Count(ctx context.Context, statuses ...models.Status) (int64, error)
}

// Messages is the append-only WhatsApp ledger.
type Messages interface {
	Create(ctx context.Context, m *models.WhatsAppMessage) error
	ListByPhone(ctx context.Context, phone string, limit int64) ([]models.WhatsAppMessage, error)
}

type Users interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	List(ctx context.Context, skip, limit int64) ([]models.User, int64, error)
}

// Settings holds the single runtime settings record. Get returns the
// defaults until something has been saved.
type Settings interface {
	Get(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, s models.Settings) error
}

// Store groups the repositories the service needs.
type Store struct {
	Queries   Queries
	Documents Documents
	Messages  Messages
	Users     Users
	Settings  Settings
}

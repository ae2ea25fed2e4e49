package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

type MessageRepo struct {
	col *mongo.Collection
}

func NewMessageRepo(col *mongo.Collection, logger *zap.SugaredLogger) *MessageRepo {
	ensureIndexes(col, logger,
		mongo.IndexModel{Keys: bson.D{{Key: "phone_number", Value: 1}, {Key: "created_at", Value: -1}}},
	)
	return &MessageRepo{col: col}
}

func (r *MessageRepo) Create(ctx context.Context, m *models.WhatsAppMessage) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = time.Now().UTC()
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *MessageRepo) ListByPhone(ctx context.Context, phone string, limit int64) ([]models.WhatsAppMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{"phone_number": phone}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.WhatsAppMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

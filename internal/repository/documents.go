package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/kenyawebs/Tana-Delta/internal/apperr"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

type DocumentRepo struct {
	col *mongo.Collection
}

func NewDocumentRepo(col *mongo.Collection, logger *zap.SugaredLogger) *DocumentRepo {
	ensureIndexes(col, logger,
		mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}},
	)
	return &DocumentRepo{col: col}
}

func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	d.CreatedAt, d.UpdatedAt = now, now
	_, err := r.col.InsertOne(ctx, d)
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var d models.Document
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("document", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepo) transition(ctx context.Context, id primitive.ObjectID, from models.Status, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err := conditional(res, err); err != nil {
		return fmt.Errorf("document %s: %w", id.Hex(), err)
	}
	return nil
}

func (r *DocumentRepo) MarkProcessing(ctx context.Context, id primitive.ObjectID) error {
	return r.transition(ctx, id, models.StatusReceived, bson.M{"status": models.StatusProcessing})
}

func (r *DocumentRepo) Complete(ctx context.Context, id primitive.ObjectID, res models.DocumentResult, cases []models.CaseLaw, took float64) error {
	return r.transition(ctx, id, models.StatusProcessing, bson.M{
		"status":              models.StatusCompleted,
		"analysis":            res.Analysis,
		"recommendations":     res.Recommendations,
		"case_law_references": cases,
		"processing_time":     took,
	})
}

func (r *DocumentRepo) Fail(ctx context.Context, id primitive.ObjectID, reason string, took float64) error {
	return r.transition(ctx, id, models.StatusProcessing, bson.M{
		"status":          models.StatusFailed,
		"error":           reason,
		"processing_time": took,
	})
}

func (r *DocumentRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Document{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DocumentRepo) Count(ctx context.Context, statuses ...models.Status) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.col.CountDocuments(ctx, statusFilter(statuses))
}

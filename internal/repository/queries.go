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

type QueryRepo struct {
	col *mongo.Collection
}

func NewQueryRepo(col *mongo.Collection, logger *zap.SugaredLogger) *QueryRepo {
	ensureIndexes(col, logger,
		mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}},
	)
	return &QueryRepo{col: col}
}

func (r *QueryRepo) Create(ctx context.Context, q *models.Query) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if q.ID.IsZero() {
		q.ID = primitive.NewObjectID()
	}
	q.CreatedAt, q.UpdatedAt = now, now
	_, err := r.col.InsertOne(ctx, q)
	return err
}

func (r *QueryRepo) Get(ctx context.Context, id primitive.ObjectID) (*models.Query, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var q models.Query
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("query", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QueryRepo) transition(ctx context.Context, id primitive.ObjectID, from models.Status, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err := conditional(res, err); err != nil {
		return fmt.Errorf("query %s: %w", id.Hex(), err)
	}
	return nil
}

func (r *QueryRepo) MarkProcessing(ctx context.Context, id primitive.ObjectID) error {
	return r.transition(ctx, id, models.StatusReceived, bson.M{"status": models.StatusProcessing})
}

func (r *QueryRepo) Complete(ctx context.Context, id primitive.ObjectID, res models.QueryResult, took float64) error {
	return r.transition(ctx, id, models.StatusProcessing, bson.M{
		"status":          models.StatusCompleted,
		"answer":          res.Answer,
		"references":      res.References,
		"case_laws":       res.CaseLaws,
		"processing_time": took,
	})
}

func (r *QueryRepo) Fail(ctx context.Context, id primitive.ObjectID, reason string, took float64) error {
	return r.transition(ctx, id, models.StatusProcessing, bson.M{
		"status":          models.StatusFailed,
		"error":           reason,
		"processing_time": took,
	})
}

func (r *QueryRepo) find(ctx context.Context, filter bson.M, limit int64) ([]models.Query, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Query{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *QueryRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Query, error) {
	return r.find(ctx, bson.M{"user_id": userID}, limit)
}

func (r *QueryRepo) Recent(ctx context.Context, limit int64) ([]models.Query, error) {
	return r.find(ctx, bson.M{}, limit)
}

func (r *QueryRepo) Count(ctx context.Context, statuses ...models.Status) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.col.CountDocuments(ctx, statusFilter(statuses))
}

// ActiveUsers counts the distinct users that have submitted a query.
func (r *QueryRepo) ActiveUsers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ids, err := r.col.Distinct(ctx, "user_id", bson.M{"user_id": bson.M{"$exists": true}})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func statusFilter(statuses []models.Status) bson.M {
	if len(statuses) == 0 {
		return bson.M{}
	}
	return bson.M{"status": bson.M{"$in": statuses}}
}

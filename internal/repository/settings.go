package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

const settingsID = "global"

type SettingsRepo struct {
	col *mongo.Collection
}

func NewSettingsRepo(col *mongo.Collection) *SettingsRepo {
	return &SettingsRepo{col: col}
}

func (r *SettingsRepo) Get(ctx context.Context) (models.Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var s models.Settings
	err := r.col.FindOne(ctx, bson.M{"_id": settingsID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DefaultSettings(), nil
	}
	return s, err
}

func (r *SettingsRepo) Save(ctx context.Context, s models.Settings) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	s.UpdatedAt = time.Now().UTC()
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": settingsID}, s, options.Replace().SetUpsert(true))
	return err
}

package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func ConnectMongo(uri, dbName string, logger *zap.SugaredLogger) (*mongo.Database, *mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Errorf("MongoDB connection failed: %v", err)
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		logger.Errorf("MongoDB ping failed: %v", err)
		return nil, nil, err
	}

	logger.Info("MongoDB connected successfully")
	return client.Database(dbName), client, nil
}

// NewMongoStore wires every repository to its collection in db and ensures
// indexes exist.
func NewMongoStore(db *mongo.Database, logger *zap.SugaredLogger) *Store {
	return &Store{
		Queries:   NewQueryRepo(db.Collection("queries"), logger),
		Documents: NewDocumentRepo(db.Collection("documents"), logger),
		Messages:  NewMessageRepo(db.Collection("whatsapp_messages"), logger),
		Users:     NewUserRepo(db.Collection("users"), logger),
		Settings:  NewSettingsRepo(db.Collection("settings")),
	}
}

func ensureIndexes(col *mongo.Collection, logger *zap.SugaredLogger, idx ...mongo.IndexModel) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
		logger.Warnw("index creation failed", "collection", col.Name(), "err", err)
	}
}

// conditional reports ErrStaleStatus when a status-guarded update matched
// nothing.
func conditional(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStaleStatus
	}
	return nil
}

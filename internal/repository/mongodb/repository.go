package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/agriscore/internal/repository"
)

const (
	collFarms          = "farms"
	collFields         = "fields"
	collCrops          = "crops"
	collCropReferences = "crop_references"
	collMarketPrices   = "market_prices"
	collSensorReadings = "sensor_readings"
	collActions        = "actions"
	collScores         = "scores"
	collAlerts         = "alerts"
	collMonthlyReports = "monthly_reports"
)

// Store is the MongoDB-backed persistence layer.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewStore connects to MongoDB, verifies the connection and ensures indexes.
func NewStore(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(dbName),
		logger: logger.Named("repo.mongodb"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collMonthlyReports: {{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "month", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_user_month"),
		}},
		collActions: {{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "action_timestamp", Value: -1}},
		}},
		collScores: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "field_id", Value: 1}, {Key: "crop_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collAlerts: {{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "acknowledged", Value: 1}, {Key: "created_at", Value: -1}},
		}},
		collSensorReadings: {{
			Keys: bson.D{{Key: "field_id", Value: 1}, {Key: "timestamp", Value: -1}},
		}},
	}

	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	s.logger.Debug("indexes ensured", zap.Int("collections", len(indexes)))
	return nil
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) insert(ctx context.Context, coll string, doc any) error {
	if _, err := s.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to insert into %s: %w", coll, err)
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, coll, id string) error {
	if _, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", coll, err)
	}
	return nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOneOptions) (T, error) {
	var out T
	err := coll.FindOne(ctx, filter, opts...).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, repository.ErrNotFound
	}
	if err != nil {
		return out, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	return out, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func newestFirst(field string, limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: field, Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

package mongodb

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/repository"
)

// GetFarm returns a farm by ID.
func (s *Store) GetFarm(ctx context.Context, id string) (models.Farm, error) {
	return findOne[models.Farm](ctx, s.db.Collection(collFarms), bson.M{"_id": id})
}

// GetField returns a field by ID.
func (s *Store) GetField(ctx context.Context, id string) (models.Field, error) {
	return findOne[models.Field](ctx, s.db.Collection(collFields), bson.M{"_id": id})
}

// FieldsForUser returns the fields on the user's farms, newest first.
func (s *Store) FieldsForUser(ctx context.Context, userID string) ([]models.Field, error) {
	farmIDs, err := s.db.Collection(collFarms).Distinct(ctx, "_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list farms: %w", err)
	}
	if len(farmIDs) == 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	return findMany[models.Field](ctx, s.db.Collection(collFields), bson.M{"farm_id": bson.M{"$in": farmIDs}}, opts)
}

// GetCrop returns a crop by ID.
func (s *Store) GetCrop(ctx context.Context, id string) (models.Crop, error) {
	return findOne[models.Crop](ctx, s.db.Collection(collCrops), bson.M{"_id": id})
}

// LatestCrop returns the most recently created crop of a field.
func (s *Store) LatestCrop(ctx context.Context, fieldID string) (models.Crop, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findOne[models.Crop](ctx, s.db.Collection(collCrops), bson.M{"field_id": fieldID}, opts)
}

// GetCropReference returns reference data for a crop name.
func (s *Store) GetCropReference(ctx context.Context, name string) (models.CropReference, error) {
	return findOne[models.CropReference](ctx, s.db.Collection(collCropReferences), bson.M{"name": name})
}

// FindCropReferences returns references matching f ordered by ascending base
// risk, then name.
func (s *Store) FindCropReferences(ctx context.Context, f repository.CropReferenceFilter, limit int) ([]models.CropReference, error) {
	q := bson.M{}
	if f.ExcludeName != "" {
		q["name"] = bson.M{"$ne": f.ExcludeName}
	}
	if len(f.Names) > 0 {
		q["$or"] = nameMatchers(f.Names)
	}
	if f.RiskBelow != nil {
		q["base_risk_level"] = bson.M{"$lt": *f.RiskBelow}
	}

	opts := options.Find().SetSort(bson.D{{Key: "base_risk_level", Value: 1}, {Key: "name", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findMany[models.CropReference](ctx, s.db.Collection(collCropReferences), q, opts)
}

// LatestMarketPrices returns quotes for the named crops, newest first.
func (s *Store) LatestMarketPrices(ctx context.Context, names []string) ([]models.MarketPrice, error) {
	if len(names) == 0 {
		return nil, nil
	}
	q := bson.M{"$or": nameMatchersOn("crop_name", names)}
	return findMany[models.MarketPrice](ctx, s.db.Collection(collMarketPrices), q, newestFirst("date", 0))
}

// LatestReadings returns readings matching f, newest first.
func (s *Store) LatestReadings(ctx context.Context, f repository.ReadingFilter, limit int) ([]models.SensorReading, error) {
	q := bson.M{}
	if f.FieldIDs != nil {
		if len(f.FieldIDs) == 0 {
			return nil, nil
		}
		q["field_id"] = bson.M{"$in": f.FieldIDs}
	}
	return findMany[models.SensorReading](ctx, s.db.Collection(collSensorReadings), q, newestFirst("timestamp", limit))
}

func nameMatchers(names []string) bson.A {
	return nameMatchersOn("name", names)
}

// nameMatchersOn builds anchored case-insensitive equality matches.
func nameMatchersOn(field string, names []string) bson.A {
	out := make(bson.A, 0, len(names))
	for _, n := range names {
		out = append(out, bson.M{field: primitive.Regex{Pattern: "^" + regexp.QuoteMeta(n) + "$", Options: "i"}})
	}
	return out
}

// Package access resolves the farm ownership chain for request-scoped checks.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/repository"
)

// OwnershipStore reads the field → farm chain.
type OwnershipStore interface {
	GetField(ctx context.Context, id string) (models.Field, error)
	GetFarm(ctx context.Context, id string) (models.Farm, error)
}

// CropOwnershipStore extends the chain down to crops.
type CropOwnershipStore interface {
	OwnershipStore
	GetCrop(ctx context.Context, id string) (models.Crop, error)
}

// OwnedFarm loads farmID and checks it belongs to userID.
func OwnedFarm(ctx context.Context, store OwnershipStore, userID, farmID string) (models.Farm, error) {
	farm, err := store.GetFarm(ctx, farmID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Farm{}, apperr.Forbidden(fmt.Errorf("farm %s: %w", farmID, err))
	}
	if err != nil {
		return models.Farm{}, apperr.Persistence("Failed to verify farm access", err)
	}
	if farm.UserID != userID {
		return models.Farm{}, apperr.Forbidden(fmt.Errorf("farm %s belongs to another user", farmID))
	}
	return farm, nil
}

// OwnedCrop loads cropID and checks its field is owned by userID. When
// fieldID is set the crop must grow on that field. The crop's field is
// returned with it.
func OwnedCrop(ctx context.Context, store CropOwnershipStore, userID, cropID, fieldID string) (models.Crop, models.Field, error) {
	crop, err := store.GetCrop(ctx, cropID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Crop{}, models.Field{}, apperr.Forbidden(fmt.Errorf("crop %s: %w", cropID, err))
	}
	if err != nil {
		return models.Crop{}, models.Field{}, apperr.Persistence("Failed to verify crop access", err)
	}
	if fieldID != "" && crop.FieldID != fieldID {
		return models.Crop{}, models.Field{}, apperr.Forbidden(fmt.Errorf("crop %s is not on field %s", cropID, fieldID))
	}
	field, err := OwnedField(ctx, store, userID, crop.FieldID)
	if err != nil {
		return models.Crop{}, models.Field{}, err
	}
	return crop, field, nil
}

// OwnedField loads fieldID and checks it sits on a farm owned by userID.
// Absent and foreign fields are both Forbidden.
func OwnedField(ctx context.Context, store OwnershipStore, userID, fieldID string) (models.Field, error) {
	field, err := store.GetField(ctx, fieldID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Field{}, apperr.Forbidden(fmt.Errorf("field %s: %w", fieldID, err))
	}
	if err != nil {
		return models.Field{}, apperr.Persistence("Failed to verify field access", err)
	}

	farm, err := store.GetFarm(ctx, field.FarmID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Field{}, apperr.Forbidden(fmt.Errorf("farm %s: %w", field.FarmID, err))
	}
	if err != nil {
		return models.Field{}, apperr.Persistence("Failed to verify field access", err)
	}
	if farm.UserID != userID {
		return models.Field{}, apperr.Forbidden(fmt.Errorf("field %s belongs to another user", fieldID))
	}
	return field, nil
}

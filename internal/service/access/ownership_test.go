package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/repository/memory"
)

func TestOwnedField(t *testing.T) {
	store := memory.NewStore()
	store.PutFarm(models.Farm{ID: "farm-1", UserID: "u1"})
	store.PutFarm(models.Farm{ID: "farm-2", UserID: "u2"})
	store.PutField(models.Field{ID: "f1", FarmID: "farm-1", SoilType: "loamy"})
	store.PutField(models.Field{ID: "f2", FarmID: "farm-2"})
	store.PutField(models.Field{ID: "orphan", FarmID: "gone"})
	ctx := context.Background()

	field, err := OwnedField(ctx, store, "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "loamy", field.SoilType)

	for _, id := range []string{"f2", "missing", "orphan"} {
		_, err := OwnedField(ctx, store, "u1", id)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), id)
		assert.Equal(t, "Access denied", apperr.MessageOf(err, ""), id)
	}

	store.FailOn("GetField", errors.New("timeout"))
	_, err = OwnedField(ctx, store, "u1", "f1")
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}

func TestOwnedField_FarmLookupFailure(t *testing.T) {
	store := memory.NewStore()
	store.PutFarm(models.Farm{ID: "farm-1", UserID: "u1"})
	store.PutField(models.Field{ID: "f1", FarmID: "farm-1"})
	store.FailOn("GetFarm", errors.New("timeout"))

	_, err := OwnedField(context.Background(), store, "u1", "f1")
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	assert.Equal(t, "Failed to verify field access", apperr.MessageOf(err, "Failed to verify field access"))
}

func TestOwnedFarm(t *testing.T) {
	store := memory.NewStore()
	store.PutFarm(models.Farm{ID: "farm-1", UserID: "u1", Name: "North"})
	store.PutFarm(models.Farm{ID: "farm-2", UserID: "u2"})
	ctx := context.Background()

	farm, err := OwnedFarm(ctx, store, "u1", "farm-1")
	require.NoError(t, err)
	assert.Equal(t, "North", farm.Name)

	for _, id := range []string{"farm-2", "missing"} {
		_, err := OwnedFarm(ctx, store, "u1", id)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), id)
	}

	store.FailOn("GetFarm", errors.New("timeout"))
	_, err = OwnedFarm(ctx, store, "u1", "farm-1")
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}

func TestOwnedCrop(t *testing.T) {
	store := memory.NewStore()
	store.PutFarm(models.Farm{ID: "farm-1", UserID: "u1"})
	store.PutFarm(models.Farm{ID: "farm-2", UserID: "u2"})
	store.PutField(models.Field{ID: "f1", FarmID: "farm-1"})
	store.PutField(models.Field{ID: "f1b", FarmID: "farm-1"})
	store.PutField(models.Field{ID: "f2", FarmID: "farm-2"})
	store.PutCrop(models.Crop{ID: "c1", FieldID: "f1", Name: "Maize"})
	store.PutCrop(models.Crop{ID: "c2", FieldID: "f2", Name: "Rice"})
	ctx := context.Background()

	crop, field, err := OwnedCrop(ctx, store, "u1", "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "Maize", crop.Name)
	assert.Equal(t, "farm-1", field.FarmID)

	_, _, err = OwnedCrop(ctx, store, "u1", "c1", "f1")
	require.NoError(t, err)

	cases := map[string][2]string{
		"foreign crop":        {"c2", ""},
		"missing crop":        {"c9", ""},
		"crop on other field": {"c1", "f1b"},
	}
	for name, tc := range cases {
		_, _, err := OwnedCrop(ctx, store, "u1", tc[0], tc[1])
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), name)
	}

	store.FailOn("GetCrop", errors.New("timeout"))
	_, _, err = OwnedCrop(ctx, store, "u1", "c1", "")
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}

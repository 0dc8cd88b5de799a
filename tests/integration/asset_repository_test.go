package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettrack/backend/internal/domain/history"
	"github.com/assettrack/backend/internal/domain/inventory"
	"github.com/assettrack/backend/internal/domain/reconcile"
	"github.com/assettrack/backend/internal/domain/shared"
	"github.com/assettrack/backend/internal/infrastructure/persistence"
)

// TestAssetRepository_Integration tests the asset repository against a real PostgreSQL database
func TestAssetRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormAssetRepository(testDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("Save and FindByID", func(t *testing.T) {
		asset, err := inventory.NewAsset(tenantID, "Forklift 7", "equipment")
		require.NoError(t, err)

		err = repo.Save(ctx, asset)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, tenantID, asset.ID)
		require.NoError(t, err)
		assert.Equal(t, asset.ID, found.ID)
		assert.Equal(t, "Forklift 7", found.Name)
		assert.Equal(t, "equipment", found.Category)
		assert.True(t, found.Active)
	})

	t.Run("Tenant isolation", func(t *testing.T) {
		asset, err := inventory.NewAsset(tenantID, "Pallet stack", "consumable")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, asset))

		_, err = repo.FindByID(ctx, uuid.New(), asset.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("Quantity update persists", func(t *testing.T) {
		asset, err := inventory.NewAsset(tenantID, "Cable drum", "consumable")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, asset))

		require.NoError(t, asset.ApplyQuantity(decimal.NewFromInt(42)))
		require.NoError(t, repo.Save(ctx, asset))

		found, err := repo.FindByID(ctx, tenantID, asset.ID)
		require.NoError(t, err)
		assert.True(t, found.Quantity.Equal(decimal.NewFromInt(42)),
			"expected 42, got %s", found.Quantity)
	})

	t.Run("FindAll with pagination", func(t *testing.T) {
		pagedTenant := uuid.New()
		for i := 0; i < 5; i++ {
			asset, err := inventory.NewAsset(pagedTenant, "Scanner", "equipment")
			require.NoError(t, err)
			require.NoError(t, repo.Save(ctx, asset))
		}

		assets, total, err := repo.FindAll(ctx, pagedTenant, shared.Filter{
			Page: 1, PageSize: 3, OrderBy: "created_at", OrderDir: "desc",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, assets, 3)
	})

	t.Run("Delete removes the asset", func(t *testing.T) {
		asset, err := inventory.NewAsset(tenantID, "Retired rig", "equipment")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, asset))

		require.NoError(t, repo.Delete(ctx, tenantID, asset.ID))

		_, err = repo.FindByID(ctx, tenantID, asset.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

// TestInventoryRecordRepository_Integration tests the append-only history store
func TestInventoryRecordRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormInventoryRecordRepository(testDB.DB)
	ctx := context.Background()
	tenantID := uuid.New()
	assetID := uuid.New()

	testDB.CreateTestAsset(tenantID, assetID, "Counted asset", 100)

	appendRecord := func(t *testing.T, quantity, previous int64, checkedAt time.Time) *inventory.InventoryRecord {
		t.Helper()
		result := reconcile.CalculationResult{
			Success:     true,
			NewQuantity: decimal.NewFromInt(quantity),
			Metadata: reconcile.Metadata{
				CalculatedAt: checkedAt,
				NetChange:    decimal.NewFromInt(quantity - previous),
			},
		}
		record, err := inventory.NewInventoryRecord(tenantID, assetID, nil, inventory.EventPeriodicCheck, decimal.NewFromInt(previous), result)
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, record))
		return record
	}

	base := time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC)
	appendRecord(t, 95, 100, base)
	appendRecord(t, 90, 95, base.Add(24*time.Hour))
	appendRecord(t, 88, 90, base.Add(48*time.Hour))

	t.Run("ListRecent returns newest first", func(t *testing.T) {
		records, err := repo.ListRecent(ctx, tenantID, assetID, 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.True(t, records[0].Quantity.Equal(decimal.NewFromInt(88)))
		assert.True(t, records[1].Quantity.Equal(decimal.NewFromInt(90)))
	})

	t.Run("ListForMonth bounds by checked_at", func(t *testing.T) {
		appendRecord(t, 80, 88, time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC))

		july, err := history.ParseMonth("2026-07")
		require.NoError(t, err)
		records, err := repo.ListForMonth(ctx, tenantID, assetID, july)
		require.NoError(t, err)
		assert.Len(t, records, 3)

		august, err := history.ParseMonth("2026-08")
		require.NoError(t, err)
		records, err = repo.ListForMonth(ctx, tenantID, assetID, august)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("Payload round-trips the calculation", func(t *testing.T) {
		records, err := repo.ListRecent(ctx, tenantID, assetID, 1)
		require.NoError(t, err)
		require.Len(t, records, 1)

		payload, err := records[0].CalculationPayload()
		require.NoError(t, err)
		assert.True(t, payload.Success)
		assert.True(t, payload.NewQuantity.Equal(records[0].Quantity))
	})
}

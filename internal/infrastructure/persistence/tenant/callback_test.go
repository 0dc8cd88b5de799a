package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/assettrack/backend/internal/infrastructure/logger"
	"github.com/assettrack/backend/tests/testutil"
)

func openFilterDB(t *testing.T, required bool) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&trackedAsset{}))
	require.NoError(t, EnableAutoTenantFilter(db, required))

	north := testutil.TenantID("warehouse-north")
	south := testutil.TenantID("warehouse-south")
	seed := []trackedAsset{
		{ID: testutil.AssetID("forklift"), TenantID: north, Name: "forklift", Quantity: 3},
		{ID: testutil.AssetID("pallet jack"), TenantID: north, Name: "pallet jack", Quantity: 12},
		{ID: testutil.AssetID("scanner"), TenantID: south, Name: "scanner", Quantity: 5},
	}
	require.NoError(t, db.Create(&seed).Error)

	return db
}

func tenantCtx(tenantID string) context.Context {
	ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID)
	return ctx
}

func TestAutoTenantFilter_ScopesQueriesByContext(t *testing.T) {
	db := openFilterDB(t, false)
	ctx := tenantCtx(testutil.TenantID("warehouse-north").String())

	var assets []trackedAsset
	require.NoError(t, db.WithContext(ctx).Order("name").Find(&assets).Error)
	require.Len(t, assets, 2)
	assert.Equal(t, "forklift", assets[0].Name)
	assert.Equal(t, "pallet jack", assets[1].Name)
}

func TestAutoTenantFilter_KeepsExplicitTenantCondition(t *testing.T) {
	db := openFilterDB(t, false)
	ctx := tenantCtx(testutil.TenantID("warehouse-north").String())
	south := testutil.TenantID("warehouse-south")

	var assets []trackedAsset
	err := db.WithContext(ctx).Where("tenant_id = ?", south).Find(&assets).Error
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "scanner", assets[0].Name)
}

func TestAutoTenantFilter_UnscopedSeesAllTenants(t *testing.T) {
	db := openFilterDB(t, false)
	ctx := tenantCtx(testutil.TenantID("warehouse-north").String())

	var assets []trackedAsset
	require.NoError(t, db.WithContext(ctx).Unscoped().Find(&assets).Error)
	assert.Len(t, assets, 3)
}

func TestAutoTenantFilter_MissingTenantRunsUnfilteredWhenOptional(t *testing.T) {
	db := openFilterDB(t, false)

	var assets []trackedAsset
	require.NoError(t, db.WithContext(context.Background()).Find(&assets).Error)
	assert.Len(t, assets, 3)
}

func TestAutoTenantFilter_MissingTenantFailsWhenRequired(t *testing.T) {
	db := openFilterDB(t, true)

	var assets []trackedAsset
	err := db.WithContext(context.Background()).Find(&assets).Error
	assert.ErrorIs(t, err, ErrTenantIDRequired)
}

func TestAutoTenantFilter_RejectsMalformedTenant(t *testing.T) {
	db := openFilterDB(t, false)

	var assets []trackedAsset
	err := db.WithContext(tenantCtx("not-a-uuid")).Find(&assets).Error
	assert.ErrorIs(t, err, ErrInvalidTenantID)
}

func TestAutoTenantFilter_AppliesToUpdatesAndDeletes(t *testing.T) {
	db := openFilterDB(t, false)
	northCtx := tenantCtx(testutil.TenantID("warehouse-north").String())

	res := db.WithContext(northCtx).Model(&trackedAsset{}).
		Where("quantity >= ?", 0).
		Update("quantity", int64(1))
	require.NoError(t, res.Error)
	assert.EqualValues(t, 2, res.RowsAffected)

	var scanner trackedAsset
	require.NoError(t, db.WithContext(context.Background()).
		First(&scanner, "name = ?", "scanner").Error)
	assert.EqualValues(t, 5, scanner.Quantity, "other tenants' quantities stay untouched")

	res = db.WithContext(northCtx).Where("quantity >= ?", 0).Delete(&trackedAsset{})
	require.NoError(t, res.Error)
	assert.EqualValues(t, 2, res.RowsAffected)

	var remaining []trackedAsset
	require.NoError(t, db.WithContext(context.Background()).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "scanner", remaining[0].Name)
}

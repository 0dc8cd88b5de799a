package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assettrack/backend/internal/domain/inventory"
	"github.com/assettrack/backend/internal/domain/shared"
	"github.com/assettrack/backend/internal/infrastructure/persistence/tenant"
)

// GormAssetRepository implements AssetRepository using GORM
type GormAssetRepository struct {
	db *gorm.DB
}

// NewGormAssetRepository creates a new GormAssetRepository
func NewGormAssetRepository(db *gorm.DB) *GormAssetRepository {
	return &GormAssetRepository{db: db}
}

// FindByID finds an asset by ID within a tenant
func (r *GormAssetRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Asset, error) {
	var asset inventory.Asset
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// FindAll lists a tenant's assets with the total count for pagination
func (r *GormAssetRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.Asset, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&inventory.Asset{}).
		Scopes(tenant.TenantScope(tenantID))
	base = r.applyFilterWithoutPagination(base, filter)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assets []inventory.Asset
	if err := r.applyPagination(base, filter).Find(&assets).Error; err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// Save creates or updates an asset. Updates check the version so two
// concurrent reconciliations of one asset cannot both win.
func (r *GormAssetRepository) Save(ctx context.Context, asset *inventory.Asset) error {
	if asset.Version <= 1 {
		return r.db.WithContext(ctx).Save(asset).Error
	}

	result := r.db.WithContext(ctx).
		Model(asset).
		Where("id = ? AND version = ?", asset.ID, asset.Version-1).
		Updates(map[string]interface{}{
			"name":       asset.Name,
			"category":   asset.Category,
			"quantity":   asset.Quantity,
			"unit":       asset.Unit,
			"metadata":   asset.Metadata,
			"active":     asset.Active,
			"version":    asset.Version,
			"updated_at": asset.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete removes an asset
func (r *GormAssetRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Delete(&inventory.Asset{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormAssetRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	for key, value := range filter.Filters {
		switch key {
		case "category":
			query = query.Where("category = ?", value)
		case "active":
			query = query.Where("active = ?", value)
		case "unit":
			query = query.Where("unit = ?", value)
		}
	}
	return query
}

func (r *GormAssetRepository) applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	return query.Order(SafeOrderClause(filter.OrderBy, filter.OrderDir, AssetSortFields, "created_at"))
}

// Ensure GormAssetRepository implements AssetRepository
var _ inventory.AssetRepository = (*GormAssetRepository)(nil)

package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assettrack/backend/internal/domain/history"
	"github.com/assettrack/backend/internal/domain/inventory"
	"github.com/assettrack/backend/internal/infrastructure/persistence/tenant"
)

// GormInventoryRecordRepository implements InventoryRecordRepository using
// GORM. Records are append-only; there is no update or delete path.
type GormInventoryRecordRepository struct {
	db *gorm.DB
}

// NewGormInventoryRecordRepository creates a new GormInventoryRecordRepository
func NewGormInventoryRecordRepository(db *gorm.DB) *GormInventoryRecordRepository {
	return &GormInventoryRecordRepository{db: db}
}

// Append writes one immutable history record
func (r *GormInventoryRecordRepository) Append(ctx context.Context, record *inventory.InventoryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListRecent returns up to limit records for an asset, newest first
func (r *GormInventoryRecordRepository) ListRecent(ctx context.Context, tenantID, assetID uuid.UUID, limit int) ([]inventory.InventoryRecord, error) {
	var records []inventory.InventoryRecord
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("asset_id = ?", assetID).
		Order("checked_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListForMonth returns records checked within the month, newest first
func (r *GormInventoryRecordRepository) ListForMonth(ctx context.Context, tenantID, assetID uuid.UUID, month history.Month) ([]inventory.InventoryRecord, error) {
	var records []inventory.InventoryRecord
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("asset_id = ? AND checked_at >= ? AND checked_at < ?", assetID, month.Start(), month.End()).
		Order("checked_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Ensure GormInventoryRecordRepository implements InventoryRecordRepository
var _ inventory.InventoryRecordRepository = (*GormInventoryRecordRepository)(nil)

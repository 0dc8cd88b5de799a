package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assettrack/backend/internal/domain/history"
	"github.com/assettrack/backend/internal/domain/inventory"
	"github.com/assettrack/backend/internal/domain/shared"
	"github.com/assettrack/backend/internal/infrastructure/persistence/tenant"
)

// GormFormSubmissionRepository implements FormSubmissionRepository using GORM
type GormFormSubmissionRepository struct {
	db *gorm.DB
}

// NewGormFormSubmissionRepository creates a new GormFormSubmissionRepository
func NewGormFormSubmissionRepository(db *gorm.DB) *GormFormSubmissionRepository {
	return &GormFormSubmissionRepository{db: db}
}

// Save persists a submission
func (r *GormFormSubmissionRepository) Save(ctx context.Context, submission *inventory.FormSubmission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

// FindByID finds a submission by ID within a tenant
func (r *GormFormSubmissionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.FormSubmission, error) {
	var submission inventory.FormSubmission
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		First(&submission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &submission, nil
}

// ListForMonth returns submissions within the month, newest first
func (r *GormFormSubmissionRepository) ListForMonth(ctx context.Context, tenantID, assetID uuid.UUID, month history.Month) ([]inventory.FormSubmission, error) {
	var submissions []inventory.FormSubmission
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("asset_id = ? AND submitted_at >= ? AND submitted_at < ?", assetID, month.Start(), month.End()).
		Order("submitted_at DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// Ensure GormFormSubmissionRepository implements FormSubmissionRepository
var _ inventory.FormSubmissionRepository = (*GormFormSubmissionRepository)(nil)

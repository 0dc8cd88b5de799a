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

// GormFormTemplateRepository implements FormTemplateRepository using GORM
type GormFormTemplateRepository struct {
	db *gorm.DB
}

// NewGormFormTemplateRepository creates a new GormFormTemplateRepository
func NewGormFormTemplateRepository(db *gorm.DB) *GormFormTemplateRepository {
	return &GormFormTemplateRepository{db: db}
}

// FindByID finds a template by ID within a tenant
func (r *GormFormTemplateRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.FormTemplate, error) {
	var template inventory.FormTemplate
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		First(&template, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// FindAll lists a tenant's templates
func (r *GormFormTemplateRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]inventory.FormTemplate, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&inventory.FormTemplate{}).
		Scopes(tenant.TenantScope(tenantID))
	if filter.Search != "" {
		base = base.Where("name ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		base = base.Offset(offset).Limit(filter.PageSize)
	}
	var templates []inventory.FormTemplate
	order := SafeOrderClause(filter.OrderBy, filter.OrderDir, CommonSortFields, "created_at")
	if err := base.Order(order).Find(&templates).Error; err != nil {
		return nil, 0, err
	}
	return templates, total, nil
}

// Save persists a template
func (r *GormFormTemplateRepository) Save(ctx context.Context, template *inventory.FormTemplate) error {
	return r.db.WithContext(ctx).Save(template).Error
}

// Delete removes a template
func (r *GormFormTemplateRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Delete(&inventory.FormTemplate{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormFormTemplateRepository implements FormTemplateRepository
var _ inventory.FormTemplateRepository = (*GormFormTemplateRepository)(nil)

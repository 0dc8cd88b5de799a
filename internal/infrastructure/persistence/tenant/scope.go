// Package tenant provides multi-tenant scoping for GORM queries.
//
// Repositories apply the scope explicitly with the tenant ID they were
// handed, and EnableAutoTenantFilter registers callbacks that backstop
// them by filtering on the tenant carried in the request context.
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a query runs without a tenant in context.
var ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")

// ErrInvalidTenantID is returned when the tenant in context is not a UUID.
var ErrInvalidTenantID = errors.New("invalid tenant_id format")

// TenantScope restricts a query to one tenant's rows.
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// Package shared holds the building blocks common to all inventory
// aggregates: tenant-scoped identity, optimistic-lock versioning, list
// filtering, and the domain error vocabulary.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// TenantAggregateRoot carries the fields every persisted aggregate needs:
// identity, owning tenant, timestamps, and a version counter for
// optimistic locking.
type TenantAggregateRoot struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenantAggregateRoot mints an aggregate root owned by the given tenant.
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	now := time.Now()
	return TenantAggregateRoot{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetVersion returns the current optimistic-lock version.
func (a *TenantAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion bumps the version after a state change. Repositories
// compare the previous version on save to detect concurrent writers.
func (a *TenantAggregateRoot) IncrementVersion() {
	a.Version++
}

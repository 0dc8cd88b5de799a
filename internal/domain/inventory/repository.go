package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/assettrack/backend/internal/domain/history"
	"github.com/assettrack/backend/internal/domain/shared"
)

// AssetRepository defines asset persistence. Save enforces the optimistic
// version check; two concurrent reconciliations of one asset cannot both
// win.
type AssetRepository interface {
	// FindByID finds an asset by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Asset, error)

	// FindAll lists a tenant's assets with the total count for pagination
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Asset, int64, error)

	// Save persists an asset, checking the version for concurrent edits
	Save(ctx context.Context, asset *Asset) error

	// Delete removes an asset
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// InventoryRecordRepository appends and reads quantity history
type InventoryRecordRepository interface {
	// Append writes one immutable history record
	Append(ctx context.Context, record *InventoryRecord) error

	// ListRecent returns up to limit records for an asset, newest first
	ListRecent(ctx context.Context, tenantID, assetID uuid.UUID, limit int) ([]InventoryRecord, error)

	// ListForMonth returns records checked within the month, newest first
	ListForMonth(ctx context.Context, tenantID, assetID uuid.UUID, month history.Month) ([]InventoryRecord, error)
}

// FormSubmissionRepository persists submitted inventory forms
type FormSubmissionRepository interface {
	// Save persists a submission
	Save(ctx context.Context, submission *FormSubmission) error

	// FindByID finds a submission by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FormSubmission, error)

	// ListForMonth returns submissions within the month, newest first
	ListForMonth(ctx context.Context, tenantID, assetID uuid.UUID, month history.Month) ([]FormSubmission, error)
}

package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/assettrack/backend/internal/domain/anomaly"
	"github.com/assettrack/backend/internal/domain/inventory"
	"github.com/assettrack/backend/internal/domain/reconcile"
)

// SubmitInventoryRequest carries one inventory form submission
type SubmitInventoryRequest struct {
	TenantID  uuid.UUID
	AssetID   uuid.UUID
	FormID    uuid.UUID
	ActorID   *uuid.UUID
	EventType string
	Values    map[string]string
	Notes     string
}

// ReconciliationResponse is the outcome of processing one submission.
// Success false means validation failed and the quantity was not touched;
// anomalies are advisory and never block persistence.
type ReconciliationResponse struct {
	SubmissionID     uuid.UUID                   `json:"submission_id"`
	Status           inventory.SubmissionStatus  `json:"status"`
	Success          bool                        `json:"success"`
	PreviousQuantity decimal.Decimal             `json:"previous_quantity"`
	NewQuantity      decimal.Decimal             `json:"new_quantity"`
	NetChange        decimal.Decimal             `json:"net_change"`
	Changes          []reconcile.InventoryChange `json:"changes"`
	Errors           []string                    `json:"errors,omitempty"`
	Warnings         []string                    `json:"warnings,omitempty"`
	Anomalies        []anomaly.Detection         `json:"anomalies,omitempty"`
}

// ApplyCorrectionRequest applies a reviewed quantity correction, typically
// accepting an anomaly's suggested fix
type ApplyCorrectionRequest struct {
	TenantID uuid.UUID
	AssetID  uuid.UUID
	ActorID  *uuid.UUID
	Quantity decimal.Decimal
	Reason   string
}

// CreateAssetRequest registers a tracked asset
type CreateAssetRequest struct {
	TenantID        uuid.UUID
	Name            string
	Category        string
	Unit            string
	InitialQuantity decimal.Decimal
	Metadata        map[string]string
}

// UpdateAssetRequest changes an asset's descriptive attributes. Quantity
// is deliberately absent; it only moves through submissions and
// corrections.
type UpdateAssetRequest struct {
	TenantID uuid.UUID
	AssetID  uuid.UUID
	Name     *string
	Unit     *string
	Metadata map[string]string
}

// CorrectionResponse reports an applied correction
type CorrectionResponse struct {
	AssetID          uuid.UUID       `json:"asset_id"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	RecordID         uuid.UUID       `json:"record_id"`
}

// AssetResponse represents an asset in API responses
type AssetResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit,omitempty"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Version   int             `json:"version"`
}

// NewAssetResponse maps an asset aggregate to its response shape
func NewAssetResponse(asset *inventory.Asset) AssetResponse {
	return AssetResponse{
		ID:        asset.ID,
		Name:      asset.Name,
		Category:  asset.Category,
		Quantity:  asset.Quantity,
		Unit:      asset.Unit,
		Active:    asset.Active,
		CreatedAt: asset.CreatedAt,
		UpdatedAt: asset.UpdatedAt,
		Version:   asset.Version,
	}
}

// RecordResponse represents one history record in API responses
type RecordResponse struct {
	ID               uuid.UUID       `json:"id"`
	AssetID          uuid.UUID       `json:"asset_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	EventType        string          `json:"event_type"`
	CheckedAt        time.Time       `json:"checked_at"`
}

// NewRecordResponse maps a history record to its response shape
func NewRecordResponse(record *inventory.InventoryRecord) RecordResponse {
	return RecordResponse{
		ID:               record.ID,
		AssetID:          record.AssetID,
		Quantity:         record.Quantity,
		PreviousQuantity: record.PreviousQuantity,
		EventType:        record.EventType,
		CheckedAt:        record.CheckedAt,
	}
}

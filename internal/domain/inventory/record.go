package inventory

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/assettrack/backend/internal/domain/reconcile"
	"github.com/assettrack/backend/internal/domain/shared"
)

// Event types recorded against an asset's quantity history
const (
	EventPeriodicCheck = "periodic_check"
	EventIntake        = "intake"
	EventAddition      = "addition"
	EventTransfer      = "transfer"
	EventUsage         = "usage"
	EventCorrection    = "correction"
)

// InventoryRecord is one appended quantity observation. The reconciliation
// result that produced it is embedded as the audit payload; records are
// immutable once written.
type InventoryRecord struct {
	shared.TenantAggregateRoot
	AssetID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_inventory_records_asset_checked,priority:1"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PreviousQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	EventType        string          `gorm:"type:varchar(32);not null"`
	ActorID          *uuid.UUID      `gorm:"type:uuid"`
	Payload          string          `gorm:"type:jsonb;default:'{}'"` // embedded CalculationResult for audit
	CheckedAt        time.Time       `gorm:"not null;index:idx_inventory_records_asset_checked,priority:2,sort:desc"`
}

// TableName returns the table name for GORM
func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// NewInventoryRecord creates a history record from a reconciliation result
func NewInventoryRecord(tenantID, assetID uuid.UUID, actorID *uuid.UUID, eventType string, previous decimal.Decimal, result reconcile.CalculationResult) (*InventoryRecord, error) {
	if assetID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ASSET", "Asset ID cannot be empty")
	}
	if eventType == "" {
		return nil, shared.NewDomainError("INVALID_EVENT_TYPE", "Event type is required")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PAYLOAD", "Calculation result cannot be serialized")
	}

	return &InventoryRecord{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AssetID:             assetID,
		Quantity:            result.NewQuantity,
		PreviousQuantity:    previous,
		EventType:           eventType,
		ActorID:             actorID,
		Payload:             string(payload),
		CheckedAt:           result.Metadata.CalculatedAt,
	}, nil
}

// CalculationPayload decodes the embedded reconciliation result
func (r *InventoryRecord) CalculationPayload() (reconcile.CalculationResult, error) {
	var result reconcile.CalculationResult
	if err := json.Unmarshal([]byte(r.Payload), &result); err != nil {
		return reconcile.CalculationResult{}, shared.NewDomainError("INVALID_PAYLOAD", "Stored calculation payload is not valid JSON")
	}
	return result, nil
}

package inventory

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/assettrack/backend/internal/domain/anomaly"
	"github.com/assettrack/backend/internal/domain/shared"
)

// Asset is a tracked inventory item. It is the aggregate root for
// reconciliation: the current quantity only moves through Reconcile or
// CorrectQuantity so every transition leaves an auditable trail.
type Asset struct {
	shared.TenantAggregateRoot
	Name     string          `gorm:"type:varchar(255);not null"`
	Category string          `gorm:"type:varchar(64);not null;default:'general';index"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Unit     string          `gorm:"type:varchar(32)"`
	Metadata string          `gorm:"type:jsonb;default:'{}'"` // free-form key/value pairs formulas may reference
	Active   bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Asset) TableName() string {
	return "assets"
}

// NewAsset creates an asset with zero starting quantity
func NewAsset(tenantID uuid.UUID, name, category string) (*Asset, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Asset name cannot be empty")
	}

	return &Asset{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Category:            string(anomaly.ParseCategory(category)),
		Quantity:            decimal.Zero,
		Metadata:            "{}",
		Active:              true,
	}, nil
}

// AnomalyCategory returns the asset's category as a threshold key
func (a *Asset) AnomalyCategory() anomaly.Category {
	return anomaly.ParseCategory(a.Category)
}

// ApplyQuantity moves the tracked quantity to a reconciled value. The
// caller has already validated the calculation; this only guards the
// non-negativity invariant and bumps the version for optimistic locking.
func (a *Asset) ApplyQuantity(newQuantity decimal.Decimal) error {
	if newQuantity.IsNegative() {
		return shared.ErrNegativeQuantity
	}

	a.Quantity = newQuantity
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// DecodeMetadata returns the free-form metadata pairs
func (a *Asset) DecodeMetadata() (map[string]string, error) {
	meta := make(map[string]string)
	if a.Metadata == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(a.Metadata), &meta); err != nil {
		return nil, shared.NewDomainError("INVALID_METADATA", "Stored asset metadata is not valid JSON")
	}
	return meta, nil
}

// SetMetadata replaces the metadata pairs
func (a *Asset) SetMetadata(meta map[string]string) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return shared.NewDomainError("INVALID_METADATA", "Asset metadata cannot be serialized")
	}
	a.Metadata = string(encoded)
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Deactivate retires the asset from tracking without deleting its history
func (a *Asset) Deactivate() {
	a.Active = false
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

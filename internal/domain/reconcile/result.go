package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryChange is one atomic effect of a submission on the tracked
// quantity. Changes are immutable once produced; the ledger keeps schema
// field order, with a set change (if any) always first and alone.
type InventoryChange struct {
	Field         string           `json:"field"`
	Action        InventoryAction  `json:"action"`
	Value         decimal.Decimal  `json:"value"`
	PreviousValue *decimal.Decimal `json:"previous_value,omitempty"`
	Description   string           `json:"description"`
	Formula       string           `json:"formula,omitempty"`
}

// Metadata is free-form audit information attached to a calculation
type Metadata struct {
	CalculatedAt      time.Time       `json:"calculated_at"`
	FieldsUsed        []string        `json:"fields_used"`
	NetChange         decimal.Decimal `json:"net_change"`
	MetadataConsulted []string        `json:"metadata_consulted,omitempty"`
}

// CalculationResult is the output of one reconciliation. Validation
// failures land in Errors and clear Success; data-quality concerns land in
// Warnings and never block. Callers inspect Success before persisting.
type CalculationResult struct {
	Success     bool              `json:"success"`
	NewQuantity decimal.Decimal   `json:"new_quantity"`
	Changes     []InventoryChange `json:"changes"`
	Errors      []string          `json:"errors"`
	Warnings    []string          `json:"warnings"`
	Metadata    Metadata          `json:"metadata"`
}

// NetChange returns the signed quantity delta of the calculation
func (r CalculationResult) NetChange() decimal.Decimal {
	return r.Metadata.NetChange
}

// HasWarnings reports whether any data-quality warnings were raised
func (r CalculationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

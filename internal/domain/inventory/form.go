package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/assettrack/backend/internal/domain/formula"
	"github.com/assettrack/backend/internal/domain/reconcile"
	"github.com/assettrack/backend/internal/domain/shared"
)

// FormTemplate is a declared inventory form: the ordered field schema with
// each field's inventory action, as produced by form-design tooling
type FormTemplate struct {
	shared.TenantAggregateRoot
	Name   string `gorm:"type:varchar(255);not null"`
	Fields string `gorm:"type:jsonb;not null;default:'[]'"` // ordered []reconcile.FieldSpec
}

// TableName returns the table name for GORM
func (FormTemplate) TableName() string {
	return "form_templates"
}

// NewFormTemplate creates a form template from its field schema
func NewFormTemplate(tenantID uuid.UUID, name string, fields []reconcile.FieldSpec) (*FormTemplate, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Form name cannot be empty")
	}
	if err := validateFieldSchema(fields); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_FIELDS", "Field schema cannot be serialized")
	}
	return &FormTemplate{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Fields:              string(encoded),
	}, nil
}

// DecodeFields returns the ordered field schema
func (f *FormTemplate) DecodeFields() ([]reconcile.FieldSpec, error) {
	var fields []reconcile.FieldSpec
	if err := json.Unmarshal([]byte(f.Fields), &fields); err != nil {
		return nil, shared.NewDomainError("INVALID_FIELDS", "Stored field schema is not valid JSON")
	}
	return fields, nil
}

// ReplaceFields swaps in a new field schema after validating it
func (f *FormTemplate) ReplaceFields(fields []reconcile.FieldSpec) error {
	if err := validateFieldSchema(fields); err != nil {
		return err
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return shared.NewDomainError("INVALID_FIELDS", "Field schema cannot be serialized")
	}
	f.Fields = string(encoded)
	f.IncrementVersion()
	return nil
}

// validateFieldSchema checks ids are unique and every formula only
// references declared fields or asset metadata
func validateFieldSchema(fields []reconcile.FieldSpec) error {
	ids := make([]string, 0, len(fields))
	labels := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		if field.ID == "" {
			return shared.NewDomainError("INVALID_FIELDS", "Every field needs an id")
		}
		if seen[field.ID] {
			return shared.NewDomainError("INVALID_FIELDS", fmt.Sprintf("Duplicate field id %q", field.ID))
		}
		seen[field.ID] = true
		ids = append(ids, field.ID)
		if field.Label != "" {
			labels = append(labels, field.Label)
		}
	}

	known := formula.NewKnownRefs(ids, labels)
	for _, field := range fields {
		if field.Type != reconcile.FieldTypeCalculated || field.Formula == "" {
			continue
		}
		unknown, err := formula.ValidateReferences(field.Formula, known)
		if err != nil {
			return shared.NewDomainError("INVALID_FORMULA", fmt.Sprintf("Formula for %q: %s", field.ID, err.Error()))
		}
		filtered := unknown[:0]
		for _, ref := range unknown {
			// Asset metadata references resolve at calculation time
			if !isMetadataRef(ref) {
				filtered = append(filtered, ref)
			}
		}
		if len(filtered) > 0 {
			return shared.NewDomainError("INVALID_FORMULA", fmt.Sprintf("Formula for %q references unknown fields: %v", field.ID, filtered))
		}
	}
	return nil
}

func isMetadataRef(ref string) bool {
	return len(ref) > 7 && (ref[:7] == "{asset." || ref[:7] == "[asset.")
}

// FormTemplateRepository persists form templates
type FormTemplateRepository interface {
	// FindByID finds a template by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*FormTemplate, error)

	// FindAll lists a tenant's templates
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]FormTemplate, int64, error)

	// Save persists a template
	Save(ctx context.Context, template *FormTemplate) error

	// Delete removes a template
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

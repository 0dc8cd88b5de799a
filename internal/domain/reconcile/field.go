package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FieldType classifies a declared form field
type FieldType string

const (
	FieldTypeText             FieldType = "text"
	FieldTypeNumber           FieldType = "number"
	FieldTypeDate             FieldType = "date"
	FieldTypeSelect           FieldType = "select"
	FieldTypeCalculated       FieldType = "calculated"
	FieldTypeCurrentInventory FieldType = "current_inventory"
)

// InventoryAction is a field-level directive describing how a submitted
// value affects the tracked quantity
type InventoryAction string

const (
	ActionNone     InventoryAction = "none"
	ActionAdd      InventoryAction = "add"
	ActionSubtract InventoryAction = "subtract"
	ActionSet      InventoryAction = "set"
)

// FieldSpec is one declared form field. Specs are produced by form-design
// tooling and are read-only here; the inventory action is never inferred
// from the field type.
type FieldSpec struct {
	ID              string          `json:"id"`
	Label           string          `json:"label"`
	Type            FieldType       `json:"type"`
	Required        bool            `json:"required"`
	Formula         string          `json:"formula,omitempty"`
	InventoryAction InventoryAction `json:"inventory_action"`
}

// DisplayName returns the label, falling back to the id for unlabeled fields
func (f FieldSpec) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.ID
}

// ValueKind tags the scalar kind of a submitted value
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueNumber
	ValueText
)

// Value is a submitted scalar: a number, free text, or empty. Coercion from
// raw input happens once, in ParseValue, so the rest of the pipeline never
// re-guesses types.
type Value struct {
	kind ValueKind
	num  decimal.Decimal
	text string
}

// EmptyValue returns the empty value
func EmptyValue() Value {
	return Value{kind: ValueEmpty}
}

// NumberValue wraps a decimal as a submitted value
func NumberValue(n decimal.Decimal) Value {
	return Value{kind: ValueNumber, num: n}
}

// NumberValueFromFloat wraps a float as a submitted value
func NumberValueFromFloat(n float64) Value {
	return Value{kind: ValueNumber, num: decimal.NewFromFloat(n)}
}

// TextValue wraps free text as a submitted value
func TextValue(s string) Value {
	return Value{kind: ValueText, text: s}
}

// ParseValue coerces one raw submitted scalar. Blank input is Empty, input
// that parses as a decimal is Number, anything else stays Text.
func ParseValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EmptyValue()
	}
	if n, err := decimal.NewFromString(trimmed); err == nil {
		return NumberValue(n)
	}
	return TextValue(raw)
}

// Kind returns the value's kind tag
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsEmpty reports whether the value is absent or blank
func (v Value) IsEmpty() bool {
	return v.kind == ValueEmpty
}

// Number returns the numeric value; ok is false for empty or text values
func (v Value) Number() (decimal.Decimal, bool) {
	if v.kind != ValueNumber {
		return decimal.Zero, false
	}
	return v.num, true
}

// Text returns the text value; ok is false for empty or numeric values
func (v Value) Text() (string, bool) {
	if v.kind != ValueText {
		return "", false
	}
	return v.text, true
}

// Values maps field id to its submitted value for one submission
type Values map[string]Value

// Get returns the value for a field id, or Empty when absent
func (v Values) Get(id string) Value {
	if val, ok := v[id]; ok {
		return val
	}
	return EmptyValue()
}

// ParseValues coerces a raw string map into typed values
func ParseValues(raw map[string]string) Values {
	values := make(Values, len(raw))
	for id, s := range raw {
		values[id] = ParseValue(s)
	}
	return values
}

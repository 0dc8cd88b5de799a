package reconcile

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assettrack/backend/internal/domain/formula"
)

// HistoryEntry is one prior quantity observation, newest first when passed
// as recent history
type HistoryEntry struct {
	Quantity   decimal.Decimal
	RecordedAt time.Time
}

// Input carries everything one reconciliation needs. The caller supplies
// the current quantity; per-asset serialization against concurrent
// submissions is the persistence layer's concern, not this calculator's.
type Input struct {
	CurrentQuantity decimal.Decimal
	Fields          []FieldSpec
	Values          Values
	AssetMetadata   map[string]string
	RecentHistory   []HistoryEntry
}

// Calculator reconciles a submission against the current quantity and
// produces an auditable change ledger. It is stateless apart from the
// formula compile cache and safe for concurrent use.
type Calculator struct {
	evaluator *formula.Evaluator
	policy    Policy
	now       func() time.Time
}

// CalculatorOption configures a Calculator
type CalculatorOption func(*Calculator)

// WithPolicy overrides the business-rule thresholds
func WithPolicy(p Policy) CalculatorOption {
	return func(c *Calculator) { c.policy = p }
}

// WithClock overrides the audit timestamp source
func WithClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) { c.now = now }
}

// NewCalculator creates a calculator. A nil evaluator gets a private one
// with a default compile cache.
func NewCalculator(evaluator *formula.Evaluator, opts ...CalculatorOption) *Calculator {
	if evaluator == nil {
		evaluator = formula.NewEvaluator(nil)
	}
	c := &Calculator{
		evaluator: evaluator,
		policy:    DefaultPolicy(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate runs one reconciliation. Validation failures land in
// result.Errors and clear Success; nothing escapes as a panic, internal
// faults are normalized into a single generic error entry.
func (c *Calculator) Calculate(input Input) (result CalculationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = CalculationResult{
				Success:     false,
				NewQuantity: input.CurrentQuantity,
				Errors:      []string{fmt.Sprintf("internal calculation failure: %v", r)},
				Metadata:    Metadata{CalculatedAt: c.now()},
			}
		}
	}()

	var errors, warnings []string

	// Step 1: schema validation
	for _, f := range input.Fields {
		v := input.Values.Get(f.ID)
		if f.Required && v.IsEmpty() {
			errors = append(errors, fmt.Sprintf("required field %q has no value", f.DisplayName()))
		}
		if f.Type == FieldTypeNumber && !v.IsEmpty() {
			if _, ok := v.Number(); !ok {
				errors = append(errors, fmt.Sprintf("field %q must be numeric", f.DisplayName()))
			}
		}
		if f.Type == FieldTypeCalculated && strings.TrimSpace(f.Formula) == "" {
			warnings = append(warnings, fmt.Sprintf("calculated field %q has no formula", f.DisplayName()))
		}
	}
	if len(errors) > 0 {
		return CalculationResult{
			Success:     false,
			NewQuantity: input.CurrentQuantity,
			Errors:      errors,
			Warnings:    warnings,
			Metadata:    Metadata{CalculatedAt: c.now(), NetChange: decimal.Zero},
		}
	}

	// Step 2: resolve numeric field values, evaluating calculated fields
	// in schema order so later formulas can reference earlier results
	numeric, metadataConsulted := c.resolveNumericValues(input, &errors, &warnings)

	// Step 3: action resolution. A set field is authoritative and
	// suppresses every add/subtract in the same submission.
	newQuantity, changes := c.applyActions(input, numeric, &warnings)

	// Step 4: business-rule validation, advisory only
	c.applyPolicyChecks(input, newQuantity, &warnings)

	// Step 5: audit metadata
	fieldsUsed := make([]string, 0, len(changes))
	for _, ch := range changes {
		fieldsUsed = append(fieldsUsed, ch.Field)
	}
	result = CalculationResult{
		Success:     len(errors) == 0,
		NewQuantity: newQuantity,
		Changes:     changes,
		Errors:      errors,
		Warnings:    warnings,
		Metadata: Metadata{
			CalculatedAt:      c.now(),
			FieldsUsed:        fieldsUsed,
			NetChange:         newQuantity.Sub(input.CurrentQuantity),
			MetadataConsulted: metadataConsulted,
		},
	}
	return result
}

// resolveNumericValues returns each field's effective numeric value and
// which asset-metadata keys were consulted by formulas.
func (c *Calculator) resolveNumericValues(input Input, errors, warnings *[]string) (map[string]decimal.Decimal, []string) {
	numeric := make(map[string]decimal.Decimal, len(input.Fields))
	binding := formula.NewBinding()

	for id, v := range input.Values {
		if n, ok := v.Number(); ok {
			binding.SetField(id, n.InexactFloat64())
		}
	}
	for _, f := range input.Fields {
		if n, ok := input.Values.Get(f.ID).Number(); ok {
			binding.SetLabel(f.Label, n.InexactFloat64())
		}
	}
	metadataNumeric := make(map[string]bool, len(input.AssetMetadata))
	for key, raw := range input.AssetMetadata {
		if v := ParseValue(raw); v.Kind() == ValueNumber {
			n, _ := v.Number()
			binding.SetMapped("asset", key, n.InexactFloat64())
			binding.SetMappedLabel("asset", key, n.InexactFloat64())
			metadataNumeric[key] = true
		}
	}

	var consulted []string
	consultedSeen := make(map[string]bool)

	for _, f := range input.Fields {
		if f.Type == FieldTypeCalculated && strings.TrimSpace(f.Formula) != "" {
			program, err := c.evaluator.Compile(f.Formula)
			if err != nil {
				*errors = append(*errors, fmt.Sprintf("formula for %q failed: %s", f.DisplayName(), err.Error()))
				continue
			}
			value, unresolved := program.Eval(binding.Lookup)
			for _, ref := range unresolved {
				*warnings = append(*warnings, fmt.Sprintf("formula for %q: reference %s has no value, used 0", f.DisplayName(), ref))
			}
			for _, ref := range program.Refs() {
				if key, ok := strings.CutPrefix(ref.Key, "asset."); ok && metadataNumeric[key] && !consultedSeen[key] {
					consultedSeen[key] = true
					consulted = append(consulted, key)
				}
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				*errors = append(*errors, fmt.Sprintf("formula for %q produced a non-finite value", f.DisplayName()))
				continue
			}
			d := decimal.NewFromFloat(value)
			numeric[f.ID] = d
			binding.SetField(f.ID, value)
			binding.SetLabel(f.Label, value)
			continue
		}
		if n, ok := input.Values.Get(f.ID).Number(); ok {
			numeric[f.ID] = n
		}
	}
	return numeric, consulted
}

// applyActions computes the new quantity and the change ledger
func (c *Calculator) applyActions(input Input, numeric map[string]decimal.Decimal, warnings *[]string) (decimal.Decimal, []InventoryChange) {
	current := input.CurrentQuantity

	// First set field in schema order wins
	for _, f := range input.Fields {
		if f.InventoryAction != ActionSet {
			continue
		}
		setValue, ok := numeric[f.ID]
		if !ok {
			continue
		}
		newQuantity := setValue
		if newQuantity.IsNegative() {
			*warnings = append(*warnings, fmt.Sprintf("quantity clamped to 0, set value was %s", newQuantity.String()))
			newQuantity = decimal.Zero
		}
		previous := current
		diff := current.Sub(newQuantity)
		var implied string
		switch {
		case diff.IsPositive():
			implied = fmt.Sprintf("implied usage of %s", diff.String())
		case diff.IsNegative():
			implied = fmt.Sprintf("implied addition of %s", diff.Neg().String())
		default:
			implied = "no change"
		}
		change := InventoryChange{
			Field:         f.DisplayName(),
			Action:        ActionSet,
			Value:         newQuantity,
			PreviousValue: &previous,
			Description:   fmt.Sprintf("%s set quantity to %s (%s)", f.DisplayName(), newQuantity.String(), implied),
			Formula:       f.Formula,
		}
		return newQuantity, []InventoryChange{change}
	}

	// No set: accumulate add/subtract deltas in schema order
	running := current
	var changes []InventoryChange
	for _, f := range input.Fields {
		if f.InventoryAction != ActionAdd && f.InventoryAction != ActionSubtract {
			continue
		}
		value, ok := numeric[f.ID]
		if !ok || value.IsZero() {
			continue
		}
		previous := running
		var description string
		if f.InventoryAction == ActionAdd {
			running = running.Add(value)
			description = fmt.Sprintf("%s added %s", f.DisplayName(), value.String())
		} else {
			running = running.Sub(value)
			description = fmt.Sprintf("%s used %s", f.DisplayName(), value.String())
		}
		changes = append(changes, InventoryChange{
			Field:         f.DisplayName(),
			Action:        f.InventoryAction,
			Value:         value,
			PreviousValue: &previous,
			Description:   description,
			Formula:       f.Formula,
		})
	}
	if running.IsNegative() {
		*warnings = append(*warnings, fmt.Sprintf("quantity clamped to 0, calculated value was %s", running.String()))
		running = decimal.Zero
	}
	return running, changes
}

// applyPolicyChecks raises advisory warnings for suspicious swings
func (c *Calculator) applyPolicyChecks(input Input, newQuantity decimal.Decimal, warnings *[]string) {
	current := input.CurrentQuantity
	absDelta := newQuantity.Sub(current).Abs()
	if absDelta.IsZero() {
		return
	}

	if current.IsZero() {
		if absDelta.GreaterThan(c.policy.LargeChangeFromZero) {
			*warnings = append(*warnings, fmt.Sprintf("large change from empty stock: %s", absDelta.String()))
		}
	} else {
		ratio := absDelta.Div(current.Abs())
		if ratio.GreaterThan(c.policy.LargeChangeRatio) {
			pct := ratio.Mul(decimal.NewFromInt(100)).Round(1)
			*warnings = append(*warnings, fmt.Sprintf("large change: %s%% of current quantity", pct.String()))
		}
		if ratio.GreaterThan(c.policy.ReviewRatio) {
			*warnings = append(*warnings, "change exceeds review threshold, consider collecting validation notes before saving")
		}
	}

	// Compare against the average absolute delta across recent history
	window := input.RecentHistory
	if c.policy.HistoryWindow > 0 && len(window) > c.policy.HistoryWindow {
		window = window[:c.policy.HistoryWindow]
	}
	if len(window) < 2 {
		return
	}
	sum := decimal.Zero
	for i := 0; i < len(window)-1; i++ {
		sum = sum.Add(window[i].Quantity.Sub(window[i+1].Quantity).Abs())
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(window) - 1)))
	if avg.IsPositive() && absDelta.GreaterThan(avg.Mul(c.policy.HistoryDeltaMultiplier)) {
		*warnings = append(*warnings, fmt.Sprintf("change of %s is unusual versus recent history (average delta %s)", absDelta.String(), avg.Round(2).String()))
	}
}

package reconcile

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalculator(opts ...CalculatorOption) *Calculator {
	return NewCalculator(nil, opts...)
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func TestCalculate_SubtractScenario(t *testing.T) {
	calc := newTestCalculator()

	result := calc.Calculate(Input{
		CurrentQuantity: dec(20),
		Fields: []FieldSpec{
			{ID: "used", Label: "Used", Type: FieldTypeNumber, InventoryAction: ActionSubtract},
		},
		Values: Values{"used": NumberValueFromFloat(3)},
	})

	require.True(t, result.Success)
	assert.True(t, result.NewQuantity.Equal(dec(17)), "got %s", result.NewQuantity)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, ActionSubtract, result.Changes[0].Action)
	assert.True(t, result.Changes[0].Value.Equal(dec(3)))
	assert.True(t, result.Metadata.NetChange.Equal(dec(-3)))
}

func TestCalculate_SetSuppressesAdditiveFields(t *testing.T) {
	calc := newTestCalculator()

	result := calc.Calculate(Input{
		CurrentQuantity: dec(17),
		Fields: []FieldSpec{
			{ID: "counted", Label: "Counted", Type: FieldTypeNumber, InventoryAction: ActionSet},
			{ID: "received", Label: "Received", Type: FieldTypeNumber, InventoryAction: ActionAdd},
		},
		Values: Values{
			"counted":  NumberValueFromFloat(15),
			"received": NumberValueFromFloat(5),
		},
	})

	require.True(t, result.Success)
	assert.True(t, result.NewQuantity.Equal(dec(15)))
	require.Len(t, result.Changes, 1)
	assert.Equal(t, ActionSet, result.Changes[0].Action)
	assert.Contains(t, result.Changes[0].Description, "implied usage of 2")
}

func TestCalculate_SetPriorityAcrossOrderings(t *testing.T) {
	calc := newTestCalculator()
	rng := rand.New(rand.NewSource(42))

	fields := []FieldSpec{
		{ID: "counted", Label: "Counted", Type: FieldTypeNumber, InventoryAction: ActionSet},
		{ID: "received", Label: "Received", Type: FieldTypeNumber, InventoryAction: ActionAdd},
		{ID: "used", Label: "Used", Type: FieldTypeNumber, InventoryAction: ActionSubtract},
	}
	values := Values{
		"counted":  NumberValueFromFloat(40),
		"received": NumberValueFromFloat(9),
		"used":     NumberValueFromFloat(4),
	}

	for i := 0; i < 20; i++ {
		shuffled := make([]FieldSpec, len(fields))
		copy(shuffled, fields)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		result := calc.Calculate(Input{
			CurrentQuantity: dec(25),
			Fields:          shuffled,
			Values:          values,
		})
		require.True(t, result.Success)
		assert.True(t, result.NewQuantity.Equal(dec(40)), "ordering %d: got %s", i, result.NewQuantity)
		assert.Len(t, result.Changes, 1)
	}
}

func TestCalculate_SetIdempotence(t *testing.T) {
	calc := newTestCalculator()
	input := Input{
		CurrentQuantity: dec(30),
		Fields: []FieldSpec{
			{ID: "counted", Label: "Counted", Type: FieldTypeNumber, InventoryAction: ActionSet},
		},
		Values: Values{"counted": NumberValueFromFloat(30)},
	}

	first := calc.Calculate(input)
	require.True(t, first.Success)
	assert.True(t, first.NewQuantity.Equal(dec(30)))

	input.CurrentQuantity = first.NewQuantity
	second := calc.Calculate(input)
	require.True(t, second.Success)
	assert.True(t, second.NewQuantity.Equal(dec(30)))
	require.Len(t, second.Changes, 1)
	assert.Contains(t, second.Changes[0].Description, "no change")
}

func TestCalculate_NonNegativity(t *testing.T) {
	calc := newTestCalculator()

	t.Run("subtraction clamps at zero with warning", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(5),
			Fields: []FieldSpec{
				{ID: "used", Label: "Used", Type: FieldTypeNumber, InventoryAction: ActionSubtract},
			},
			Values: Values{"used": NumberValueFromFloat(8)},
		})

		require.True(t, result.Success)
		assert.True(t, result.NewQuantity.IsZero())
		require.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0], "-3")
	})

	t.Run("negative set value clamps at zero", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(5),
			Fields: []FieldSpec{
				{ID: "counted", Label: "Counted", Type: FieldTypeNumber, InventoryAction: ActionSet},
			},
			Values: Values{"counted": NumberValueFromFloat(-2)},
		})

		require.True(t, result.Success)
		assert.True(t, result.NewQuantity.IsZero())
		assert.NotEmpty(t, result.Warnings)
	})

	t.Run("exact depletion carries no warning", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(5),
			Fields: []FieldSpec{
				{ID: "used", Label: "Used", Type: FieldTypeNumber, InventoryAction: ActionSubtract},
			},
			Values: Values{"used": NumberValueFromFloat(5)},
		})

		require.True(t, result.Success)
		assert.True(t, result.NewQuantity.IsZero())
		for _, w := range result.Warnings {
			assert.NotContains(t, w, "clamped")
		}
	})
}

func TestCalculate_Validation(t *testing.T) {
	calc := newTestCalculator()

	t.Run("missing required field blocks success", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(10),
			Fields: []FieldSpec{
				{ID: "used", Label: "Used", Type: FieldTypeNumber, Required: true, InventoryAction: ActionSubtract},
			},
			Values: Values{},
		})

		assert.False(t, result.Success)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "Used")
		assert.True(t, result.NewQuantity.Equal(dec(10)), "quantity must be untouched on failure")
	})

	t.Run("non-numeric value in a number field blocks success", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(10),
			Fields: []FieldSpec{
				{ID: "used", Label: "Used", Type: FieldTypeNumber, InventoryAction: ActionSubtract},
			},
			Values: Values{"used": TextValue("three")},
		})

		assert.False(t, result.Success)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "numeric")
	})

	t.Run("calculated field without formula is a warning only", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(10),
			Fields: []FieldSpec{
				{ID: "net", Label: "Net", Type: FieldTypeCalculated, InventoryAction: ActionNone},
			},
			Values: Values{},
		})

		assert.True(t, result.Success)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "no formula")
	})
}

func TestCalculate_CalculatedFields(t *testing.T) {
	calc := newTestCalculator()

	t.Run("formula result drives the action", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(50),
			Fields: []FieldSpec{
				{ID: "boxes", Label: "Boxes", Type: FieldTypeNumber, InventoryAction: ActionNone},
				{ID: "per_box", Label: "Units Per Box", Type: FieldTypeNumber, InventoryAction: ActionNone},
				{ID: "received", Label: "Received", Type: FieldTypeCalculated, Formula: "{boxes} * {per_box}", InventoryAction: ActionAdd},
			},
			Values: Values{
				"boxes":   NumberValueFromFloat(3),
				"per_box": NumberValueFromFloat(12),
			},
		})

		require.True(t, result.Success, "errors: %v", result.Errors)
		assert.True(t, result.NewQuantity.Equal(dec(86)), "got %s", result.NewQuantity)
		require.Len(t, result.Changes, 1)
		assert.Equal(t, "{boxes} * {per_box}", result.Changes[0].Formula)
	})

	t.Run("later formulas can reference earlier calculated fields", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(0),
			Fields: []FieldSpec{
				{ID: "a", Label: "A", Type: FieldTypeNumber, InventoryAction: ActionNone},
				{ID: "double", Label: "Double", Type: FieldTypeCalculated, Formula: "{a} * 2", InventoryAction: ActionNone},
				{ID: "quad", Label: "Quad", Type: FieldTypeCalculated, Formula: "{double} * 2", InventoryAction: ActionSet},
			},
			Values: Values{"a": NumberValueFromFloat(5)},
		})

		require.True(t, result.Success, "errors: %v", result.Errors)
		assert.True(t, result.NewQuantity.Equal(dec(20)))
	})

	t.Run("broken formula becomes a result error, not a panic", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(10),
			Fields: []FieldSpec{
				{ID: "bad", Label: "Bad", Type: FieldTypeCalculated, Formula: "1 +", InventoryAction: ActionAdd},
			},
			Values: Values{},
		})

		assert.False(t, result.Success)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "Bad")
	})

	t.Run("unresolved reference defaults to zero with a warning", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(10),
			Fields: []FieldSpec{
				{ID: "net", Label: "Net", Type: FieldTypeCalculated, Formula: "{missing} + 4", InventoryAction: ActionAdd},
			},
			Values: Values{},
		})

		require.True(t, result.Success, "errors: %v", result.Errors)
		assert.True(t, result.NewQuantity.Equal(dec(14)))
		require.NotEmpty(t, result.Warnings)
		assert.Contains(t, result.Warnings[0], "{missing}")
	})

	t.Run("non-finite formula result is an error", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(10),
			Fields: []FieldSpec{
				{ID: "ratio", Label: "Ratio", Type: FieldTypeCalculated, Formula: "1 / 0", InventoryAction: ActionAdd},
			},
			Values: Values{},
		})

		assert.False(t, result.Success)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "non-finite")
	})

	t.Run("asset metadata is reachable and recorded as consulted", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(0),
			Fields: []FieldSpec{
				{ID: "refill", Label: "Refill", Type: FieldTypeCalculated, Formula: "{asset.capacity} / 2", InventoryAction: ActionSet},
			},
			Values:        Values{},
			AssetMetadata: map[string]string{"capacity": "80", "color": "red"},
		})

		require.True(t, result.Success, "errors: %v", result.Errors)
		assert.True(t, result.NewQuantity.Equal(dec(40)))
		assert.Equal(t, []string{"capacity"}, result.Metadata.MetadataConsulted)
	})
}

func TestCalculate_PolicyWarnings(t *testing.T) {
	calc := newTestCalculator()

	t.Run("large relative change", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(100),
			Fields: []FieldSpec{
				{ID: "received", Label: "Received", Type: FieldTypeNumber, InventoryAction: ActionAdd},
			},
			Values: Values{"received": NumberValueFromFloat(80)},
		})

		require.True(t, result.Success)
		assert.Contains(t, result.Warnings[0], "80%")
		// 80% also exceeds the 30% review threshold
		assert.Len(t, result.Warnings, 2)
	})

	t.Run("moderate change stays quiet", func(t *testing.T) {
		result := calc.Calculate(Input{
			CurrentQuantity: dec(100),
			Fields: []FieldSpec{
				{ID: "used", Label: "Used", Type: FieldTypeNumber, InventoryAction: ActionSubtract},
			},
			Values: Values{"used": NumberValueFromFloat(10)},
		})

		require.True(t, result.Success)
		assert.Empty(t, result.Warnings)
	})

	t.Run("delta unusual versus recent history", func(t *testing.T) {
		now := time.Now()
		result := calc.Calculate(Input{
			CurrentQuantity: dec(100),
			Fields: []FieldSpec{
				{ID: "used", Label: "Used", Type: FieldTypeNumber, InventoryAction: ActionSubtract},
			},
			Values: Values{"used": NumberValueFromFloat(30)},
			RecentHistory: []HistoryEntry{
				{Quantity: dec(100), RecordedAt: now.AddDate(0, 0, -1)},
				{Quantity: dec(105), RecordedAt: now.AddDate(0, 0, -2)},
				{Quantity: dec(101), RecordedAt: now.AddDate(0, 0, -3)},
				{Quantity: dec(106), RecordedAt: now.AddDate(0, 0, -4)},
			},
		})

		require.True(t, result.Success)
		found := false
		for _, w := range result.Warnings {
			if strings.Contains(w, "unusual") {
				found = true
			}
		}
		assert.True(t, found, "warnings: %v", result.Warnings)
	})
}

func TestCalculate_CustomPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.LargeChangeRatio = decimal.NewFromFloat(0.1)
	policy.ReviewRatio = decimal.NewFromFloat(0.9)
	calc := newTestCalculator(WithPolicy(policy))

	result := calc.Calculate(Input{
		CurrentQuantity: dec(100),
		Fields: []FieldSpec{
			{ID: "used", Label: "Used", Type: FieldTypeNumber, InventoryAction: ActionSubtract},
		},
		Values: Values{"used": NumberValueFromFloat(20)},
	})

	require.True(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "large change")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, ValueEmpty, ParseValue("").Kind())
	assert.Equal(t, ValueEmpty, ParseValue("   ").Kind())
	assert.Equal(t, ValueNumber, ParseValue("12.5").Kind())
	assert.Equal(t, ValueNumber, ParseValue(" -3 ").Kind())
	assert.Equal(t, ValueText, ParseValue("about ten").Kind())

	n, ok := ParseValue("12.5").Number()
	require.True(t, ok)
	assert.True(t, n.Equal(dec(12.5)))
}

package anomaly

import (
	"math"
	"strings"
)

// Category is the asset category driving threshold selection. Free-text
// asset types are normalized once through ParseCategory; unknown text maps
// to CategoryGeneral instead of silently picking arbitrary thresholds.
type Category string

const (
	CategoryPaint      Category = "paint"
	CategoryChemical   Category = "chemical"
	CategoryCoating    Category = "coating"
	CategoryParts      Category = "parts"
	CategoryHardware   Category = "hardware"
	CategoryConsumable Category = "consumable"
	CategoryGeneral    Category = "general"
)

// ParseCategory normalizes a free-text asset type to a category
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryPaint:
		return CategoryPaint
	case CategoryChemical:
		return CategoryChemical
	case CategoryCoating:
		return CategoryCoating
	case CategoryParts:
		return CategoryParts
	case CategoryHardware:
		return CategoryHardware
	case CategoryConsumable:
		return CategoryConsumable
	default:
		return CategoryGeneral
	}
}

// Thresholds are the per-category detection limits for one transition
type Thresholds struct {
	// MassiveIncreaseRatio is the current/previous ratio from which an
	// increase is treated as implausible for the category.
	MassiveIncreaseRatio float64

	// PercentageJumpRatio is the current/previous ratio from which a jump
	// is flagged even when the increase is otherwise explained.
	PercentageJumpRatio float64

	// UnexpectedIncreaseFloor is the absolute increase above which an
	// unexplained event type is flagged. Derived per call from the
	// previous quantity with a fixed minimum.
	UnexpectedIncreaseFloor float64
}

// categoryLimits holds the static part of the threshold table. Chemicals,
// paints and coatings are drawn down steadily, so big jumps are suspect
// earlier than for bulk parts or hardware.
var categoryLimits = map[Category]struct {
	massiveRatio float64
	jumpRatio    float64
	floorMinimum float64
}{
	CategoryPaint:      {massiveRatio: 5, jumpRatio: 3, floorMinimum: 20},
	CategoryChemical:   {massiveRatio: 5, jumpRatio: 3, floorMinimum: 20},
	CategoryCoating:    {massiveRatio: 5, jumpRatio: 3, floorMinimum: 20},
	CategoryParts:      {massiveRatio: 10, jumpRatio: 6, floorMinimum: 50},
	CategoryHardware:   {massiveRatio: 10, jumpRatio: 6, floorMinimum: 50},
	CategoryConsumable: {massiveRatio: 10, jumpRatio: 6, floorMinimum: 50},
	CategoryGeneral:    {massiveRatio: 8, jumpRatio: 4, floorMinimum: 30},
}

// ThresholdsFor derives the detection thresholds for a category and the
// quantity the transition started from
func ThresholdsFor(category Category, previousQuantity float64) Thresholds {
	limits, ok := categoryLimits[category]
	if !ok {
		limits = categoryLimits[CategoryGeneral]
	}
	return Thresholds{
		MassiveIncreaseRatio:    limits.massiveRatio,
		PercentageJumpRatio:     limits.jumpRatio,
		UnexpectedIncreaseFloor: math.Max(previousQuantity*0.5, limits.floorMinimum),
	}
}

package anomaly

import (
	"fmt"
	"math"
	"strconv"
)

// allowedIncreaseEvents are event types that legitimately explain a large
// quantity increase
var allowedIncreaseEvents = map[string]bool{
	"intake":   true,
	"addition": true,
	"transfer": true,
}

// Detector flags suspicious quantity transitions. It is purely advisory,
// never mutates quantities, and is stateless and safe for concurrent use.
type Detector struct{}

// NewDetector creates an anomaly detector
func NewDetector() *Detector {
	return &Detector{}
}

// Detect inspects the transition from previous to current and returns zero
// or more detections. Output ordering is not significant; each entry stands
// alone and callers may filter by severity or confidence.
func (d *Detector) Detect(current, previous Event, category Category, recent []Event) []Detection {
	t := ThresholdsFor(category, previous.Quantity)
	var detections []Detection

	detections = append(detections, d.detectDigitErrors(current, previous)...)
	detections = append(detections, d.detectUnexpectedIncrease(current, previous, t)...)
	detections = append(detections, d.detectPercentageJump(current, previous, t)...)
	detections = append(detections, d.detectSystematicPattern(recent, t)...)

	return detections
}

// detectDigitErrors covers the three data-entry patterns seen in practice:
// an extra trailing digit (10x), a stray leading 1, and a delta of exactly
// 100 or 1000. Only exact matches are auto-fixable; near misses are flagged
// for a human.
func (d *Detector) detectDigitErrors(current, previous Event) []Detection {
	var detections []Detection

	if previous.Quantity > 0 && current.Quantity > previous.Quantity {
		ratio := current.Quantity / previous.Quantity

		if ratio >= 9.5 && ratio <= 10.5 {
			fix := current.Quantity / 10
			confidence := 85
			if ratio == 10 {
				confidence = 95
			}
			detections = append(detections, Detection{
				Type:         TypeMassiveIncrease,
				Severity:     SeverityCritical,
				Message:      fmt.Sprintf("quantity jumped from %s to %s (%.1fx), likely an extra digit", formatQty(previous.Quantity), formatQty(current.Quantity), ratio),
				Confidence:   confidence,
				AutoFixable:  true,
				SuggestedFix: &fix,
			})
		} else if stripped, ok := stripLeadingOne(current.Quantity); ok && math.Abs(stripped-previous.Quantity) <= 5 {
			exact := stripped == previous.Quantity
			confidence := 75
			if exact {
				confidence = 90
			}
			detections = append(detections, Detection{
				Type:         TypeMassiveIncrease,
				Severity:     SeverityHigh,
				Message:      fmt.Sprintf("quantity %s looks like %s with a stray leading 1", formatQty(current.Quantity), formatQty(stripped)),
				Confidence:   confidence,
				AutoFixable:  exact,
				SuggestedFix: &stripped,
			})
		}
	}

	delta := math.Abs(current.Quantity - previous.Quantity)
	if delta == 100 || delta == 1000 {
		fix := previous.Quantity
		detections = append(detections, Detection{
			Type:         TypeExactHundred,
			Severity:     SeverityMedium,
			Message:      fmt.Sprintf("quantity changed by exactly %s, a common slip on round numbers", formatQty(delta)),
			Confidence:   80,
			AutoFixable:  true,
			SuggestedFix: &fix,
		})
	}

	return detections
}

// detectUnexpectedIncrease flags increases past the floor whose event type
// does not explain new stock arriving. No fix is suggested; this needs
// human judgement, not arithmetic correction.
func (d *Detector) detectUnexpectedIncrease(current, previous Event, t Thresholds) []Detection {
	delta := current.Quantity - previous.Quantity
	if delta <= t.UnexpectedIncreaseFloor || allowedIncreaseEvents[current.EventType] {
		return nil
	}
	return []Detection{{
		Type:       TypeUnexpectedIncrease,
		Severity:   SeverityMedium,
		Message:    fmt.Sprintf("quantity increased by %s but event type %q does not explain new stock", formatQty(delta), current.EventType),
		Confidence: 60,
	}}
}

// detectPercentageJump flags ratios beyond the category threshold, with
// severity and confidence scaling as the ratio runs further past it
func (d *Detector) detectPercentageJump(current, previous Event, t Thresholds) []Detection {
	if previous.Quantity <= 0 {
		return nil
	}
	ratio := current.Quantity / previous.Quantity
	if ratio <= t.PercentageJumpRatio {
		return nil
	}

	severity := SeverityHigh
	if ratio > 2*t.PercentageJumpRatio {
		severity = SeverityCritical
	}
	confidence := 50 + int((ratio-t.PercentageJumpRatio)*10)
	if confidence > 95 {
		confidence = 95
	}
	detections := []Detection{{
		Type:       TypePercentageJump,
		Severity:   severity,
		Message:    fmt.Sprintf("quantity grew %.1fx against a threshold of %.1fx for this category", ratio, t.PercentageJumpRatio),
		Confidence: confidence,
	}}

	// Past the massive threshold but outside the 10x band: flagged, not
	// auto-fixable, since no single digit error explains it
	if ratio >= t.MassiveIncreaseRatio && !(ratio >= 9.5 && ratio <= 10.5) {
		confidence := 40 + int((ratio-t.MassiveIncreaseRatio)*5)
		if confidence > 90 {
			confidence = 90
		}
		detections = append(detections, Detection{
			Type:       TypeMassiveIncrease,
			Severity:   SeverityCritical,
			Message:    fmt.Sprintf("implausible increase of %.1fx for this category", ratio),
			Confidence: confidence,
		})
	}
	return detections
}

// detectSystematicPattern raises one extra flag when three or more of the
// recent events by the same actor are individually suspicious
func (d *Detector) detectSystematicPattern(recent []Event, t Thresholds) []Detection {
	suspiciousByActor := make(map[string]int)
	for i := 0; i+1 < len(recent); i++ {
		cur, prev := recent[i], recent[i+1]
		if cur.ActorID == "" {
			continue
		}
		if isSuspiciousTransition(cur, prev, t) {
			suspiciousByActor[cur.ActorID]++
		}
	}
	for actor, count := range suspiciousByActor {
		if count >= 3 {
			return []Detection{{
				Type:       TypeSystematicError,
				Severity:   SeverityMedium,
				Message:    fmt.Sprintf("%d suspicious entries by the same actor %s in recent history", count, actor),
				Confidence: 70,
			}}
		}
	}
	return nil
}

func isSuspiciousTransition(current, previous Event, t Thresholds) bool {
	if previous.Quantity > 0 && current.Quantity/previous.Quantity > t.PercentageJumpRatio {
		return true
	}
	delta := current.Quantity - previous.Quantity
	return delta > t.UnexpectedIncreaseFloor && !allowedIncreaseEvents[current.EventType]
}

func stripLeadingOne(v float64) (float64, bool) {
	if v < 100 || v != math.Trunc(v) {
		return 0, false
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if s[0] != '1' {
		return 0, false
	}
	stripped, err := strconv.ParseFloat(s[1:], 64)
	if err != nil {
		return 0, false
	}
	return stripped, true
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

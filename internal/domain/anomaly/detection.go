package anomaly

import (
	"time"
)

// Type classifies a flagged concern about a quantity transition
type Type string

const (
	TypeMassiveIncrease    Type = "massive_increase"
	TypeExactHundred       Type = "exact_hundred"
	TypeUnexpectedIncrease Type = "unexpected_increase"
	TypePercentageJump     Type = "percentage_jump"
	TypeSeasonalAnomaly    Type = "seasonal_anomaly"
	TypeSystematicError    Type = "systematic_error"
)

// Severity grades how serious the concern is if true
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the severity's ordinal for sorting and comparison
func (s Severity) Rank() int {
	return severityRank[s]
}

// Detection is one advisory flag on a quantity transition. Detections never
// mutate quantities; AutoFixable marks fixes a separate accept operation may
// apply, and every auto-fixable detection carries its SuggestedFix.
type Detection struct {
	Type         Type     `json:"type"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Confidence   int      `json:"confidence"`
	AutoFixable  bool     `json:"auto_fixable"`
	SuggestedFix *float64 `json:"suggested_fix,omitempty"`
}

// Event is one quantity observation as seen by the detector
type Event struct {
	Quantity   float64
	EventType  string
	ActorID    string
	RecordedAt time.Time
}

// MaxSeverity returns the highest severity among detections, or "" for none
func MaxSeverity(detections []Detection) Severity {
	var max Severity
	for _, d := range detections {
		if d.Severity.Rank() > max.Rank() {
			max = d.Severity
		}
	}
	return max
}

// MaxConfidence returns the highest confidence among detections
func MaxConfidence(detections []Detection) int {
	max := 0
	for _, d := range detections {
		if d.Confidence > max {
			max = d.Confidence
		}
	}
	return max
}

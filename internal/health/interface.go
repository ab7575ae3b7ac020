package health

import (
	"github.com/diskvigil/diskvigil/internal/smart"
)

// Trend is the direction the failure indicators are moving in.
type Trend string

const (
	TrendImproving    Trend = "improving"
	TrendStable       Trend = "stable"
	TrendDeclining    Trend = "declining"
	TrendRapidDecline Trend = "rapid_decline"
)

// RiskTier buckets the failure probability for display and policy decisions.
type RiskTier string

const (
	TierLow      RiskTier = "Low"
	TierMedium   RiskTier = "Medium"
	TierHigh     RiskTier = "High"
	TierCritical RiskTier = "Critical"
)

// ConfidenceInterval is the symmetric band around the days-to-failure
// estimate.
type ConfidenceInterval struct {
	LowerDays  int
	UpperDays  int
	CenterDays int
}

// KeyFactor is one attribute contributing materially to the failure risk.
type KeyFactor struct {
	Attribute    string
	SmartID      smart.AttributeID
	CurrentValue float64
	Change7Days  float64
	Impact       string
}

const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
)

// Assessment is the full prediction for one device. Produced fresh on every
// Predict call and never mutated afterwards. DaysToFailure and Confidence
// are nil when the failure probability is below the reporting floor.
type Assessment struct {
	FailureProbability      float64
	HealthScore             int
	RiskTier                RiskTier
	DaysToFailure           *int
	Confidence              *ConfidenceInterval
	KeyFactors              []KeyFactor
	Trend                   Trend
	InterventionRecommended bool
	ModelVersion            string
}

// Predictor turns an attribute history into a failure assessment.
type Predictor interface {
	Predict(history []smart.Snapshot) Assessment
}

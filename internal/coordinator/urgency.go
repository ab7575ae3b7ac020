package coordinator

import (
	"fmt"
	"math"

	"github.com/diskvigil/diskvigil/internal/health"
)

// UrgencyLevel buckets the backup urgency score for display.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// UrgencyFactor is one reason behind the urgency score.
type UrgencyFactor struct {
	Factor string
	Weight int
	Detail string
}

// Urgency translates a health assessment into a backup recommendation.
type Urgency struct {
	Score             float64
	Level             UrgencyLevel
	Message           string
	RecommendedAction string
	DaysRemaining     int
	Factors           []UrgencyFactor
}

// UrgencyFor scores how urgently the device's data should be backed up.
// The base score comes from the predicted days remaining, then worsening
// trend, low health and high failure probability scale it up.
func UrgencyFor(status CycleStatus) Urgency {
	assessment := status.Assessment

	days := 365
	if assessment.DaysToFailure != nil {
		days = *assessment.DaysToFailure
	}
	score := float64(assessment.HealthScore)

	var base float64
	switch {
	case days >= 180:
		base = 5
	case days >= 90:
		base = 15
	case days >= 60:
		base = 30
	case days >= 30:
		base = 50
	case days >= 14:
		base = 70
	case days >= 7:
		base = 85
	default:
		base = 97
	}

	multiplier := 1.0
	switch assessment.Trend {
	case health.TrendRapidDecline:
		multiplier *= 1.5
	case health.TrendDeclining:
		multiplier *= 1.2
	}
	if score < 30 {
		multiplier *= 1.4
	} else if score < 50 {
		multiplier *= 1.15
	}
	if assessment.FailureProbability > 0.7 {
		multiplier *= 1.3
	} else if assessment.FailureProbability > 0.4 {
		multiplier *= 1.1
	}

	urgency := math.Min(100, math.Round(base*multiplier*10)/10)

	var level UrgencyLevel
	var message, action string
	switch {
	case urgency >= 85:
		level = UrgencyCritical
		message = "Data at immediate risk"
		action = "Start emergency backup now"
	case urgency >= 60:
		level = UrgencyHigh
		message = "Backup required"
		action = "Backup within 24 hours"
	case urgency >= 30:
		level = UrgencyMedium
		message = "Backup recommended"
		action = "Schedule backup this week"
	default:
		level = UrgencyLow
		message = "Drive stable"
		action = "Regular backups sufficient"
	}

	return Urgency{
		Score:             urgency,
		Level:             level,
		Message:           message,
		RecommendedAction: action,
		DaysRemaining:     days,
		Factors:           urgencyFactors(assessment, days),
	}
}

func urgencyFactors(assessment health.Assessment, days int) []UrgencyFactor {
	var factors []UrgencyFactor

	score := assessment.HealthScore
	if score < 30 {
		factors = append(factors, UrgencyFactor{
			Factor: "Critical health score",
			Weight: 40,
			Detail: fmt.Sprintf("Score %d/100, severely degraded", score),
		})
	} else if score < 60 {
		factors = append(factors, UrgencyFactor{
			Factor: "Low health score",
			Weight: 25,
			Detail: fmt.Sprintf("Score %d/100, significant wear", score),
		})
	}

	if assessment.Trend == health.TrendRapidDecline || assessment.Trend == health.TrendDeclining {
		factors = append(factors, UrgencyFactor{
			Factor: "Declining trend",
			Weight: 30,
			Detail: fmt.Sprintf("Health is %s", assessment.Trend),
		})
	}

	if days < 30 {
		factors = append(factors, UrgencyFactor{
			Factor: "Low time remaining",
			Weight: 35,
			Detail: fmt.Sprintf("Only %d days predicted before failure", days),
		})
	}

	if assessment.FailureProbability > 0.4 {
		factors = append(factors, UrgencyFactor{
			Factor: "High failure probability",
			Weight: 25,
			Detail: fmt.Sprintf("%.0f%% failure chance in 30 days", assessment.FailureProbability*100),
		})
	}

	if len(factors) == 0 {
		factors = append(factors, UrgencyFactor{
			Factor: "Drive healthy",
			Weight: 5,
			Detail: "No significant risk factors detected",
		})
	}

	return factors
}

package health

import (
	"math"
	"sort"

	"github.com/diskvigil/diskvigil/internal/logger"
	"github.com/diskvigil/diskvigil/internal/smart"
)

// Service picks the model path when a valid artifact is available and the
// rule path otherwise. The choice is made once at construction; a failed
// artifact never gets retried.
type Service struct {
	cfg   Config
	model *model
}

// NewService loads the model artifact if one is configured. Loading or
// self-test failures are logged once and permanently disable the model
// path; prediction continues rule-based.
func NewService(cfg Config) *Service {
	cfg = cfg.withDefaults()
	s := &Service{cfg: cfg}

	if cfg.ModelPath == "" {
		logger.Debug().Msg("No model artifact configured, using rule-based scoring")
		return s
	}

	m, err := loadModel(cfg.ModelPath, cfg.NormParamsPath)
	if err != nil {
		logger.Warn().
			Str("model_path", cfg.ModelPath).
			Err(err).
			Msg("Model unavailable, falling back to rule-based scoring")
		return s
	}

	logger.Info().
		Str("model_path", cfg.ModelPath).
		Str("version", m.version()).
		Msg("Prediction model loaded")
	s.model = m
	return s
}

// Predict produces a fresh assessment from the attribute history. Fewer
// than 5 samples yields the fixed insufficient-data assessment.
func (s *Service) Predict(history []smart.Snapshot) Assessment {
	if len(history) < minSamples {
		return insufficientAssessment()
	}

	sequence := prepareSequence(history, s.cfg.Window)

	var probability float64
	var version string
	if s.model != nil {
		probability = s.model.infer(sequence)
		version = s.model.version()
	} else {
		probability = math.Min(1, ruleProbability(sequence)+accelerationPenalty(sequence)*accelerationWeight)
		version = "rule_based_fallback"
	}

	trend := computeTrend(sequence)
	days, confidence := probabilityToDays(probability)

	return Assessment{
		FailureProbability:      round4(probability),
		HealthScore:             healthScore(probability),
		RiskTier:                riskTier(probability),
		DaysToFailure:           days,
		Confidence:              confidence,
		KeyFactors:              keyFactors(sequence),
		Trend:                   trend,
		InterventionRecommended: probability > 0.3 || trend == TrendRapidDecline,
		ModelVersion:            version,
	}
}

// prepareSequence normalizes the history to exactly `window` rows of
// attribute values in canonical feature order, left-padding with the
// earliest sample when the history is short.
func prepareSequence(history []smart.Snapshot, window int) [][]float64 {
	if len(history) > window {
		history = history[len(history)-window:]
	}

	sequence := make([][]float64, 0, window)
	for len(sequence)+len(history) < window {
		sequence = append(sequence, featureRow(history[0]))
	}
	for _, snapshot := range history {
		sequence = append(sequence, featureRow(snapshot))
	}

	return sequence
}

func featureRow(snapshot smart.Snapshot) []float64 {
	row := make([]float64, len(smart.FeatureOrder))
	for i, id := range smart.FeatureOrder {
		row[i] = snapshot.Attributes[id]
	}
	return row
}

func healthScore(probability float64) int {
	score := int(math.Round((1 - probability) * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func riskTier(probability float64) RiskTier {
	switch {
	case probability >= 0.7:
		return TierCritical
	case probability >= 0.5:
		return TierHigh
	case probability >= 0.3:
		return TierMedium
	default:
		return TierLow
	}
}

// daysTable maps probability bands to a days-to-failure center, highest
// band first.
var daysTable = []struct {
	probability float64
	days        int
}{
	{0.95, 3},
	{0.9, 7},
	{0.8, 14},
	{0.7, 21},
	{0.6, 45},
	{0.5, 62},
	{0.4, 90},
	{0.3, 120},
	{0.2, 180},
	{0.1, 270},
}

// probabilityToDays converts a failure probability into a days estimate
// with a symmetric ±20% (min ±3 day) band. Below the reporting floor no
// estimate is given.
func probabilityToDays(probability float64) (*int, *ConfidenceInterval) {
	if probability < minReportingProbability {
		return nil, nil
	}

	center := 365
	for _, band := range daysTable {
		if probability >= band.probability {
			center = band.days
			break
		}
	}

	margin := int(float64(center) * 0.20)
	if margin < 3 {
		margin = 3
	}

	lower := center - margin
	if lower < 1 {
		lower = 1
	}

	days := center
	return &days, &ConfidenceInterval{
		LowerDays:  lower,
		UpperDays:  center + margin,
		CenterDays: center,
	}
}

// computeTrend fits a regression line through the last 7 samples of the
// two strongest failure indicators summed (reallocated sectors plus
// uncorrectable errors) and buckets the slope.
func computeTrend(sequence [][]float64) Trend {
	if len(sequence) < accelerationWindow {
		return TrendStable
	}

	recent := sequence[len(sequence)-accelerationWindow:]
	values := make([]float64, len(recent))
	for i, row := range recent {
		values[i] = row[0] + row[1]
	}

	slope := regressionSlope(values)
	switch {
	case slope < -0.5:
		return TrendImproving
	case slope < 0.5:
		return TrendStable
	case slope < 2.0:
		return TrendDeclining
	default:
		return TrendRapidDecline
	}
}

// regressionSlope is the least-squares slope of values against their index.
func regressionSlope(values []float64) float64 {
	n := float64(len(values))
	meanX := (n - 1) / 2

	var meanY float64
	for _, v := range values {
		meanY += v
	}
	meanY /= n

	var num, den float64
	for i, v := range values {
		dx := float64(i) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}

	return num / den
}

// factorThresholds are per-attribute alert thresholds in canonical feature
// order; a value above its threshold makes the attribute a key factor.
var factorThresholds = []float64{5, 0, 0, 0, 0, 50, 50000, 5000}

var factorNames = []string{
	"Reallocated Sectors",
	"Uncorrectable Errors",
	"Command Timeout",
	"Pending Sectors",
	"Offline Uncorrectable",
	"High Temperature",
	"Drive Age",
	"Power Cycles",
}

// keyFactors picks the attributes above their alert threshold, ranked by
// their change over the last 7 samples, capped to the top 3.
func keyFactors(sequence [][]float64) []KeyFactor {
	latest := sequence[len(sequence)-1]
	weekAgo := sequence[0]
	if len(sequence) >= accelerationWindow {
		weekAgo = sequence[len(sequence)-accelerationWindow]
	}

	var factors []KeyFactor
	for i, id := range smart.FeatureOrder {
		current := latest[i]
		threshold := factorThresholds[i]
		if current <= threshold {
			continue
		}

		impact := ImpactMedium
		if current > threshold*2 {
			impact = ImpactHigh
		}

		factors = append(factors, KeyFactor{
			Attribute:    factorNames[i],
			SmartID:      id,
			CurrentValue: current,
			Change7Days:  current - weekAgo[i],
			Impact:       impact,
		})
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Change7Days > factors[j].Change7Days
	})

	if len(factors) > 3 {
		factors = factors[:3]
	}
	return factors
}

func insufficientAssessment() Assessment {
	days, confidence := probabilityToDays(0.05)
	return Assessment{
		FailureProbability: 0.05,
		HealthScore:        95,
		RiskTier:           TierLow,
		DaysToFailure:      days,
		Confidence:         confidence,
		Trend:              TrendStable,
		ModelVersion:       "insufficient_data",
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

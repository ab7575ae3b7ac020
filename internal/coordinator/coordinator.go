package coordinator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/diskvigil/diskvigil/internal/fsscan"
	"github.com/diskvigil/diskvigil/internal/health"
	"github.com/diskvigil/diskvigil/internal/logger"
	"github.com/diskvigil/diskvigil/internal/smart"
)

// Service closes the loop between prediction and action: declining health
// triggers compression, compression reduces writes, reduced writes extend
// drive life, and the ledger keeps score.
type Service struct {
	cfg       Config
	collector smart.Collector
	predictor health.Predictor
	analyzer  fsscan.Analyzer
	repo      Repository
	now       func() time.Time
}

func NewService(cfg Config, collector smart.Collector, predictor health.Predictor,
	analyzer fsscan.Analyzer, repo Repository,
) *Service {
	return &Service{
		cfg:       cfg.withDefaults(),
		collector: collector,
		predictor: predictor,
		analyzer:  analyzer,
		repo:      repo,
		now:       time.Now,
	}
}

// RunCycle executes one coordination cycle for a device: assess health,
// detect a drop since the previous cycle, intervene if warranted, persist
// state and report the full status.
func (s *Service) RunCycle(ctx context.Context, deviceID string) (CycleStatus, error) {
	history, err := s.collector.History(ctx, deviceID, s.cfg.HistoryDays)
	if err != nil {
		return CycleStatus{}, err
	}

	assessment := s.predictor.Predict(history)
	score := float64(assessment.HealthScore)

	previous, known, err := s.repo.PreviousHealth(ctx, deviceID)
	if err != nil {
		return CycleStatus{}, err
	}
	var drop float64
	if known {
		drop = previous - score
	}

	triggered := shouldIntervene(score, drop, assessment.Trend, assessment.InterventionRecommended)

	var intervention *InterventionRecord
	if triggered {
		intervention, err = s.intervene(ctx, deviceID, assessment, drop)
		if err != nil {
			return CycleStatus{}, err
		}
	}

	if err := s.repo.SaveHealth(ctx, deviceID, score); err != nil {
		return CycleStatus{}, err
	}

	cumulative, err := s.CumulativeImpactFor(ctx, deviceID)
	if err != nil {
		return CycleStatus{}, err
	}

	mode := ModeMonitoring
	if intervention != nil {
		mode = string(intervention.CompressionMode)
	}

	return CycleStatus{
		DeviceID:              deviceID,
		Timestamp:             s.now(),
		Assessment:            assessment,
		HealthDrop:            drop,
		InterventionTriggered: triggered,
		Mode:                  mode,
		Intervention:          intervention,
		Cumulative:            cumulative,
	}, nil
}

// Observe assesses a device without intervening. Nothing is written to the
// ledger or the health state, so repeated observation never changes what a
// later RunCycle sees.
func (s *Service) Observe(ctx context.Context, deviceID string) (CycleStatus, error) {
	history, err := s.collector.History(ctx, deviceID, s.cfg.HistoryDays)
	if err != nil {
		return CycleStatus{}, err
	}

	assessment := s.predictor.Predict(history)
	score := float64(assessment.HealthScore)

	previous, known, err := s.repo.PreviousHealth(ctx, deviceID)
	if err != nil {
		return CycleStatus{}, err
	}
	var drop float64
	if known {
		drop = previous - score
	}

	cumulative, err := s.CumulativeImpactFor(ctx, deviceID)
	if err != nil {
		return CycleStatus{}, err
	}

	return CycleStatus{
		DeviceID:   deviceID,
		Timestamp:  s.now(),
		Assessment: assessment,
		HealthDrop: drop,
		Mode:       ModeMonitoring,
		Cumulative: cumulative,
	}, nil
}

// intervene analyzes the filesystem and, when enough is compressible,
// records the intervention. Too little compressible data means the trigger
// fires without an intervention.
func (s *Service) intervene(ctx context.Context, deviceID string,
	assessment health.Assessment, drop float64,
) (*InterventionRecord, error) {
	analysis := s.analyzer.Analyze(s.cfg.ScanPaths)
	if analysis.CompressionPotential < minCompressionPotential {
		logger.Debug().
			Str("device", deviceID).
			Float64("potential", analysis.CompressionPotential).
			Msg("Intervention triggered but too little compressible data")
		return nil, nil
	}

	score := float64(assessment.HealthScore)
	reduction, err := s.analyzer.EstimateWriteReduction(score, analysis.CompressionPotential, "")
	if err != nil {
		return nil, err
	}

	var baseline float64
	if assessment.DaysToFailure != nil {
		baseline = float64(*assessment.DaysToFailure)
	}
	extension, err := CalculateLifeExtension(baseline, reduction.TotalReduction)
	if err != nil {
		return nil, err
	}

	record := &InterventionRecord{
		DeviceID:             deviceID,
		Timestamp:            s.now(),
		TriggerReason:        triggerReason(drop, assessment.Trend, score),
		HealthScore:          assessment.HealthScore,
		CompressionMode:      reduction.Mode,
		WriteReduction:       reduction.TotalReduction,
		LifeExtensionDays:    extension.DaysGained,
		CompressionPotential: analysis.CompressionPotential,
		FilesCompressible:    analysis.CompressibleFiles,
	}
	if err := s.repo.AppendIntervention(ctx, record); err != nil {
		return nil, err
	}

	logger.Info().
		Str("device", deviceID).
		Str("mode", string(record.CompressionMode)).
		Str("reason", record.TriggerReason).
		Float64("write_reduction", record.WriteReduction).
		Float64("days_gained", record.LifeExtensionDays).
		Msg("Intervention recorded")

	return record, nil
}

// shouldIntervene is the intervention predicate: critical health, a
// significant drop, a rapid decline, or a recommended intervention backed
// by at least some drop.
func shouldIntervene(score, drop float64, trend health.Trend, recommended bool) bool {
	if score < 50 {
		return true
	}
	if drop >= healthDropThreshold {
		return true
	}
	if trend == health.TrendRapidDecline {
		return true
	}
	if recommended && drop >= 2 {
		return true
	}
	return false
}

// CalculateLifeExtension projects the life gained from a write reduction:
// extended = baseline * (1 + reduction * 0.4). A non-positive baseline
// clamps to zero extension; a negative reduction is a caller error.
func CalculateLifeExtension(baselineDays, reduction float64) (LifeExtension, error) {
	if reduction < 0 {
		return LifeExtension{}, errors.New().WithData(ErrInvalidReduction, reduction)
	}
	if baselineDays <= 0 {
		return LifeExtension{}, nil
	}

	factor := 1 + reduction*lifeExtensionCoefficient
	extended := baselineDays * factor

	return LifeExtension{
		BaselineDays: baselineDays,
		ExtendedDays: round1(extended),
		DaysGained:   round1(extended - baselineDays),
		ExtensionPct: round1((factor - 1) * 100),
	}, nil
}

// triggerReason renders the fired predicate branches for the ledger.
func triggerReason(drop float64, trend health.Trend, score float64) string {
	var reasons []string
	if score < 50 {
		reasons = append(reasons, fmt.Sprintf("Health critical at %.0f/100", score))
	}
	if drop >= healthDropThreshold {
		reasons = append(reasons, fmt.Sprintf("Health dropped %.1f points", drop))
	}
	switch trend {
	case health.TrendRapidDecline:
		reasons = append(reasons, "Rapid health decline detected")
	case health.TrendDeclining:
		reasons = append(reasons, "Consistent health decline trend")
	}

	if len(reasons) == 0 {
		return "Preventive optimization"
	}
	return strings.Join(reasons, ". ")
}

// CumulativeImpactFor sums the device's ledger: total days gained plus the
// average write reduction across interventions.
func (s *Service) CumulativeImpactFor(ctx context.Context, deviceID string) (CumulativeImpact, error) {
	records, err := s.repo.InterventionsFor(ctx, deviceID)
	if err != nil {
		return CumulativeImpact{}, err
	}

	impact := CumulativeImpact{TotalInterventions: len(records)}
	if len(records) == 0 {
		return impact, nil
	}

	var reductionSum float64
	for i := range records {
		impact.TotalDaysExtended += records[i].LifeExtensionDays
		reductionSum += records[i].WriteReduction * 100
	}
	impact.TotalDaysExtended = round1(impact.TotalDaysExtended)
	impact.AverageReductionPct = round1(reductionSum / float64(len(records)))

	last := records[len(records)-1]
	impact.LastIntervention = &last

	return impact, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

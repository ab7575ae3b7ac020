package coordinator

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/diskvigil/diskvigil/internal/fsscan"
	"github.com/diskvigil/diskvigil/internal/health"
	"github.com/diskvigil/diskvigil/internal/smart"
)

type memRepository struct {
	mu      sync.Mutex
	records []InterventionRecord
	scores  map[string]float64
}

func newMemRepository() *memRepository {
	return &memRepository{scores: make(map[string]float64)}
}

func (r *memRepository) AppendIntervention(_ context.Context, record *InterventionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record.ID = int64(len(r.records) + 1)
	r.records = append(r.records, *record)
	return nil
}

func (r *memRepository) InterventionsFor(_ context.Context, deviceID string) ([]InterventionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []InterventionRecord
	for _, record := range r.records {
		if record.DeviceID == deviceID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *memRepository) PreviousHealth(_ context.Context, deviceID string) (float64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	score, ok := r.scores[deviceID]
	return score, ok, nil
}

func (r *memRepository) SaveHealth(_ context.Context, deviceID string, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[deviceID] = score
	return nil
}

func (r *memRepository) Close() error { return nil }

type stubCollector struct{}

func (stubCollector) ListDevices(_ context.Context, _ smart.Mode) ([]smart.DeviceRecord, error) {
	return nil, nil
}

func (stubCollector) Describe(_ context.Context, _ string, _ smart.Mode) (smart.DeviceRecord, bool) {
	return smart.DeviceRecord{}, false
}

func (stubCollector) History(_ context.Context, deviceID string, days int) ([]smart.Snapshot, error) {
	history := make([]smart.Snapshot, days)
	for i := range history {
		history[i] = smart.Snapshot{DeviceID: deviceID}
	}
	return history, nil
}

type stubPredictor struct {
	assessment health.Assessment
}

func (p stubPredictor) Predict(_ []smart.Snapshot) health.Assessment {
	return p.assessment
}

type stubAnalyzer struct {
	potential float64
	files     int
}

func (a stubAnalyzer) Analyze(_ []string) fsscan.Analysis {
	return fsscan.Analysis{
		CompressionPotential: a.potential,
		CompressibleFiles:    a.files,
	}
}

func (a stubAnalyzer) EstimateWriteReduction(healthScore, potential float64, override fsscan.ReductionMode) (fsscan.WriteReduction, error) {
	return fsscan.NewService(fsscan.DefaultConfig()).EstimateWriteReduction(healthScore, potential, override)
}

func (stubAnalyzer) Invalidate() {}

func days(n int) *int { return &n }

func newTestCoordinator(assessment health.Assessment, analyzer fsscan.Analyzer, repo Repository) *Service {
	s := NewService(Config{ScanPaths: []string{"/tmp"}},
		stubCollector{}, stubPredictor{assessment}, analyzer, repo)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestShouldIntervene(t *testing.T) {
	cases := []struct {
		name        string
		score       float64
		drop        float64
		trend       health.Trend
		recommended bool
		want        bool
	}{
		{"critical health", 45, 0, health.TrendStable, false, true},
		{"health at boundary", 50, 0, health.TrendStable, false, false},
		{"significant drop", 90, 5, health.TrendStable, false, true},
		{"small drop", 90, 4.9, health.TrendStable, false, false},
		{"rapid decline", 90, 0, health.TrendRapidDecline, false, true},
		{"declining alone", 90, 0, health.TrendDeclining, false, false},
		{"recommended with drop", 90, 2, health.TrendStable, true, true},
		{"recommended without drop", 90, 1.9, health.TrendStable, true, false},
		{"healthy", 95, 0, health.TrendStable, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, shouldIntervene(tc.score, tc.drop, tc.trend, tc.recommended))
		})
	}
}

func TestCalculateLifeExtension(t *testing.T) {
	extension, err := CalculateLifeExtension(100, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 100.0, extension.BaselineDays)
	assert.Equal(t, 120.0, extension.ExtendedDays)
	assert.Equal(t, 20.0, extension.DaysGained)
	assert.Equal(t, 20.0, extension.ExtensionPct)
}

func TestCalculateLifeExtensionClampsBaseline(t *testing.T) {
	for _, baseline := range []float64{0, -10} {
		extension, err := CalculateLifeExtension(baseline, 0.5)
		require.NoError(t, err)
		assert.Equal(t, LifeExtension{}, extension)
	}
}

func TestCalculateLifeExtensionRejectsNegativeReduction(t *testing.T) {
	_, err := CalculateLifeExtension(100, -0.1)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidReduction, errors.CodeOf(err))
}

func TestCalculateLifeExtensionMonotonic(t *testing.T) {
	var previous float64
	for _, reduction := range []float64{0, 0.2, 0.4, 0.6, 0.8} {
		extension, err := CalculateLifeExtension(200, reduction)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, extension.DaysGained, previous)
		previous = extension.DaysGained
	}
}

func TestTriggerReason(t *testing.T) {
	assert.Equal(t, "Health critical at 45/100",
		triggerReason(0, health.TrendStable, 45))
	assert.Equal(t, "Health dropped 6.0 points",
		triggerReason(6, health.TrendStable, 80))
	assert.Equal(t, "Rapid health decline detected",
		triggerReason(0, health.TrendRapidDecline, 80))
	assert.Equal(t, "Consistent health decline trend",
		triggerReason(0, health.TrendDeclining, 80))
	assert.Equal(t, "Health critical at 40/100. Health dropped 8.0 points. Rapid health decline detected",
		triggerReason(8, health.TrendRapidDecline, 40))
	assert.Equal(t, "Preventive optimization",
		triggerReason(0, health.TrendStable, 80))
}

func TestRunCycleHealthy(t *testing.T) {
	repo := newMemRepository()
	s := newTestCoordinator(health.Assessment{
		HealthScore: 95,
		RiskTier:    health.TierLow,
		Trend:       health.TrendStable,
	}, stubAnalyzer{potential: 0.5}, repo)

	status, err := s.RunCycle(context.Background(), "dev_sda")
	require.NoError(t, err)

	assert.False(t, status.InterventionTriggered)
	assert.Equal(t, ModeMonitoring, status.Mode)
	assert.Nil(t, status.Intervention)
	assert.Zero(t, status.Cumulative.TotalInterventions)

	// Health is persisted for the next cycle's drop detection.
	score, ok, err := repo.PreviousHealth(context.Background(), "dev_sda")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 95.0, score)
}

func TestObserveNeverMutates(t *testing.T) {
	repo := newMemRepository()
	require.NoError(t, repo.SaveHealth(context.Background(), "dev_sdc", 80))
	s := newTestCoordinator(health.Assessment{
		HealthScore:             45,
		RiskTier:                health.TierHigh,
		Trend:                   health.TrendDeclining,
		DaysToFailure:           days(90),
		InterventionRecommended: true,
	}, stubAnalyzer{potential: 0.5, files: 120}, repo)

	status, err := s.Observe(context.Background(), "dev_sdc")
	require.NoError(t, err)

	assert.Equal(t, 35.0, status.HealthDrop)
	assert.False(t, status.InterventionTriggered)
	assert.Nil(t, status.Intervention)
	assert.Equal(t, ModeMonitoring, status.Mode)

	// No ledger entry and no health update: a later RunCycle still sees
	// the same previous score.
	assert.Empty(t, repo.records)
	score, ok, err := repo.PreviousHealth(context.Background(), "dev_sdc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 80.0, score)
}

func TestRunCycleIntervenes(t *testing.T) {
	repo := newMemRepository()
	require.NoError(t, repo.SaveHealth(context.Background(), "dev_sdc", 80))

	s := newTestCoordinator(health.Assessment{
		HealthScore:             45,
		RiskTier:                health.TierHigh,
		Trend:                   health.TrendDeclining,
		DaysToFailure:           days(90),
		InterventionRecommended: true,
	}, stubAnalyzer{potential: 0.5, files: 1200}, repo)

	status, err := s.RunCycle(context.Background(), "dev_sdc")
	require.NoError(t, err)

	assert.True(t, status.InterventionTriggered)
	assert.Equal(t, 35.0, status.HealthDrop)
	require.NotNil(t, status.Intervention)

	record := status.Intervention
	// Health 45 selects aggressive mode: 0.3 direct + 0.18 bonus.
	assert.Equal(t, fsscan.ModeAggressive, record.CompressionMode)
	assert.InDelta(t, 0.48, record.WriteReduction, 1e-9)
	// 90 * (1 + 0.48*0.4) - 90 = 17.28, rounded to one decimal.
	assert.InDelta(t, 17.3, record.LifeExtensionDays, 1e-9)
	assert.Equal(t, 1200, record.FilesCompressible)
	assert.Contains(t, record.TriggerReason, "Health critical at 45/100")
	assert.Contains(t, record.TriggerReason, "Health dropped 35.0 points")

	assert.Equal(t, "aggressive", status.Mode)
	assert.Equal(t, 1, status.Cumulative.TotalInterventions)
	assert.InDelta(t, 17.3, status.Cumulative.TotalDaysExtended, 1e-9)
	assert.InDelta(t, 48.0, status.Cumulative.AverageReductionPct, 1e-9)
}

func TestRunCycleTriggeredButLowPotential(t *testing.T) {
	repo := newMemRepository()
	s := newTestCoordinator(health.Assessment{
		HealthScore: 40,
		Trend:       health.TrendStable,
	}, stubAnalyzer{potential: 0.1}, repo)

	status, err := s.RunCycle(context.Background(), "dev_sda")
	require.NoError(t, err)

	assert.True(t, status.InterventionTriggered)
	assert.Nil(t, status.Intervention)
	assert.Equal(t, ModeMonitoring, status.Mode)
	assert.Empty(t, repo.records)
}

func TestRunCycleFirstRunHasNoDrop(t *testing.T) {
	repo := newMemRepository()
	s := newTestCoordinator(health.Assessment{
		HealthScore: 70,
		Trend:       health.TrendStable,
	}, stubAnalyzer{potential: 0.5}, repo)

	status, err := s.RunCycle(context.Background(), "dev_sda")
	require.NoError(t, err)

	assert.Zero(t, status.HealthDrop)
	assert.False(t, status.InterventionTriggered)
}

func TestRunCycleNilDaysClampsExtension(t *testing.T) {
	repo := newMemRepository()
	s := newTestCoordinator(health.Assessment{
		HealthScore: 45,
		Trend:       health.TrendStable,
	}, stubAnalyzer{potential: 0.5}, repo)

	status, err := s.RunCycle(context.Background(), "dev_sda")
	require.NoError(t, err)

	require.NotNil(t, status.Intervention)
	assert.Zero(t, status.Intervention.LifeExtensionDays)
}

func TestCumulativeImpact(t *testing.T) {
	repo := newMemRepository()
	ctx := context.Background()

	entries := []struct {
		days      float64
		reduction float64
	}{
		{10.5, 0.48},
		{20.0, 0.50},
		{5.5, 0.40},
	}
	for _, e := range entries {
		require.NoError(t, repo.AppendIntervention(ctx, &InterventionRecord{
			DeviceID:          "dev_sda",
			LifeExtensionDays: e.days,
			WriteReduction:    e.reduction,
		}))
	}
	require.NoError(t, repo.AppendIntervention(ctx, &InterventionRecord{
		DeviceID:          "dev_other",
		LifeExtensionDays: 99,
		WriteReduction:    0.8,
	}))

	s := newTestCoordinator(health.Assessment{}, stubAnalyzer{}, repo)

	impact, err := s.CumulativeImpactFor(ctx, "dev_sda")
	require.NoError(t, err)

	assert.Equal(t, 3, impact.TotalInterventions)
	assert.InDelta(t, 36.0, impact.TotalDaysExtended, 1e-9)
	// Mean of 48, 50 and 40 percent.
	assert.InDelta(t, 46.0, impact.AverageReductionPct, 1e-9)
	require.NotNil(t, impact.LastIntervention)
	assert.Equal(t, 5.5, impact.LastIntervention.LifeExtensionDays)
}

func TestCumulativeImpactRandomLedgers(t *testing.T) {
	rng := rand.New(rand.NewSource(20250601))

	for trial := 0; trial < 50; trial++ {
		repo := newMemRepository()
		ctx := context.Background()

		count := 1 + rng.Intn(20)
		var daysSum, reductionSum float64
		var last InterventionRecord
		for i := 0; i < count; i++ {
			record := InterventionRecord{
				DeviceID:          "dev_sda",
				LifeExtensionDays: round1(rng.Float64() * 200),
				WriteReduction:    rng.Float64() * 0.5,
			}
			require.NoError(t, repo.AppendIntervention(ctx, &record))
			daysSum += record.LifeExtensionDays
			reductionSum += record.WriteReduction * 100
			last = record
		}

		s := newTestCoordinator(health.Assessment{}, stubAnalyzer{}, repo)
		impact, err := s.CumulativeImpactFor(ctx, "dev_sda")
		require.NoError(t, err)

		assert.Equal(t, count, impact.TotalInterventions)
		assert.InDelta(t, round1(daysSum), impact.TotalDaysExtended, 1e-9)
		assert.InDelta(t, round1(reductionSum/float64(count)), impact.AverageReductionPct, 1e-9)
		require.NotNil(t, impact.LastIntervention)
		assert.Equal(t, last.LifeExtensionDays, impact.LastIntervention.LifeExtensionDays)
		assert.Equal(t, last.WriteReduction, impact.LastIntervention.WriteReduction)
	}
}

func TestCumulativeImpactEmpty(t *testing.T) {
	s := newTestCoordinator(health.Assessment{}, stubAnalyzer{}, newMemRepository())

	impact, err := s.CumulativeImpactFor(context.Background(), "dev_sda")
	require.NoError(t, err)

	assert.Zero(t, impact.TotalInterventions)
	assert.Zero(t, impact.TotalDaysExtended)
	assert.Zero(t, impact.AverageReductionPct)
	assert.Nil(t, impact.LastIntervention)
}

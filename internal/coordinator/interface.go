package coordinator

import (
	"context"
	"time"

	"github.com/diskvigil/diskvigil/internal/fsscan"
	"github.com/diskvigil/diskvigil/internal/health"
)

// InterventionRecord is one ledger entry: compression was activated for a
// device and this is the expected impact.
type InterventionRecord struct {
	ID                   int64
	DeviceID             string
	Timestamp            time.Time
	TriggerReason        string
	HealthScore          int
	CompressionMode      fsscan.ReductionMode
	WriteReduction       float64
	LifeExtensionDays    float64
	CompressionPotential float64
	FilesCompressible    int
}

// LifeExtension is the projected effect of a write reduction on the
// remaining drive life.
type LifeExtension struct {
	BaselineDays float64
	ExtendedDays float64
	DaysGained   float64
	ExtensionPct float64
}

// CumulativeImpact aggregates every intervention recorded for a device.
type CumulativeImpact struct {
	TotalInterventions  int
	TotalDaysExtended   float64
	AverageReductionPct float64
	LastIntervention    *InterventionRecord
}

// ModeMonitoring is the coordinator mode when no intervention is active.
const ModeMonitoring = "monitoring"

// CycleStatus is the outcome of one coordination cycle for one device.
type CycleStatus struct {
	DeviceID              string
	Timestamp             time.Time
	Assessment            health.Assessment
	HealthDrop            float64
	InterventionTriggered bool
	// Mode is the active compression mode, or "monitoring".
	Mode         string
	Intervention *InterventionRecord
	Cumulative   CumulativeImpact
}

// Repository persists the intervention ledger and the per-device health
// state used for drop detection between cycles.
type Repository interface {
	AppendIntervention(ctx context.Context, record *InterventionRecord) error
	InterventionsFor(ctx context.Context, deviceID string) ([]InterventionRecord, error)
	PreviousHealth(ctx context.Context, deviceID string) (float64, bool, error)
	SaveHealth(ctx context.Context, deviceID string, score float64) error
	Close() error
}

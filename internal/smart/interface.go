package smart

import (
	"context"
	"time"
)

// AttributeID is the ATA SMART attribute identifier.
type AttributeID int

// The eight attributes tracked by the pipeline, in model feature order.
const (
	AttrReallocatedSectors   AttributeID = 5
	AttrPowerOnHours         AttributeID = 9
	AttrPowerCycles          AttributeID = 12
	AttrUncorrectableErrors  AttributeID = 187
	AttrCommandTimeout       AttributeID = 188
	AttrTemperature          AttributeID = 194
	AttrPendingSectors       AttributeID = 197
	AttrOfflineUncorrectable AttributeID = 198
)

// FeatureOrder is the canonical attribute ordering shared with the health
// predictor and the model normalization table. Must not be reordered.
var FeatureOrder = []AttributeID{
	AttrReallocatedSectors,
	AttrUncorrectableErrors,
	AttrCommandTimeout,
	AttrPendingSectors,
	AttrOfflineUncorrectable,
	AttrTemperature,
	AttrPowerOnHours,
	AttrPowerCycles,
}

// AttributeName returns the canonical human-readable name for an attribute.
func AttributeName(id AttributeID) string {
	switch id {
	case AttrReallocatedSectors:
		return "Reallocated Sectors Count"
	case AttrUncorrectableErrors:
		return "Reported Uncorrectable Errors"
	case AttrCommandTimeout:
		return "Command Timeout"
	case AttrPendingSectors:
		return "Current Pending Sector Count"
	case AttrOfflineUncorrectable:
		return "Offline Uncorrectable"
	case AttrTemperature:
		return "Temperature"
	case AttrPowerOnHours:
		return "Power-On Hours"
	case AttrPowerCycles:
		return "Power Cycle Count"
	default:
		return "Unknown Attribute"
	}
}

// IsCritical reports whether the attribute is one of the tracked eight.
func IsCritical(id AttributeID) bool {
	switch id {
	case AttrReallocatedSectors, AttrUncorrectableErrors, AttrCommandTimeout,
		AttrPendingSectors, AttrOfflineUncorrectable, AttrTemperature,
		AttrPowerOnHours, AttrPowerCycles:
		return true
	default:
		return false
	}
}

// Status is the tri-state overall SMART health verdict for a device.
type Status int

const (
	StatusUnknown Status = iota
	StatusPassed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mode selects the telemetry source.
type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeSimulated Mode = "simulated"
)

// IsValid returns whether the mode is a known source selector.
func (m Mode) IsValid() bool {
	return m == ModeAuto || m == ModeSimulated
}

// DeviceRecord is the canonical per-device telemetry snapshot produced by an
// acquisition strategy. Immutable once created.
type DeviceRecord struct {
	DeviceID   string
	DevicePath string
	Model      string
	Serial     string
	Firmware   string
	Protocol   string
	SizeBytes  int64
	Attributes map[AttributeID]float64
	Status     Status
	Simulated  bool
	Limited    bool
	Source     string
	Timestamp  time.Time
}

// Snapshot is one day of historical attribute values for a device.
type Snapshot struct {
	DeviceID   string
	Timestamp  time.Time
	Attributes map[AttributeID]float64
	Simulated  bool
}

// Strategy is one rung of the acquisition cascade. A strategy either returns
// at least one device record or an error; it must be side-effect-free on
// failure so the next strategy can run.
type Strategy interface {
	Name() string
	TryAcquire(ctx context.Context) ([]DeviceRecord, error)
}

// Collector is the acquisition surface exposed to the rest of the pipeline.
type Collector interface {
	ListDevices(ctx context.Context, mode Mode) ([]DeviceRecord, error)
	Describe(ctx context.Context, deviceID string, mode Mode) (DeviceRecord, bool)
	History(ctx context.Context, deviceID string, days int) ([]Snapshot, error)
}

package smart

import (
	"context"
	"encoding/json"
	"time"

	"github.com/diskvigil/diskvigil/internal/errors"
)

// basicStrategy is the last real rung of the cascade: plain block-device
// enumeration. It yields identity only; attributes are filled with neutral
// defaults and the record is flagged Limited so consumers know confidence
// is low.
type basicStrategy struct {
	run commandRunner
	now func() time.Time
}

func newBasicStrategy() *basicStrategy {
	return &basicStrategy{
		run: runCommand,
		now: time.Now,
	}
}

func (s *basicStrategy) Name() string { return "basic-enumeration" }

func (s *basicStrategy) TryAcquire(ctx context.Context) ([]DeviceRecord, error) {
	errFactory := errors.New()

	out, err := s.run(ctx, defaultScanTimeout, "lsblk", "-J", "-b", "-o", "NAME,TYPE,SIZE,MODEL,SERIAL")
	if err != nil {
		return nil, errFactory.Wrap(ErrToolFailed, err)
	}

	var listing struct {
		BlockDevices []struct {
			Name   string `json:"name"`
			Type   string `json:"type"`
			Size   int64  `json:"size"`
			Model  string `json:"model"`
			Serial string `json:"serial"`
		} `json:"blockdevices"`
	}
	if err := json.Unmarshal(out, &listing); err != nil {
		return nil, errFactory.Wrap(ErrMalformedOutput, err)
	}

	var records []DeviceRecord
	for _, dev := range listing.BlockDevices {
		if dev.Type != "disk" {
			continue
		}

		model := dev.Model
		if model == "" {
			model = "Unknown Drive"
		}

		path := "/dev/" + dev.Name
		records = append(records, DeviceRecord{
			DeviceID:   deviceIDFromPath(path),
			DevicePath: path,
			Model:      model,
			Serial:     dev.Serial,
			SizeBytes:  dev.Size,
			Attributes: defaultAttributes(),
			Status:     StatusUnknown,
			Limited:    true,
			Source:     s.Name(),
			Timestamp:  s.now(),
		})
	}

	if len(records) == 0 {
		return nil, errFactory.New(ErrNoDevices)
	}

	return records, nil
}

// defaultAttributes are the documented neutral values used when a strategy
// can identify a device but not read its attribute table.
func defaultAttributes() map[AttributeID]float64 {
	return map[AttributeID]float64{
		AttrReallocatedSectors:   0,
		AttrUncorrectableErrors:  0,
		AttrCommandTimeout:       0,
		AttrPendingSectors:       0,
		AttrOfflineUncorrectable: 0,
		AttrTemperature:          35,
		AttrPowerOnHours:         10000,
		AttrPowerCycles:          200,
	}
}

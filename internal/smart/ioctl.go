package smart

import (
	"context"
	"fmt"
	"time"

	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/diskvigil/diskvigil/internal/logger"
)

// devicePort opens raw device handles by index. Indexes are probed from zero
// upward until Open fails, which marks the end of the device range.
type devicePort interface {
	Open(index int) (deviceHandle, error)
}

// deviceHandle is an open low-level device. QueryProperty returns the raw
// property-descriptor buffer; ReadSMART returns the raw SMART data sector
// (revision word, then the attribute table) for bus types that support the
// ATA SMART command set.
type deviceHandle interface {
	QueryProperty() ([]byte, error)
	ReadSMART() ([]byte, error)
	Close() error
}

// ioctlStrategy talks to devices through raw I/O control calls. Most of the
// work is decoding fixed binary layouts; see decode.go.
type ioctlStrategy struct {
	port       devicePort
	probeLimit int
	now        func() time.Time
}

func newIoctlStrategy(cfg Config) *ioctlStrategy {
	return &ioctlStrategy{
		port:       newPlatformDevicePort(),
		probeLimit: cfg.ProbeLimit,
		now:        time.Now,
	}
}

func (s *ioctlStrategy) Name() string { return "ioctl" }

func (s *ioctlStrategy) TryAcquire(ctx context.Context) ([]DeviceRecord, error) {
	errFactory := errors.New()

	if s.port == nil {
		return nil, errFactory.New(ErrUnsupportedPlatform)
	}

	var records []DeviceRecord
	for index := 0; index < s.probeLimit; index++ {
		if err := ctx.Err(); err != nil {
			return nil, errFactory.Wrap(errors.ErrTimeout, err)
		}

		handle, err := s.port.Open(index)
		if err != nil {
			break // end of the device range
		}

		record, err := s.readDevice(handle, index)
		handle.Close()
		if err != nil {
			logger.Debug().Int("index", index).Err(err).Msg("device query failed")
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, errFactory.New(ErrNoDevices)
	}

	return records, nil
}

func (s *ioctlStrategy) readDevice(handle deviceHandle, index int) (DeviceRecord, error) {
	buf, err := handle.QueryProperty()
	if err != nil {
		return DeviceRecord{}, errors.New().Wrap(ErrToolFailed, err)
	}

	descriptor, err := decodeDeviceDescriptor(buf)
	if err != nil {
		return DeviceRecord{}, err
	}

	attrs := map[AttributeID]float64{}
	if busSupportsATASmart(descriptor.BusType) {
		if raw, err := handle.ReadSMART(); err == nil {
			attrs = decodeAttributeTable(raw, smartOutTableOffset)
		} else {
			logger.Debug().Int("index", index).Err(err).Msg("SMART read failed")
		}
	}

	limited := false
	if len(attrs) == 0 {
		attrs = defaultAttributes()
		limited = true
	}

	model := descriptor.Model()
	if model == "" {
		model = fmt.Sprintf("Disk %d", index)
	}
	serial := descriptor.Serial
	if serial == "" {
		serial = "Unknown"
	}

	deviceID := fmt.Sprintf("PhysicalDrive%d", index)

	return DeviceRecord{
		DeviceID:   deviceID,
		DevicePath: deviceID,
		Model:      model,
		Serial:     serial,
		Protocol:   busTypeName(descriptor.BusType),
		Attributes: attrs,
		Status:     StatusUnknown, // this path has no pass/fail verdict
		Limited:    limited,
		Source:     s.Name(),
		Timestamp:  s.now(),
	}, nil
}

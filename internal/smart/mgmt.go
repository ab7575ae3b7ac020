package smart

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/diskvigil/diskvigil/internal/logger"
)

// mgmtDisk is a physical disk as enumerated by the platform management API.
type mgmtDisk struct {
	DeviceID  string
	Model     string
	Serial    string
	Firmware  string
	Interface string
	SizeBytes int64
}

// mgmtQuerier abstracts the platform management service (WMI and
// equivalents). DiskDrives enumerates physical disks; FailurePredictData
// returns the raw vendor-specific SMART blob keyed by instance name.
type mgmtQuerier interface {
	DiskDrives(ctx context.Context) ([]mgmtDisk, error)
	FailurePredictData(ctx context.Context) (map[string][]byte, error)
}

// mgmtStrategy reads drive telemetry through the platform management API.
// The attribute table arrives as a raw byte blob that has to be decoded
// manually: 30 fixed-width records starting at offset 2.
type mgmtStrategy struct {
	querier mgmtQuerier
	now     func() time.Time
}

func newMgmtStrategy() *mgmtStrategy {
	return &mgmtStrategy{
		querier: newPlatformMgmtQuerier(),
		now:     time.Now,
	}
}

func (s *mgmtStrategy) Name() string { return "management-api" }

func (s *mgmtStrategy) TryAcquire(ctx context.Context) ([]DeviceRecord, error) {
	errFactory := errors.New()

	if s.querier == nil {
		return nil, errFactory.New(ErrUnsupportedPlatform)
	}

	disks, err := s.querier.DiskDrives(ctx)
	if err != nil {
		return nil, errFactory.Wrap(ErrToolFailed, err)
	}
	if len(disks) == 0 {
		return nil, errFactory.New(ErrNoDevices)
	}

	blobs, err := s.querier.FailurePredictData(ctx)
	if err != nil {
		logger.Debug().Err(err).Msg("management API SMART query failed")
		blobs = nil
	}

	records := make([]DeviceRecord, 0, len(disks))
	for _, disk := range disks {
		deviceID := deviceIDFromPath(disk.DeviceID)

		attrs := map[AttributeID]float64{}
		status := StatusUnknown
		limited := false

		if blob := matchInstanceBlob(blobs, deviceID); blob != nil {
			attrs = decodeAttributeTable(blob, mgmtTableOffset)
			// Presence in the failure-predict table means the driver is not
			// predicting failure.
			status = StatusPassed
		}
		if len(attrs) == 0 {
			attrs = defaultAttributes()
			limited = true
		}

		records = append(records, DeviceRecord{
			DeviceID:   deviceID,
			DevicePath: disk.DeviceID,
			Model:      strings.TrimSpace(disk.Model),
			Serial:     strings.TrimSpace(disk.Serial),
			Firmware:   strings.TrimSpace(disk.Firmware),
			Protocol:   disk.Interface,
			SizeBytes:  disk.SizeBytes,
			Attributes: attrs,
			Status:     status,
			Limited:    limited,
			Source:     s.Name(),
			Timestamp:  s.now(),
		})
	}

	return records, nil
}

// matchInstanceBlob pairs a device id with the management API instance name
// that contains it. Instance names carry extra path separators, so matching
// is done on a normalized form.
func matchInstanceBlob(blobs map[string][]byte, deviceID string) []byte {
	if len(blobs) == 0 {
		return nil
	}

	normalized := strings.ReplaceAll(deviceID, "_", "")
	for instance, blob := range blobs {
		key := strings.NewReplacer("\\", "", ".", "", "_", "").Replace(instance)
		if strings.Contains(key, normalized) {
			return blob
		}
	}

	return nil
}

// parseCIMDiskDrives decodes the JSON the CIM disk-drive query emits. A
// single instance arrives as a bare object rather than a one-element array.
func parseCIMDiskDrives(out []byte) ([]mgmtDisk, error) {
	var rows []struct {
		DeviceID         string `json:"DeviceID"`
		Model            string `json:"Model"`
		SerialNumber     string `json:"SerialNumber"`
		FirmwareRevision string `json:"FirmwareRevision"`
		InterfaceType    string `json:"InterfaceType"`
		Size             int64  `json:"Size"`
	}
	if err := json.Unmarshal(normalizeCIMArray(out), &rows); err != nil {
		return nil, errors.New().Wrap(ErrMalformedOutput, err)
	}

	disks := make([]mgmtDisk, 0, len(rows))
	for _, row := range rows {
		if row.DeviceID == "" {
			continue
		}
		disks = append(disks, mgmtDisk{
			DeviceID:  row.DeviceID,
			Model:     row.Model,
			Serial:    row.SerialNumber,
			Firmware:  row.FirmwareRevision,
			Interface: row.InterfaceType,
			SizeBytes: row.Size,
		})
	}
	return disks, nil
}

// parseCIMFailurePredict decodes the failure-predict query output into raw
// SMART blobs keyed by instance name. VendorSpecific arrives as a JSON
// number array, one element per byte.
func parseCIMFailurePredict(out []byte) (map[string][]byte, error) {
	var rows []struct {
		InstanceName   string `json:"InstanceName"`
		VendorSpecific []int  `json:"VendorSpecific"`
	}
	if err := json.Unmarshal(normalizeCIMArray(out), &rows); err != nil {
		return nil, errors.New().Wrap(ErrMalformedOutput, err)
	}

	blobs := make(map[string][]byte, len(rows))
	for _, row := range rows {
		if row.InstanceName == "" || len(row.VendorSpecific) == 0 {
			continue
		}
		blob := make([]byte, len(row.VendorSpecific))
		for i, v := range row.VendorSpecific {
			blob[i] = byte(v)
		}
		blobs[row.InstanceName] = blob
	}
	return blobs, nil
}

// normalizeCIMArray wraps a bare object in brackets so single-instance and
// multi-instance query results decode the same way.
func normalizeCIMArray(out []byte) []byte {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return []byte("[]")
	}
	if trimmed[0] == '{' {
		wrapped := make([]byte, 0, len(trimmed)+2)
		wrapped = append(wrapped, '[')
		wrapped = append(wrapped, trimmed...)
		wrapped = append(wrapped, ']')
		return wrapped
	}
	return trimmed
}

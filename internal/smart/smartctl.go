package smart

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/diskvigil/diskvigil/internal/errors"
	"github.com/diskvigil/diskvigil/internal/logger"
)

// commandRunner executes an external tool and returns its stdout. Split out
// so strategies can be unit-tested without the tool installed.
type commandRunner func(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		// smartctl encodes per-device warnings in its exit status; the JSON
		// on stdout is still complete for exit codes 4 and 64.
		if exitErr, ok := err.(*exec.ExitError); ok {
			switch exitErr.ExitCode() {
			case 4, 64:
				return out, nil
			}
		}
		return out, err
	}

	return out, nil
}

// smartctlStrategy shells out to smartmontools' smartctl with JSON output.
// Richest source: full attribute table, overall self-assessment, identity.
type smartctlStrategy struct {
	path string
	run  commandRunner
	now  func() time.Time
}

func newSmartctlStrategy(cfg Config) *smartctlStrategy {
	return &smartctlStrategy{
		path: cfg.SmartctlPath,
		run:  runCommand,
		now:  time.Now,
	}
}

func (s *smartctlStrategy) Name() string { return "smartctl" }

func (s *smartctlStrategy) TryAcquire(ctx context.Context) ([]DeviceRecord, error) {
	errFactory := errors.New()

	path, err := s.findBinary()
	if err != nil {
		return nil, err
	}

	out, err := s.run(ctx, defaultScanTimeout, path, "--scan", "-j")
	if err != nil {
		return nil, errFactory.Wrap(ErrToolFailed, err)
	}

	var scan struct {
		Devices []struct {
			Name string `json:"name"`
		} `json:"devices"`
	}
	if err := json.Unmarshal(out, &scan); err != nil {
		return nil, errFactory.Wrap(ErrMalformedOutput, err)
	}

	var records []DeviceRecord
	for _, dev := range scan.Devices {
		if dev.Name == "" {
			continue
		}
		record, err := s.readDevice(ctx, path, dev.Name)
		if err != nil {
			logger.Debug().Str("device", dev.Name).Err(err).Msg("smartctl read failed")
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, errFactory.New(ErrNoDevices)
	}

	return records, nil
}

func (s *smartctlStrategy) findBinary() (string, error) {
	if s.path != "" {
		return s.path, nil
	}

	if found, err := exec.LookPath("smartctl"); err == nil {
		return found, nil
	}

	// Common install locations outside PATH.
	candidates := []string{
		"/usr/local/sbin/smartctl",
		"/opt/homebrew/bin/smartctl",
		`C:\Program Files\smartmontools\bin\smartctl.exe`,
		`C:\Program Files (x86)\smartmontools\bin\smartctl.exe`,
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", errors.New().New(ErrToolNotFound)
}

// smartctlReport mirrors the subset of smartctl's JSON schema the pipeline
// consumes.
type smartctlReport struct {
	ModelName       string `json:"model_name"`
	ModelFamily     string `json:"model_family"`
	SerialNumber    string `json:"serial_number"`
	FirmwareVersion string `json:"firmware_version"`
	Device          struct {
		Name     string `json:"name"`
		Protocol string `json:"protocol"`
	} `json:"device"`
	UserCapacity struct {
		Bytes int64 `json:"bytes"`
	} `json:"user_capacity"`
	SmartStatus *struct {
		Passed bool `json:"passed"`
	} `json:"smart_status"`
	ATASmartAttributes struct {
		Table []struct {
			ID  int `json:"id"`
			Raw struct {
				Value int64 `json:"value"`
			} `json:"raw"`
		} `json:"table"`
	} `json:"ata_smart_attributes"`
	NVMeHealthLog *struct {
		Temperature  int64 `json:"temperature"`
		MediaErrors  int64 `json:"media_errors"`
		PowerOnHours int64 `json:"power_on_hours"`
		PowerCycles  int64 `json:"power_cycles"`
	} `json:"nvme_smart_health_information_log"`
}

func (s *smartctlStrategy) readDevice(ctx context.Context, path, device string) (DeviceRecord, error) {
	errFactory := errors.New()

	out, err := s.run(ctx, defaultToolTimeout, path, "-A", "-H", "-i", "-j", device)
	if err != nil {
		return DeviceRecord{}, errFactory.Wrap(ErrToolFailed, err)
	}
	if len(strings.TrimSpace(string(out))) == 0 {
		return DeviceRecord{}, errFactory.New(ErrMalformedOutput)
	}

	var report smartctlReport
	if err := json.Unmarshal(out, &report); err != nil {
		return DeviceRecord{}, errFactory.Wrap(ErrMalformedOutput, err)
	}
	if report.ModelName == "" && report.Device.Name == "" {
		return DeviceRecord{}, errFactory.New(ErrMalformedOutput)
	}

	return parseSmartctlReport(report, device, s.now()), nil
}

// parseSmartctlReport maps a smartctl report onto the canonical record.
// NVMe devices report a health log instead of an ATA attribute table; its
// fields are translated to their closest ATA equivalents.
func parseSmartctlReport(report smartctlReport, device string, now time.Time) DeviceRecord {
	attrs := make(map[AttributeID]float64)
	for _, entry := range report.ATASmartAttributes.Table {
		id := AttributeID(entry.ID)
		if IsCritical(id) {
			attrs[id] = float64(entry.Raw.Value)
		}
	}

	if len(attrs) == 0 && report.NVMeHealthLog != nil {
		nvme := report.NVMeHealthLog
		attrs[AttrTemperature] = float64(nvme.Temperature - 273) // reported in Kelvin
		attrs[AttrReallocatedSectors] = float64(nvme.MediaErrors)
		attrs[AttrPowerOnHours] = float64(nvme.PowerOnHours)
		attrs[AttrPowerCycles] = float64(nvme.PowerCycles)
	}

	status := StatusUnknown
	if report.SmartStatus != nil {
		if report.SmartStatus.Passed {
			status = StatusPassed
		} else {
			status = StatusFailed
		}
	}

	model := report.ModelName
	if model == "" {
		model = report.ModelFamily
	}
	if model == "" {
		model = "Unknown"
	}

	return DeviceRecord{
		DeviceID:   deviceIDFromPath(device),
		DevicePath: device,
		Model:      model,
		Serial:     report.SerialNumber,
		Firmware:   report.FirmwareVersion,
		Protocol:   report.Device.Protocol,
		SizeBytes:  report.UserCapacity.Bytes,
		Attributes: attrs,
		Status:     status,
		Source:     "smartctl",
		Timestamp:  now,
	}
}

// deviceIDFromPath derives a stable identifier from a device path.
func deviceIDFromPath(path string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ".", "_", " ", "")
	return strings.Trim(replacer.Replace(path), "_")
}

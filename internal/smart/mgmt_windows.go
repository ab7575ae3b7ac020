//go:build windows

package smart

import (
	"context"

	"github.com/diskvigil/diskvigil/internal/errors"
)

// cimQuerier reads the management service through PowerShell's CIM cmdlets.
// The queries mirror Win32_DiskDrive and the storage driver's
// failure-predict class; output is compact JSON parsed in mgmt.go.
type cimQuerier struct {
	run commandRunner
}

func newPlatformMgmtQuerier() mgmtQuerier {
	return &cimQuerier{run: runCommand}
}

func (q *cimQuerier) DiskDrives(ctx context.Context) ([]mgmtDisk, error) {
	out, err := q.query(ctx,
		`Get-CimInstance Win32_DiskDrive | `+
			`Select-Object DeviceID,Model,SerialNumber,FirmwareRevision,InterfaceType,Size | `+
			`ConvertTo-Json -Compress`)
	if err != nil {
		return nil, errors.New().Wrap(ErrToolFailed, err)
	}
	return parseCIMDiskDrives(out)
}

func (q *cimQuerier) FailurePredictData(ctx context.Context) (map[string][]byte, error) {
	out, err := q.query(ctx,
		`Get-CimInstance -Namespace root\wmi MSStorageDriver_FailurePredictData | `+
			`Select-Object InstanceName,VendorSpecific | `+
			`ConvertTo-Json -Compress`)
	if err != nil {
		return nil, errors.New().Wrap(ErrToolFailed, err)
	}
	return parseCIMFailurePredict(out)
}

func (q *cimQuerier) query(ctx context.Context, script string) ([]byte, error) {
	return q.run(ctx, defaultToolTimeout, "powershell.exe",
		"-NoProfile", "-NonInteractive", "-Command", script)
}

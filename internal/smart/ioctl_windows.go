//go:build windows

package smart

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/diskvigil/diskvigil/internal/errors"
)

// Storage I/O control codes and the ATA register values for SMART READ DATA.
const (
	ioctlStorageQueryProperty = 0x002d1400
	ioctlSmartRcvDriveData    = 0x0007c088

	ataSmartCmd        = 0xb0
	ataSmartReadValues = 0xd0
	ataSmartCylLow     = 0x4f
	ataSmartCylHigh    = 0xc2

	// SENDCMDINPARAMS: cBufferSize(4) IDEREGS(8) bDriveNumber(1)
	// reserved(3) dwReserved(16).
	sendCmdInParamsSize = 32
	// SENDCMDOUTPARAMS header: cBufferSize(4) DRIVERSTATUS(12); the data
	// sector follows.
	sendCmdOutHeaderSize = 16

	propertyBufferSize = 1024
)

type windowsDevicePort struct{}

func newPlatformDevicePort() devicePort { return windowsDevicePort{} }

func (windowsDevicePort) Open(index int) (deviceHandle, error) {
	name, err := windows.UTF16PtrFromString(fmt.Sprintf(`\\.\PhysicalDrive%d`, index))
	if err != nil {
		return nil, err
	}

	handle, err := windows.CreateFile(name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil, windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		return nil, err
	}

	return &windowsDeviceHandle{handle: handle, index: index}, nil
}

type windowsDeviceHandle struct {
	handle windows.Handle
	index  int
}

func (h *windowsDeviceHandle) QueryProperty() ([]byte, error) {
	// STORAGE_PROPERTY_QUERY for StorageDeviceProperty with a standard
	// query; both enum values are zero, so the query block stays zeroed.
	query := make([]byte, 12)
	out := make([]byte, propertyBufferSize)

	var returned uint32
	if err := windows.DeviceIoControl(h.handle, ioctlStorageQueryProperty,
		&query[0], uint32(len(query)),
		&out[0], uint32(len(out)), &returned, nil); err != nil {
		return nil, err
	}

	return out[:returned], nil
}

func (h *windowsDeviceHandle) ReadSMART() ([]byte, error) {
	in := make([]byte, sendCmdInParamsSize)
	binary.LittleEndian.PutUint32(in[0:4], smartSectorSize)
	in[4] = ataSmartReadValues           // bFeaturesReg
	in[5] = 1                            // bSectorCountReg
	in[6] = 1                            // bSectorNumberReg
	in[7] = ataSmartCylLow               // bCylLowReg
	in[8] = ataSmartCylHigh              // bCylHighReg
	in[9] = 0xa0 | byte(h.index&0x01)<<4 // bDriveHeadReg
	in[10] = ataSmartCmd                 // bCommandReg
	in[12] = byte(h.index)               // bDriveNumber

	out := make([]byte, sendCmdOutHeaderSize+smartSectorSize)
	var returned uint32
	if err := windows.DeviceIoControl(h.handle, ioctlSmartRcvDriveData,
		&in[0], uint32(len(in)),
		&out[0], uint32(len(out)), &returned, nil); err != nil {
		return nil, err
	}
	if returned <= sendCmdOutHeaderSize {
		return nil, errors.New().New(ErrMalformedOutput)
	}

	return out[sendCmdOutHeaderSize:returned], nil
}

func (h *windowsDeviceHandle) Close() error {
	return windows.CloseHandle(h.handle)
}

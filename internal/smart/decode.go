package smart

import (
	"encoding/binary"
	"strings"

	"github.com/diskvigil/diskvigil/internal/errors"
)

// Vendor-specific SMART attribute tables are fixed-width: 30 records of
// 12 bytes each. Record layout: id(1) flags(2) current(1) worst(1) raw(6)
// reserved(1). The raw value is little-endian.
const (
	attributeRecordSize = 12
	attributeTableCount = 30
	attributeRawOffset  = 5
	attributeRawSize    = 6
	// Both the management API blob and the raw SMART data sector open with
	// a two-byte structure revision before the first record.
	mgmtTableOffset      = 2
	smartOutTableOffset  = 2
	descriptorHeaderSize = 36
	smartSectorSize      = 512
)

// Storage bus types as reported in the device property descriptor.
const (
	busTypeATA  = 3
	busTypeUSB  = 7
	busTypeSATA = 11
	busTypeNVMe = 17
	busTypeSCM  = 18
)

func busTypeName(bus uint32) string {
	switch bus {
	case busTypeATA:
		return "ATA"
	case busTypeUSB:
		return "USB"
	case busTypeSATA:
		return "SATA"
	case busTypeNVMe:
		return "NVMe"
	case busTypeSCM:
		return "SCM"
	default:
		return "Unknown"
	}
}

func busSupportsATASmart(bus uint32) bool {
	return bus == busTypeATA || bus == busTypeSATA
}

// decodeAttributeTable extracts the tracked attributes from a raw
// fixed-width attribute table starting at the given offset. Records with a
// zero id and unknown attribute ids are dropped; known ids are kept even
// when the raw value is zero.
func decodeAttributeTable(raw []byte, tableOffset int) map[AttributeID]float64 {
	values := make(map[AttributeID]float64)

	for i := 0; i < attributeTableCount; i++ {
		offset := tableOffset + i*attributeRecordSize
		if offset+attributeRecordSize > len(raw) {
			break
		}

		id := AttributeID(raw[offset])
		if id == 0 || !IsCritical(id) {
			continue
		}

		values[id] = float64(decodeRawValue(raw[offset+attributeRawOffset : offset+attributeRawOffset+attributeRawSize]))
	}

	return values
}

// decodeRawValue reads the 6-byte little-endian raw value field.
func decodeRawValue(b []byte) uint64 {
	var padded [8]byte
	copy(padded[:], b)
	return binary.LittleEndian.Uint64(padded[:])
}

// deviceDescriptor is the decoded storage device property descriptor.
// String fields are resolved from byte offsets into the same buffer.
type deviceDescriptor struct {
	Vendor  string
	Product string
	Serial  string
	BusType uint32
}

// decodeDeviceDescriptor parses the property-descriptor header returned by
// the low-level device query. Header layout (little-endian): version(4)
// size(4) deviceType(1) deviceTypeModifier(1) removableMedia(1)
// commandQueueing(1) vendorIdOffset(4) productIdOffset(4)
// productRevisionOffset(4) serialNumberOffset(4) busType(4).
func decodeDeviceDescriptor(buf []byte) (deviceDescriptor, error) {
	if len(buf) < descriptorHeaderSize {
		return deviceDescriptor{}, errors.New().WithData(ErrDescriptorTruncated, len(buf))
	}

	vendorOffset := binary.LittleEndian.Uint32(buf[12:16])
	productOffset := binary.LittleEndian.Uint32(buf[16:20])
	serialOffset := binary.LittleEndian.Uint32(buf[24:28])
	busType := binary.LittleEndian.Uint32(buf[28:32])

	return deviceDescriptor{
		Vendor:  readCString(buf, vendorOffset),
		Product: readCString(buf, productOffset),
		Serial:  readCString(buf, serialOffset),
		BusType: busType,
	}, nil
}

// Model returns vendor and product joined the way diagnostic tools report it.
func (d deviceDescriptor) Model() string {
	if d.Vendor != "" && d.Product != "" {
		return d.Vendor + " " + d.Product
	}
	if d.Product != "" {
		return d.Product
	}
	return d.Vendor
}

// readCString reads a NUL-terminated ASCII string at the given buffer
// offset. A zero or out-of-range offset yields an empty string.
func readCString(buf []byte, offset uint32) string {
	if offset == 0 || int(offset) >= len(buf) {
		return ""
	}

	end := len(buf)
	for i := int(offset); i < len(buf); i++ {
		if buf[i] == 0 {
			end = i
			break
		}
	}

	return strings.TrimSpace(string(buf[offset:end]))
}

package smart

import "time"

// simulatedDevices is the guaranteed floor of the cascade: a fixed set of
// three drives spanning healthy, degrading and failing states. Clearly
// labeled synthetic so nothing downstream mistakes it for real telemetry.
func simulatedDevices(now time.Time) []DeviceRecord {
	return []DeviceRecord{
		{
			DeviceID:  "DRIVE_A",
			Model:     "ST4000DM004 (4000GB)",
			Serial:    "WFK3XXXX",
			Simulated: true,
			Status:    StatusPassed,
			Attributes: map[AttributeID]float64{
				AttrReallocatedSectors:   0,
				AttrUncorrectableErrors:  0,
				AttrCommandTimeout:       0,
				AttrPendingSectors:       0,
				AttrOfflineUncorrectable: 0,
				AttrTemperature:          36,
				AttrPowerOnHours:         11760,
				AttrPowerCycles:          305,
			},
			Source:    "simulated",
			Timestamp: now,
		},
		{
			DeviceID:  "DRIVE_B",
			Model:     "WDC WD20EZRZ (2000GB)",
			Serial:    "WD-WMAZ8XXXX",
			Simulated: true,
			Status:    StatusPassed,
			Attributes: map[AttributeID]float64{
				AttrReallocatedSectors:   15,
				AttrUncorrectableErrors:  2,
				AttrCommandTimeout:       0,
				AttrPendingSectors:       3,
				AttrOfflineUncorrectable: 1,
				AttrTemperature:          42,
				AttrPowerOnHours:         28000,
				AttrPowerCycles:          650,
			},
			Source:    "simulated",
			Timestamp: now,
		},
		{
			DeviceID:  "DRIVE_C",
			Model:     "HDWD130 (3000GB)",
			Serial:    "X6XXXXXX",
			Simulated: true,
			Status:    StatusFailed,
			Attributes: map[AttributeID]float64{
				AttrReallocatedSectors:   87,
				AttrUncorrectableErrors:  15,
				AttrCommandTimeout:       8,
				AttrPendingSectors:       12,
				AttrOfflineUncorrectable: 6,
				AttrTemperature:          48,
				AttrPowerOnHours:         45000,
				AttrPowerCycles:          1200,
			},
			Source:    "simulated",
			Timestamp: now,
		},
	}
}

package smart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDevice() DeviceRecord {
	return DeviceRecord{
		DeviceID: "dev_sda",
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
	}
}

func TestGenerateHistoryDeterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := generateHistory(testDevice(), 30, now)
	second := generateHistory(testDevice(), 30, now)

	require.Equal(t, first, second)
}

func TestGenerateHistoryShape(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	history := generateHistory(testDevice(), 30, now)

	require.Len(t, history, 30)

	for i, snapshot := range history {
		assert.Equal(t, "dev_sda", snapshot.DeviceID)
		assert.True(t, snapshot.Simulated)
		assert.Len(t, snapshot.Attributes, len(FeatureOrder))
		if i > 0 {
			assert.True(t, snapshot.Timestamp.After(history[i-1].Timestamp))
		}
	}

	// Newest entry lands on the reference time.
	assert.Equal(t, now, history[len(history)-1].Timestamp)
	// Oldest entry is days-1 days back.
	assert.Equal(t, now.AddDate(0, 0, -29), history[0].Timestamp)
}

func TestGenerateHistoryWearCounters(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	device := testDevice()
	history := generateHistory(device, 30, now)

	newest := history[len(history)-1]
	assert.Equal(t, 28000.0, newest.Attributes[AttrPowerOnHours])
	assert.Equal(t, 650.0, newest.Attributes[AttrPowerCycles])

	oldest := history[0]
	assert.Equal(t, 28000.0-29*24, oldest.Attributes[AttrPowerOnHours])
	assert.Equal(t, 650.0-29, oldest.Attributes[AttrPowerCycles])

	for _, snapshot := range history {
		for _, id := range FeatureOrder {
			assert.GreaterOrEqual(t, snapshot.Attributes[id], 0.0)
		}
		// Temperature jitters around the current reading.
		assert.InDelta(t, 42.0, snapshot.Attributes[AttrTemperature], 3.0)
	}
}

func TestGenerateHistoryErrorCountersDecay(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	device := testDevice()
	history := generateHistory(device, 30, now)

	// Zero counters stay exactly zero: no noise is injected for them.
	for _, snapshot := range history {
		assert.Equal(t, 0.0, snapshot.Attributes[AttrCommandTimeout])
	}

	// Non-zero counters stay within the decayed value plus noise.
	oldest := history[0]
	assert.LessOrEqual(t, oldest.Attributes[AttrReallocatedSectors], 15.0*(1-29.0/30.0*0.8)+2)
}

func TestGenerateHistoryWearFloor(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	device := DeviceRecord{
		DeviceID: "fresh",
		Attributes: map[AttributeID]float64{
			AttrPowerOnHours: 48,
			AttrPowerCycles:  5,
			AttrTemperature:  30,
		},
	}

	history := generateHistory(device, 30, now)

	// Wear counters bottom out at zero instead of going negative.
	assert.Equal(t, 0.0, history[0].Attributes[AttrPowerOnHours])
	assert.Equal(t, 0.0, history[0].Attributes[AttrPowerCycles])
}

func TestSeedForStable(t *testing.T) {
	assert.Equal(t, seedFor("dev_sda"), seedFor("dev_sda"))
	assert.NotEqual(t, seedFor("dev_sda"), seedFor("dev_sdb"))
	assert.GreaterOrEqual(t, seedFor("dev_sda"), int64(0))
}

func TestHistoryCacheTTL(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := newHistoryCache(5 * time.Minute)
	cache.now = func() time.Time { return current }

	history := generateHistory(testDevice(), 7, current)
	cache.put("dev_sda", 7, history)

	got, ok := cache.get("dev_sda", 7)
	require.True(t, ok)
	assert.Equal(t, history, got)

	// Different window is a separate entry.
	_, ok = cache.get("dev_sda", 30)
	assert.False(t, ok)

	current = current.Add(5*time.Minute - time.Second)
	_, ok = cache.get("dev_sda", 7)
	assert.True(t, ok)

	current = current.Add(2 * time.Second)
	_, ok = cache.get("dev_sda", 7)
	assert.False(t, ok)
}

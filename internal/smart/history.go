package smart

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"
)

// historyCache memoizes generated history windows per (device, window)
// for a short TTL. Repeated polls inside the TTL return the exact same
// slice, which keeps the downstream health score stable.
type historyCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]historyEntry
	now     func() time.Time
}

type historyEntry struct {
	storedAt time.Time
	history  []Snapshot
}

func newHistoryCache(ttl time.Duration) *historyCache {
	return &historyCache{
		ttl:     ttl,
		entries: make(map[string]historyEntry),
		now:     time.Now,
	}
}

func (c *historyCache) key(deviceID string, days int) string {
	return fmt.Sprintf("%s_%d", deviceID, days)
}

func (c *historyCache) get(deviceID string, days int) ([]Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[c.key(deviceID, days)]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		return nil, false
	}

	return entry.history, true
}

func (c *historyCache) put(deviceID string, days int, history []Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.key(deviceID, days)] = historyEntry{
		storedAt: c.now(),
		history:  history,
	}
}

// generateHistory back-fills a daily attribute series ending at the device's
// current values. The series is fully determined by the device id: the
// random source is seeded from a stable hash, so the same device always
// produces the same window. Error counters decay toward zero going back in
// time (80% lower at the start of the window), wear counters shrink
// linearly, temperature jitters within ±3 degrees.
func generateHistory(device DeviceRecord, days int, now time.Time) []Snapshot {
	rng := rand.New(rand.NewSource(seedFor(device.DeviceID)))

	history := make([]Snapshot, 0, days)
	for day := days - 1; day >= 0; day-- {
		decay := float64(day) / float64(days)

		attrs := make(map[AttributeID]float64, len(FeatureOrder))
		for _, id := range FeatureOrder {
			current := device.Attributes[id]

			switch id {
			case AttrPowerOnHours:
				attrs[id] = math.Max(0, current-float64(day)*24)
			case AttrPowerCycles:
				attrs[id] = math.Max(0, current-float64(day))
			case AttrTemperature:
				jitter := rng.Float64()*6 - 3
				attrs[id] = math.Round((current+jitter)*10) / 10
			default:
				past := math.Max(0, math.Trunc(current*(1-decay*0.8)))
				if current > 0 {
					noise := float64(rng.Intn(4) - 1) // -1..2
					past = math.Max(0, past+noise)
				}
				attrs[id] = past
			}
		}

		history = append(history, Snapshot{
			DeviceID:   device.DeviceID,
			Timestamp:  now.AddDate(0, 0, -day),
			Attributes: attrs,
			Simulated:  true,
		})
	}

	return history
}

func seedFor(deviceID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(deviceID))
	return int64(h.Sum64() & math.MaxInt64)
}

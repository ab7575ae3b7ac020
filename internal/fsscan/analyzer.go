package fsscan

import (
	"container/heap"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diskvigil/diskvigil/internal/logger"
)

// fileHeap is a min-heap over file size so the smallest tracked file can be
// evicted in O(log n). Path breaks size ties to keep ordering stable.
type fileHeap []FileEntry

func (h fileHeap) Len() int { return len(h) }

func (h fileHeap) Less(i, j int) bool {
	if h[i].SizeBytes != h[j].SizeBytes {
		return h[i].SizeBytes < h[j].SizeBytes
	}
	return h[i].Path < h[j].Path
}

func (h fileHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *fileHeap) Push(x any) {
	*h = append(*h, x.(FileEntry))
}

func (h *fileHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}

type cacheEntry struct {
	storedAt time.Time
	analysis Analysis
}

// Service scans filesystem roots for compressible data. Scan results are
// cached per sorted root set; the scan itself runs outside the lock, so a
// concurrent Invalidate simply makes the finishing scan the fresh entry
// (last writer wins).
type Service struct {
	cfg   Config
	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

func NewService(cfg Config) *Service {
	return &Service{
		cfg:   cfg.withDefaults(),
		cache: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

// Analyze walks the given roots and aggregates compression opportunities.
// Missing roots are skipped; per-file errors are tallied, never fatal.
func (s *Service) Analyze(roots []string) Analysis {
	key := cacheKey(roots)

	s.mu.Lock()
	entry, ok := s.cache[key]
	s.mu.Unlock()
	if ok && s.now().Sub(entry.storedAt) < s.cfg.CacheTTL {
		return entry.analysis
	}

	started := s.now()
	analysis := scan(roots, s.now())
	logger.Debug().
		Int("files", analysis.TotalFiles).
		Int("errors", analysis.ScanErrors).
		Dur("elapsed", s.now().Sub(started)).
		Msg("Filesystem scan complete")

	s.mu.Lock()
	s.cache[key] = cacheEntry{storedAt: s.now(), analysis: analysis}
	s.mu.Unlock()

	return analysis
}

// Invalidate drops all cached scan results. Safe to call while a scan is
// in flight.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cacheEntry)
}

func cacheKey(roots []string) string {
	sorted := append([]string(nil), roots...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

func scan(roots []string, now time.Time) Analysis {
	stats := make(map[Category]CategoryStats, len(categoryTable))
	for category, info := range categoryTable {
		stats[category] = CategoryStats{Label: info.label, Ratio: info.ratio}
	}

	analysis := Analysis{
		ScanPaths: roots,
		Timestamp: now,
	}

	largest := &fileHeap{}
	heap.Init(largest)

	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			continue
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				analysis.ScanErrors++
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			name := d.Name()
			if d.IsDir() {
				if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
					return fs.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				analysis.ScanErrors++
				return nil
			}

			size := info.Size()
			category := categorize(name)
			savings := estimatedSavings(size, category)

			cs := stats[category]
			cs.Files++
			cs.SizeBytes += size
			cs.SavingsBytes += savings
			stats[category] = cs

			analysis.TotalFiles++
			analysis.TotalSizeBytes += size

			if size > histogramMinBytes {
				entry := FileEntry{
					Name:         name,
					Path:         path,
					SizeBytes:    size,
					Category:     category,
					Ratio:        categoryTable[category].ratio,
					SavingsBytes: savings,
				}
				if largest.Len() < histogramLimit {
					heap.Push(largest, entry)
				} else if size > (*largest)[0].SizeBytes {
					(*largest)[0] = entry
					heap.Fix(largest, 0)
				}
			}

			return nil
		})
		if err != nil {
			analysis.ScanErrors++
		}
	}

	for category, cs := range stats {
		if category == CategorySkip {
			continue
		}
		analysis.CompressibleFiles += cs.Files
		analysis.CompressibleSizeBytes += cs.SizeBytes
		analysis.EstimatedSavingsBytes += cs.SavingsBytes
	}

	if analysis.TotalSizeBytes > 0 {
		analysis.CompressionPotential = float64(analysis.CompressibleSizeBytes) / float64(analysis.TotalSizeBytes)
	}

	analysis.Categories = make(map[Category]CategoryStats, len(stats))
	for category, cs := range stats {
		if cs.Files > 0 {
			analysis.Categories[category] = cs
		}
	}

	analysis.LargestFiles = drainLargest(largest)
	analysis.Recommendations = buildRecommendations(stats)

	return analysis
}

// drainLargest empties the heap into a largest-first slice.
func drainLargest(h *fileHeap) []FileEntry {
	entries := make([]FileEntry, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		entries[i] = heap.Pop(h).(FileEntry)
	}
	return entries
}

// buildRecommendations picks the top 3 non-skip categories by savings.
func buildRecommendations(stats map[Category]CategoryStats) []Recommendation {
	type pair struct {
		category Category
		stats    CategoryStats
	}

	var pairs []pair
	for category, cs := range stats {
		if category == CategorySkip || cs.Files == 0 {
			continue
		}
		pairs = append(pairs, pair{category, cs})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].stats.SavingsBytes != pairs[j].stats.SavingsBytes {
			return pairs[i].stats.SavingsBytes > pairs[j].stats.SavingsBytes
		}
		return pairs[i].category < pairs[j].category
	})

	var recommendations []Recommendation
	for _, p := range pairs {
		recommendations = append(recommendations, Recommendation{
			Category:     p.category,
			Description:  "Compress " + p.stats.Label,
			FileCount:    p.stats.Files,
			SavingsBytes: p.stats.SavingsBytes,
			Ratio:        p.stats.Ratio,
		})
		if len(recommendations) == 3 {
			break
		}
	}

	return recommendations
}

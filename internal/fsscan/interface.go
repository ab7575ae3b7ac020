package fsscan

import "time"

// Category buckets files by how well they are expected to compress.
type Category string

const (
	CategoryText      Category = "text"
	CategoryDocuments Category = "documents"
	CategoryPDF       Category = "pdf"
	CategoryImages    Category = "images_lossless"
	CategoryDatabases Category = "databases"
	CategoryArchives  Category = "archives_recompressible"
	CategorySkip      Category = "skip"
)

// CategoryStats aggregates one category over a scan.
type CategoryStats struct {
	Label        string
	Files        int
	SizeBytes    int64
	SavingsBytes int64
	Ratio        float64
}

// FileEntry is one file in the largest-files histogram.
type FileEntry struct {
	Name         string
	Path         string
	SizeBytes    int64
	Category     Category
	Ratio        float64
	SavingsBytes int64
}

// Recommendation is one category worth compressing, ranked by savings.
type Recommendation struct {
	Category     Category
	Description  string
	FileCount    int
	SavingsBytes int64
	Ratio        float64
}

// Analysis is the outcome of one filesystem scan.
type Analysis struct {
	TotalFiles            int
	CompressibleFiles     int
	TotalSizeBytes        int64
	CompressibleSizeBytes int64
	EstimatedSavingsBytes int64
	// CompressionPotential is compressible bytes over total bytes, in [0,1].
	CompressionPotential float64
	Categories           map[Category]CategoryStats
	// LargestFiles holds at most 50 files over 1 MiB, largest first.
	LargestFiles    []FileEntry
	Recommendations []Recommendation
	ScanPaths       []string
	ScanErrors      int
	Timestamp       time.Time
}

// ReductionMode sets how aggressively writes are reduced.
type ReductionMode string

const (
	ModeNormal       ReductionMode = "normal"
	ModeConservative ReductionMode = "conservative"
	ModeAggressive   ReductionMode = "aggressive"
	ModeEmergency    ReductionMode = "emergency"
)

func (m ReductionMode) IsValid() bool {
	switch m {
	case ModeNormal, ModeConservative, ModeAggressive, ModeEmergency:
		return true
	default:
		return false
	}
}

// WriteReduction is the estimated effect of enabling compression.
type WriteReduction struct {
	Mode            ReductionMode
	MaxReduction    float64
	DirectReduction float64
	BatchingBonus   float64
	TotalReduction  float64
}

// Analyzer scans for compressible data and sizes the write-reduction effect.
type Analyzer interface {
	Analyze(roots []string) Analysis
	EstimateWriteReduction(healthScore, potential float64, override ReductionMode) (WriteReduction, error)
	Invalidate()
}

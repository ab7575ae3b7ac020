package fsscan

import "strings"

// categoryInfo carries the expected compression ratio for one category.
// Ratios come from real-world gzip benchmarks; "skip" covers formats that
// are already compressed.
type categoryInfo struct {
	label string
	ratio float64
	exts  []string
}

var categoryTable = map[Category]categoryInfo{
	CategoryText: {
		label: "Text & Code Files",
		ratio: 4.0,
		exts: []string{
			".txt", ".log", ".csv", ".json", ".xml", ".html",
			".js", ".ts", ".py", ".java", ".cpp", ".c", ".h",
			".css", ".md", ".yaml", ".yml", ".sh", ".bash",
			".ini", ".cfg", ".conf", ".toml", ".rst", ".tex", ".go",
		},
	},
	CategoryDocuments: {
		label: "Office Documents",
		ratio: 2.5,
		exts:  []string{".docx", ".xlsx", ".pptx", ".odt", ".ods", ".odp"},
	},
	CategoryPDF: {
		label: "PDF Files",
		ratio: 1.4,
		exts:  []string{".pdf"},
	},
	CategoryImages: {
		label: "Lossless Images",
		ratio: 1.5,
		exts:  []string{".png", ".bmp", ".tiff", ".tif", ".psd"},
	},
	CategoryDatabases: {
		label: "Database Files",
		ratio: 3.0,
		exts:  []string{".db", ".sqlite", ".sqlite3", ".sql"},
	},
	CategoryArchives: {
		label: "Archives (recompressible)",
		ratio: 1.2,
		exts:  []string{".tar", ".iso"},
	},
	CategorySkip: {
		label: "Already Compressed",
		ratio: 1.0,
		exts: []string{
			".jpg", ".jpeg", ".mp4", ".mp3", ".aac", ".flac",
			".zip", ".gz", ".bz2", ".xz", ".7z", ".rar",
			".exe", ".dll", ".so", ".dylib", ".app",
			".mov", ".avi", ".mkv", ".webm",
		},
	},
}

var extToCategory = buildExtMap()

func buildExtMap() map[string]Category {
	m := make(map[string]Category)
	for category, info := range categoryTable {
		for _, ext := range info.exts {
			m[ext] = category
		}
	}
	return m
}

// categorize maps a filename to its compression category. Unknown
// extensions are treated as already compressed.
func categorize(name string) Category {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return CategorySkip
	}

	if category, ok := extToCategory[strings.ToLower(name[idx:])]; ok {
		return category
	}
	return CategorySkip
}

// skipDirs are directory names never worth descending into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	".git":         true,
	"venv":         true,
	".venv":        true,
	"env":          true,
	"vendor":       true,
	"target":       true,
	"build":        true,
	"dist":         true,
}

// estimatedSavings is the write volume avoided by compressing a file of
// the given size at the category's expected ratio.
func estimatedSavings(size int64, category Category) int64 {
	if category == CategorySkip {
		return 0
	}
	ratio := categoryTable[category].ratio
	return int64(float64(size) * (1 - 1/ratio))
}

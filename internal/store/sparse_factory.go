package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// SparseBackend selects the sparse index implementation.
type SparseBackend string

const (
	// SparseBackendFTS uses SQLite FTS5 (default). WAL mode allows queries
	// while background indexing is writing.
	SparseBackendFTS SparseBackend = "fts"

	// SparseBackendBleve uses Bleve v2. BoltDB holds an exclusive file
	// lock, so this backend is single-process.
	SparseBackendBleve SparseBackend = "bleve"
)

// NewSparseIndexWithBackend creates a SparseIndex using the given backend.
// basePath is extended with a backend-specific suffix (.db or .bleve).
// An empty basePath creates an in-memory index for testing.
func NewSparseIndexWithBackend(basePath string, config SparseConfig, backend string) (SparseIndex, error) {
	switch backend {
	case string(SparseBackendFTS), "":
		var path string
		if basePath != "" {
			path = basePath + ".db"
		}
		return NewFTSIndex(path, config)

	case string(SparseBackendBleve):
		var path string
		if basePath != "" {
			path = basePath + ".bleve"
		}
		return NewBleveIndex(path, config)

	default:
		return nil, fmt.Errorf("unknown sparse backend: %s (valid options: fts, bleve)", backend)
	}
}

// DetectSparseBackend reports which backend an existing index on disk uses,
// or an empty string when none exists.
func DetectSparseBackend(basePath string) SparseBackend {
	if fileExists(basePath + ".db") {
		return SparseBackendFTS
	}
	if dirExists(basePath + ".bleve") {
		return SparseBackendBleve
	}
	return ""
}

// SparseIndexPath returns the on-disk path for the given backend.
func SparseIndexPath(dataDir string, backend string) string {
	basePath := filepath.Join(dataDir, "sparse")
	switch backend {
	case string(SparseBackendBleve):
		return basePath + ".bleve"
	default:
		return basePath + ".db"
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

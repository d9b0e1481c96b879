// Package config loads and validates papervault configuration from YAML
// files and environment variables. Precedence: built-in defaults, then the
// user config file, then PAPERVAULT_* environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete papervault configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Quality    QualityConfig    `yaml:"quality" json:"quality"`
	Dedup      DedupConfig      `yaml:"dedup" json:"dedup"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Similarity SimilarityConfig `yaml:"similarity" json:"similarity"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// StorageConfig configures the persistent store and indices.
type StorageConfig struct {
	// DataDir is the root directory for the database, indices, and lock
	// file. Defaults to ~/.papervault.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// DenseBackend selects the dense index: "exact" (brute force over the
	// store) or "hnsw" (approximate graph index).
	DenseBackend string `yaml:"dense_backend" json:"dense_backend"`

	// SparseBackend selects the sparse index: "fts" (SQLite FTS5) or
	// "bleve".
	SparseBackend string `yaml:"sparse_backend" json:"sparse_backend"`
}

// ChunkingConfig configures document chunking.
type ChunkingConfig struct {
	// Strategy selects the chunker: "fixed" or "semantic".
	Strategy string `yaml:"strategy" json:"strategy"`

	MaxChunkWords int `yaml:"max_chunk_words" json:"max_chunk_words"`
	MinChunkWords int `yaml:"min_chunk_words" json:"min_chunk_words"`
	OverlapWords  int `yaml:"overlap_words" json:"overlap_words"`

	// Semantic chunker tuning.
	WindowSize          int     `yaml:"window_size" json:"window_size"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	Margin              float64 `yaml:"margin" json:"margin"`
}

// QualityConfig configures chunk quality filtering.
type QualityConfig struct {
	Enabled          bool    `yaml:"enabled" json:"enabled"`
	MinScore         float64 `yaml:"min_score" json:"min_score"`
	MinWordCount     int     `yaml:"min_word_count" json:"min_word_count"`
	MinSentenceCount int     `yaml:"min_sentence_count" json:"min_sentence_count"`
}

// DedupConfig configures duplicate chunk removal.
type DedupConfig struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	NearThreshold float64 `yaml:"near_threshold" json:"near_threshold"`
	NearWindow    int     `yaml:"near_window" json:"near_window"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder. "static" is the only built-in.
	Provider   string `yaml:"provider" json:"provider"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig configures hybrid search.
type SearchConfig struct {
	// DenseWeight and SparseWeight must sum to 1.0.
	DenseWeight  float64 `yaml:"dense_weight" json:"dense_weight"`
	SparseWeight float64 `yaml:"sparse_weight" json:"sparse_weight"`

	// RRFConstant is the fusion smoothing parameter k.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// Hybrid toggles sparse fusion. When false all queries are dense-only.
	Hybrid bool `yaml:"hybrid" json:"hybrid"`

	MaxResults int `yaml:"max_results" json:"max_results"`
}

// SimilarityConfig configures document similarity edges.
type SimilarityConfig struct {
	// Threshold is the minimum cosine similarity for an edge.
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`

	// Dir is the log directory. Defaults to <data_dir>/logs.
	Dir string `yaml:"dir" json:"dir"`
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			DataDir:       defaultDataDir(),
			DenseBackend:  "hnsw",
			SparseBackend: "fts",
		},
		Chunking: ChunkingConfig{
			Strategy:            "fixed",
			MaxChunkWords:       300,
			MinChunkWords:       50,
			OverlapWords:        30,
			WindowSize:          3,
			SimilarityThreshold: 0.75,
			Margin:              0.1,
		},
		Quality: QualityConfig{
			Enabled:          true,
			MinScore:         0.4,
			MinWordCount:     5,
			MinSentenceCount: 1,
		},
		Dedup: DedupConfig{
			Enabled:       true,
			NearThreshold: 0.85,
			NearWindow:    3,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Dimensions: 256,
			BatchSize:  32,
			CacheSize:  2000,
		},
		Search: SearchConfig{
			DenseWeight:  0.6,
			SparseWeight: 0.4,
			RRFConstant:  60,
			Hybrid:       true,
			MaxResults:   10,
		},
		Similarity: SimilarityConfig{
			Threshold: 0.7,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultDataDir returns the default data directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".papervault")
	}
	return filepath.Join(home, ".papervault")
}

// UserConfigPath returns the user configuration file path, following the
// XDG Base Directory specification.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "papervault", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "papervault", "config.yaml")
	}
	return filepath.Join(home, ".config", "papervault", "config.yaml")
}

// Load builds the effective configuration: defaults, overlaid by the user
// config file if present, overlaid by environment variables, then validated.
func Load() (*Config, error) {
	return LoadFile(UserConfigPath())
}

// LoadFile is Load with an explicit config file path. A missing file is not
// an error; defaults apply.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// boolOverlay re-parses the toggles whose absence in the file is
// indistinguishable from false after unmarshaling into Config.
type boolOverlay struct {
	Quality struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"quality"`
	Dedup struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"dedup"`
	Search struct {
		Hybrid *bool `yaml:"hybrid"`
	} `yaml:"search"`
}

// loadYAML parses a YAML file and merges non-zero values over c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	var toggles boolOverlay
	if err := yaml.Unmarshal(data, &toggles); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)

	if toggles.Quality.Enabled != nil {
		c.Quality.Enabled = *toggles.Quality.Enabled
	}
	if toggles.Dedup.Enabled != nil {
		c.Dedup.Enabled = *toggles.Dedup.Enabled
	}
	if toggles.Search.Hybrid != nil {
		c.Search.Hybrid = *toggles.Search.Hybrid
	}
	return nil
}

// mergeWith merges non-zero values from other into c. Booleans are handled
// by the boolOverlay pass in loadYAML, where set-to-false and absent are
// distinguishable.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Storage.DataDir != "" {
		c.Storage.DataDir = other.Storage.DataDir
	}
	if other.Storage.DenseBackend != "" {
		c.Storage.DenseBackend = other.Storage.DenseBackend
	}
	if other.Storage.SparseBackend != "" {
		c.Storage.SparseBackend = other.Storage.SparseBackend
	}

	if other.Chunking.Strategy != "" {
		c.Chunking.Strategy = other.Chunking.Strategy
	}
	if other.Chunking.MaxChunkWords != 0 {
		c.Chunking.MaxChunkWords = other.Chunking.MaxChunkWords
	}
	if other.Chunking.MinChunkWords != 0 {
		c.Chunking.MinChunkWords = other.Chunking.MinChunkWords
	}
	if other.Chunking.OverlapWords != 0 {
		c.Chunking.OverlapWords = other.Chunking.OverlapWords
	}
	if other.Chunking.WindowSize != 0 {
		c.Chunking.WindowSize = other.Chunking.WindowSize
	}
	if other.Chunking.SimilarityThreshold != 0 {
		c.Chunking.SimilarityThreshold = other.Chunking.SimilarityThreshold
	}
	if other.Chunking.Margin != 0 {
		c.Chunking.Margin = other.Chunking.Margin
	}

	if other.Quality.MinScore != 0 {
		c.Quality.MinScore = other.Quality.MinScore
	}
	if other.Quality.MinWordCount != 0 {
		c.Quality.MinWordCount = other.Quality.MinWordCount
	}
	if other.Quality.MinSentenceCount != 0 {
		c.Quality.MinSentenceCount = other.Quality.MinSentenceCount
	}
	if other.Dedup.NearThreshold != 0 {
		c.Dedup.NearThreshold = other.Dedup.NearThreshold
	}
	if other.Dedup.NearWindow != 0 {
		c.Dedup.NearWindow = other.Dedup.NearWindow
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Search.DenseWeight != 0 {
		c.Search.DenseWeight = other.Search.DenseWeight
	}
	if other.Search.SparseWeight != 0 {
		c.Search.SparseWeight = other.Search.SparseWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if other.Similarity.Threshold != 0 {
		c.Similarity.Threshold = other.Similarity.Threshold
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Dir != "" {
		c.Logging.Dir = other.Logging.Dir
	}
}

// applyEnvOverrides applies PAPERVAULT_* environment variables, the highest
// precedence configuration source.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PAPERVAULT_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("PAPERVAULT_DENSE_BACKEND"); v != "" {
		c.Storage.DenseBackend = v
	}
	if v := os.Getenv("PAPERVAULT_SPARSE_BACKEND"); v != "" {
		c.Storage.SparseBackend = v
	}
	if v := os.Getenv("PAPERVAULT_CHUNK_STRATEGY"); v != "" {
		c.Chunking.Strategy = v
	}
	if v := os.Getenv("PAPERVAULT_DENSE_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.DenseWeight = w
		}
	}
	if v := os.Getenv("PAPERVAULT_SPARSE_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.SparseWeight = w
		}
	}
	if v := os.Getenv("PAPERVAULT_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("PAPERVAULT_HYBRID"); v != "" {
		c.Search.Hybrid = parseBool(v)
	}
	if v := os.Getenv("PAPERVAULT_QUALITY_ENABLED"); v != "" {
		c.Quality.Enabled = parseBool(v)
	}
	if v := os.Getenv("PAPERVAULT_DEDUP_ENABLED"); v != "" {
		c.Dedup.Enabled = parseBool(v)
	}
	if v := os.Getenv("PAPERVAULT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Search.DenseWeight < 0 || c.Search.DenseWeight > 1 {
		return fmt.Errorf("dense_weight must be between 0 and 1, got %f", c.Search.DenseWeight)
	}
	if c.Search.SparseWeight < 0 || c.Search.SparseWeight > 1 {
		return fmt.Errorf("sparse_weight must be between 0 and 1, got %f", c.Search.SparseWeight)
	}
	sum := c.Search.DenseWeight + c.Search.SparseWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("dense_weight + sparse_weight must equal 1.0, got %.2f", sum)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("max_results must be non-negative, got %d", c.Search.MaxResults)
	}

	switch strings.ToLower(c.Chunking.Strategy) {
	case "fixed", "semantic":
	default:
		return fmt.Errorf("chunking.strategy must be 'fixed' or 'semantic', got %s", c.Chunking.Strategy)
	}
	if c.Chunking.MinChunkWords > c.Chunking.MaxChunkWords {
		return fmt.Errorf("min_chunk_words (%d) exceeds max_chunk_words (%d)",
			c.Chunking.MinChunkWords, c.Chunking.MaxChunkWords)
	}
	if c.Chunking.OverlapWords >= c.Chunking.MaxChunkWords {
		return fmt.Errorf("overlap_words (%d) must be less than max_chunk_words (%d)",
			c.Chunking.OverlapWords, c.Chunking.MaxChunkWords)
	}

	switch strings.ToLower(c.Storage.DenseBackend) {
	case "exact", "hnsw":
	default:
		return fmt.Errorf("storage.dense_backend must be 'exact' or 'hnsw', got %s", c.Storage.DenseBackend)
	}
	switch strings.ToLower(c.Storage.SparseBackend) {
	case "fts", "bleve":
	default:
		return fmt.Errorf("storage.sparse_backend must be 'fts' or 'bleve', got %s", c.Storage.SparseBackend)
	}

	if c.Embeddings.Provider != "" && strings.ToLower(c.Embeddings.Provider) != "static" {
		return fmt.Errorf("embeddings.provider must be 'static' or empty, got %s", c.Embeddings.Provider)
	}

	if c.Similarity.Threshold < 0 || c.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity.threshold must be between 0 and 1, got %f", c.Similarity.Threshold)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// LogDir returns the effective log directory.
func (c *Config) LogDir() string {
	if c.Logging.Dir != "" {
		return c.Logging.Dir
	}
	return filepath.Join(c.Storage.DataDir, "logs")
}

// DatabasePath returns the SQLite database path under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDir, "papervault.db")
}

// HNSWPath returns the HNSW snapshot path under the data directory.
func (c *Config) HNSWPath() string {
	return filepath.Join(c.Storage.DataDir, "dense.hnsw")
}

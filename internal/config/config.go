// Package config provides configuration loading and structs for the Tansaku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets and endpoints from the file.
const (
	EnvGraphURI      = "TANSAKU_GRAPH_URI"
	EnvGraphPassword = "TANSAKU_GRAPH_PASSWORD"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvRedisAddr     = "TANSAKU_REDIS_ADDR"
	EnvRedisPassword = "TANSAKU_REDIS_PASSWORD"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Graph     GraphConfig     `yaml:"graph"`
	Cache     CacheConfig     `yaml:"cache"`
	LLM       LLMConfig       `yaml:"llm"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the passage database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// SearchConfig holds retrieval and chunking settings.
type SearchConfig struct {
	TopK       int `yaml:"top_k"`
	CandidateK int `yaml:"candidate_k"`
	RRFK       int `yaml:"rrf_k"`
	// KeywordEnabled defaults to true when unset.
	KeywordEnabled *bool `yaml:"keyword_enabled"`
	ChunkSize      int   `yaml:"chunk_size"`
	ChunkOverlap   int   `yaml:"chunk_overlap"`
}

// KeywordEnabledOrDefault reports whether keyword search is on; defaults to true when unset.
func (s *SearchConfig) KeywordEnabledOrDefault() bool {
	if s.KeywordEnabled != nil {
		return *s.KeywordEnabled
	}
	return true
}

// RerankConfig holds cross-encoder settings.
type RerankConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Provider   string        `yaml:"provider"`
	ModelPath  string        `yaml:"model_path"`
	MaxTokens  int           `yaml:"max_tokens"`
	Candidates int           `yaml:"candidates"`
	TopK       int           `yaml:"top_k"`
	MaxChars   int           `yaml:"max_chars"`
	Timeout    time.Duration `yaml:"timeout"`
}

// GraphConfig holds property graph connection settings and per-kind caps.
type GraphConfig struct {
	URI          string        `yaml:"uri"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Database     string        `yaml:"database"`
	Timeout      time.Duration `yaml:"timeout"`
	Indicators   int           `yaml:"indicators"`
	Observations int           `yaml:"observations"`
	Trends       int           `yaml:"trends"`
	Demographics int           `yaml:"demographics"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	OpTimeout     time.Duration `yaml:"op_timeout"`
	BadgerPath    string        `yaml:"badger_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker around LLM calls.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxRequests uint32        `yaml:"max_requests"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	TripRatio   float64       `yaml:"trip_ratio"`
}

// WatchConfig lists report inbox directories the server keeps indexed.
type WatchConfig struct {
	Directories []string      `yaml:"directories"`
	Recursive   *bool         `yaml:"recursive"`
	Debounce    time.Duration `yaml:"debounce"`
}

// RecursiveOrDefault reports whether subdirectories are watched; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults and
// environment overrides, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Rerank.ModelPath != "" {
		cfg.Rerank.ModelPath = expandPath(cfg.Rerank.ModelPath, configDir)
	}
	if cfg.Cache.BadgerPath != "" {
		cfg.Cache.BadgerPath = expandPath(cfg.Cache.BadgerPath, configDir)
	}
	for i, dir := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(dir, configDir)
	}

	return &cfg, nil
}

// ApplyEnv overrides endpoints and secrets from the environment when set.
func ApplyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Graph.URI, EnvGraphURI)
	override(&cfg.Graph.Password, EnvGraphPassword)
	override(&cfg.LLM.APIKey, EnvOpenAIKey)
	override(&cfg.Cache.RedisAddr, EnvRedisAddr)
	override(&cfg.Cache.RedisPassword, EnvRedisPassword)
}

// Save writes the config to path. Used by "tansaku init".
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

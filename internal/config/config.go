// Package config provides configuration loading and structs for vibematch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Match     MatchConfig     `yaml:"match"`
	Eval      EvalConfig      `yaml:"eval"`
}

// ServerConfig holds HTTP server settings for the local demo API.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CatalogConfig locates the product catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`

	// Filter is an optional CEL expression over `product`, e.g. `"boho" in product.tags`.
	Filter string `yaml:"filter"`

	// Watch reloads the catalog on change when serving.
	Watch bool `yaml:"watch"`

	// Debounce is how long to wait after the last file event before reloading.
	Debounce time.Duration `yaml:"debounce"`
}

// EmbeddingConfig selects and configures the embedding strategy.
type EmbeddingConfig struct {
	// Strategy is one of "remote", "local", "hash".
	Strategy string `yaml:"strategy"`

	// Fallback is used only when the primary strategy cannot be constructed. Empty means none.
	Fallback string `yaml:"fallback"`

	CacheSize int              `yaml:"cache_size"`
	OpenAI    OpenAIConfig     `yaml:"openai"`
	Local     LocalModelConfig `yaml:"local"`
	Hash      HashConfig       `yaml:"hash"`
}

// OpenAIConfig holds settings for an OpenAI-compatible embeddings API.
type OpenAIConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LocalModelConfig holds ONNX embedder settings.
type LocalModelConfig struct {
	ModelPath  string `yaml:"model_path"`
	HubRepo    string `yaml:"hub_repo"`
	HubFile    string `yaml:"hub_file"`
	CacheDir   string `yaml:"cache_dir"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	OutputName string `yaml:"output_name"`

	// VocabPath is the model's WordPiece vocab.txt; HubVocabFile is fetched from HubRepo when missing.
	VocabPath    string `yaml:"vocab_path"`
	HubVocabFile string `yaml:"hub_vocab_file"`

	// MeanPool averages token embeddings over the attention mask (sentence-transformers export).
	MeanPool bool `yaml:"mean_pool"`
}

// HashConfig holds settings for the offline hashing embedder.
type HashConfig struct {
	Dimensions int `yaml:"dimensions"`
}

// StoreConfig selects the external vector store.
type StoreConfig struct {
	// Type is one of "none", "memory", "sqlite", "redis", "faiss".
	Type string `yaml:"type"`

	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// MatchConfig holds matching defaults.
type MatchConfig struct {
	DefaultTopK   int     `yaml:"default_top_k"`
	MaxTopK       int     `yaml:"max_top_k"`
	GoodThreshold float64 `yaml:"good_threshold"`
}

// EvalConfig drives the evaluation command.
type EvalConfig struct {
	Queries     []string `yaml:"queries"`
	TopK        int      `yaml:"top_k"`
	Repeats     int      `yaml:"repeats"`
	Concurrency int      `yaml:"concurrency"`
	OutputDir   string   `yaml:"output_dir"`
	XLSX        bool     `yaml:"xlsx"`
	Plot        bool     `yaml:"plot"`
}

// Load reads and parses the config file at path, expands ${VAR} references and paths,
// and applies defaults. Environment variables are read here and nowhere else.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Catalog.Path = expandPath(cfg.Catalog.Path, configDir)
	cfg.Embedding.Local.ModelPath = expandPath(cfg.Embedding.Local.ModelPath, configDir)
	cfg.Embedding.Local.CacheDir = expandPath(cfg.Embedding.Local.CacheDir, configDir)
	cfg.Embedding.Local.VocabPath = expandPath(cfg.Embedding.Local.VocabPath, configDir)
	if cfg.Store.Path != "" {
		cfg.Store.Path = expandPath(cfg.Store.Path, configDir)
	}
	cfg.Eval.OutputDir = expandPath(cfg.Eval.OutputDir, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that cannot start a session.
func (c *Config) Validate() error {
	switch c.Embedding.Strategy {
	case "remote", "local", "hash":
	default:
		return fmt.Errorf("invalid embedding.strategy %q (supported: remote, local, hash)", c.Embedding.Strategy)
	}
	switch c.Embedding.Fallback {
	case "", "remote", "local", "hash":
	default:
		return fmt.Errorf("invalid embedding.fallback %q", c.Embedding.Fallback)
	}
	switch c.Store.Type {
	case "", "none", "memory", "sqlite", "redis", "faiss":
	default:
		return fmt.Errorf("invalid store.type %q (supported: none, memory, sqlite, redis, faiss)", c.Store.Type)
	}
	if c.Match.GoodThreshold < -1 || c.Match.GoodThreshold > 1 {
		return fmt.Errorf("match.good_threshold must be within [-1, 1], got %v", c.Match.GoodThreshold)
	}
	if c.Eval.Concurrency < 1 {
		return fmt.Errorf("eval.concurrency must be at least 1")
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. "~/" is the home directory; every other relative
// path is relative to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(configDir, path)
}

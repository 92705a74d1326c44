package config

import "time"

// DefaultEvalQueries are the prompts the evaluation runs when none are configured.
var DefaultEvalQueries = []string{
	"energetic urban chic",
	"relaxed cozy loungewear",
	"boho festival earthy tones",
}

// DefaultGoodThreshold is the score a top match must strictly exceed to count as good.
const DefaultGoodThreshold = 0.7

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "data/products.json"
	}
	if cfg.Catalog.Debounce == 0 {
		cfg.Catalog.Debounce = 500 * time.Millisecond
	}

	if cfg.Embedding.Strategy == "" {
		cfg.Embedding.Strategy = "remote"
	}
	if cfg.Embedding.OpenAI.Model == "" {
		cfg.Embedding.OpenAI.Model = "text-embedding-ada-002"
	}
	if cfg.Embedding.OpenAI.Dimensions == 0 {
		cfg.Embedding.OpenAI.Dimensions = 1536
	}
	if cfg.Embedding.OpenAI.BatchSize == 0 {
		cfg.Embedding.OpenAI.BatchSize = 100
	}
	if cfg.Embedding.OpenAI.Timeout == 0 {
		cfg.Embedding.OpenAI.Timeout = 30 * time.Second
	}
	if cfg.Embedding.Local.ModelPath == "" {
		cfg.Embedding.Local.ModelPath = "models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Local.HubFile == "" {
		cfg.Embedding.Local.HubFile = "onnx/model.onnx"
	}
	if cfg.Embedding.Local.VocabPath == "" {
		cfg.Embedding.Local.VocabPath = "models/vocab.txt"
	}
	if cfg.Embedding.Local.HubVocabFile == "" {
		cfg.Embedding.Local.HubVocabFile = "vocab.txt"
	}
	if cfg.Embedding.Local.Dimensions == 0 {
		cfg.Embedding.Local.Dimensions = 384
	}
	if cfg.Embedding.Local.MaxTokens == 0 {
		cfg.Embedding.Local.MaxTokens = 256
	}
	if cfg.Embedding.Local.OutputName == "" {
		cfg.Embedding.Local.OutputName = "last_hidden_state"
		cfg.Embedding.Local.MeanPool = true
	}
	if cfg.Embedding.Hash.Dimensions == 0 {
		cfg.Embedding.Hash.Dimensions = 256
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "none"
	}
	if cfg.Store.KeyPrefix == "" {
		cfg.Store.KeyPrefix = "vibematch:"
	}

	if cfg.Match.DefaultTopK == 0 {
		cfg.Match.DefaultTopK = 3
	}
	if cfg.Match.MaxTopK == 0 {
		cfg.Match.MaxTopK = 100
	}
	if cfg.Match.GoodThreshold == 0 {
		cfg.Match.GoodThreshold = DefaultGoodThreshold
	}

	if len(cfg.Eval.Queries) == 0 {
		cfg.Eval.Queries = append([]string(nil), DefaultEvalQueries...)
	}
	if cfg.Eval.TopK == 0 {
		cfg.Eval.TopK = 3
	}
	if cfg.Eval.Repeats == 0 {
		cfg.Eval.Repeats = 5
	}
	if cfg.Eval.Concurrency == 0 {
		cfg.Eval.Concurrency = 1
	}
	if cfg.Eval.OutputDir == "" {
		cfg.Eval.OutputDir = "."
	}
}

// Default returns a config with every default applied and no file behind it.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

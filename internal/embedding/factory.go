package embedding

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/config"
)

// New builds the configured embedding strategy once for the session. If it cannot be built
// and cfg.Fallback names another strategy, the fallback is built instead and the switch is
// logged at warn level. With no fallback the construction error is returned.
// A positive CacheSize wraps the result in a CachedEmbedder.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e, err := build(Strategy(cfg.Strategy), cfg, logger)
	if err != nil {
		if cfg.Fallback == "" || cfg.Fallback == cfg.Strategy {
			return nil, err
		}
		logger.Warn("embedding strategy unavailable, switching to configured fallback",
			zap.String("strategy", cfg.Strategy),
			zap.String("fallback", cfg.Fallback),
			zap.Error(err),
		)
		var fbErr error
		e, fbErr = build(Strategy(cfg.Fallback), cfg, logger)
		if fbErr != nil {
			return nil, errors.Join(err, fmt.Errorf("fallback %s: %w", cfg.Fallback, fbErr))
		}
	}
	logger.Debug("embedder ready",
		zap.String("strategy", cfg.Strategy),
		zap.Int("dimensions", e.Dimensions()),
	)
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}

func build(s Strategy, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	switch s {
	case StrategyRemote:
		o := cfg.OpenAI
		e, err := NewOpenAIEmbedder(OpenAIOptions{
			APIKey:     o.APIKey,
			BaseURL:    o.BaseURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
			BatchSize:  o.BatchSize,
			Timeout:    o.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case StrategyLocal:
		path, err := ResolveModelPath(cfg.Local, logger)
		if err != nil {
			return nil, err
		}
		tok, err := loadTokenizer(cfg.Local, logger)
		if err != nil {
			return nil, err
		}
		e, err := NewONNXEmbedder(ONNXOptions{
			ModelPath:  path,
			Tokenizer:  tok,
			Dimensions: cfg.Local.Dimensions,
			MaxTokens:  cfg.Local.MaxTokens,
			OutputName: cfg.Local.OutputName,
			MeanPool:   cfg.Local.MeanPool,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case StrategyHash:
		return NewHashEmbedder(cfg.Hash.Dimensions), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: remote, local, hash)", ErrUnsupportedStrategy, s)
	}
}

// loadTokenizer builds the WordPiece tokenizer from the local model's vocabulary.
func loadTokenizer(cfg config.LocalModelConfig, logger *zap.Logger) (*WordPieceTokenizer, error) {
	path, err := ResolveVocabPath(cfg, logger)
	if err != nil {
		return nil, err
	}
	vocab, err := LoadVocab(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedStrategy, err)
	}
	tok, err := NewWordPieceTokenizer(vocab)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnsupportedStrategy, path, err)
	}
	return tok, nil
}

package embedding

import (
	"fmt"
	"os"

	"github.com/gomlx/go-huggingface/hub"
	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/config"
)

// ResolveModelPath returns a usable ONNX model file for cfg. An existing ModelPath wins;
// otherwise HubFile is fetched from the Hugging Face repo HubRepo into CacheDir.
func ResolveModelPath(cfg config.LocalModelConfig, logger *zap.Logger) (string, error) {
	return resolveHubFile(cfg, cfg.ModelPath, cfg.HubFile, logger)
}

// ResolveVocabPath is ResolveModelPath for the model's WordPiece vocabulary.
func ResolveVocabPath(cfg config.LocalModelConfig, logger *zap.Logger) (string, error) {
	return resolveHubFile(cfg, cfg.VocabPath, cfg.HubVocabFile, logger)
}

func resolveHubFile(cfg config.LocalModelConfig, localPath, hubFile string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if localPath != "" {
		if _, err := os.Stat(localPath); err == nil {
			return localPath, nil
		}
	}
	if cfg.HubRepo == "" {
		return "", fmt.Errorf("%w: %s not found and no hub_repo configured", ErrUnsupportedStrategy, localPath)
	}

	repo := hub.New(cfg.HubRepo)
	if cfg.CacheDir != "" {
		repo = repo.WithCacheDir(cfg.CacheDir)
	}
	logger.Info("downloading model file",
		zap.String("repo", cfg.HubRepo),
		zap.String("file", hubFile),
	)
	path, err := repo.DownloadFile(hubFile)
	if err != nil {
		return "", fmt.Errorf("%w: download %s from %s: %w", ErrUnsupportedStrategy, hubFile, cfg.HubRepo, err)
	}
	logger.Debug("model file ready", zap.String("path", path))
	return path, nil
}

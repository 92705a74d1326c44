package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/catalog"
	"github.com/hyperjump/vibematch/internal/config"
	"github.com/hyperjump/vibematch/internal/embedding"
	"github.com/hyperjump/vibematch/internal/matcher"
	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/store"
	"github.com/hyperjump/vibematch/pkg/utils"
)

// app holds the components one command run needs.
type app struct {
	cfg        *config.Config
	configPath string
	debug      bool
	logger     *zap.Logger
	embedder   embedding.Embedder
	store      store.Store
	engine     *matcher.Engine
}

// loadApp resolves the config and applies persistent flag overrides. It does not build
// any component.
func loadApp(cmd *cobra.Command, structuredLogs bool) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		cfg.Catalog.Path = p
	}
	if s, _ := cmd.Flags().GetString("strategy"); s != "" {
		cfg.Embedding.Strategy = s
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	debugFlag, _ := cmd.Flags().GetBool("debug")
	debug := cfg.Debug || debugFlag

	newLogger := utils.NewCLILogger
	if structuredLogs {
		newLogger = utils.NewLogger
	}
	logger, err := newLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolved),
		zap.String("catalog", cfg.Catalog.Path),
		zap.String("strategy", cfg.Embedding.Strategy),
	)
	return &app{cfg: cfg, configPath: resolved, debug: debug, logger: logger}, nil
}

// openEmbedder builds the configured embedding strategy.
func (a *app) openEmbedder() error {
	e, err := embedding.New(a.cfg.Embedding, a.logger)
	if err != nil {
		return err
	}
	a.embedder = e
	return nil
}

// openStore opens the configured vector store, if any. Call after openEmbedder.
func (a *app) openStore(ctx context.Context) error {
	opts := a.storeOptions()
	if a.embedder != nil {
		opts.Dimensions = a.embedder.Dimensions()
	}
	st, err := store.New(ctx, opts)
	if err != nil {
		return err
	}
	a.store = st
	return nil
}

func (a *app) storeOptions() store.Options {
	return store.Options{
		Type:      a.cfg.Store.Type,
		Path:      a.cfg.Store.Path,
		RedisAddr: a.cfg.Store.RedisAddr,
		RedisDB:   a.cfg.Store.RedisDB,
		KeyPrefix: a.cfg.Store.KeyPrefix,
	}
}

// openEngine builds embedder, store and engine, then loads the catalog into a session.
// A store that fails to open is a warning: the engine runs without one and ranks locally.
// Store configuration errors stay fatal.
func (a *app) openEngine(ctx context.Context) error {
	if err := a.openEmbedder(); err != nil {
		return err
	}
	if err := a.openStore(ctx); err != nil {
		if !errors.Is(err, store.ErrStoreFailure) {
			return err
		}
		a.logger.Warn("vector store unavailable, continuing with local ranking",
			zap.String("store", a.cfg.Store.Type),
			zap.Error(err),
		)
		a.store = nil
	}
	opts := []matcher.EngineOption{
		matcher.WithLogger(a.logger),
		matcher.WithMatchConfig(a.cfg.Match),
	}
	if a.store != nil {
		opts = append(opts, matcher.WithStore(a.store))
	}
	a.engine = matcher.NewEngine(a.embedder, opts...)
	return a.reload(ctx)
}

// reload reads the catalog again and swaps the engine session.
func (a *app) reload(ctx context.Context) error {
	products, err := loadCatalog(ctx, a.cfg)
	if err != nil {
		return err
	}
	_, err = a.engine.Reload(ctx, products)
	return err
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close failed", zap.Error(err))
		}
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	_ = a.logger.Sync()
}

// loadCatalog loads the configured catalog and applies catalog.filter.
func loadCatalog(ctx context.Context, cfg *config.Config) ([]models.Product, error) {
	products, err := catalog.Load(ctx, cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	filter, err := catalog.NewFilter(cfg.Catalog.Filter)
	if err != nil {
		return nil, fmt.Errorf("catalog.filter: %w", err)
	}
	return filter.Apply(products)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/server"
	"github.com/hyperjump/vibematch/internal/watcher"
)

// NewServeCmd runs the local demo HTTP API.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Bool("watch", false, "reload the catalog when its file changes (default catalog.watch)")
	cmd.Flags().Bool("publish", false, "upsert catalog vectors to the store on start and after each reload")
	cmd.Flags().String("host", "", "listen host (default server.host)")
	cmd.Flags().Int("port", 0, "listen port (default server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if h, _ := cmd.Flags().GetString("host"); h != "" {
		a.cfg.Server.Host = h
	}
	if p, _ := cmd.Flags().GetInt("port"); p != 0 {
		a.cfg.Server.Port = p
	}
	watch := a.cfg.Catalog.Watch
	if cmd.Flags().Changed("watch") {
		watch, _ = cmd.Flags().GetBool("watch")
	}
	publish, _ := cmd.Flags().GetBool("publish")

	ctx := cmd.Context()
	a.logger.Info("config loaded",
		zap.String("config_path", a.configPath),
		zap.Bool("debug", a.debug),
	)
	if err := a.openEngine(ctx); err != nil {
		return err
	}
	if publish {
		a.publish(ctx)
	}

	if watch {
		opts := []watcher.Option{watcher.WithDebounce(a.cfg.Catalog.Debounce)}
		if a.debug {
			opts = append(opts, watcher.WithLogger(a.logger))
		}
		w, err := watcher.NewWatcher([]string{a.cfg.Catalog.Path}, func(path string) {
			if err := a.reload(ctx); err != nil {
				a.logger.Warn("catalog reload failed, keeping previous catalog", zap.String("path", path), zap.Error(err))
				return
			}
			if publish {
				a.publish(ctx)
			}
		}, opts...)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		a.logger.Info("watching catalog", zap.String("path", a.cfg.Catalog.Path))
	}

	srv := server.NewServer(a.engine, a.cfg, a.logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// publish upserts the current session; failures are warnings.
func (a *app) publish(ctx context.Context) {
	n, err := a.engine.Publish(ctx)
	if err != nil {
		a.logger.Warn("publish to vector store failed", zap.Error(err))
		return
	}
	a.logger.Info("published products", zap.Int("count", n), zap.String("store", a.store.Type()))
}

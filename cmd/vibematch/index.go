package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/indexer"
)

// NewIndexCmd embeds the catalog and upserts it into the configured vector store.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Publish catalog vectors to the vector store",
		Args:  cobra.NoArgs,
		RunE:  runIndex,
	}
	cmd.Flags().Int("batch-size", indexer.DefaultBatchSize, "products per embed and upsert call")
	return cmd
}

func runIndex(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	if err := a.openEmbedder(); err != nil {
		return err
	}
	if err := a.openStore(ctx); err != nil {
		return err
	}
	if a.store == nil {
		return fmt.Errorf("no vector store configured (set store.type)")
	}

	products, err := loadCatalog(ctx, a.cfg)
	if err != nil {
		return err
	}
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	idx := indexer.NewIndexer(a.embedder, a.store,
		indexer.WithBatchSize(batchSize),
		indexer.WithLogger(a.logger),
	)

	start := time.Now()
	n, err := idx.Index(ctx, products)
	if err != nil {
		return fmt.Errorf("indexed %d of %d products: %w", n, len(products), err)
	}
	a.logger.Debug("index finished", zap.Duration("took", time.Since(start)))
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d products into %s store in %s\n",
		n, a.store.Type(), time.Since(start).Round(time.Millisecond))
	return nil
}

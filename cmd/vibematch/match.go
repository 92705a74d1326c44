package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vibematch/internal/cli"
	"github.com/hyperjump/vibematch/internal/models"
)

// NewMatchCmd ranks the catalog against one query.
func NewMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <query...>",
		Short: "Find the products closest to a vibe",
		Long: `Embed the query and rank every catalog product by cosine similarity.
The query is all arguments joined by spaces, so quoting is optional.`,
		Example: `  vibematch match energetic urban chic
  vibematch match -k 5 --filter '"boho" in product.tags' festival outfit
  vibematch match --store --publish relaxed cozy loungewear
  vibematch match --server http://localhost:8080 -o json cozy`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMatch,
	}
	cmd.Flags().IntP("top-k", "k", 0, "number of matches (default match.default_top_k)")
	cmd.Flags().String("filter", "", "CEL expression over product, e.g. '\"boho\" in product.tags'")
	cmd.Flags().Bool("store", false, "query the configured vector store instead of ranking locally")
	cmd.Flags().Bool("publish", false, "upsert catalog vectors to the store before querying")
	cmd.Flags().StringP("output", "o", "text", "output format: text, compact, or json")
	cmd.Flags().String("server", "", "send the query to a running vibematch server instead")
	return cmd
}

// buildMatchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildMatchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runMatch(cmd *cobra.Command, args []string) error {
	outFlag, _ := cmd.Flags().GetString("output")
	format, err := cli.ParseOutputFormat(outFlag)
	if err != nil {
		return err
	}
	topK, _ := cmd.Flags().GetInt("top-k")
	filter, _ := cmd.Flags().GetString("filter")
	useStore, _ := cmd.Flags().GetBool("store")
	publish, _ := cmd.Flags().GetBool("publish")
	serverURL, _ := cmd.Flags().GetString("server")

	query := &models.MatchQuery{
		Query:    buildMatchQuery(args),
		TopK:     topK,
		Filter:   filter,
		UseStore: useStore,
	}
	if query.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if serverURL != "" {
		resp, err := matchViaHTTP(serverURL, query)
		if err != nil {
			return fmt.Errorf("match failed: %w", err)
		}
		return cli.WriteMatchResults(cmd.OutOrStdout(), resp, format)
	}

	a, err := loadApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	if err := a.openEngine(ctx); err != nil {
		return err
	}

	if publish {
		n, err := a.engine.Publish(ctx)
		if err != nil {
			a.logger.Warn("skipping publish", zap.Error(err))
		} else {
			a.logger.Info("published products", zap.Int("count", n))
		}
	}

	resp, err := a.engine.Match(ctx, query)
	if err != nil {
		return err
	}
	return cli.WriteMatchResults(cmd.OutOrStdout(), resp, format)
}

// matchViaHTTP posts the query to a running server's /api/v1/match.
func matchViaHTTP(serverURL string, query *models.MatchQuery) (*models.MatchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Post(strings.TrimSuffix(serverURL, "/")+"/api/v1/match", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, errBody.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	var out models.MatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/vibematch/internal/cli"
	"github.com/hyperjump/vibematch/internal/store"
)

type statusReport struct {
	ConfigPath string `json:"config_path"`
	Catalog    string `json:"catalog"`
	Products   int    `json:"products"`
	Strategy   string `json:"embedding_strategy"`
	Fallback   string `json:"embedding_fallback,omitempty"`
	StoreType  string `json:"store_type"`
	StoreSize  *int   `json:"store_size,omitempty"`
	StoreError string `json:"store_error,omitempty"`
	DiskBytes  int64  `json:"disk_usage_bytes"`
}

// NewStatusCmd reports the catalog and store state without embedding anything.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog and vector store status",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	cmd.Flags().Bool("json", false, "output JSON")
	cmd.Flags().String("server", "", "print the status of a running vibematch server instead")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if serverURL, _ := cmd.Flags().GetString("server"); serverURL != "" {
		return statusViaHTTP(cmd, serverURL)
	}

	a, err := loadApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	products, err := loadCatalog(ctx, a.cfg)
	if err != nil {
		return err
	}
	rep := statusReport{
		ConfigPath: a.configPath,
		Catalog:    a.cfg.Catalog.Path,
		Products:   len(products),
		Strategy:   a.cfg.Embedding.Strategy,
		Fallback:   a.cfg.Embedding.Fallback,
		StoreType:  a.cfg.Store.Type,
	}
	if err := a.openStore(ctx); err != nil {
		rep.StoreError = err.Error()
	} else if a.store != nil {
		if n, err := a.store.Size(ctx); err != nil {
			rep.StoreError = err.Error()
		} else {
			rep.StoreSize = &n
		}
	}
	if n, err := store.DiskUsageBytes(store.Footprint(a.storeOptions())...); err == nil {
		rep.DiskBytes = n
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	if rep.ConfigPath == "" {
		rep.ConfigPath = "(built-in defaults)"
	}
	fmt.Fprintf(out, "Config:    %s\n", rep.ConfigPath)
	fmt.Fprintf(out, "Catalog:   %s (%d products)\n", rep.Catalog, rep.Products)
	strategy := rep.Strategy
	if rep.Fallback != "" {
		strategy += " (fallback " + rep.Fallback + ")"
	}
	fmt.Fprintf(out, "Embedding: %s\n", strategy)
	switch {
	case rep.StoreError != "":
		fmt.Fprintf(out, "Store:     %s (error: %s)\n", rep.StoreType, rep.StoreError)
	case rep.StoreSize != nil:
		fmt.Fprintf(out, "Store:     %s (%d vectors, %s on disk)\n", rep.StoreType, *rep.StoreSize, cli.HumanBytes(rep.DiskBytes))
	default:
		fmt.Fprintf(out, "Store:     %s\n", rep.StoreType)
	}
	return nil
}

// statusViaHTTP fetches /api/v1/status from a running server and prints it as JSON.
func statusViaHTTP(cmd *cobra.Command, serverURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(strings.TrimSuffix(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(body)
}

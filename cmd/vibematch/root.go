package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vibematch",
		Short: "Match products to a vibe",
		Long: `vibematch embeds a product catalog and ranks products by cosine similarity
to free-text "vibe" queries such as "energetic urban chic".`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	rootCmd.AddCommand(
		NewMatchCmd(),
		NewEvalCmd(),
		NewIndexCmd(),
		NewServeCmd(),
		NewStatusCmd(),
		NewVersionCmd(version),
	)
	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", defaultConfigPath, "config file path")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("catalog", "", "catalog file (.json, .csv, .xlsx); overrides catalog.path")
	cmd.PersistentFlags().String("strategy", "", "embedding strategy (remote, local, hash); overrides embedding.strategy")
}

// NewVersionCmd prints the build version.
func NewVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("vibematch version %s\n", version)
		},
	}
}

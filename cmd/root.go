// Package cmd implements the link-aggregator command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-aggregator/cmd/cachecmd"
	"github.com/jonesrussell/north-cloud/link-aggregator/cmd/common"
	"github.com/jonesrussell/north-cloud/link-aggregator/cmd/run"
	"github.com/jonesrussell/north-cloud/link-aggregator/cmd/serve"
)

const version = "1.0.0"

// Execute runs the root command.
func Execute() error {
	_ = godotenv.Load()
	return newRootCommand().ExecuteContext(context.Background())
}

func newRootCommand() *cobra.Command {
	opts := &common.Options{}

	root := &cobra.Command{
		Use:           "link-aggregator",
		Short:         "Rank the articles your feeds are talking about",
		Long:          `Collects links from social lists and bookmark feeds, scrapes and merges them into article records, and ranks them by popularity.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.ConfigFile, "config", "",
		"config file (default is ./config.yml, ./config/config.yml or ~/.link-aggregator/config.yml)")
	root.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "link-aggregator version %s\n", version)
		},
	})
	root.AddCommand(run.Command(opts))
	root.AddCommand(serve.Command(opts))
	root.AddCommand(cachecmd.Command(opts))

	return root
}

// Package cachecmd implements the cache command group.
package cachecmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-aggregator/cmd/common"
)

// Command returns the cache command group.
func Command(opts *common.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit the article cache",
	}
	cmd.AddCommand(removeCommand(opts), knownCommand(opts))
	return cmd
}

func removeCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <url>",
		Short: "Mark an article as removed so it is never fetched or listed again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewDeps(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err = deps.Cache.Remove(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("remove: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func knownCommand(opts *common.Options) *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "known",
		Short: "List resolved article URLs, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewDeps(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer deps.Close()

			urls, err := deps.Cache.Known(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list known urls: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "URL"})
			for i, u := range urls {
				t.AppendRow(table.Row{i + 1, u})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().Int64Var(&limit, "limit", 50, "maximum number of URLs (0 for all)")
	return cmd
}

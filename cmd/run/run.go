// Package run implements the run command: one fetch cycle printed to stdout.
package run

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-aggregator/cmd/common"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
)

const maxTitleColumn = 60

// Command returns the run command.
func Command(opts *common.Options) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one fetch cycle and print the ranked articles",
		Long: `Fetches every configured source, resolves the mentioned links, merges them
with the previous snapshot and prints the ranked result.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewDeps(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			defer deps.Close()

			snap, err := deps.Coordinator.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			articles := snap.Articles
			if limit > 0 && limit < len(articles) {
				articles = articles[:limit]
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(articles)
			}
			RenderTable(cmd.OutOrStdout(), articles)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print articles as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many articles (0 for all)")

	return cmd
}

// RenderTable writes articles as a table.
func RenderTable(w io.Writer, articles []domain.ArticleRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: maxTitleColumn},
	})

	t.AppendHeader(table.Row{"Rank", "Title", "URL", "Sources", "RT", "Fav", "Bookmarks", "Categories"})
	for _, a := range articles {
		sources := make([]string, 0, len(a.Sources))
		for _, s := range a.Sources {
			sources = append(sources, string(s))
		}
		t.AppendRow(table.Row{
			a.Rank,
			a.Title,
			a.URL,
			strings.Join(sources, ","),
			a.RetweetCount,
			a.FavoriteCount,
			a.BookmarkCount(),
			strings.Join(a.Categories, ","),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d articles", len(articles))})
	t.Render()
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/search"
	"github.com/lorehq/lore/internal/types"
	"github.com/lorehq/lore/internal/ui"
)

var (
	searchMode    string
	searchProject string
	searchLimit   int
	searchDepth   int
	searchEdges   []string
	searchCompact bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search across decisions, patterns, and sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		var edges []types.Relation
		for _, e := range searchEdges {
			edges = append(edges, types.Relation(e))
		}
		query := strings.Join(args, " ")
		results, err := eng.Search.Search(ctx, query, search.Options{
			Mode:    search.Mode(searchMode),
			Project: searchProject,
			Limit:   searchLimit,
			Depth:   searchDepth,
			Edges:   edges,
		})
		if err != nil {
			return err
		}
		emit(results, func() {
			if searchCompact {
				for _, r := range results {
					fmt.Println(r.Compact())
				}
				return
			}
			rows := make([]ui.ResultRow, 0, len(results))
			for _, r := range results {
				rows = append(rows, ui.ResultRow{
					Type:    r.Type,
					ID:      r.ID,
					Title:   r.Title(80),
					Project: r.Project,
					Score:   r.Score,
				})
			}
			fmt.Print(ui.RenderResults(query, rows, ui.GetWidth()))
		})
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the search index from the stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		res, err := eng.Search.Rebuild(ctx)
		if err != nil {
			return err
		}
		emit(res, func() {
			fmt.Printf("indexed %d decisions, %d patterns, %d transfers, %d nodes, %d edges, %d embeddings\n",
				res.Decisions, res.Patterns, res.Transfers, res.Nodes, res.Edges, res.Embeddings)
		})
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchMode, "mode", "hybrid", "fts | semantic | hybrid | graph")
	searchCmd.Flags().StringVar(&searchProject, "project", "", "boost records from this project")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "max results")
	searchCmd.Flags().IntVar(&searchDepth, "depth", 0, "graph expansion depth")
	searchCmd.Flags().StringSliceVar(&searchEdges, "edges", nil, "graph expansion relation allowlist")
	searchCmd.Flags().BoolVar(&searchCompact, "compact", false, "one fixed-width line per result")

	rootCmd.AddCommand(searchCmd, buildCmd)
}

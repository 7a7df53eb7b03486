package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/graph"
	"github.com/lorehq/lore/internal/types"
	"github.com/lorehq/lore/internal/ui"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Work with the knowledge graph",
}

var nodeAddData string

var nodeAddCmd = &cobra.Command{
	Use:   "add <type> <name>",
	Short: "Add or update a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		var data map[string]interface{}
		if nodeAddData != "" {
			if err := json.Unmarshal([]byte(nodeAddData), &data); err != nil {
				return fmt.Errorf("parsing --data: %w", err)
			}
		}
		id, err := eng.Graph.AddNode(types.NodeType(args[0]), args[1], data)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var (
	linkWeight        float64
	linkBidirectional bool
)

var linkCmd = &cobra.Command{
	Use:   "link <from> <relation> <to>",
	Short: "Add a typed edge between two nodes",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		res, err := eng.Graph.AddEdge(args[0], args[2], types.Relation(args[1]), linkWeight, linkBidirectional)
		if err != nil {
			return err
		}
		emit(res, func() {
			if res.Updated {
				fmt.Println("edge updated")
			} else {
				fmt.Println("edge added")
			}
			if res.Warning != "" {
				fmt.Println(ui.WarnStyle.Render("warning: " + res.Warning))
			}
			if res.Superseded != "" {
				fmt.Println("superseded:", res.Superseded)
			}
		})
		return nil
	},
}

var graphQueryDepth int

var graphQueryCmd = &cobra.Command{
	Use:   "query <op> [args]",
	Short: "Run a traversal: neighbors|bfs|dfs|path|related|clusters|orphans|hubs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		g := eng.Graph
		op, rest := args[0], args[1:]
		switch op {
		case "neighbors":
			if len(rest) != 1 {
				return fmt.Errorf("usage: graph query neighbors <id>")
			}
			ids, err := g.Neighbors(rest[0])
			if err != nil {
				return err
			}
			emit(ids, func() { fmt.Println(strings.Join(ids, "\n")) })
		case "bfs", "dfs":
			if len(rest) != 1 {
				return fmt.Errorf("usage: graph query %s <id>", op)
			}
			var visits []graph.Visit
			if op == "bfs" {
				visits, err = g.BFS(rest[0], graphQueryDepth)
			} else {
				visits, err = g.DFS(rest[0], graphQueryDepth)
			}
			if err != nil {
				return err
			}
			emit(visits, func() {
				for _, v := range visits {
					fmt.Printf("%*s%s\n", v.Depth*2, "", v.NodeID)
				}
			})
		case "path":
			if len(rest) != 2 {
				return fmt.Errorf("usage: graph query path <from> <to>")
			}
			path, err := g.ShortestPath(rest[0], rest[1])
			if err != nil {
				return err
			}
			emit(path, func() { fmt.Println(strings.Join(path, " -> ")) })
		case "related":
			if len(rest) != 1 {
				return fmt.Errorf("usage: graph query related <id>")
			}
			hops := graphQueryDepth
			if hops <= 0 {
				hops = 2
			}
			rel, err := g.Related(rest[0], hops)
			if err != nil {
				return err
			}
			emit(rel, func() {
				for _, r := range rel {
					fmt.Printf("%s  (%d hops via %s)\n", r.NodeID, r.Hops, r.Relation)
				}
			})
		case "clusters":
			clusters, err := g.Clusters()
			if err != nil {
				return err
			}
			emit(clusters, func() {
				for i, c := range clusters {
					fmt.Printf("cluster %d (%d nodes): %s\n", i+1, len(c), strings.Join(c, ", "))
				}
			})
		case "orphans":
			orphans, err := g.Orphans()
			if err != nil {
				return err
			}
			emit(orphans, func() { fmt.Println(strings.Join(orphans, "\n")) })
		case "hubs":
			hubs, err := g.Hubs(graphQueryDepth)
			if err != nil {
				return err
			}
			emit(hubs, func() {
				for _, h := range hubs {
					fmt.Printf("%4d  %s\n", h.Degree, h.NodeID)
				}
			})
		default:
			return fmt.Errorf("unknown graph op %q", op)
		}
		return nil
	},
}

var graphSearchType string

var graphSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find nodes by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		matches, err := eng.Graph.Search(args[0], graph.SearchFilter{Type: types.NodeType(graphSearchType)})
		if err != nil {
			return err
		}
		emit(matches, func() {
			for _, m := range matches {
				fmt.Printf("%6.1f  %-8s  %s\n", m.Score, m.Reason, m.NodeID)
			}
		})
		return nil
	},
}

var graphSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the journal into the graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		res, err := eng.Graph.Sync(eng.Journal)
		if err != nil {
			return err
		}
		emit(res, func() {
			fmt.Printf("nodes added %d, updated %d, edges deduped %d\n",
				res.NodesAdded, res.NodesUpdated, res.EdgesDeduped)
		})
		return nil
	},
}

func init() {
	nodeAddCmd.Flags().StringVar(&nodeAddData, "data", "", "node data as a JSON object")
	linkCmd.Flags().Float64Var(&linkWeight, "weight", 1.0, "edge weight")
	linkCmd.Flags().BoolVar(&linkBidirectional, "both", false, "create the reverse edge too")
	graphQueryCmd.Flags().IntVar(&graphQueryDepth, "depth", -1, "max traversal depth (or hub limit)")
	graphSearchCmd.Flags().StringVar(&graphSearchType, "type", "", "restrict to one node type")

	graphCmd.AddCommand(nodeAddCmd, linkCmd, graphQueryCmd, graphSearchCmd, graphSyncCmd)
	rootCmd.AddCommand(graphCmd)
}

// Package search is the retrieval engine: a thin façade over the index
// that picks a mode, fails open when the index or the embedding provider
// is unavailable, and fuses hybrid results with Reciprocal Rank Fusion.
package search

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/embed"
	"github.com/lorehq/lore/internal/graph"
	"github.com/lorehq/lore/internal/index"
	"github.com/lorehq/lore/internal/journal"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/patterns"
	"github.com/lorehq/lore/internal/transfer"
	"github.com/lorehq/lore/internal/types"
)

// Mode selects the retrieval strategy.
type Mode string

const (
	ModeFTS      Mode = "fts"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
	ModeGraph    Mode = "graph"
)

// rrfK is the default Reciprocal Rank Fusion constant. Tunable via
// search.rrf-k.
const rrfK = 60

func rrfConstant() int {
	if k := config.GetInt("search.rrf-k"); k > 0 {
		return k
	}
	return rrfK
}

// hybridWidth is how deep each arm of a hybrid query reaches before
// fusion.
const hybridWidth = 20

// Options tune one query.
type Options struct {
	Mode    Mode
	Project string
	Limit   int
	Depth   int
	Edges   []types.Relation
}

// Engine wires the index to the stores it is derived from, so a missing
// index can be rebuilt on demand.
type Engine struct {
	root     *paths.Root
	journal  *journal.Store
	patterns *patterns.Store
	transfer *transfer.Store
	graph    *graph.Store
	embedder embed.Embedder
}

// New builds a retrieval engine over the data root.
func New(root *paths.Root, j *journal.Store, p *patterns.Store, t *transfer.Store, g *graph.Store, e embed.Embedder) *Engine {
	return &Engine{root: root, journal: j, patterns: p, transfer: t, graph: g, embedder: e}
}

// Rebuild regenerates the search index from the stores.
func (e *Engine) Rebuild(ctx context.Context) (*index.BuildResult, error) {
	in, err := e.gather()
	if err != nil {
		return nil, err
	}
	ix, err := index.Open(e.root)
	if err != nil {
		return nil, err
	}
	defer ix.Close()
	return ix.Build(ctx, in, e.embedder)
}

func (e *Engine) gather() (index.BuildInput, error) {
	var in index.BuildInput
	decisions, err := e.journal.List(journal.Filter{})
	if err != nil {
		return in, fmt.Errorf("reading journal: %w", err)
	}
	in.Decisions = decisions

	cat, err := e.patterns.Load()
	if err != nil {
		return in, fmt.Errorf("reading patterns: %w", err)
	}
	in.Patterns = cat.Patterns
	in.AntiPatterns = cat.AntiPatterns

	sessions, err := e.transfer.List()
	if err != nil {
		return in, fmt.Errorf("reading sessions: %w", err)
	}
	in.Sessions = sessions

	doc, err := e.graph.Load()
	if err != nil {
		return in, fmt.Errorf("reading graph: %w", err)
	}
	in.Graph = &index.GraphInput{Nodes: doc.Nodes, Edges: doc.Edges}
	return in, nil
}

// Search runs one query. A missing or never-built index triggers a
// rebuild; an unreachable embedding provider downgrades semantic and
// hybrid queries to lexical.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]index.Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = config.GetInt("search.limit")
	}
	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}

	if _, err := os.Stat(e.root.SearchDB()); os.IsNotExist(err) {
		if _, err := e.Rebuild(ctx); err != nil {
			return nil, err
		}
	}
	ix, err := index.Open(e.root)
	if err != nil {
		return nil, err
	}
	defer ix.Close()
	if !ix.HasFTS() {
		in, err := e.gather()
		if err != nil {
			return nil, err
		}
		if _, err := ix.Build(ctx, in, e.embedder); err != nil {
			return nil, err
		}
	}

	semanticOK := e.embedder != nil && e.embedder.Available(ctx)

	switch opts.Mode {
	case ModeFTS:
		return ix.Lexical(ctx, query, opts.Project, opts.Limit)
	case ModeSemantic:
		if !semanticOK {
			return ix.Lexical(ctx, query, opts.Project, opts.Limit)
		}
		return ix.Semantic(ctx, e.embedder, query, opts.Limit)
	case ModeGraph:
		seeds, err := ix.Lexical(ctx, query, opts.Project, opts.Limit)
		if err != nil {
			return nil, err
		}
		depth := opts.Depth
		if depth <= 0 {
			depth = config.GetInt("search.depth")
		}
		expanded, err := ix.Expand(ctx, seeds, query, depth, opts.Edges)
		if err != nil {
			return nil, err
		}
		if opts.Limit > 0 && len(expanded) > opts.Limit {
			expanded = expanded[:opts.Limit]
		}
		return expanded, nil
	case ModeHybrid:
		lex, err := ix.Lexical(ctx, query, opts.Project, hybridWidth)
		if err != nil {
			return nil, err
		}
		if !semanticOK {
			if len(lex) > opts.Limit {
				lex = lex[:opts.Limit]
			}
			return lex, nil
		}
		sem, err := ix.Semantic(ctx, e.embedder, query, hybridWidth)
		if err != nil {
			// Provider flaked mid-query; lexical results still stand.
			sem = nil
		}
		fused := RRF(lex, sem)
		if opts.Limit > 0 && len(fused) > opts.Limit {
			fused = fused[:opts.Limit]
		}
		return fused, nil
	default:
		return nil, fmt.Errorf("unknown search mode %q", opts.Mode)
	}
}

// RRF fuses ranked lists with Reciprocal Rank Fusion: each result scores
// the sum of 1/(K+rank) across the lists it appears in, K=60 by default.
// A single list comes back with RRF scores too, which keeps fusion
// associative.
func RRF(lists ...[]index.Result) []index.Result {
	k := rrfConstant()
	byID := make(map[string]*index.Result)
	scores := make(map[string]float64)
	var order []string
	for _, list := range lists {
		for rank, r := range list {
			scores[r.ID] += 1.0 / float64(k+rank+1)
			if _, ok := byID[r.ID]; !ok {
				copied := r
				byID[r.ID] = &copied
				order = append(order, r.ID)
			}
		}
	}
	out := make([]index.Result, 0, len(order))
	for _, id := range order {
		r := *byID[id]
		r.Score = scores[id]
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

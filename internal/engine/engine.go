// Package engine wires the stores together and owns the write-time
// pipeline: guards run before a record lands, and graph side-effects run
// after. Read paths go straight to the individual stores.
package engine

import (
	"context"

	"github.com/lorehq/lore/internal/brief"
	"github.com/lorehq/lore/internal/embed"
	"github.com/lorehq/lore/internal/failures"
	"github.com/lorehq/lore/internal/graph"
	"github.com/lorehq/lore/internal/guard"
	"github.com/lorehq/lore/internal/ids"
	"github.com/lorehq/lore/internal/inbox"
	"github.com/lorehq/lore/internal/intent"
	"github.com/lorehq/lore/internal/journal"
	"github.com/lorehq/lore/internal/outcome"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/patterns"
	"github.com/lorehq/lore/internal/search"
	"github.com/lorehq/lore/internal/transfer"
	"github.com/lorehq/lore/internal/types"
)

// Engine holds every store over one data root.
type Engine struct {
	Root     *paths.Root
	Journal  *journal.Store
	Patterns *patterns.Store
	Failures *failures.Store
	Inbox    *inbox.Store
	Graph    *graph.Store
	Transfer *transfer.Store
	Intent   *intent.Store
	Outcome  *outcome.Reviewer
	Brief    *brief.Composer
	Search   *search.Engine
	Embedder embed.Embedder
}

// New assembles an engine over a resolved data root.
func New(root *paths.Root) *Engine {
	e := &Engine{Root: root}
	e.Journal = journal.New(root)
	e.Patterns = patterns.New(root)
	e.Failures = failures.New(root)
	e.Inbox = inbox.New(root)
	e.Graph = graph.New(root, e.Journal)
	e.Transfer = transfer.New(root)
	e.Intent = intent.New(root, recorder{e}, e.Transfer)
	e.Outcome = outcome.New(e.Journal, e.Patterns, e.Failures)
	e.Brief = brief.New(e.Journal, e.Patterns, e.Failures, e.Graph)
	e.Embedder = embed.FromConfig()
	e.Search = search.New(root, e.Journal, e.Patterns, e.Transfer, e.Graph, e.Embedder)
	return e
}

// recorder adapts the engine's Record pipeline to the intent store's
// narrower interface.
type recorder struct{ e *Engine }

func (r recorder) Record(d *types.Decision) error {
	_, err := r.e.Record(d, true)
	return err
}

// RecordResult carries the write outcome plus any advisory warnings.
type RecordResult struct {
	Decision       *types.Decision       `json:"decision"`
	Contradictions []guard.Contradiction `json:"contradictions,omitempty"`
	NodeID         string                `json:"node_id,omitempty"`
}

// Record runs the full decision write pipeline: enrich, dedup guard
// (bypassed by force), append, graph node emission, and the advisory
// contradiction scan with contradicts edges where both endpoints exist
// as nodes. The decision is written even when contradictions are found.
func (e *Engine) Record(d *types.Decision, force bool) (*RecordResult, error) {
	journal.Enrich(d)

	active, err := e.Journal.Active()
	if err != nil {
		return nil, err
	}
	if !force {
		if err := guard.CheckDecisionDup(d.Decision, active); err != nil {
			return nil, err
		}
	}
	contradictions := guard.CheckContradiction(d.Decision, d.Entities, active)
	for i := range contradictions {
		contradictions[i].AID = d.ID
	}

	if err := e.Journal.Append(d); err != nil {
		return nil, err
	}

	res := &RecordResult{Decision: d, Contradictions: contradictions}

	// Graph side-effects are best-effort: the journal is the source of
	// truth and sync converges later if any of this fails.
	nodeID, err := e.Graph.AddNode(types.NodeDecision, d.Decision, map[string]interface{}{
		"journal_id": d.ID,
	})
	if err != nil {
		return res, nil
	}
	res.NodeID = nodeID
	for _, c := range contradictions {
		other, err := e.Journal.Get(c.BID)
		if err != nil {
			continue
		}
		otherNode, err := e.Graph.GetNode(graphNodeID(other))
		if err != nil || otherNode == nil {
			continue
		}
		_, _ = e.Graph.AddEdge(nodeID, graphNodeID(other), types.RelContradicts, 1.0, true)
	}
	return res, nil
}

func graphNodeID(d *types.Decision) string {
	return ids.NodeID(types.NodeDecision, d.Decision)
}

// Capture runs the pattern write pipeline: dedup guard against the
// catalogue, then append.
func (e *Engine) Capture(p *types.Pattern, force bool) (*types.Pattern, error) {
	if !force {
		cat, err := e.Patterns.Load()
		if err != nil {
			return nil, err
		}
		if err := guard.CheckPatternDup(p, cat.Patterns); err != nil {
			return nil, err
		}
	}
	if err := e.Patterns.Capture(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Rebuild regenerates the search index.
func (e *Engine) Rebuild(ctx context.Context) error {
	_, err := e.Search.Rebuild(ctx)
	return err
}

package graph

import (
	"github.com/lorehq/lore/internal/ids"
	"github.com/lorehq/lore/internal/types"
)

// DecisionSource is the slice of the journal sync reads from.
type DecisionSource interface {
	Active() ([]*types.Decision, error)
}

// SyncResult summarizes a reconciliation pass.
type SyncResult struct {
	NodesAdded   int `json:"nodes_added"`
	NodesUpdated int `json:"nodes_updated"`
	EdgesDeduped int `json:"edges_deduped"`
}

// Sync reconciles the journal into the graph: every active decision gets
// a decision node keyed on its text, carrying data.journal_id. Duplicate
// edges by (from, to, relation) are collapsed keeping the first. The pass
// is idempotent: re-running yields zero additions.
func (s *Store) Sync(source DecisionSource) (*SyncResult, error) {
	decisions, err := source.Active()
	if err != nil {
		return nil, err
	}
	res := &SyncResult{}
	err = s.mutate(func(doc *Document) error {
		now := ids.Now()
		for _, d := range decisions {
			id := ids.NodeID(types.NodeDecision, d.Decision)
			if existing, ok := doc.Nodes[id]; ok {
				if journalID(existing) != d.ID {
					existing.Data = deepMerge(existing.Data, map[string]interface{}{"journal_id": d.ID})
					existing.UpdatedAt = now
					res.NodesUpdated++
				}
				continue
			}
			doc.Nodes[id] = &types.Node{
				Type:      types.NodeDecision,
				Name:      d.Decision,
				Data:      map[string]interface{}{"journal_id": d.ID},
				CreatedAt: now,
				UpdatedAt: now,
			}
			res.NodesAdded++
		}

		// Edge dedup: group by (from, to, relation), keep the first.
		type key struct {
			from, to string
			rel      types.Relation
		}
		seen := make(map[key]bool)
		kept := doc.Edges[:0]
		for _, e := range doc.Edges {
			k := key{e.From, e.To, e.Relation}
			if seen[k] {
				res.EdgesDeduped++
				continue
			}
			seen[k] = true
			kept = append(kept, e)
		}
		doc.Edges = kept
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lorehq/lore/internal/types"
)

// maxExpandDepth caps graph expansion regardless of configuration.
const maxExpandDepth = 3

// relationRelevance is the fixed edge-type relevance table used to score
// expanded nodes. Values live in [0.4, 1.0]; relations outside the table
// get the floor.
var relationRelevance = map[types.Relation]float64{
	types.RelSupersedes:   1.0,
	types.RelContradicts:  0.9,
	types.RelImplements:   0.9,
	types.RelDependsOn:    0.85,
	types.RelAffects:      0.8,
	types.RelDerivedFrom:  0.8,
	types.RelLearnedFrom:  0.8,
	types.RelGrounds:      0.75,
	types.RelProduces:     0.75,
	types.RelConsumes:     0.75,
	types.RelInforms:      0.7,
	types.RelYields:       0.7,
	types.RelReferences:   0.65,
	types.RelContains:     0.6,
	types.RelPartOf:       0.6,
	types.RelSummarizedBy: 0.5,
	types.RelHosts:        0.5,
	types.RelRelatesTo:    0.4,
}

// RelationRelevance returns the relevance weight for one relation.
func RelationRelevance(rel types.Relation) float64 {
	if w, ok := relationRelevance[rel]; ok {
		return w
	}
	return 0.4
}

type indexedEdge struct {
	to       string
	relation types.Relation
}

func (ix *Index) loadAdjacency(ctx context.Context) (map[string][]indexedEdge, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT from_id, to_id, relation FROM graph_edges`)
	if err != nil {
		return nil, fmt.Errorf("reading graph edges: %w", err)
	}
	defer rows.Close()
	adj := make(map[string][]indexedEdge)
	for rows.Next() {
		var from, to, rel string
		if err := rows.Scan(&from, &to, &rel); err != nil {
			return nil, err
		}
		adj[from] = append(adj[from], indexedEdge{to: to, relation: types.Relation(rel)})
	}
	return adj, rows.Err()
}

// nodeMatches finds graph nodes whose name contains the query.
func (ix *Index) nodeMatches(ctx context.Context, query string) ([]Result, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM graph_nodes WHERE name LIKE ? COLLATE NOCASE`,
		"%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("matching graph nodes: %w", err)
	}
	defer rows.Close()
	var out []Result
	for rows.Next() {
		var r Result
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Content, &createdAt); err != nil {
			return nil, err
		}
		r.Type = "node"
		r.Timestamp, _ = time.Parse(time.RFC3339, createdAt)
		r.Score = 1.0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Expand grows a ranked result set over the mirrored graph: the seeds are
// unioned with name-matched nodes, then BFS walks outward up to depth
// (capped at 3), honoring an optional relation allowlist. An expanded
// node scores relevance(relation) * 0.7^hop; nodes already in the seed
// set keep their direct score.
func (ix *Index) Expand(ctx context.Context, seeds []Result, query string, depth int, allow []types.Relation) ([]Result, error) {
	if depth <= 0 || depth > maxExpandDepth {
		depth = maxExpandDepth
	}
	allowed := make(map[types.Relation]bool, len(allow))
	for _, rel := range allow {
		allowed[rel] = true
	}

	matches, err := ix.nodeMatches(ctx, query)
	if err != nil {
		return nil, err
	}
	adj, err := ix.loadAdjacency(ctx)
	if err != nil {
		return nil, err
	}

	// Indexed by position: appends may reallocate merged, so pointers
	// into it would go stale.
	byID := make(map[string]int)
	var merged []Result
	add := func(r Result, direct bool) {
		if i, ok := byID[r.ID]; ok {
			// Direct-match scores win over expansion scores.
			if direct && r.Score > merged[i].Score {
				merged[i].Score = r.Score
			}
			return
		}
		byID[r.ID] = len(merged)
		merged = append(merged, r)
	}
	for _, r := range seeds {
		add(r, true)
	}
	for _, r := range matches {
		add(r, true)
	}

	type frontierNode struct {
		id  string
		hop int
	}
	var frontier []frontierNode
	visited := make(map[string]bool)
	for id := range byID {
		frontier = append(frontier, frontierNode{id: id})
		visited[id] = true
	}

	nodeNames := make(map[string]string)
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if cur.hop >= depth {
			continue
		}
		for _, e := range adj[cur.id] {
			if len(allowed) > 0 && !allowed[e.relation] {
				continue
			}
			if visited[e.to] {
				continue
			}
			visited[e.to] = true
			hop := cur.hop + 1
			name, err := ix.lookupNodeName(ctx, e.to, nodeNames)
			if err != nil {
				return nil, err
			}
			add(Result{
				Type:    "node",
				ID:      e.to,
				Content: name,
				Score:   RelationRelevance(e.relation) * math.Pow(0.7, float64(hop)),
			}, false)
			frontier = append(frontier, frontierNode{id: e.to, hop: hop})
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	return merged, nil
}

func (ix *Index) lookupNodeName(ctx context.Context, id string, cache map[string]string) (string, error) {
	if name, ok := cache[id]; ok {
		return name, nil
	}
	var name string
	err := ix.db.QueryRowContext(ctx, `SELECT name FROM graph_nodes WHERE id = ?`, id).Scan(&name)
	if err != nil {
		// Edges can reference journal IDs that never became nodes; show
		// the raw ID rather than failing the expansion.
		name = id
	}
	if !strings.Contains(name, "\n") {
		cache[id] = name
	}
	return name, nil
}

package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lorehq/lore/internal/types"
	"github.com/lorehq/lore/internal/utils"
)

// activeAdjacency builds the forward and reverse adjacency of active
// edges. Deprecated edges never enter query results.
func activeAdjacency(doc *Document) (out map[string][]*types.Edge, in map[string][]*types.Edge) {
	out = make(map[string][]*types.Edge)
	in = make(map[string][]*types.Edge)
	for _, e := range doc.Edges {
		if e.Status != types.EdgeActive {
			continue
		}
		out[e.From] = append(out[e.From], e)
		in[e.To] = append(in[e.To], e)
	}
	return out, in
}

// Outgoing returns the active edges leaving a node.
func (s *Store) Outgoing(id string) ([]*types.Edge, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	out, _ := activeAdjacency(doc)
	return out[id], nil
}

// Incoming returns the active edges entering a node.
func (s *Store) Incoming(id string) ([]*types.Edge, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	_, in := activeAdjacency(doc)
	return in[id], nil
}

// Neighbors returns the unique union of a node's in- and out-neighbors.
func (s *Store) Neighbors(id string) ([]string, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	out, in := activeAdjacency(doc)
	seen := make(map[string]bool)
	var ids []string
	for _, e := range out[id] {
		if !seen[e.To] {
			seen[e.To] = true
			ids = append(ids, e.To)
		}
	}
	for _, e := range in[id] {
		if !seen[e.From] {
			seen[e.From] = true
			ids = append(ids, e.From)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Visit is one node reached by a traversal.
type Visit struct {
	NodeID string
	Depth  int
}

// BFS walks breadth-first from start along outgoing active edges up to
// maxDepth, yielding nodes in visit order (start at depth 0).
func (s *Store) BFS(start string, maxDepth int) ([]Visit, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	if _, ok := doc.Nodes[start]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, start)
	}
	out, _ := activeAdjacency(doc)
	visited := map[string]bool{start: true}
	queue := []Visit{{NodeID: start, Depth: 0}}
	var order []Visit
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		if maxDepth >= 0 && v.Depth >= maxDepth {
			continue
		}
		for _, e := range out[v.NodeID] {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, Visit{NodeID: e.To, Depth: v.Depth + 1})
			}
		}
	}
	return order, nil
}

// DFS walks depth-first from start along outgoing active edges up to
// maxDepth.
func (s *Store) DFS(start string, maxDepth int) ([]Visit, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	if _, ok := doc.Nodes[start]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, start)
	}
	out, _ := activeAdjacency(doc)
	visited := make(map[string]bool)
	var order []Visit
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if visited[id] {
			return
		}
		visited[id] = true
		order = append(order, Visit{NodeID: id, Depth: depth})
		if maxDepth >= 0 && depth >= maxDepth {
			return
		}
		for _, e := range out[id] {
			walk(e.To, depth+1)
		}
	}
	walk(start, 0)
	return order, nil
}

// ShortestPath returns the node IDs along a shortest directed path from
// from to to, inclusive, or ErrEdgeNotFound when unreachable.
func (s *Store) ShortestPath(from, to string) ([]string, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, id := range []string{from, to} {
		if _, ok := doc.Nodes[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
	}
	out, _ := activeAdjacency(doc)
	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			var path []string
			for at := to; at != ""; at = prev[at] {
				path = append([]string{at}, path...)
			}
			return path, nil
		}
		for _, e := range out[cur] {
			if _, seen := prev[e.To]; !seen {
				prev[e.To] = cur
				queue = append(queue, e.To)
			}
		}
	}
	return nil, fmt.Errorf("%w: no path %s -> %s", ErrEdgeNotFound, from, to)
}

// Relative is one node within a Related radius.
type Relative struct {
	NodeID   string
	Hops     int
	Relation types.Relation // relation on the edge that reached it
}

// Related returns every node within maxHops of id over the undirected
// skeleton, with the hop count and the relation that reached it.
func (s *Store) Related(id string, maxHops int) ([]Relative, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	if _, ok := doc.Nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	out, in := activeAdjacency(doc)
	visited := map[string]bool{id: true}
	frontier := []Relative{{NodeID: id}}
	var result []Relative
	for hop := 1; hop <= maxHops; hop++ {
		var next []Relative
		for _, cur := range frontier {
			for _, e := range out[cur.NodeID] {
				if !visited[e.To] {
					visited[e.To] = true
					r := Relative{NodeID: e.To, Hops: hop, Relation: e.Relation}
					next = append(next, r)
					result = append(result, r)
				}
			}
			for _, e := range in[cur.NodeID] {
				if !visited[e.From] {
					visited[e.From] = true
					r := Relative{NodeID: e.From, Hops: hop, Relation: e.Relation}
					next = append(next, r)
					result = append(result, r)
				}
			}
		}
		frontier = next
	}
	return result, nil
}

// Clusters returns the connected components of the undirected skeleton,
// largest first.
func (s *Store) Clusters() ([][]string, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	out, in := activeAdjacency(doc)
	visited := make(map[string]bool)
	var clusters [][]string
	for id := range doc.Nodes {
		if visited[id] {
			continue
		}
		var comp []string
		queue := []string{id}
		visited[id] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp = append(comp, cur)
			for _, e := range out[cur] {
				if !visited[e.To] {
					visited[e.To] = true
					queue = append(queue, e.To)
				}
			}
			for _, e := range in[cur] {
				if !visited[e.From] {
					visited[e.From] = true
					queue = append(queue, e.From)
				}
			}
		}
		sort.Strings(comp)
		clusters = append(clusters, comp)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return clusters[i][0] < clusters[j][0]
	})
	return clusters, nil
}

// Orphans returns nodes with no incident active edge.
func (s *Store) Orphans() ([]string, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	out, in := activeAdjacency(doc)
	var orphans []string
	for id := range doc.Nodes {
		if len(out[id]) == 0 && len(in[id]) == 0 {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}

// Hub is a node ranked by total degree.
type Hub struct {
	NodeID string
	Degree int
}

// Hubs returns the highest-degree nodes, at most limit.
func (s *Store) Hubs(limit int) ([]Hub, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	out, in := activeAdjacency(doc)
	var hubs []Hub
	for id := range doc.Nodes {
		deg := len(out[id]) + len(in[id])
		if deg > 0 {
			hubs = append(hubs, Hub{NodeID: id, Degree: deg})
		}
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Degree != hubs[j].Degree {
			return hubs[i].Degree > hubs[j].Degree
		}
		return hubs[i].NodeID < hubs[j].NodeID
	})
	if limit > 0 && len(hubs) > limit {
		hubs = hubs[:limit]
	}
	return hubs, nil
}

// Match is one scored hit from Search.
type Match struct {
	NodeID string
	Score  float64
	Reason string
}

// SearchFilter narrows graph search.
type SearchFilter struct {
	Type types.NodeType
}

// Search matches nodes by name and data substring plus fuzzy word match
// (Levenshtein distance of at most 2), scored exact > prefix > contains >
// occurrence count.
func (s *Store) Search(query string, f SearchFilter) ([]Match, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var matches []Match
	for id, n := range doc.Nodes {
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		name := strings.ToLower(n.Name)
		dataText := strings.ToLower(fmt.Sprintf("%v", n.Data))
		var score float64
		var reason string
		switch {
		case name == needle:
			score, reason = 100, "exact"
		case strings.HasPrefix(name, needle):
			score, reason = 80, "prefix"
		case strings.Contains(name, needle):
			score, reason = 60, "contains"
		case strings.Contains(dataText, needle):
			score, reason = 40, "data"
			score += float64(strings.Count(dataText, needle))
		case utils.FuzzyWordMatch(name, needle, 2):
			score, reason = 30, "fuzzy"
		default:
			continue
		}
		matches = append(matches, Match{NodeID: id, Score: score, Reason: reason})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].NodeID < matches[j].NodeID
	})
	return matches, nil
}

// Package graph implements the typed knowledge graph: nodes keyed by a
// deterministic hash of (type, name), typed directed edges with
// soft-deletion, and the traversal queries built on them.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/lorehq/lore/internal/ids"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

var (
	// ErrNodeNotFound is returned when a node ID resolves to nothing.
	ErrNodeNotFound = errors.New("node not found")
	// ErrEdgeNotFound is returned when no matching edge exists.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrBadRelation is returned for relations outside the vocabulary.
	ErrBadRelation = errors.New("relation not in edge vocabulary")
)

// Document is the on-disk shape of graph.json.
type Document struct {
	Nodes map[string]*types.Node `json:"nodes"`
	Edges []*types.Edge          `json:"edges"`
}

// JournalMarker is the slice of the journal the graph needs for the
// supersedes side-effect.
type JournalMarker interface {
	MarkSuperseded(id, byID string) error
}

// Store reads and writes the graph document.
type Store struct {
	root    *paths.Root
	journal JournalMarker
}

// New returns a graph store rooted at root. journal may be nil when the
// supersedes side-effect is not needed (tests, read-only tools).
func New(root *paths.Root, journal JournalMarker) *Store {
	return &Store{root: root, journal: journal}
}

// Load reads the graph. A missing file is an empty graph.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.root.GraphFile())
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{Nodes: map[string]*types.Node{}}, nil
		}
		return nil, fmt.Errorf("reading graph file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing graph file: %w", err)
	}
	if doc.Nodes == nil {
		doc.Nodes = map[string]*types.Node{}
	}
	return &doc, nil
}

func (s *Store) save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling graph: %w", err)
	}
	return paths.WriteFileAtomic(s.root.GraphFile(), data)
}

func (s *Store) mutate(fn func(*Document) error) error {
	return paths.WithLock(s.root.GraphFile(), func() error {
		doc, err := s.Load()
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		return s.save(doc)
	})
}

// AddNode upserts a node and returns its deterministic ID. Re-adding a
// node with the same (type, name) deep-merges data and bumps updated_at.
func (s *Store) AddNode(nodeType types.NodeType, name string, data map[string]interface{}) (string, error) {
	if !nodeType.Valid() {
		return "", fmt.Errorf("unknown node type %q", nodeType)
	}
	id := ids.NodeID(nodeType, name)
	err := s.mutate(func(doc *Document) error {
		now := ids.Now()
		if existing, ok := doc.Nodes[id]; ok {
			existing.Data = deepMerge(existing.Data, data)
			existing.UpdatedAt = now
			return nil
		}
		doc.Nodes[id] = &types.Node{
			Type:      nodeType,
			Name:      name,
			Data:      data,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	})
	return id, err
}

// deepMerge merges src into a copy of dst; nested maps merge recursively,
// scalars and lists from src win.
func deepMerge(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = map[string]interface{}{}
	}
	for k, sv := range src {
		if sm, ok := sv.(map[string]interface{}); ok {
			if dm, ok := dst[k].(map[string]interface{}); ok {
				dst[k] = deepMerge(dm, sm)
				continue
			}
		}
		dst[k] = sv
	}
	return dst
}

// GetNode returns a node by ID.
func (s *Store) GetNode(id string) (*types.Node, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	n, ok := doc.Nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

// FindByName returns all nodes with the given name, any type.
func (s *Store) FindByName(name string) ([]string, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	var out []string
	for id, n := range doc.Nodes {
		if n.Name == name {
			out = append(out, id)
		}
	}
	return out, nil
}

// ListByType returns the IDs of all nodes of one type.
func (s *Store) ListByType(nodeType types.NodeType) ([]string, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	var out []string
	for id, n := range doc.Nodes {
		if n.Type == nodeType {
			out = append(out, id)
		}
	}
	return out, nil
}

// DeleteNode removes a node and every edge touching it.
func (s *Store) DeleteNode(id string) error {
	return s.mutate(func(doc *Document) error {
		if _, ok := doc.Nodes[id]; !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		delete(doc.Nodes, id)
		kept := doc.Edges[:0]
		for _, e := range doc.Edges {
			if e.From != id && e.To != id {
				kept = append(kept, e)
			}
		}
		doc.Edges = kept
		return nil
	})
}

// EdgeResult reports what AddEdge did and any advisory warning.
type EdgeResult struct {
	Updated    bool   // weight update of an existing active edge
	Warning    string // contradicts advisory, if any
	Superseded string // decision ID flipped to superseded, if any
}

// AddEdge validates and upserts an edge by (from, to, relation). A
// bidirectional add also upserts the reverse direction. A supersedes edge
// from A to B marks B's decision superseded; a contradicts edge emits a
// warning without mutating either decision.
func (s *Store) AddEdge(from, to string, relation types.Relation, weight float64, bidirectional bool) (*EdgeResult, error) {
	if !relation.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrBadRelation, relation)
	}
	if weight == 0 {
		weight = 1.0
	}
	res := &EdgeResult{}
	var supersededJournalID, supersederJournalID string
	err := s.mutate(func(doc *Document) error {
		fromNode, ok := doc.Nodes[from]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
		}
		toNode, ok := doc.Nodes[to]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
		}

		res.Updated = upsertEdge(doc, from, to, relation, weight, bidirectional)
		if bidirectional {
			upsertEdge(doc, to, from, relation, weight, true)
		}

		switch relation {
		case types.RelSupersedes:
			supersededJournalID = journalID(toNode)
			supersederJournalID = journalID(fromNode)
		case types.RelContradicts:
			res.Warning = fmt.Sprintf("%s contradicts %s; both remain active", fromNode.Name, toNode.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Supersedes side-effect runs outside the graph lock: best-effort and
	// idempotent, like the rest of the cross-store propagation.
	if supersededJournalID != "" && s.journal != nil {
		if err := s.journal.MarkSuperseded(supersededJournalID, supersederJournalID); err == nil {
			res.Superseded = supersededJournalID
		}
	}
	return res, nil
}

func journalID(n *types.Node) string {
	if n == nil || n.Data == nil {
		return ""
	}
	if v, ok := n.Data["journal_id"].(string); ok {
		return v
	}
	return ""
}

// upsertEdge inserts or updates one directed edge. Returns true when an
// existing active edge was updated.
func upsertEdge(doc *Document, from, to string, relation types.Relation, weight float64, bidirectional bool) bool {
	now := ids.Now()
	for _, e := range doc.Edges {
		if e.From == from && e.To == to && e.Relation == relation && e.Status == types.EdgeActive {
			e.Weight = weight
			e.Bidirectional = e.Bidirectional || bidirectional
			e.UpdatedAt = now
			return true
		}
	}
	doc.Edges = append(doc.Edges, &types.Edge{
		From:          from,
		To:            to,
		Relation:      relation,
		Weight:        weight,
		Bidirectional: bidirectional,
		Status:        types.EdgeActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	return false
}

// DeleteEdge hard-removes matching edges. An empty relation matches all
// relations between the endpoints.
func (s *Store) DeleteEdge(from, to string, relation types.Relation) error {
	return s.mutate(func(doc *Document) error {
		kept := doc.Edges[:0]
		removed := 0
		for _, e := range doc.Edges {
			if e.From == from && e.To == to && (relation == "" || e.Relation == relation) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if removed == 0 {
			return fmt.Errorf("%w: %s -> %s", ErrEdgeNotFound, from, to)
		}
		doc.Edges = kept
		return nil
	})
}

// DeprecateEdge soft-deletes matching edges; queries ignore them but
// history is preserved.
func (s *Store) DeprecateEdge(from, to string, relation types.Relation) error {
	return s.mutate(func(doc *Document) error {
		found := false
		for _, e := range doc.Edges {
			if e.From == from && e.To == to && (relation == "" || e.Relation == relation) && e.Status == types.EdgeActive {
				e.Status = types.EdgeDeprecated
				e.UpdatedAt = ids.Now()
				found = true
			}
		}
		if !found {
			return fmt.Errorf("%w: %s -> %s", ErrEdgeNotFound, from, to)
		}
		return nil
	})
}

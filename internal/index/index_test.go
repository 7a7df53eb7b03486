package index

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

// stubEmbedder maps content substrings to fixed vectors so semantic
// ranking is deterministic.
type stubEmbedder struct{ vectors map[string][]float32 }

func (s stubEmbedder) Name() string { return "stub" }

func (s stubEmbedder) Available(ctx context.Context) bool { return true }

func (s stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	for key, vec := range s.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return []float32{0, 0, 1}, nil
}

func openIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(&paths.Root{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func testInput() BuildInput {
	now := time.Now().UTC()
	return BuildInput{
		Decisions: []*types.Decision{
			{
				ID:        "dec-aaaa0001",
				Decision:  "serialize writers with advisory flock locks",
				Tags:      []string{"lore"},
				Timestamp: now,
			},
			{
				ID:        "dec-aaaa0002",
				Decision:  "retry transient failures with backoff",
				Tags:      []string{"other"},
				Timestamp: now,
			},
		},
		Patterns: []*types.Pattern{
			{ID: "pat-bbbb0001", Name: "flock advisory locks", Solution: "lock beside the store file", Confidence: 0.8, CreatedAt: now},
		},
		AntiPatterns: []*types.AntiPattern{
			{ID: "anti-cccc0001", Name: "busy-wait on lock", Fix: "sleep between attempts", CreatedAt: now},
		},
		Sessions: []*types.Session{
			{
				ID:        "session-20260826-120000-abcd",
				StartedAt: now,
				Summary:   "worked on flock locking",
				Handoff:   &types.Handoff{Message: "continue locking work"},
			},
		},
		Graph: &GraphInput{
			Nodes: map[string]*types.Node{
				"concept-aaaa1111": {Type: types.NodeConcept, Name: "cache invalidation", CreatedAt: now},
				"concept-bbbb2222": {Type: types.NodeConcept, Name: "journal store", CreatedAt: now},
				"concept-cccc3333": {Type: types.NodeConcept, Name: "retrieval engine", CreatedAt: now},
			},
			Edges: []*types.Edge{
				{From: "concept-aaaa1111", To: "concept-bbbb2222", Relation: types.RelRelatesTo, Weight: 1, Status: types.EdgeActive},
				{From: "concept-bbbb2222", To: "concept-cccc3333", Relation: types.RelAffects, Weight: 1, Status: types.EdgeActive, Bidirectional: true},
			},
		},
	}
}

func TestBuildCounts(t *testing.T) {
	ix := openIndex(t)
	res, err := ix.Build(context.Background(), testInput(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if res.Decisions != 2 || res.Patterns != 2 || res.Transfers != 1 {
		t.Errorf("fts counts = %+v", res)
	}
	if res.Nodes != 3 || res.Edges != 3 {
		t.Errorf("graph counts = %+v, want 3 nodes and 3 edges (bidirectional doubled)", res)
	}
	if !ix.HasFTS() {
		t.Error("FTS tables missing after build")
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	if _, err := ix.Build(ctx, testInput(), nil); err != nil {
		t.Fatal(err)
	}
	res, err := ix.Build(ctx, testInput(), nil)
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	if res.Decisions != 2 || res.Nodes != 3 || res.Edges != 3 {
		t.Errorf("second build counts = %+v", res)
	}

	results, err := ix.Lexical(ctx, "flock", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, r := range results {
		if seen[r.ID] {
			t.Errorf("duplicate result %s after rebuild", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestLexicalMatchesAcrossTables(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	if _, err := ix.Build(ctx, testInput(), nil); err != nil {
		t.Fatal(err)
	}

	results, err := ix.Lexical(ctx, "flock", "", 0)
	if err != nil {
		t.Fatalf("Lexical failed: %v", err)
	}
	byID := make(map[string]Result)
	for _, r := range results {
		byID[r.ID] = r
	}
	dec, ok := byID["dec-aaaa0001"]
	if !ok || dec.Type != "decision" || dec.Score <= 0 {
		t.Errorf("decision hit = %+v", dec)
	}
	if pat, ok := byID["pat-bbbb0001"]; !ok || pat.Type != "pattern" {
		t.Errorf("pattern hit = %+v", pat)
	}
	if sess, ok := byID["session-20260826-120000-abcd"]; !ok || sess.Type != "transfer" {
		t.Errorf("transfer hit = %+v", sess)
	}
	if _, ok := byID["dec-aaaa0002"]; ok {
		t.Error("unrelated decision matched")
	}
}

func TestLexicalProjectBoost(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	in := BuildInput{
		Decisions: []*types.Decision{
			{ID: "dec-aaaa0001", Decision: "shared phrasing about locks", Tags: []string{"lore"}, Timestamp: time.Now().UTC()},
			{ID: "dec-aaaa0002", Decision: "shared phrasing about locks", Tags: []string{"other"}, Timestamp: time.Now().UTC()},
		},
	}
	if _, err := ix.Build(ctx, in, nil); err != nil {
		t.Fatal(err)
	}

	results, err := ix.Lexical(ctx, "locks", "lore", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "dec-aaaa0001" {
		t.Errorf("project boost did not rank own-project record first: %+v", results)
	}
}

func TestLexicalAccessBoostGrows(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	if _, err := ix.Build(ctx, testInput(), nil); err != nil {
		t.Fatal(err)
	}

	first, err := ix.Lexical(ctx, "backoff", "", 0)
	if err != nil || len(first) != 1 {
		t.Fatalf("first query = %v, %v", first, err)
	}
	second, err := ix.Lexical(ctx, "backoff", "", 0)
	if err != nil || len(second) != 1 {
		t.Fatalf("second query = %v, %v", second, err)
	}
	if second[0].Score <= first[0].Score {
		t.Errorf("access-logged score %f not above first-touch score %f", second[0].Score, first[0].Score)
	}
}

func TestSemanticRanksByCosine(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	embedder := stubEmbedder{vectors: map[string][]float32{"flock": {1, 0, 0}}}

	res, err := ix.Build(ctx, testInput(), embedder)
	if err != nil {
		t.Fatal(err)
	}
	if res.Embeddings != 3 {
		t.Fatalf("embeddings backfilled = %d, want decisions+patterns", res.Embeddings)
	}

	results, err := ix.Semantic(ctx, embedder, "flock locks", 10)
	if err != nil {
		t.Fatalf("Semantic failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v, want the two flock-aligned records", results)
	}
	for _, r := range results {
		if math.Abs(r.Score-1.0) > 1e-6 {
			t.Errorf("%s score = %f, want cosine 1", r.ID, r.Score)
		}
	}
}

func TestExpandWalksMirroredGraph(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	if _, err := ix.Build(ctx, testInput(), nil); err != nil {
		t.Fatal(err)
	}

	seeds := []Result{{Type: "node", ID: "concept-aaaa1111", Content: "cache invalidation", Score: 0.9}}
	results, err := ix.Expand(ctx, seeds, "cache", 3, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	scores := make(map[string]float64)
	for _, r := range results {
		scores[r.ID] = r.Score
	}

	// Hop 1 over relates_to, hop 2 over affects.
	if got := scores["concept-bbbb2222"]; math.Abs(got-0.4*0.7) > 1e-9 {
		t.Errorf("hop-1 score = %f, want %f", got, 0.4*0.7)
	}
	if got := scores["concept-cccc3333"]; math.Abs(got-0.8*0.49) > 1e-9 {
		t.Errorf("hop-2 score = %f, want %f", got, 0.8*0.49)
	}
}

func TestExpandDirectMatchOutranksSeedScore(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	if _, err := ix.Build(ctx, testInput(), nil); err != nil {
		t.Fatal(err)
	}

	// Enough seeds to force the merged slice through reallocation; the
	// name-matched node arrives after them and must still win.
	seeds := []Result{
		{Type: "node", ID: "concept-aaaa1111", Content: "cache invalidation", Score: 0.2},
		{Type: "decision", ID: "dec-xxxx0001", Content: "filler", Score: 0.2},
		{Type: "decision", ID: "dec-xxxx0002", Content: "filler", Score: 0.2},
		{Type: "decision", ID: "dec-xxxx0003", Content: "filler", Score: 0.2},
		{Type: "decision", ID: "dec-xxxx0004", Content: "filler", Score: 0.2},
	}
	results, err := ix.Expand(ctx, seeds, "cache", 1, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	for _, r := range results {
		if r.ID == "concept-aaaa1111" {
			if math.Abs(r.Score-1.0) > 1e-9 {
				t.Fatalf("direct name match score = %f, want 1.0", r.Score)
			}
			return
		}
	}
	t.Fatal("name-matched node missing from expansion")
}

func TestExpandHonorsRelationAllowlist(t *testing.T) {
	ix := openIndex(t)
	ctx := context.Background()
	if _, err := ix.Build(ctx, testInput(), nil); err != nil {
		t.Fatal(err)
	}

	seeds := []Result{{Type: "node", ID: "concept-aaaa1111", Content: "cache invalidation", Score: 1.0}}
	results, err := ix.Expand(ctx, seeds, "cache", 3, []types.Relation{types.RelAffects})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.ID == "concept-bbbb2222" {
			t.Error("relates_to edge crossed despite affects-only allowlist")
		}
	}
}

func TestVectorEncodeDecodeRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75}
	got := decodeVector(encodeVector(vec))
	if len(got) != len(vec) {
		t.Fatalf("length = %d", len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("vec[%d] = %f, want %f", i, got[i], vec[i])
		}
	}
}

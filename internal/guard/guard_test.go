package guard

import (
	"errors"
	"strings"
	"testing"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/types"
)

func TestCheckDecisionDupBlocks(t *testing.T) {
	existing := []*types.Decision{
		{ID: "dec-aaaa0001", Decision: "use sqlite fts5 for the search index"},
	}
	err := CheckDecisionDup("use sqlite fts5 for the search index", existing)
	if err == nil {
		t.Fatal("identical text must be blocked")
	}
	var dup *ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("error type = %T, want *ErrDuplicate", err)
	}
	if len(dup.Matches) != 1 || dup.Matches[0].ID != "dec-aaaa0001" {
		t.Errorf("matches = %v", dup.Matches)
	}
	if dup.Matches[0].Similarity < DedupThreshold {
		t.Errorf("similarity %f below threshold", dup.Matches[0].Similarity)
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Errorf("error should mention --force: %q", err.Error())
	}
}

func TestCheckDecisionDupAllowsDistinct(t *testing.T) {
	existing := []*types.Decision{
		{ID: "dec-aaaa0001", Decision: "use sqlite fts5 for the search index"},
	}
	if err := CheckDecisionDup("write sessions as individual json files", existing); err != nil {
		t.Errorf("distinct text blocked: %v", err)
	}
}

func TestCheckPatternDup(t *testing.T) {
	existing := []*types.Pattern{
		{ID: "pat-aaaa0001", Name: "atomic replace", Context: "multi writer stores", Solution: "write temp then rename"},
	}
	p := &types.Pattern{Name: "atomic replace", Context: "multi writer stores", Solution: "write temp then rename"}
	if err := CheckPatternDup(p, existing); err == nil {
		t.Fatal("identical pattern must be blocked")
	}

	p2 := &types.Pattern{Name: "advisory locks", Context: "cross process writes", Solution: "flock beside the store file"}
	if err := CheckPatternDup(p2, existing); err != nil {
		t.Errorf("distinct pattern blocked: %v", err)
	}
}

func TestCheckContradiction(t *testing.T) {
	existing := []*types.Decision{
		{
			ID:       "dec-aaaa0001",
			Decision: "always write YAML through the atomic replace helper",
			Entities: []string{"YAML", "Atomic"},
		},
	}
	// Shares both entities, text almost entirely different.
	found := CheckContradiction(
		"never touch files directly; route every mutation elsewhere",
		[]string{"yaml", "atomic"},
		existing,
	)
	if len(found) != 1 {
		t.Fatalf("got %d contradictions, want 1", len(found))
	}
	c := found[0]
	if c.BID != "dec-aaaa0001" {
		t.Errorf("BID = %q", c.BID)
	}
	if len(c.SharedEntities) < 2 {
		t.Errorf("shared entities = %v, want >= 2", c.SharedEntities)
	}
	if c.Similarity >= ContradictionThreshold {
		t.Errorf("similarity %f should be below %f", c.Similarity, ContradictionThreshold)
	}
}

func TestCheckContradictionNeedsTwoEntities(t *testing.T) {
	existing := []*types.Decision{
		{ID: "dec-aaaa0001", Decision: "completely unrelated phrasing here", Entities: []string{"YAML"}},
	}
	found := CheckContradiction("different words entirely", []string{"yaml"}, existing)
	if len(found) != 0 {
		t.Errorf("single shared entity flagged: %v", found)
	}
}

func TestCheckContradictionSkipsSimilarText(t *testing.T) {
	existing := []*types.Decision{
		{
			ID:       "dec-aaaa0001",
			Decision: "write yaml through the atomic helper",
			Entities: []string{"yaml", "atomic"},
		},
	}
	// Same entities and nearly the same words: a near-duplicate, not a
	// contradiction.
	found := CheckContradiction("write yaml through the atomic helper always", []string{"yaml", "atomic"}, existing)
	if len(found) != 0 {
		t.Errorf("similar text flagged as contradiction: %v", found)
	}
}

func TestDedupThresholdFromConfig(t *testing.T) {
	config.Set("dedup.threshold", 0.30)
	t.Cleanup(func() { config.Set("dedup.threshold", DedupThreshold) })

	existing := []*types.Decision{
		{ID: "dec-aaaa0001", Decision: "use sqlite fts5 for the search index"},
	}
	// Jaccard 3/9 with the existing text: allowed at the 0.70 default,
	// blocked once the threshold is tightened to 0.30.
	err := CheckDecisionDup("rebuild the search index nightly", existing)
	var dup *ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("tightened threshold did not block: %v", err)
	}
}

func TestContradictionThresholdFromConfig(t *testing.T) {
	config.Set("contradiction.threshold", 0.95)
	t.Cleanup(func() { config.Set("contradiction.threshold", ContradictionThreshold) })

	existing := []*types.Decision{
		{
			ID:       "dec-aaaa0001",
			Decision: "write yaml through the atomic helper",
			Entities: []string{"yaml", "atomic"},
		},
	}
	// Jaccard 6/7: under the 0.30 default this near-duplicate is never a
	// contradiction; a 0.95 threshold flags it.
	found := CheckContradiction("write yaml through the atomic helper always", []string{"yaml", "atomic"}, existing)
	if len(found) != 1 {
		t.Fatalf("got %d contradictions under widened threshold, want 1", len(found))
	}
}

func TestPairwiseContradictions(t *testing.T) {
	decisions := []*types.Decision{
		{ID: "dec-aaaa0001", Decision: "cache reads aggressively in memory for speed", Entities: []string{"cache", "reads"}},
		{ID: "dec-aaaa0002", Decision: "bypass all layers and hit disk every single time", Entities: []string{"cache", "reads"}},
		{ID: "dec-aaaa0003", Decision: "unrelated decision about naming", Entities: []string{"naming"}},
	}
	found := PairwiseContradictions(decisions)
	if len(found) != 1 {
		t.Fatalf("got %d contradictions, want 1: %v", len(found), found)
	}
	if found[0].AID != "dec-aaaa0001" || found[0].BID != "dec-aaaa0002" {
		t.Errorf("pair = %s vs %s", found[0].AID, found[0].BID)
	}
}

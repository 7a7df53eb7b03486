package index

import (
	"testing"

	"github.com/lorehq/lore/internal/types"
)

func TestRelationRelevanceBounds(t *testing.T) {
	for _, rel := range types.Relations {
		w := RelationRelevance(rel)
		if w < 0.4 || w > 1.0 {
			t.Errorf("relevance(%s) = %f, outside [0.4, 1.0]", rel, w)
		}
	}
}

func TestRelationRelevanceOrdering(t *testing.T) {
	if RelationRelevance(types.RelSupersedes) != 1.0 {
		t.Errorf("supersedes = %f, want 1.0 (strongest signal)", RelationRelevance(types.RelSupersedes))
	}
	if RelationRelevance(types.RelRelatesTo) != 0.4 {
		t.Errorf("relates_to = %f, want 0.4 (weakest signal)", RelationRelevance(types.RelRelatesTo))
	}
	if RelationRelevance(types.RelContradicts) <= RelationRelevance(types.RelReferences) {
		t.Error("contradicts should outrank references")
	}
}

func TestRelationRelevanceUnknownFloor(t *testing.T) {
	if got := RelationRelevance("made_up"); got != 0.4 {
		t.Errorf("unknown relation = %f, want floor 0.4", got)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 0, 3.1415927}
	got := decodeVector(encodeVector(vec))
	if len(got) != len(vec) {
		t.Fatalf("round trip length %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("element %d = %f, want %f", i, got[i], vec[i])
		}
	}
}

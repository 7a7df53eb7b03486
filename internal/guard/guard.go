// Package guard implements the write-time dedup check and the advisory
// contradiction detector, both built on Jaccard word-set similarity.
package guard

import (
	"fmt"
	"strings"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/extract"
	"github.com/lorehq/lore/internal/types"
)

const (
	// DedupThreshold is the default similarity at or above which writes
	// are blocked. Tunable via dedup.threshold.
	DedupThreshold = 0.70
	// ContradictionThreshold is the default similarity below which
	// entity-overlapping decisions are flagged. Tunable via
	// contradiction.threshold.
	ContradictionThreshold = 0.30
	// contradictionMinEntities is the shared-entity floor for a
	// contradiction candidate.
	contradictionMinEntities = 2
)

func dedupThreshold() float64 {
	if t := config.GetFloat("dedup.threshold"); t > 0 {
		return t
	}
	return DedupThreshold
}

func contradictionThreshold() float64 {
	if t := config.GetFloat("contradiction.threshold"); t > 0 {
		return t
	}
	return ContradictionThreshold
}

// DuplicateMatch is one near-duplicate found by the dedup check.
type DuplicateMatch struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// ErrDuplicate blocks a write that duplicates existing records.
type ErrDuplicate struct {
	Matches []DuplicateMatch
}

func (e *ErrDuplicate) Error() string {
	var parts []string
	for _, m := range e.Matches {
		parts = append(parts, fmt.Sprintf("%s (%.0f%%)", m.ID, m.Similarity*100))
	}
	return fmt.Sprintf("near-duplicate of %s; re-run with --force to record anyway", strings.Join(parts, ", "))
}

// CheckDecisionDup compares new decision text against existing decisions
// (latest active revisions; callers may pre-filter with FTS candidates).
// Returns ErrDuplicate when any similarity reaches the threshold.
func CheckDecisionDup(text string, existing []*types.Decision) error {
	threshold := dedupThreshold()
	newSet := extract.WordSet(text)
	var matches []DuplicateMatch
	for _, d := range existing {
		sim := extract.Jaccard(newSet, extract.WordSet(d.Decision))
		if sim >= threshold {
			matches = append(matches, DuplicateMatch{ID: d.ID, Text: d.Decision, Similarity: sim})
		}
	}
	if len(matches) > 0 {
		return &ErrDuplicate{Matches: matches}
	}
	return nil
}

// CheckPatternDup compares a new pattern against the catalogue over the
// combined name+context+solution text.
func CheckPatternDup(p *types.Pattern, existing []*types.Pattern) error {
	threshold := dedupThreshold()
	newSet := extract.WordSet(p.Name + " " + p.Context + " " + p.Solution)
	var matches []DuplicateMatch
	for _, other := range existing {
		sim := extract.Jaccard(newSet, extract.WordSet(other.Name+" "+other.Context+" "+other.Solution))
		if sim >= threshold {
			matches = append(matches, DuplicateMatch{ID: other.ID, Text: other.Name, Similarity: sim})
		}
	}
	if len(matches) > 0 {
		return &ErrDuplicate{Matches: matches}
	}
	return nil
}

// Contradiction is one advisory pairing: same entities, different story.
type Contradiction struct {
	AID            string   `json:"a_id"`
	BID            string   `json:"b_id"`
	SharedEntities []string `json:"shared_entities"`
	Similarity     float64  `json:"similarity"`
}

func (c Contradiction) String() string {
	return fmt.Sprintf("%s vs %s: share %s but only %.0f%% similar",
		c.AID, c.BID, strings.Join(c.SharedEntities, ", "), c.Similarity*100)
}

// CheckContradiction flags existing active decisions that share at least
// two extracted entities with the new text yet read very differently.
// Advisory only: the caller warns and writes anyway.
func CheckContradiction(text string, entities []string, existing []*types.Decision) []Contradiction {
	threshold := contradictionThreshold()
	newSet := extract.WordSet(text)
	entitySet := make(map[string]bool, len(entities))
	for _, e := range entities {
		entitySet[strings.ToLower(e)] = true
	}
	var out []Contradiction
	for _, d := range existing {
		var shared []string
		for _, e := range d.Entities {
			if entitySet[strings.ToLower(e)] {
				shared = append(shared, e)
			}
		}
		if len(shared) < contradictionMinEntities {
			continue
		}
		sim := extract.Jaccard(newSet, extract.WordSet(d.Decision))
		if sim < threshold {
			out = append(out, Contradiction{
				BID:            d.ID,
				SharedEntities: shared,
				Similarity:     sim,
			})
		}
	}
	return out
}

// PairwiseContradictions runs the contradiction scan over every pair of
// decisions in a set. Used at read time by briefings and the subtraction
// check.
func PairwiseContradictions(decisions []*types.Decision) []Contradiction {
	var out []Contradiction
	for i := 0; i < len(decisions); i++ {
		a := decisions[i]
		found := CheckContradiction(a.Decision, a.Entities, decisions[i+1:])
		for _, c := range found {
			c.AID = a.ID
			out = append(out, c)
		}
	}
	return out
}

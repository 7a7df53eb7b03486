// Package outcome closes the feedback loop: pending decisions surface
// for review, and resolving one propagates into pattern confidence or
// the failure log.
package outcome

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/failures"
	"github.com/lorehq/lore/internal/journal"
	"github.com/lorehq/lore/internal/patterns"
	"github.com/lorehq/lore/internal/types"
)

// ErrNotPending rejects resolving a decision that already has an outcome.
var ErrNotPending = errors.New("decision outcome is not pending")

// Reviewer lists and resolves decision outcomes.
type Reviewer struct {
	journal  *journal.Store
	patterns *patterns.Store
	failures *failures.Store
}

// New wires the three stores the feedback loop touches.
func New(j *journal.Store, p *patterns.Store, f *failures.Store) *Reviewer {
	return &Reviewer{journal: j, patterns: p, failures: f}
}

// PendingItem is one decision awaiting an outcome.
type PendingItem struct {
	Decision *types.Decision
	AgeDays  int
}

// Pending returns active decisions with outcome pending, older than
// minAge (review.pending-days when zero), oldest first.
func (r *Reviewer) Pending(minAge time.Duration) ([]PendingItem, error) {
	if minAge <= 0 {
		minAge = time.Duration(config.GetInt("review.pending-days")) * 24 * time.Hour
	}
	decisions, err := r.journal.Active()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-minAge)
	var items []PendingItem
	for _, d := range decisions {
		if d.Outcome != types.OutcomePending || d.Timestamp.After(cutoff) {
			continue
		}
		items = append(items, PendingItem{
			Decision: d,
			AgeDays:  int(time.Since(d.Timestamp).Hours() / 24),
		})
	}
	// Oldest first: the longest-ignored decisions need review most.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		if items[i].Decision.Timestamp.After(items[j].Decision.Timestamp) {
			items[i], items[j] = items[j], items[i]
		}
	}
	return items, nil
}

// Resolution reports what a resolve did.
type Resolution struct {
	Decision          *types.Decision `json:"decision"`
	ValidatedPatterns []string        `json:"validated_patterns,omitempty"`
	FailureID         string          `json:"failure_id,omitempty"`
}

// Resolve records an outcome on a pending decision and runs the
// side-effects: successful validates every pattern that mentions one of
// the decision's entities, abandoned writes an AbandonedDecision failure,
// revised updates the record only.
func (r *Reviewer) Resolve(id string, outcome types.Outcome, lesson string) (*Resolution, error) {
	switch outcome {
	case types.OutcomeSuccessful, types.OutcomeRevised, types.OutcomeAbandoned:
	default:
		return nil, fmt.Errorf("outcome must be successful, revised, or abandoned; got %q", outcome)
	}

	current, err := r.journal.Get(id)
	if err != nil {
		return nil, err
	}
	if current.Outcome != types.OutcomePending {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotPending, id, current.Outcome)
	}

	updated, err := r.journal.Update(id, func(d *types.Decision) {
		d.Outcome = outcome
		if lesson != "" {
			d.LessonLearned = lesson
		}
	})
	if err != nil {
		return nil, err
	}
	res := &Resolution{Decision: updated}

	switch outcome {
	case types.OutcomeSuccessful:
		validated, err := r.validateMentioning(updated.Entities)
		if err != nil {
			return res, err
		}
		res.ValidatedPatterns = validated
	case types.OutcomeAbandoned:
		f := &types.Failure{
			ErrorType:    "AbandonedDecision",
			ErrorMessage: updated.Decision,
			SessionID:    updated.SessionID,
		}
		if err := r.failures.Append(f); err != nil {
			return res, err
		}
		res.FailureID = f.ID
	}
	return res, nil
}

// validateMentioning bumps confidence on every pattern whose name,
// context, or solution mentions one of the entities.
func (r *Reviewer) validateMentioning(entities []string) ([]string, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	cat, err := r.patterns.Load()
	if err != nil {
		return nil, err
	}
	var validated []string
	for _, p := range cat.Patterns {
		text := strings.ToLower(p.Name + " " + p.Context + " " + p.Solution)
		for _, entity := range entities {
			if entity != "" && strings.Contains(text, strings.ToLower(entity)) {
				if _, err := r.patterns.Validate(p.ID); err == nil {
					validated = append(validated, p.ID)
				}
				break
			}
		}
	}
	return validated, nil
}

// RollingSpecQuality is the mean spec quality over the n most recent
// decisions, surfaced by resume.
func (r *Reviewer) RollingSpecQuality(n int) (float64, error) {
	decisions, err := r.journal.List(journal.Filter{Recent: n})
	if err != nil {
		return 0, err
	}
	if len(decisions) == 0 {
		return 0, nil
	}
	var sum float64
	for _, d := range decisions {
		sum += d.SpecQuality
	}
	return sum / float64(len(decisions)), nil
}

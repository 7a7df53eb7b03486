// Package brief composes topic-scoped, cross-store readouts: the topic
// briefing and the subtraction check that resume runs.
package brief

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/failures"
	"github.com/lorehq/lore/internal/graph"
	"github.com/lorehq/lore/internal/guard"
	"github.com/lorehq/lore/internal/journal"
	"github.com/lorehq/lore/internal/patterns"
	"github.com/lorehq/lore/internal/types"
)

// Composer reads across the four stores.
type Composer struct {
	journal  *journal.Store
	patterns *patterns.Store
	failures *failures.Store
	graph    *graph.Store
}

// New wires a briefing composer.
func New(j *journal.Store, p *patterns.Store, f *failures.Store, g *graph.Store) *Composer {
	return &Composer{journal: j, patterns: p, failures: f, graph: g}
}

// Briefing is everything known about one topic.
type Briefing struct {
	Topic          string
	Decisions      []*types.Decision
	Contradictions []guard.Contradiction
	Patterns       []*types.Pattern
	AntiPatterns   []*types.AntiPattern
	FailureCounts  map[string]int
	FailureKnown   map[string]bool // error_type -> anti-pattern recorded
	GraphEdges     []string        // rendered "from -> relation -> to"
}

// Compose gathers the briefing for a topic. Matching is case-insensitive
// substring across each store's searchable fields.
func (c *Composer) Compose(topic string) (*Briefing, error) {
	b := &Briefing{
		Topic:         topic,
		FailureCounts: map[string]int{},
		FailureKnown:  map[string]bool{},
	}
	needle := strings.ToLower(topic)

	active, err := c.journal.Active()
	if err != nil {
		return nil, err
	}
	for _, d := range active {
		if decisionMatches(d, needle) {
			b.Decisions = append(b.Decisions, d)
		}
	}
	b.Contradictions = guard.PairwiseContradictions(b.Decisions)

	cat, err := c.patterns.Load()
	if err != nil {
		return nil, err
	}
	for _, p := range cat.Patterns {
		if strings.Contains(strings.ToLower(p.SearchableText()), needle) {
			b.Patterns = append(b.Patterns, p)
		}
	}
	for _, ap := range cat.AntiPatterns {
		if strings.Contains(strings.ToLower(ap.Name+" "+ap.Symptom+" "+ap.Fix), needle) {
			b.AntiPatterns = append(b.AntiPatterns, ap)
		}
	}

	matched, err := c.failures.Grep(topic)
	if err != nil {
		return nil, err
	}
	for _, f := range matched {
		b.FailureCounts[f.ErrorType]++
		if _, known := b.FailureKnown[f.ErrorType]; !known {
			b.FailureKnown[f.ErrorType] = hasAntiPattern(cat, f.ErrorType)
		}
	}

	nodes, err := c.graph.Search(topic, graph.SearchFilter{})
	if err != nil {
		return nil, err
	}
	doc, err := c.graph.Load()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, m := range nodes {
		for _, e := range doc.Edges {
			if e.Status != types.EdgeActive {
				continue
			}
			if e.From != m.NodeID && e.To != m.NodeID {
				continue
			}
			line := fmt.Sprintf("%s -> %s -> %s", nodeName(doc, e.From), e.Relation, nodeName(doc, e.To))
			if !seen[line] {
				seen[line] = true
				b.GraphEdges = append(b.GraphEdges, line)
			}
		}
	}
	sort.Strings(b.GraphEdges)
	return b, nil
}

func hasAntiPattern(cat *patterns.Catalogue, needle string) bool {
	lower := strings.ToLower(needle)
	for _, ap := range cat.AntiPatterns {
		if strings.Contains(strings.ToLower(ap.Name), lower) {
			return true
		}
	}
	return false
}

func nodeName(doc *graph.Document, id string) string {
	if n, ok := doc.Nodes[id]; ok {
		return n.Name
	}
	return id
}

func decisionMatches(d *types.Decision, needle string) bool {
	if strings.Contains(strings.ToLower(d.Decision), needle) ||
		strings.Contains(strings.ToLower(d.Rationale), needle) {
		return true
	}
	for _, e := range d.Entities {
		if strings.Contains(strings.ToLower(e), needle) {
			return true
		}
	}
	for _, t := range d.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

// Markdown renders the briefing for agent consumption.
func (b *Briefing) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Briefing: %s\n\n", b.Topic)

	fmt.Fprintf(&sb, "## Decisions (%d)\n\n", len(b.Decisions))
	for _, d := range b.Decisions {
		age := int(time.Since(d.Timestamp).Hours() / 24)
		fmt.Fprintf(&sb, "- **%s** (%dd old, quality %.2f, outcome %s): %s\n",
			d.ID, age, d.SpecQuality, d.Outcome, d.Decision)
	}
	if len(b.Contradictions) > 0 {
		sb.WriteString("\n### Contradictions\n\n")
		for _, c := range b.Contradictions {
			fmt.Fprintf(&sb, "- %s\n", c.String())
		}
	}

	fmt.Fprintf(&sb, "\n## Patterns (%d)\n\n", len(b.Patterns))
	for _, p := range b.Patterns {
		flag := ""
		if p.Stale() {
			flag = " [stale]"
		}
		if p.Deprecated {
			flag += " [deprecated]"
		}
		fmt.Fprintf(&sb, "- **%s**%s (confidence %.2f, %d validations): %s\n",
			p.Name, flag, p.Confidence, p.Validations, p.Solution)
	}
	for _, ap := range b.AntiPatterns {
		fmt.Fprintf(&sb, "- **ANTI: %s** (%s): %s\n", ap.Name, ap.Severity, ap.Fix)
	}

	fmt.Fprintf(&sb, "\n## Failures (%d types)\n\n", len(b.FailureCounts))
	errorTypes := make([]string, 0, len(b.FailureCounts))
	for et := range b.FailureCounts {
		errorTypes = append(errorTypes, et)
	}
	sort.Strings(errorTypes)
	for _, et := range errorTypes {
		known := "no anti-pattern recorded"
		if b.FailureKnown[et] {
			known = "anti-pattern recorded"
		}
		fmt.Fprintf(&sb, "- %s: %d occurrences (%s)\n", et, b.FailureCounts[et], known)
		// Rule of three: recurring and unnamed is worth a warn entry.
		if b.FailureCounts[et] >= 3 && !b.FailureKnown[et] {
			fmt.Fprintf(&sb, "  - recurs %d times with no anti-pattern; consider `lore learn warn %q`\n",
				b.FailureCounts[et], et)
		}
	}

	fmt.Fprintf(&sb, "\n## Graph (%d edges)\n\n", len(b.GraphEdges))
	for _, line := range b.GraphEdges {
		fmt.Fprintf(&sb, "- %s\n", line)
	}
	return sb.String()
}

// SubtractionReport is what resume surfaces: things to reconsider, one
// summary line per category.
type SubtractionReport struct {
	Contradictions   []guard.Contradiction
	StalePending     []*types.Decision
	Unvalidated      []*types.Pattern
	DeprecatedNoAnti []*types.Pattern
}

// Subtraction runs the advisory read-time checks.
func (c *Composer) Subtraction() (*SubtractionReport, error) {
	r := &SubtractionReport{}

	active, err := c.journal.Active()
	if err != nil {
		return nil, err
	}
	r.Contradictions = guard.PairwiseContradictions(active)

	pendingDays := config.GetInt("subtraction.pending-days")
	cutoff := time.Now().UTC().Add(-time.Duration(pendingDays) * 24 * time.Hour)
	for _, d := range active {
		if d.Outcome == types.OutcomePending && d.Timestamp.Before(cutoff) {
			r.StalePending = append(r.StalePending, d)
		}
	}

	cat, err := c.patterns.Load()
	if err != nil {
		return nil, err
	}
	for _, p := range cat.Patterns {
		switch {
		case p.Deprecated:
			// Deprecation rewrites the name; match the anti-pattern
			// against the original.
			name := strings.TrimSpace(strings.TrimPrefix(p.Name, "[DEPRECATED]"))
			if !hasAntiPattern(cat, name) {
				r.DeprecatedNoAnti = append(r.DeprecatedNoAnti, p)
			}
		case p.Confidence < 0.3 && p.Validations == 0:
			r.Unvalidated = append(r.Unvalidated, p)
		}
	}
	return r, nil
}

// Lines renders the one-line-per-category summary.
func (r *SubtractionReport) Lines() []string {
	return []string{
		fmt.Sprintf("contradicting decisions: %d", len(r.Contradictions)),
		fmt.Sprintf("pending decisions past review window: %d", len(r.StalePending)),
		fmt.Sprintf("low-confidence patterns with zero validations: %d", len(r.Unvalidated)),
		fmt.Sprintf("deprecated patterns without an anti-pattern: %d", len(r.DeprecatedNoAnti)),
	}
}

package brief

import (
	"strings"
	"testing"
	"time"

	"github.com/lorehq/lore/internal/failures"
	"github.com/lorehq/lore/internal/graph"
	"github.com/lorehq/lore/internal/journal"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/patterns"
	"github.com/lorehq/lore/internal/types"
)

type fixture struct {
	composer *Composer
	journal  *journal.Store
	patterns *patterns.Store
	failures *failures.Store
	graph    *graph.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	root := &paths.Root{Dir: t.TempDir()}
	j := journal.New(root)
	p := patterns.New(root)
	f := failures.New(root)
	g := graph.New(root, nil)
	return &fixture{composer: New(j, p, f, g), journal: j, patterns: p, failures: f, graph: g}
}

func (fx *fixture) seedDecision(t *testing.T, d *types.Decision) *types.Decision {
	t.Helper()
	journal.Enrich(d)
	if err := fx.journal.Append(d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestComposeGathersAcrossStores(t *testing.T) {
	fx := setup(t)
	fx.seedDecision(t, &types.Decision{Decision: "serialize writers with flock locks"})
	fx.seedDecision(t, &types.Decision{Decision: "something about naming"})

	if err := fx.patterns.Capture(&types.Pattern{Name: "flock advisory locks", Solution: "lock beside the store file"}); err != nil {
		t.Fatal(err)
	}
	if err := fx.patterns.Warn(&types.AntiPattern{Name: "LockTimeout under nfs", Symptom: "flock hangs", Fix: "local disk only"}); err != nil {
		t.Fatal(err)
	}
	if err := fx.failures.Append(&types.Failure{ErrorType: "LockTimeout", ErrorMessage: "flock wait expired"}); err != nil {
		t.Fatal(err)
	}

	a, err := fx.graph.AddNode(types.NodeConcept, "flock", nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := fx.graph.AddNode(types.NodeConcept, "journal", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fx.graph.AddEdge(a, b, types.RelAffects, 1, false); err != nil {
		t.Fatal(err)
	}

	briefing, err := fx.composer.Compose("flock")
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if len(briefing.Decisions) != 1 {
		t.Errorf("decisions = %d, want 1 topic match", len(briefing.Decisions))
	}
	if len(briefing.Patterns) != 1 {
		t.Errorf("patterns = %d, want 1", len(briefing.Patterns))
	}
	if len(briefing.AntiPatterns) != 1 {
		t.Errorf("anti-patterns = %d, want 1", len(briefing.AntiPatterns))
	}
	if briefing.FailureCounts["LockTimeout"] != 1 {
		t.Errorf("failure counts = %v", briefing.FailureCounts)
	}
	if !briefing.FailureKnown["LockTimeout"] {
		t.Error("LockTimeout anti-pattern not recognized")
	}
	if len(briefing.GraphEdges) != 1 || !strings.Contains(briefing.GraphEdges[0], "affects") {
		t.Errorf("graph edges = %v", briefing.GraphEdges)
	}

	md := briefing.Markdown()
	for _, want := range []string{"# Briefing: flock", "## Decisions (1)", "## Patterns (1)", "ANTI:", "LockTimeout"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestSubtractionDeprecatedWithReplacementAnti(t *testing.T) {
	fx := setup(t)
	p := &types.Pattern{Name: "Retry on flake", Confidence: 0.6}
	if err := fx.patterns.Capture(p); err != nil {
		t.Fatal(err)
	}
	if err := fx.patterns.Warn(&types.AntiPattern{Name: "Retry on flake", Symptom: "masks real races", Fix: "fix the race"}); err != nil {
		t.Fatal(err)
	}
	// Deprecation renames the pattern; the anti-pattern must still match.
	if err := fx.patterns.Deprecate(p.ID); err != nil {
		t.Fatal(err)
	}

	report, err := fx.composer.Subtraction()
	if err != nil {
		t.Fatal(err)
	}
	if len(report.DeprecatedNoAnti) != 0 {
		t.Errorf("deprecated pattern with a replacement anti-pattern flagged: %v", report.DeprecatedNoAnti[0].Name)
	}
}

func TestComposeSuggestsWarnForRecurringFailures(t *testing.T) {
	fx := setup(t)
	for i := 0; i < 3; i++ {
		if err := fx.failures.Append(&types.Failure{ErrorType: "NonZeroExit", ErrorMessage: "pipeline exited 1"}); err != nil {
			t.Fatal(err)
		}
	}
	briefing, err := fx.composer.Compose("pipeline")
	if err != nil {
		t.Fatal(err)
	}
	if briefing.FailureCounts["NonZeroExit"] != 3 {
		t.Fatalf("failure counts = %v", briefing.FailureCounts)
	}
	md := briefing.Markdown()
	if !strings.Contains(md, "consider `lore learn warn") {
		t.Error("recurring failure without an anti-pattern got no promotion suggestion")
	}
}

func TestComposeEmptyTopic(t *testing.T) {
	fx := setup(t)
	briefing, err := fx.composer.Compose("nonexistent topic")
	if err != nil {
		t.Fatalf("Compose on empty stores failed: %v", err)
	}
	if len(briefing.Decisions) != 0 || len(briefing.Patterns) != 0 {
		t.Errorf("briefing not empty: %+v", briefing)
	}
}

func TestSubtractionCategories(t *testing.T) {
	fx := setup(t)

	// Stale pending: old, active, outcome pending.
	fx.seedDecision(t, &types.Decision{
		Decision:  "ancient pending decision nobody reviewed",
		Timestamp: time.Now().UTC().Add(-30 * 24 * time.Hour),
	})

	// Contradicting pair: shared entities, disjoint wording.
	fx.seedDecision(t, &types.Decision{
		Decision: "cache reads aggressively in memory for speed",
		Entities: []string{"cache", "reads"},
	})
	fx.seedDecision(t, &types.Decision{
		Decision: "bypass all layers and hit disk every single time",
		Entities: []string{"cache", "reads"},
	})

	// Unvalidated: low confidence, zero validations.
	if err := fx.patterns.Capture(&types.Pattern{Name: "speculative idea", Confidence: 0.1}); err != nil {
		t.Fatal(err)
	}
	// Deprecated without a matching anti-pattern.
	dep := &types.Pattern{Name: "global mutable config", Confidence: 0.5}
	if err := fx.patterns.Capture(dep); err != nil {
		t.Fatal(err)
	}
	if err := fx.patterns.Deprecate(dep.ID); err != nil {
		t.Fatal(err)
	}

	report, err := fx.composer.Subtraction()
	if err != nil {
		t.Fatalf("Subtraction failed: %v", err)
	}
	if len(report.Contradictions) != 1 {
		t.Errorf("contradictions = %d, want 1", len(report.Contradictions))
	}
	if len(report.StalePending) == 0 {
		t.Error("stale pending decision not flagged")
	}
	if len(report.Unvalidated) != 1 {
		t.Errorf("unvalidated = %d, want 1", len(report.Unvalidated))
	}
	if len(report.DeprecatedNoAnti) != 1 {
		t.Errorf("deprecated without anti = %d, want 1", len(report.DeprecatedNoAnti))
	}

	lines := report.Lines()
	if len(lines) != 4 {
		t.Fatalf("summary lines = %d, want 4", len(lines))
	}
	if !strings.Contains(lines[0], "1") {
		t.Errorf("contradiction line = %q", lines[0])
	}
}

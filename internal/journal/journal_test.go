package journal

import (
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(&paths.Root{Dir: t.TempDir()})
}

func TestAppendAndGet(t *testing.T) {
	s := testStore(t)
	d := &types.Decision{Decision: "use jsonl as source of truth", Rationale: "survives crashes, diffs cleanly in git"}
	Enrich(d)
	if err := s.Append(d); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := s.Get(d.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Decision != d.Decision {
		t.Errorf("got %q, want %q", got.Decision, d.Decision)
	}
}

func TestGetNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.Get("dec-00000000"); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestLatestRevisionWins(t *testing.T) {
	s := testStore(t)
	d := &types.Decision{Decision: "cache in sqlite"}
	Enrich(d)
	if err := s.Append(d); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Update(d.ID, func(d *types.Decision) {
		d.Outcome = types.OutcomeSuccessful
		d.LessonLearned = "rebuildable caches keep the journal honest"
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := s.Get(d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Outcome != types.OutcomeSuccessful {
		t.Errorf("Outcome = %q, want successful", got.Outcome)
	}
	if got.LessonLearned == "" {
		t.Error("lesson lost across revision")
	}

	// Both revisions remain on disk; reads collapse to the latest.
	all, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("All returned %d decisions, want 1", len(all))
	}
}

func TestUpdateNeverRewritesPriorLines(t *testing.T) {
	s := testStore(t)
	d := &types.Decision{Decision: "original text"}
	Enrich(d)
	if err := s.Append(d); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update(d.ID, func(d *types.Decision) { d.Decision = "revised text" }); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(s.root.JournalFile())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("journal has %d lines, want 2 (append-only)", len(lines))
	}
	if !strings.Contains(lines[0], "original text") {
		t.Error("first revision was rewritten")
	}
}

func TestEnrich(t *testing.T) {
	d := &types.Decision{Decision: "refactor the `loader` into internal/load.go"}
	Enrich(d)

	if d.ID == "" || !strings.HasPrefix(d.ID, "dec-") {
		t.Errorf("bad id %q", d.ID)
	}
	if d.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
	if d.Type != types.DecisionRefactor {
		t.Errorf("Type = %q, want refactor", d.Type)
	}
	if len(d.Entities) == 0 {
		t.Error("entities not extracted")
	}
	if d.Outcome != types.OutcomePending {
		t.Errorf("Outcome = %q, want pending", d.Outcome)
	}
	if d.Status != types.DecisionActive {
		t.Errorf("Status = %q, want active", d.Status)
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		text string
		want types.DecisionType
	}{
		{"redesign the storage architecture", types.DecisionArchitecture},
		{"refactor the parser", types.DecisionRefactor},
		{"rename Store to Journal", types.DecisionNaming},
		{"fix the off-by-one in paging", types.DecisionBugfix},
		{"add a test harness", types.DecisionTooling},
		{"deploy behind a feature flag", types.DecisionProcess},
		{"use flock for write locks", types.DecisionImplementation},
		{"something else entirely", types.DecisionOther},
	}
	for _, tt := range tests {
		if got := DetectType(tt.text); got != tt.want {
			t.Errorf("DetectType(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestSpecQuality(t *testing.T) {
	empty := &types.Decision{}
	if got := SpecQuality(empty); got != 0 {
		t.Errorf("empty decision quality = %f, want 0", got)
	}

	bare := &types.Decision{Decision: "do the thing"}
	if got := SpecQuality(bare); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("text-only quality = %f, want 0.2", got)
	}

	full := &types.Decision{
		Decision:     "use jsonl as source of truth",
		Rationale:    "survives crashes and diffs cleanly in version control",
		Alternatives: []string{"sqlite only"},
		Entities:     []string{"jsonl"},
		Tags:         []string{"storage"},
	}
	if got := SpecQuality(full); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("complete decision quality = %f, want 1.0", got)
	}
}

func TestListFilters(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	seed := []*types.Decision{
		{ID: "dec-aaaa0001", Timestamp: base, Decision: "a", Type: types.DecisionRefactor, Outcome: types.OutcomePending, Status: types.DecisionActive, Tags: []string{"lore"}},
		{ID: "dec-aaaa0002", Timestamp: base.Add(time.Hour), Decision: "b", Type: types.DecisionBugfix, Outcome: types.OutcomeSuccessful, Status: types.DecisionActive, Tags: []string{"other"}},
		{ID: "dec-aaaa0003", Timestamp: base.Add(2 * time.Hour), Decision: "c", Type: types.DecisionRefactor, Outcome: types.OutcomePending, Status: types.DecisionActive, Tags: []string{"lore", "search"}},
	}
	for _, d := range seed {
		d.SpecQuality = SpecQuality(d)
		if err := s.Append(d); err != nil {
			t.Fatal(err)
		}
	}

	byType, err := s.List(Filter{Type: types.DecisionRefactor})
	if err != nil {
		t.Fatal(err)
	}
	if len(byType) != 2 {
		t.Errorf("type filter matched %d, want 2", len(byType))
	}

	byTag, err := s.List(Filter{Tag: "search"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byTag) != 1 || byTag[0].ID != "dec-aaaa0003" {
		t.Errorf("tag filter = %v", byTag)
	}

	recent, err := s.List(Filter{Recent: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].ID != "dec-aaaa0003" {
		t.Errorf("recent filter wrong order or size: %v", recent)
	}
}

func TestCompact(t *testing.T) {
	s := testStore(t)
	d := &types.Decision{Decision: "compactable"}
	Enrich(d)
	if err := s.Append(d); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Update(d.ID, func(d *types.Decision) { d.Rationale = strings.Repeat("r", 30) }); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	data, err := os.ReadFile(s.root.JournalFile())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Errorf("compacted journal has %d lines, want 1", len(lines))
	}

	got, err := s.Get(d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Rationale == "" {
		t.Error("compaction dropped the latest revision")
	}
}

func TestCorruptLineSkipped(t *testing.T) {
	s := testStore(t)
	d := &types.Decision{Decision: "good record"}
	Enrich(d)
	if err := s.Append(d); err != nil {
		t.Fatal(err)
	}
	if err := paths.AppendLine(s.root.JournalFile(), []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	all, err := s.All()
	if err != nil {
		t.Fatalf("scan should soft-skip corrupt lines: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d decisions, want 1", len(all))
	}
}

func TestSecondaryIndexes(t *testing.T) {
	s := testStore(t)
	d := &types.Decision{Decision: "index me", Tags: []string{"Lore/Search"}, Entities: []string{"Parser"}}
	Enrich(d)
	if err := s.Append(d); err != nil {
		t.Fatal(err)
	}

	ids, err := s.IndexIDs("tag", "Lore/Search")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != d.ID {
		t.Errorf("tag index = %v, want [%s]", ids, d.ID)
	}

	ids, err = s.IndexIDs("entity", "Parser")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("entity index = %v", ids)
	}
}

func TestMarkSuperseded(t *testing.T) {
	s := testStore(t)
	old := &types.Decision{Decision: "old way"}
	Enrich(old)
	if err := s.Append(old); err != nil {
		t.Fatal(err)
	}

	if err := s.MarkSuperseded(old.ID, "dec-bbbb0001"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(old.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.DecisionSuperseded || got.SupersededBy != "dec-bbbb0001" {
		t.Errorf("status=%q supersededBy=%q", got.Status, got.SupersededBy)
	}
}

package intent

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

type fakeRecorder struct{ recorded []*types.Decision }

func (f *fakeRecorder) Record(d *types.Decision) error {
	if d.ID == "" {
		d.ID = "dec-deadbeef"
	}
	f.recorded = append(f.recorded, d)
	return nil
}

func testStore(t *testing.T) (*Store, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	return New(&paths.Root{Dir: t.TempDir()}, rec, nil), rec
}

type fakeBinder struct {
	bound   []string
	cleared []string
}

func (f *fakeBinder) BindSpec(goalID string) error {
	f.bound = append(f.bound, goalID)
	return nil
}

func (f *fakeBinder) ClearSpec(goalID string) error {
	f.cleared = append(f.cleared, goalID)
	return nil
}

func TestCreateDefaults(t *testing.T) {
	s, _ := testStore(t)
	g, err := s.Create(CreateInput{
		Name:     "ship hybrid retrieval",
		Criteria: []string{"lexical works", "semantic degrades gracefully"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.HasPrefix(g.ID, "goal-") {
		t.Errorf("bad id %q", g.ID)
	}
	if g.Status != types.GoalDraft {
		t.Errorf("Status = %q, want draft", g.Status)
	}
	if g.Lifecycle.Phase != types.PhaseSpecify {
		t.Errorf("Phase = %q, want specify", g.Lifecycle.Phase)
	}
	if g.Priority != types.PriorityMedium {
		t.Errorf("Priority = %q, want medium default", g.Priority)
	}
	if len(g.SuccessCriteria) != 2 || g.SuccessCriteria[0].ID != "sc-1" || g.SuccessCriteria[1].ID != "sc-2" {
		t.Errorf("criteria = %+v", g.SuccessCriteria)
	}
}

func TestCreateRequiresName(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.Create(CreateInput{Name: "  "}); err == nil {
		t.Fatal("blank name accepted")
	}
}

func TestParseDeadline(t *testing.T) {
	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	got, err := ParseDeadline("2026-09-30T17:00:00Z", base)
	if err != nil {
		t.Fatalf("RFC 3339 parse failed: %v", err)
	}
	if got.Day() != 30 || got.Hour() != 17 {
		t.Errorf("parsed %v", got)
	}

	got, err = ParseDeadline("2026-10-01", base)
	if err != nil {
		t.Fatalf("date-only parse failed: %v", err)
	}
	if got.Month() != time.October {
		t.Errorf("parsed %v", got)
	}

	got, err = ParseDeadline("next friday", base)
	if err != nil {
		t.Fatalf("natural language parse failed: %v", err)
	}
	if !got.After(base) {
		t.Errorf("next friday %v not after base %v", got, base)
	}

	if _, err := ParseDeadline("gibberish zzz", base); err == nil {
		t.Error("nonsense deadline accepted")
	}
}

func TestAssignAdvancesToImplement(t *testing.T) {
	s, _ := testStore(t)
	g, err := s.Create(CreateInput{Name: "goal"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Assign(g.ID, "session-20260826-120000-abcd")
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if got.Status != types.GoalActive {
		t.Errorf("Status = %q, want active", got.Status)
	}
	if got.Lifecycle.Phase != types.PhaseImplement {
		t.Errorf("Phase = %q, want implement (specify jumps on assignment)", got.Lifecycle.Phase)
	}
	if got.Lifecycle.AssignedSession == "" || got.Lifecycle.AssignedAt == nil {
		t.Error("assignment metadata missing")
	}
}

func TestAssignKeepsLatePhase(t *testing.T) {
	s, _ := testStore(t)
	g, err := s.Create(CreateInput{Name: "goal"})
	if err != nil {
		t.Fatal(err)
	}
	// Walk specify -> plan -> tasks -> implement.
	for i := 0; i < 3; i++ {
		if _, err := s.Advance(g.ID); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Assign(g.ID, "session-x")
	if err != nil {
		t.Fatal(err)
	}
	if got.Lifecycle.Phase != types.PhaseImplement {
		t.Errorf("Phase = %q, want implement preserved", got.Lifecycle.Phase)
	}
}

func TestProgressCriterion(t *testing.T) {
	s, _ := testStore(t)
	g, err := s.Create(CreateInput{Name: "goal", Criteria: []string{"first", "second"}})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Progress(g.ID, "sc-1", types.CriterionCompleted)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if got.SuccessCriteria[0].Status != types.CriterionCompleted {
		t.Errorf("criterion status = %q", got.SuccessCriteria[0].Status)
	}
	// Completing criteria never closes the goal by itself.
	if got.Status == types.GoalCompleted {
		t.Error("goal auto-closed")
	}

	if _, err := s.Progress(g.ID, "sc-9", types.CriterionCompleted); !errors.Is(err, ErrCriterionNotFound) {
		t.Errorf("unknown criterion err = %v", err)
	}
}

func TestCompleteEmitsJournalEntry(t *testing.T) {
	s, rec := testStore(t)
	g, err := s.Create(CreateInput{Name: "ship retrieval", Tags: []string{"lore"}})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Complete(g.ID, "completed", "session-x", "landed cleanly")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.Status != types.GoalCompleted || got.Lifecycle.Phase != types.PhaseComplete {
		t.Errorf("status=%q phase=%q", got.Status, got.Lifecycle.Phase)
	}
	if got.Outcome == nil || got.Outcome.Status != "completed" {
		t.Errorf("outcome = %+v", got.Outcome)
	}

	if len(rec.recorded) != 1 {
		t.Fatalf("recorded %d decisions, want 1", len(rec.recorded))
	}
	d := rec.recorded[0]
	if !containsStr(d.Tags, "spec-outcome") || !containsStr(d.Tags, "spec:"+g.ID) || !containsStr(d.Tags, "lore") {
		t.Errorf("tags = %v", d.Tags)
	}
	if got.Outcome.JournalEntry != d.ID {
		t.Errorf("goal not linked to journal entry: %q vs %q", got.Outcome.JournalEntry, d.ID)
	}

	// Closed goals reject further writes.
	if _, err := s.Complete(g.ID, "completed", "", ""); !errors.Is(err, ErrGoalClosed) {
		t.Errorf("double complete err = %v", err)
	}
}

func TestAssignAndCompleteDriveSessionBinding(t *testing.T) {
	s, _ := testStore(t)
	binder := &fakeBinder{}
	s.sessions = binder
	g, err := s.Create(CreateInput{Name: "bindable goal"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Assign(g.ID, "session-x"); err != nil {
		t.Fatal(err)
	}
	if len(binder.bound) != 1 || binder.bound[0] != g.ID {
		t.Errorf("bound = %v, want [%s]", binder.bound, g.ID)
	}

	got, err := s.Complete(g.ID, "completed", "session-x", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(binder.cleared) != 1 || binder.cleared[0] != g.ID {
		t.Errorf("cleared = %v, want [%s]", binder.cleared, g.ID)
	}
	if got.Lifecycle.AssignedSession != "" {
		t.Errorf("AssignedSession = %q, want released on completion", got.Lifecycle.AssignedSession)
	}
}

func TestAssignWithoutSessionSkipsBinding(t *testing.T) {
	s, _ := testStore(t)
	binder := &fakeBinder{}
	s.sessions = binder
	g, err := s.Create(CreateInput{Name: "unbound goal"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Assign(g.ID, ""); err != nil {
		t.Fatal(err)
	}
	if len(binder.bound) != 0 {
		t.Errorf("bound = %v, want none without a session", binder.bound)
	}
}

func TestCompleteFailedCancels(t *testing.T) {
	s, _ := testStore(t)
	g, err := s.Create(CreateInput{Name: "abandoned effort"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Complete(g.ID, "abandoned", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.GoalCancelled {
		t.Errorf("Status = %q, want cancelled", got.Status)
	}
}

func TestListNewestFirstAndFilters(t *testing.T) {
	s, _ := testStore(t)
	a, err := s.Create(CreateInput{Name: "a", Projects: []string{"lore"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(CreateInput{Name: "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Activate(a.ID); err != nil {
		t.Fatal(err)
	}

	active, err := s.List(ListFilter{Status: types.GoalActive})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != a.ID {
		t.Errorf("active = %v", active)
	}

	byProject, err := s.List(ListFilter{Project: "lore"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byProject) != 1 {
		t.Errorf("project filter = %v", byProject)
	}
}

func containsStr(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

package index

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestTemporalDecay(t *testing.T) {
	if got := TemporalDecay(0); got != 1.0 {
		t.Errorf("TemporalDecay(0) = %f, want 1", got)
	}
	if got := TemporalDecay(30); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("TemporalDecay(30) = %f, want 0.5", got)
	}
	if TemporalDecay(60) >= TemporalDecay(30) {
		t.Error("decay must be monotonic in age")
	}
	if got := TemporalDecay(-5); got != 1.0 {
		t.Errorf("negative age clamps to now: got %f", got)
	}
}

func TestFreqBoost(t *testing.T) {
	if got := FreqBoost(0); got != 1.0 {
		t.Errorf("FreqBoost(0) = %f, want 1", got)
	}
	want := 1 + math.Log(2)*0.15
	if got := FreqBoost(1); math.Abs(got-want) > 1e-9 {
		t.Errorf("FreqBoost(1) = %f, want %f", got, want)
	}
	if FreqBoost(100) <= FreqBoost(10) {
		t.Error("boost must grow with access count")
	}
}

func TestImportanceBoost(t *testing.T) {
	if got := ImportanceBoost(0); got != 1.0 {
		t.Errorf("ImportanceBoost(0) = %f, want 1", got)
	}
	if got := ImportanceBoost(5); math.Abs(got-1.2) > 1e-9 {
		t.Errorf("ImportanceBoost(5) = %f, want 1.2", got)
	}
}

func TestAccessRecencyBoost(t *testing.T) {
	if got := AccessRecencyBoost(0); math.Abs(got-1.1) > 1e-9 {
		t.Errorf("AccessRecencyBoost(0) = %f, want 1.1", got)
	}
	// Never-accessed records carry +Inf days and get exactly no nudge.
	if got := AccessRecencyBoost(math.Inf(1)); got != 1.0 {
		t.Errorf("AccessRecencyBoost(+Inf) = %f, want 1", got)
	}
}

func TestProjectBoost(t *testing.T) {
	if got := ProjectBoost("lore", "lore"); got != 1.5 {
		t.Errorf("matching project boost = %f, want 1.5", got)
	}
	if got := ProjectBoost("lore", "other"); got != 1.0 {
		t.Errorf("mismatched project boost = %f, want 1", got)
	}
	if got := ProjectBoost("lore", ""); got != 1.0 {
		t.Errorf("no query project boost = %f, want 1", got)
	}
}

func TestResultTitle(t *testing.T) {
	r := Result{Content: "first line of the decision\nsecond line"}
	if got := r.Title(100); got != "first line of the decision" {
		t.Errorf("Title = %q", got)
	}
	if got := r.Title(5); got != "first" {
		t.Errorf("capped Title = %q", got)
	}
}

func TestResultCompact(t *testing.T) {
	r := Result{
		Type:      "decision",
		ID:        "dec-aaaa0001",
		Content:   "use jsonl as the source of truth",
		Project:   "lore",
		Timestamp: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
		Score:     1.2345,
	}
	got := r.Compact()
	want := "[decision] dec-aaaa0001 | use jsonl as the source of truth | lore | 2026-08-26 | 1.23"
	if got != want {
		t.Errorf("Compact = %q, want %q", got, want)
	}
}

func TestFtsQuery(t *testing.T) {
	if got := ftsQuery("hybrid retrieval"); got != `"hybrid" OR "retrieval"` {
		t.Errorf("ftsQuery = %q", got)
	}
	// Embedded quotes are stripped, never passed through to FTS5.
	if got := ftsQuery(`say "hello"`); strings.Contains(got, `"""`) {
		t.Errorf("quotes leaked: %q", got)
	}
	if got := ftsQuery("   "); got != "" {
		t.Errorf("blank query = %q, want empty", got)
	}
}

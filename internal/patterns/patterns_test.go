package patterns

import (
	"math"
	"strings"
	"testing"

	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(&paths.Root{Dir: t.TempDir()})
}

func TestCaptureDefaults(t *testing.T) {
	s := testStore(t)
	p := &types.Pattern{Name: "atomic replace", Context: "multi writer stores", Solution: "write temp then rename"}
	if err := s.Capture(p); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !strings.HasPrefix(p.ID, "pat-") {
		t.Errorf("bad id %q", p.ID)
	}
	if p.Confidence != 0.5 {
		t.Errorf("Confidence = %f, want 0.5 default", p.Confidence)
	}
	if p.Category != types.CategoryGeneral {
		t.Errorf("Category = %q, want general", p.Category)
	}
	if p.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}

	got, err := s.Get(p.ID)
	if err != nil {
		t.Fatalf("Get after Capture failed: %v", err)
	}
	if got.Name != p.Name {
		t.Errorf("round trip lost name: %q", got.Name)
	}
}

func TestValidateRaisesConfidence(t *testing.T) {
	s := testStore(t)
	p := &types.Pattern{Name: "advisory locks", Confidence: 0.5}
	if err := s.Capture(p); err != nil {
		t.Fatal(err)
	}

	got, err := s.Validate(p.ID)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.Validations != 1 {
		t.Errorf("Validations = %d, want 1", got.Validations)
	}
	if math.Abs(got.Confidence-0.55) > 1e-9 {
		t.Errorf("Confidence = %f, want 0.55", got.Confidence)
	}
}

func TestValidateCapsConfidence(t *testing.T) {
	s := testStore(t)
	p := &types.Pattern{Name: "well proven", Confidence: 0.98}
	if err := s.Capture(p); err != nil {
		t.Fatal(err)
	}
	got, err := s.Validate(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Confidence != 1.0 {
		t.Errorf("Confidence = %f, want capped at 1.0", got.Confidence)
	}
}

func TestDeprecate(t *testing.T) {
	s := testStore(t)
	p := &types.Pattern{Name: "global singletons"}
	if err := s.Capture(p); err != nil {
		t.Fatal(err)
	}
	if err := s.Deprecate(p.ID); err != nil {
		t.Fatalf("Deprecate failed: %v", err)
	}

	got, err := s.Get(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Deprecated {
		t.Error("Deprecated flag not set")
	}
	if !strings.HasPrefix(got.Name, "[DEPRECATED]") {
		t.Errorf("name = %q, want [DEPRECATED] prefix", got.Name)
	}

	// Re-deprecating must not stack prefixes.
	if err := s.Deprecate(p.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(p.ID)
	if strings.Count(got.Name, "[DEPRECATED]") != 1 {
		t.Errorf("prefix stacked: %q", got.Name)
	}
}

func TestWarnDefaults(t *testing.T) {
	s := testStore(t)
	a := &types.AntiPattern{Name: "mutable global config", Symptom: "tests flake depending on order"}
	if err := s.Warn(a); err != nil {
		t.Fatalf("Warn failed: %v", err)
	}
	if !strings.HasPrefix(a.ID, "anti-") {
		t.Errorf("bad id %q", a.ID)
	}
	if a.Severity != types.SeverityMedium {
		t.Errorf("Severity = %q, want medium default", a.Severity)
	}

	found, err := s.HasAntiPattern("global config")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("HasAntiPattern missed substring match")
	}
}

func TestListKindFilter(t *testing.T) {
	s := testStore(t)
	if err := s.Capture(&types.Pattern{Name: "p1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Warn(&types.AntiPattern{Name: "a1"}); err != nil {
		t.Fatal(err)
	}

	ps, as, err := s.List(ListFilter{Kind: "pattern"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 || len(as) != 0 {
		t.Errorf("pattern filter = %d patterns, %d antis", len(ps), len(as))
	}

	ps, as, err = s.List(ListFilter{Kind: "anti"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 0 || len(as) != 1 {
		t.Errorf("anti filter = %d patterns, %d antis", len(ps), len(as))
	}
}

func TestSpecQuality(t *testing.T) {
	if got := SpecQuality(&types.Pattern{}); got != 0 {
		t.Errorf("empty pattern quality = %f", got)
	}
	full := &types.Pattern{
		Name:     "atomic replace",
		Context:  "multi writer yaml stores",
		Problem:  "torn reads during concurrent writes",
		Solution: "write temp file then rename over",
	}
	if got := SpecQuality(full); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("complete pattern quality = %f, want 1.0", got)
	}
}

func TestCheck(t *testing.T) {
	code := "set -e\ncount=0\n((count++))\nAPI_KEY=\"sk-abcdef123456\"\n"
	findings := Check(code)

	want := map[string]bool{"set-e-no-trap": false, "bash-arithmetic-exit": false, "baked-credential": false}
	for _, f := range findings {
		if _, ok := want[f.Rule]; ok {
			want[f.Rule] = true
		}
	}
	for rule, hit := range want {
		if !hit {
			t.Errorf("rule %s did not fire: %v", rule, findings)
		}
	}
}

func TestCheckSetETrapSuppression(t *testing.T) {
	code := "set -e\ntrap 'echo died' ERR\n"
	for _, f := range Check(code) {
		if f.Rule == "set-e-no-trap" {
			t.Error("set-e rule fired despite trap handler")
		}
	}
}

func TestCheckCleanCode(t *testing.T) {
	if findings := Check("echo hello\n"); len(findings) != 0 {
		t.Errorf("clean code flagged: %v", findings)
	}
}

// Package patterns implements the YAML catalogue of patterns and
// anti-patterns with confidence and validation counters.
package patterns

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lorehq/lore/internal/ids"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

// ErrNotFound is returned when a pattern ID resolves to nothing.
var ErrNotFound = errors.New("pattern not found")

// Catalogue is the on-disk shape of patterns.yaml.
type Catalogue struct {
	Patterns     []*types.Pattern     `yaml:"patterns"`
	AntiPatterns []*types.AntiPattern `yaml:"anti_patterns"`
}

// Store reads and writes the pattern catalogue.
type Store struct {
	root *paths.Root
}

// New returns a pattern store rooted at root.
func New(root *paths.Root) *Store {
	return &Store{root: root}
}

// SpecQuality scores how complete a pattern record is, in [0,1].
func SpecQuality(p *types.Pattern) float64 {
	score := 0.0
	if strings.TrimSpace(p.Name) != "" {
		score += 0.2
	}
	if len(p.Context) > 10 {
		score += 0.3
	}
	if len(p.Solution) > 10 {
		score += 0.3
	}
	if len(p.Problem) > 10 {
		score += 0.2
	}
	return score
}

// Load reads the catalogue. A missing file is an empty catalogue.
func (s *Store) Load() (*Catalogue, error) {
	data, err := os.ReadFile(s.root.PatternsFile())
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalogue{}, nil
		}
		return nil, fmt.Errorf("reading patterns file: %w", err)
	}
	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing patterns file: %w", err)
	}
	return &cat, nil
}

// save reserializes the catalogue with an atomic replace. Callers hold
// the store lock.
func (s *Store) save(cat *Catalogue) error {
	data, err := yaml.Marshal(cat)
	if err != nil {
		return fmt.Errorf("marshaling patterns: %w", err)
	}
	return paths.WriteFileAtomic(s.root.PatternsFile(), data)
}

// mutate runs fn over the catalogue under the store lock and saves the
// result.
func (s *Store) mutate(fn func(*Catalogue) error) error {
	return paths.WithLock(s.root.PatternsFile(), func() error {
		cat, err := s.Load()
		if err != nil {
			return err
		}
		if err := fn(cat); err != nil {
			return err
		}
		return s.save(cat)
	})
}

// Capture appends a pattern. Enrichment (id, defaults, spec quality) is
// applied here; the dedup guard runs in the engine before this call.
func (s *Store) Capture(p *types.Pattern) error {
	if p.ID == "" {
		p.ID = ids.NewPatternID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = ids.Now()
	}
	if p.Category == "" {
		p.Category = types.CategoryGeneral
	}
	if p.Confidence == 0 {
		p.Confidence = 0.5
	}
	p.SpecQuality = SpecQuality(p)
	return s.mutate(func(cat *Catalogue) error {
		cat.Patterns = append(cat.Patterns, p)
		return nil
	})
}

// Get returns a pattern by ID.
func (s *Store) Get(id string) (*types.Pattern, error) {
	cat, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, p := range cat.Patterns {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Validate bumps a pattern's validation counter and raises confidence by
// 0.05, capped at 1.0.
func (s *Store) Validate(id string) (*types.Pattern, error) {
	var out *types.Pattern
	err := s.mutate(func(cat *Catalogue) error {
		for _, p := range cat.Patterns {
			if p.ID == id {
				p.Validations++
				p.Confidence += 0.05
				if p.Confidence > 1.0 {
					p.Confidence = 1.0
				}
				out = p
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	return out, err
}

// Deprecate flags a pattern and prefixes its name.
func (s *Store) Deprecate(id string) error {
	return s.mutate(func(cat *Catalogue) error {
		for _, p := range cat.Patterns {
			if p.ID == id {
				p.Deprecated = true
				if !strings.HasPrefix(p.Name, "[DEPRECATED]") {
					p.Name = "[DEPRECATED] " + p.Name
				}
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	})
}

// Warn appends an anti-pattern.
func (s *Store) Warn(a *types.AntiPattern) error {
	if a.ID == "" {
		a.ID = ids.NewAntiPatternID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = ids.Now()
	}
	if a.Category == "" {
		a.Category = types.CategoryGeneral
	}
	if a.Severity == "" {
		a.Severity = types.SeverityMedium
	}
	return s.mutate(func(cat *Catalogue) error {
		cat.AntiPatterns = append(cat.AntiPatterns, a)
		return nil
	})
}

// ListFilter narrows List results.
type ListFilter struct {
	Kind     string // "pattern" | "anti" | ""
	Category types.PatternCategory
}

// List returns patterns and anti-patterns matching the filter.
func (s *Store) List(f ListFilter) ([]*types.Pattern, []*types.AntiPattern, error) {
	cat, err := s.Load()
	if err != nil {
		return nil, nil, err
	}
	var ps []*types.Pattern
	var as []*types.AntiPattern
	if f.Kind == "" || f.Kind == "pattern" {
		for _, p := range cat.Patterns {
			if f.Category == "" || p.Category == f.Category {
				ps = append(ps, p)
			}
		}
	}
	if f.Kind == "" || f.Kind == "anti" {
		for _, a := range cat.AntiPatterns {
			if f.Category == "" || a.Category == f.Category {
				as = append(as, a)
			}
		}
	}
	return ps, as, nil
}

// HasAntiPattern reports whether an anti-pattern exists whose name
// contains needle, case-insensitively. Used by the rule-of-three
// promotion check.
func (s *Store) HasAntiPattern(needle string) (bool, error) {
	cat, err := s.Load()
	if err != nil {
		return false, err
	}
	lower := strings.ToLower(needle)
	for _, a := range cat.AntiPatterns {
		if strings.Contains(strings.ToLower(a.Name), lower) {
			return true, nil
		}
	}
	return false, nil
}

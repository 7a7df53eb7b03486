// Package journal implements the append-only decision log with per-ID
// supersession and file-based secondary indexes.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lorehq/lore/internal/extract"
	"github.com/lorehq/lore/internal/ids"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

// ErrNotFound is returned when no revision exists for an ID.
var ErrNotFound = errors.New("decision not found")

// Store reads and writes the decisions journal.
type Store struct {
	root *paths.Root
}

// New returns a journal store rooted at root.
func New(root *paths.Root) *Store {
	return &Store{root: root}
}

// typeKeywords maps text cues to decision types. Ordered: first match wins.
var typeKeywords = []struct {
	keyword string
	typ     types.DecisionType
}{
	{"architecture", types.DecisionArchitecture},
	{"architect", types.DecisionArchitecture},
	{"design", types.DecisionArchitecture},
	{"refactor", types.DecisionRefactor},
	{"rename", types.DecisionNaming},
	{"naming", types.DecisionNaming},
	{"name", types.DecisionNaming},
	{"bug", types.DecisionBugfix},
	{"fix", types.DecisionBugfix},
	{"test", types.DecisionTooling},
	{"tool", types.DecisionTooling},
	{"deploy", types.DecisionProcess},
	{"process", types.DecisionProcess},
	{"workflow", types.DecisionProcess},
	{"implement", types.DecisionImplementation},
	{"use ", types.DecisionImplementation},
}

// DetectType auto-detects a decision type from its text.
func DetectType(text string) types.DecisionType {
	lower := strings.ToLower(text)
	for _, kw := range typeKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.typ
		}
	}
	return types.DecisionOther
}

// SpecQuality scores how complete a decision record is, in [0,1].
func SpecQuality(d *types.Decision) float64 {
	score := 0.0
	if strings.TrimSpace(d.Decision) != "" {
		score += 0.2
	}
	if len(d.Rationale) > 20 {
		score += 0.3
	}
	if len(d.Alternatives) > 0 {
		score += 0.2
	}
	if len(d.Entities) > 0 {
		score += 0.15
	}
	if len(d.Tags) > 0 {
		score += 0.15
	}
	return score
}

// Enrich fills in the derived fields of a freshly recorded decision:
// id, timestamp, type, entities, status, outcome, spec quality.
func Enrich(d *types.Decision) {
	if d.ID == "" {
		d.ID = ids.NewDecisionID()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = ids.Now()
	}
	if d.Type == "" {
		d.Type = DetectType(d.Decision + " " + d.Rationale)
	}
	if len(d.Entities) == 0 {
		d.Entities = extract.Entities(d.Decision + " " + d.Rationale)
	}
	if d.Outcome == "" {
		d.Outcome = types.OutcomePending
	}
	if d.Status == "" {
		d.Status = types.DecisionActive
	}
	d.SpecQuality = SpecQuality(d)
}

// Append writes one revision to the journal and updates the secondary
// indexes. Callers are responsible for enrichment and write guards.
func (s *Store) Append(d *types.Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling decision: %w", err)
	}
	if err := paths.AppendLine(s.root.JournalFile(), data); err != nil {
		return err
	}
	return s.indexDecision(d)
}

// Get returns the latest revision of a decision.
func (s *Store) Get(id string) (*types.Decision, error) {
	var found *types.Decision
	err := s.scan(func(d *types.Decision) {
		if d.ID == id {
			found = d
		}
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}

// Update appends a new revision of the decision with mutate applied.
// Prior lines are never touched.
func (s *Store) Update(id string, mutate func(*types.Decision)) (*types.Decision, error) {
	d, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	mutate(d)
	d.SpecQuality = SpecQuality(d)
	if err := s.Append(d); err != nil {
		return nil, err
	}
	return d, nil
}

// MarkSuperseded flips a decision to superseded and records what replaced
// it. Used as the side-effect of a supersedes graph edge.
func (s *Store) MarkSuperseded(id, byID string) error {
	_, err := s.Update(id, func(d *types.Decision) {
		d.Status = types.DecisionSuperseded
		d.SupersededBy = byID
	})
	return err
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Recent    int
	Type      types.DecisionType
	Outcome   types.Outcome
	Tag       string
	Project   string // tag prefix match
	SessionID string
	Since     time.Time
	Until     time.Time
}

// All returns the latest revision of every decision, newest first.
func (s *Store) All() ([]*types.Decision, error) {
	return s.List(Filter{})
}

// Active returns the latest revision of every active decision.
func (s *Store) Active() ([]*types.Decision, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	var active []*types.Decision
	for _, d := range all {
		if d.Status == types.DecisionActive {
			active = append(active, d)
		}
	}
	return active, nil
}

// List returns decisions matching the filter, deduplicated to the latest
// revision per ID and sorted by timestamp descending.
func (s *Store) List(f Filter) ([]*types.Decision, error) {
	latest := make(map[string]*types.Decision)
	var order []string
	err := s.scan(func(d *types.Decision) {
		if _, seen := latest[d.ID]; !seen {
			order = append(order, d.ID)
		}
		latest[d.ID] = d
	})
	if err != nil {
		return nil, err
	}

	var out []*types.Decision
	for _, id := range order {
		d := latest[id]
		if f.Type != "" && d.Type != f.Type {
			continue
		}
		if f.Outcome != "" && d.Outcome != f.Outcome {
			continue
		}
		if f.Tag != "" && !hasTag(d.Tags, f.Tag) {
			continue
		}
		if f.Project != "" && !hasTagPrefix(d.Tags, f.Project) {
			continue
		}
		if f.SessionID != "" && d.SessionID != f.SessionID {
			continue
		}
		if !f.Since.IsZero() && d.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && d.Timestamp.After(f.Until) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if f.Recent > 0 && len(out) > f.Recent {
		out = out[:f.Recent]
	}
	return out, nil
}

// Search does case-insensitive substring matching across decision text,
// rationale, lesson, alternatives, entities, and tags.
func (s *Store) Search(query string) ([]*types.Decision, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var out []*types.Decision
	for _, d := range all {
		if strings.Contains(strings.ToLower(d.SearchableText()), needle) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Stats summarizes the journal.
type Stats struct {
	Total      int                          `json:"total"`
	ByType     map[types.DecisionType]int   `json:"by_type"`
	ByOutcome  map[types.Outcome]int        `json:"by_outcome"`
	ByStatus   map[types.DecisionStatus]int `json:"by_status"`
	AvgQuality float64                      `json:"avg_spec_quality"`
}

// Stats computes totals and histograms over latest revisions.
func (s *Store) Stats() (*Stats, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	st := &Stats{
		ByType:    make(map[types.DecisionType]int),
		ByOutcome: make(map[types.Outcome]int),
		ByStatus:  make(map[types.DecisionStatus]int),
	}
	var qualitySum float64
	for _, d := range all {
		st.Total++
		st.ByType[d.Type]++
		st.ByOutcome[d.Outcome]++
		st.ByStatus[d.Status]++
		qualitySum += d.SpecQuality
	}
	if st.Total > 0 {
		st.AvgQuality = qualitySum / float64(st.Total)
	}
	return st, nil
}

// Compact rewrites the journal keeping only the latest revision per ID
// and rebuilds all secondary indexes. Runs under an exclusive lock.
func (s *Store) Compact() error {
	file := s.root.JournalFile()
	return paths.WithLock(file, func() error {
		latest := make(map[string]*types.Decision)
		var order []string
		if err := s.scan(func(d *types.Decision) {
			if _, seen := latest[d.ID]; !seen {
				order = append(order, d.ID)
			}
			latest[d.ID] = d
		}); err != nil {
			return err
		}

		var buf strings.Builder
		for _, id := range order {
			data, err := json.Marshal(latest[id])
			if err != nil {
				return fmt.Errorf("marshaling decision %s: %w", id, err)
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		if err := paths.WriteFileAtomic(file, []byte(buf.String())); err != nil {
			return err
		}

		// Rebuild indexes from scratch in a temp dir, then swap.
		indexDir := s.root.JournalIndexDir()
		tmpDir := indexDir + ".rebuild"
		if err := os.RemoveAll(tmpDir); err != nil {
			return err
		}
		if err := os.MkdirAll(tmpDir, 0755); err != nil {
			return err
		}
		for _, id := range order {
			if err := s.indexDecisionInto(tmpDir, latest[id]); err != nil {
				return err
			}
		}
		if err := os.RemoveAll(indexDir); err != nil {
			return err
		}
		return os.Rename(tmpDir, indexDir)
	})
}

func (s *Store) scan(fn func(*types.Decision)) error {
	return paths.ReadLines(s.root.JournalFile(), func(line []byte) error {
		var d types.Decision
		if err := json.Unmarshal(line, &d); err != nil {
			// Corrupted line: soft-skip and continue.
			return nil
		}
		fn(&d)
		return nil
	})
}

var unsafeIndexChars = regexp.MustCompile(`[^a-z0-9_.-]`)

func safeIndexValue(v string) string {
	return unsafeIndexChars.ReplaceAllString(strings.ToLower(v), "_")
}

// indexDecision appends the decision ID to each (dimension,value) index
// file it belongs to. Index drift self-heals via Compact.
func (s *Store) indexDecision(d *types.Decision) error {
	return s.indexDecisionInto(s.root.JournalIndexDir(), d)
}

func (s *Store) indexDecisionInto(dir string, d *types.Decision) error {
	entries := []string{
		"date_" + d.Timestamp.UTC().Format("2006-01-02") + ".idx",
		"type_" + string(d.Type) + ".idx",
	}
	for _, e := range d.Entities {
		entries = append(entries, "entity_"+safeIndexValue(e)+".idx")
	}
	for _, t := range d.Tags {
		entries = append(entries, "tag_"+safeIndexValue(t)+".idx")
	}
	for _, name := range entries {
		if err := paths.AppendLine(filepath.Join(dir, name), []byte(d.ID)); err != nil {
			return err
		}
	}
	return nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func hasTagPrefix(tags []string, prefix string) bool {
	for _, t := range tags {
		if strings.HasPrefix(strings.ToLower(t), strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// IndexIDs reads one secondary index file, returning the decision IDs it
// lists (deduplicated, order preserved).
func (s *Store) IndexIDs(dimension, value string) ([]string, error) {
	name := dimension + "_" + safeIndexValue(value) + ".idx"
	data, err := os.ReadFile(filepath.Join(s.root.JournalIndexDir(), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !seen[line] {
			seen[line] = true
			out = append(out, line)
		}
	}
	return out, nil
}

// Package failures implements the append-only failure log with
// error-type aggregation.
package failures

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lorehq/lore/internal/ids"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

// Store reads and writes the failure log.
type Store struct {
	root *paths.Root
}

// New returns a failure store rooted at root.
func New(root *paths.Root) *Store {
	return &Store{root: root}
}

// Append records one failure, assigning id, timestamp, and the current
// session when one is active.
func (s *Store) Append(f *types.Failure) error {
	if f.ID == "" {
		f.ID = ids.NewFailureID()
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = ids.Now()
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling failure: %w", err)
	}
	return paths.AppendLine(s.root.FailuresFile(), data)
}

// Filter narrows List results.
type Filter struct {
	ErrorType string
	Tool      string
	SessionID string
	Recent    int
}

// List returns failures matching the filter, newest first.
func (s *Store) List(f Filter) ([]*types.Failure, error) {
	var out []*types.Failure
	err := s.scan(func(fl *types.Failure) {
		if f.ErrorType != "" && !strings.EqualFold(fl.ErrorType, f.ErrorType) {
			return
		}
		if f.Tool != "" && !strings.EqualFold(fl.Tool, f.Tool) {
			return
		}
		if f.SessionID != "" && fl.SessionID != f.SessionID {
			return
		}
		out = append(out, fl)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if f.Recent > 0 && len(out) > f.Recent {
		out = out[:f.Recent]
	}
	return out, nil
}

// StatsByType returns lifetime failure counts grouped by error type.
func (s *Store) StatsByType() (map[string]int, error) {
	counts := make(map[string]int)
	err := s.scan(func(f *types.Failure) {
		counts[f.ErrorType]++
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Grep returns failures whose type or message contains topic,
// case-insensitively.
func (s *Store) Grep(topic string) ([]*types.Failure, error) {
	needle := strings.ToLower(topic)
	var out []*types.Failure
	err := s.scan(func(f *types.Failure) {
		haystack := strings.ToLower(f.ErrorType + " " + f.ErrorMessage + " " + f.Tool + " " + f.Step)
		if strings.Contains(haystack, needle) {
			out = append(out, f)
		}
	})
	return out, err
}

func (s *Store) scan(fn func(*types.Failure)) error {
	return paths.ReadLines(s.root.FailuresFile(), func(line []byte) error {
		var f types.Failure
		if err := json.Unmarshal(line, &f); err != nil {
			return nil // soft-skip corrupted lines
		}
		fn(&f)
		return nil
	})
}

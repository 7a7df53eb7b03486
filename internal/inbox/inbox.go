// Package inbox implements the append-only staging area for raw
// observations with a promote/discard lifecycle.
package inbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lorehq/lore/internal/ids"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

// ErrNotFound is returned when an observation ID resolves to nothing.
var ErrNotFound = errors.New("observation not found")

// Store reads and writes the observation log.
type Store struct {
	root *paths.Root
}

// New returns an inbox store rooted at root.
func New(root *paths.Root) *Store {
	return &Store{root: root}
}

// Observe appends a raw observation and returns its ID.
func (s *Store) Observe(content, source string, tags []string) (string, error) {
	obs := &types.Observation{
		ID:        ids.NewObservationID(),
		Timestamp: ids.Now(),
		Source:    source,
		Content:   content,
		Status:    types.ObservationRaw,
		Tags:      tags,
	}
	data, err := json.Marshal(obs)
	if err != nil {
		return "", fmt.Errorf("marshaling observation: %w", err)
	}
	if err := paths.AppendLine(s.root.InboxFile(), data); err != nil {
		return "", err
	}
	return obs.ID, nil
}

// List returns observations, optionally filtered by status.
func (s *Store) List(status types.ObservationStatus) ([]*types.Observation, error) {
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	var out []*types.Observation
	for _, o := range all {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

// Promote marks an observation promoted. The caller then records the
// target entry (remember/learn); promotion itself never creates one.
func (s *Store) Promote(id, kind string) error {
	return s.setStatus(id, types.ObservationPromoted, kind)
}

// Discard marks an observation discarded.
func (s *Store) Discard(id string) error {
	return s.setStatus(id, types.ObservationDiscarded, "")
}

// setStatus rewrites the log in place under lock with the status change
// applied; the log stays one record per line.
func (s *Store) setStatus(id string, status types.ObservationStatus, kind string) error {
	file := s.root.InboxFile()
	return paths.WithLock(file, func() error {
		all, err := s.load()
		if err != nil {
			return err
		}
		found := false
		var buf strings.Builder
		for _, o := range all {
			if o.ID == id {
				o.Status = status
				if kind != "" {
					o.Tags = append(o.Tags, "promoted:"+kind)
				}
				found = true
			}
			data, err := json.Marshal(o)
			if err != nil {
				return fmt.Errorf("marshaling observation: %w", err)
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return paths.WriteFileAtomic(file, []byte(buf.String()))
	})
}

func (s *Store) load() ([]*types.Observation, error) {
	var out []*types.Observation
	err := paths.ReadLines(s.root.InboxFile(), func(line []byte) error {
		var o types.Observation
		if err := json.Unmarshal(line, &o); err != nil {
			return nil // soft-skip corrupted lines
		}
		out = append(out, &o)
		return nil
	})
	return out, err
}

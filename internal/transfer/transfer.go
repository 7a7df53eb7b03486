// Package transfer persists session state across context boundaries:
// init, periodic snapshots, handoff, resume, and compression of old
// sessions down to their essence.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lorehq/lore/internal/ids"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

var (
	// ErrNoCurrentSession is returned when no session is active.
	ErrNoCurrentSession = errors.New("no active session")
	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded rejects writes to a handed-off session.
	ErrSessionEnded = errors.New("session already ended")
)

// Store manages session records under transfer/data/sessions/.
type Store struct {
	root *paths.Root
	// WorkDir is where git commands run; defaults to the process cwd.
	WorkDir string
}

// New returns a session store rooted at root.
func New(root *paths.Root) *Store {
	return &Store{root: root}
}

func (s *Store) sessionFile(id string) string {
	return filepath.Join(s.root.SessionsDir(), id+".json")
}

func (s *Store) compressedFile(id string) string {
	return filepath.Join(s.root.SessionsDir(), id+".compressed.json")
}

func (s *Store) write(sess *types.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	return paths.WriteFileAtomic(s.sessionFile(sess.ID), data)
}

// Init starts a new session, capturing initial git state, and records it
// as current. Any previously current session stays on disk untouched; the
// tracker simply moves on.
func (s *Store) Init(ctx context.Context, summary string) (*types.Session, error) {
	now := ids.Now()
	sess := &types.Session{
		ID:        ids.NewSessionID(now),
		StartedAt: now,
		Summary:   summary,
		GitState:  s.captureGitState(ctx),
	}
	if err := s.write(sess); err != nil {
		return nil, err
	}
	if err := paths.WriteFileAtomic(s.root.CurrentSessionFile(), []byte(sess.ID+"\n")); err != nil {
		return nil, err
	}
	return sess, nil
}

// CurrentID returns the active session ID, or ErrNoCurrentSession.
func (s *Store) CurrentID() (string, error) {
	data, err := os.ReadFile(s.root.CurrentSessionFile())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoCurrentSession
		}
		return "", fmt.Errorf("reading session tracker: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", ErrNoCurrentSession
	}
	return id, nil
}

// Current returns the active session record.
func (s *Store) Current() (*types.Session, error) {
	id, err := s.CurrentID()
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Get loads one session, preferring the full record over a compressed
// remnant.
func (s *Store) Get(id string) (*types.Session, error) {
	for _, path := range []string{s.sessionFile(id), s.compressedFile(id)} {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading session %s: %w", id, err)
		}
		var sess types.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return nil, fmt.Errorf("parsing session %s: %w", id, err)
		}
		return &sess, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

// SnapshotInput carries the caller-supplied progress for a snapshot.
type SnapshotInput struct {
	Summary         string
	GoalsAddressed  []string
	DecisionsMade   []string
	PatternsLearned []string
	OpenThreads     []string
	RecentCommands  []string
	Spec            string
}

// Snapshot refreshes the current session in place: git state and active
// files are recaptured, caller-supplied lists are unioned in. Snapshots
// are idempotent with respect to list membership.
func (s *Store) Snapshot(ctx context.Context, in SnapshotInput) (*types.Session, error) {
	sess, err := s.Current()
	if err != nil {
		return nil, err
	}
	if sess.Ended() {
		return nil, fmt.Errorf("%w: %s", ErrSessionEnded, sess.ID)
	}
	if in.Summary != "" {
		sess.Summary = in.Summary
	}
	sess.GoalsAddressed = union(sess.GoalsAddressed, in.GoalsAddressed)
	sess.DecisionsMade = union(sess.DecisionsMade, in.DecisionsMade)
	sess.PatternsLearned = union(sess.PatternsLearned, in.PatternsLearned)
	sess.OpenThreads = union(sess.OpenThreads, in.OpenThreads)
	sess.GitState = s.captureGitState(ctx)
	if sess.Context == nil {
		sess.Context = &types.SessionContext{}
	}
	sess.Context.ActiveFiles = s.activeFiles(24 * time.Hour)
	sess.Context.RecentCommands = union(sess.Context.RecentCommands, in.RecentCommands)
	if in.Spec != "" {
		sess.Context.Spec = in.Spec
	}
	if err := s.write(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Link attaches produced records to the current session so resume and
// briefings can chase them later.
func (s *Store) Link(journalIDs, patternIDs, goalIDs []string) error {
	sess, err := s.Current()
	if err != nil {
		return err
	}
	if sess.Related == nil {
		sess.Related = &types.SessionRelated{}
	}
	sess.Related.JournalEntries = union(sess.Related.JournalEntries, journalIDs)
	sess.Related.Patterns = union(sess.Related.Patterns, patternIDs)
	sess.Related.Goals = union(sess.Related.Goals, goalIDs)
	return s.write(sess)
}

// BindSpec records the goal driving the current session: the context's
// spec slot plus the related-goals list. Having no current session is
// not an error; assignment can happen between sessions.
func (s *Store) BindSpec(goalID string) error {
	sess, err := s.Current()
	if err != nil {
		if errors.Is(err, ErrNoCurrentSession) {
			return nil
		}
		return err
	}
	if sess.Ended() {
		return nil
	}
	if sess.Context == nil {
		sess.Context = &types.SessionContext{}
	}
	sess.Context.Spec = goalID
	if sess.Related == nil {
		sess.Related = &types.SessionRelated{}
	}
	sess.Related.Goals = union(sess.Related.Goals, []string{goalID})
	return s.write(sess)
}

// ClearSpec drops the current session's spec binding when it points at
// goalID (or unconditionally for an empty goalID).
func (s *Store) ClearSpec(goalID string) error {
	sess, err := s.Current()
	if err != nil {
		if errors.Is(err, ErrNoCurrentSession) {
			return nil
		}
		return err
	}
	if sess.Context == nil || sess.Context.Spec == "" {
		return nil
	}
	if goalID != "" && sess.Context.Spec != goalID {
		return nil
	}
	sess.Context.Spec = ""
	return s.write(sess)
}

// Handoff ends the current session: stamps ended_at, records the handoff
// note, takes a final git snapshot, and clears the tracker. Ending an
// already-ended session is rejected.
func (s *Store) Handoff(ctx context.Context, h types.Handoff) (*types.Session, error) {
	sess, err := s.Current()
	if err != nil {
		return nil, err
	}
	if sess.Ended() {
		return nil, fmt.Errorf("%w: %s", ErrSessionEnded, sess.ID)
	}
	now := ids.Now()
	h.CreatedAt = now
	sess.EndedAt = &now
	sess.Handoff = &h
	sess.GitState = s.captureGitState(ctx)
	if err := s.write(sess); err != nil {
		return nil, err
	}
	if err := os.Remove(s.root.CurrentSessionFile()); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("clearing session tracker: %w", err)
	}
	return sess, nil
}

// Resume returns the most recently ended session without mutating
// anything. Pass an ID to resume a specific session instead.
func (s *Store) Resume(id string) (*types.Session, error) {
	if id != "" {
		return s.Get(id)
	}
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if sess.Ended() {
			return sess, nil
		}
	}
	return nil, ErrSessionNotFound
}

// List returns all sessions, newest first by start time.
func (s *Store) List() ([]*types.Session, error) {
	entries, err := os.ReadDir(s.root.SessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	seen := make(map[string]bool)
	var out []*types.Session
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimSuffix(name, ".json"), ".compressed")
		if seen[id] {
			continue
		}
		sess, err := s.Get(id)
		if err != nil {
			continue
		}
		seen[id] = true
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// CompressResult reports one compression.
type CompressResult struct {
	ID           string  `json:"id"`
	OriginalSize int     `json:"original_size"`
	EssenceSize  int     `json:"essence_size"`
	EssenceRatio float64 `json:"essence_ratio"`
}

// Compress reduces an ended session to its essence: summary, handoff,
// decisions, patterns, and open threads survive; git state, context, and
// the rest of the bulk are dropped. The essence lands in
// <id>.compressed.json and the full record is removed. A Summarizer, when
// provided, rewrites the summary; failures there fall back to the
// original text.
func (s *Store) Compress(ctx context.Context, id string, summarizer Summarizer) (*CompressResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !sess.Ended() {
		return nil, fmt.Errorf("session %s is still active", id)
	}
	if sess.Compressed {
		return nil, fmt.Errorf("session %s already compressed", id)
	}
	original, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling session: %w", err)
	}

	now := ids.Now()
	essence := &types.Session{
		ID:              sess.ID,
		StartedAt:       sess.StartedAt,
		EndedAt:         sess.EndedAt,
		Summary:         sess.Summary,
		DecisionsMade:   sess.DecisionsMade,
		PatternsLearned: sess.PatternsLearned,
		OpenThreads:     sess.OpenThreads,
		Handoff:         sess.Handoff,
		Related:         sess.Related,
		Compressed:      true,
		CompressedAt:    &now,
	}
	if summarizer != nil {
		if short, err := summarizer.Summarize(ctx, sess); err == nil && short != "" {
			essence.Summary = short
		}
	}

	compressed, err := json.MarshalIndent(essence, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling essence: %w", err)
	}
	// An essence that does not shrink the record is not worth losing
	// the full session over.
	if len(compressed) >= len(original) {
		return nil, fmt.Errorf("compressing %s would not shrink it (%d -> %d bytes)",
			id, len(original), len(compressed))
	}
	if err := paths.WriteFileAtomic(s.compressedFile(id), compressed); err != nil {
		return nil, err
	}
	if err := os.Remove(s.sessionFile(id)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing full session: %w", err)
	}
	return &CompressResult{
		ID:           id,
		OriginalSize: len(original),
		EssenceSize:  len(compressed),
		EssenceRatio: float64(len(compressed)) / float64(len(original)),
	}, nil
}

// CompressOlderThan compresses every ended, uncompressed session whose
// end predates the cutoff.
func (s *Store) CompressOlderThan(ctx context.Context, age time.Duration, summarizer Summarizer) ([]*CompressResult, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-age)
	var results []*CompressResult
	for _, sess := range sessions {
		if !sess.Ended() || sess.Compressed || sess.EndedAt.After(cutoff) {
			continue
		}
		res, err := s.Compress(ctx, sess.ID, summarizer)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// captureGitState fingerprints the working repo. Git being absent or the
// directory not being a repo is normal; the state is simply nil.
func (s *Store) captureGitState(ctx context.Context) *types.GitState {
	branch, err := s.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil
	}
	state := &types.GitState{Branch: strings.TrimSpace(branch)}
	if log, err := s.git(ctx, "log", "--oneline", "-5"); err == nil {
		for _, line := range strings.Split(strings.TrimSpace(log), "\n") {
			if line != "" {
				state.Commits = append(state.Commits, line)
			}
		}
	}
	if status, err := s.git(ctx, "status", "--porcelain"); err == nil {
		for _, line := range strings.Split(status, "\n") {
			if strings.TrimSpace(line) != "" {
				state.Uncommitted++
			}
		}
	}
	if stash, err := s.git(ctx, "rev-list", "--walk-reflogs", "--count", "refs/stash"); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(stash)); err == nil {
			state.StashCount = n
		}
	}
	return state
}

func (s *Store) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if s.WorkDir != "" {
		cmd.Dir = s.WorkDir
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// activeFiles lists repo files modified within the window, via git status
// plus recent commit touches. Best effort: no repo means no files.
func (s *Store) activeFiles(window time.Duration) []string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := s.git(ctx, "log", "--since="+window.String(), "--name-only", "--pretty=format:")
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		files = append(files, line)
	}
	if status, err := s.git(ctx, "status", "--porcelain"); err == nil {
		for _, line := range strings.Split(status, "\n") {
			if len(line) > 3 {
				f := strings.TrimSpace(line[3:])
				if f != "" && !seen[f] {
					seen[f] = true
					files = append(files, f)
				}
			}
		}
	}
	sort.Strings(files)
	return files
}

// union appends the members of add not already in base, preserving order.
func union(base, add []string) []string {
	seen := make(map[string]bool, len(base))
	for _, v := range base {
		seen[v] = true
	}
	for _, v := range add {
		if v != "" && !seen[v] {
			seen[v] = true
			base = append(base, v)
		}
	}
	return base
}

// Package intent manages goals: durable statements of what we are trying
// to accomplish, with success criteria, lifecycle phases, and an outcome
// that feeds back into the decision journal.
package intent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"gopkg.in/yaml.v3"

	"github.com/lorehq/lore/internal/ids"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/types"
)

var (
	// ErrGoalNotFound is returned for unknown goal IDs.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrCriterionNotFound is returned for unknown criterion IDs.
	ErrCriterionNotFound = errors.New("criterion not found")
	// ErrGoalClosed rejects mutation of completed or cancelled goals.
	ErrGoalClosed = errors.New("goal is closed")
)

// DecisionRecorder is the slice of the journal goal completion writes to.
type DecisionRecorder interface {
	Record(d *types.Decision) error
}

// SessionBinder is the slice of the transfer layer assignment touches:
// the current session's spec binding.
type SessionBinder interface {
	BindSpec(goalID string) error
	ClearSpec(goalID string) error
}

// Store manages one YAML file per goal under intent/data/goals/.
type Store struct {
	root     *paths.Root
	journal  DecisionRecorder
	sessions SessionBinder
}

// New returns a goal store. journal and sessions may be nil when outcome
// propagation or session binding is not needed.
func New(root *paths.Root, journal DecisionRecorder, sessions SessionBinder) *Store {
	return &Store{root: root, journal: journal, sessions: sessions}
}

func (s *Store) goalFile(id string) string {
	return filepath.Join(s.root.GoalsDir(), id+".yaml")
}

func (s *Store) write(g *types.Goal) error {
	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshaling goal: %w", err)
	}
	return paths.WriteFileAtomic(s.goalFile(g.ID), data)
}

// CreateInput carries the fields for a new goal.
type CreateInput struct {
	Name        string
	Description string
	Priority    types.GoalPriority
	// Deadline accepts either RFC 3339 or natural language ("next friday").
	Deadline  string
	Criteria  []string
	DependsOn []string
	Projects  []string
	Tags      []string
}

// Create records a new goal in draft, phase specify.
func (s *Store) Create(in CreateInput) (*types.Goal, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("goal name is required")
	}
	now := ids.Now()
	g := &types.Goal{
		ID:          ids.NewGoalID(now),
		Name:        in.Name,
		Description: in.Description,
		Status:      types.GoalDraft,
		Priority:    in.Priority,
		DependsOn:   in.DependsOn,
		Projects:    in.Projects,
		Tags:        in.Tags,
		Lifecycle:   types.GoalLifecycle{Phase: types.PhaseSpecify},
	}
	if g.Priority == "" {
		g.Priority = types.PriorityMedium
	}
	if in.Deadline != "" {
		deadline, err := ParseDeadline(in.Deadline, now)
		if err != nil {
			return nil, err
		}
		g.Deadline = &deadline
	}
	for i, desc := range in.Criteria {
		g.SuccessCriteria = append(g.SuccessCriteria, types.SuccessCriterion{
			ID:          fmt.Sprintf("sc-%d", i+1),
			Description: desc,
			Status:      types.CriterionPending,
		})
	}
	if err := s.write(g); err != nil {
		return nil, err
	}
	return g, nil
}

// ParseDeadline accepts RFC 3339 first, then natural language relative to
// base.
func ParseDeadline(text string, base time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", text); err == nil {
		return t.UTC(), nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(text, base)
	if err != nil || r == nil {
		return time.Time{}, fmt.Errorf("cannot parse deadline %q", text)
	}
	return r.Time.UTC(), nil
}

// Get loads one goal.
func (s *Store) Get(id string) (*types.Goal, error) {
	data, err := os.ReadFile(s.goalFile(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrGoalNotFound, id)
		}
		return nil, fmt.Errorf("reading goal %s: %w", id, err)
	}
	var g types.Goal
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing goal %s: %w", id, err)
	}
	return &g, nil
}

// ListFilter narrows List.
type ListFilter struct {
	Status  types.GoalStatus
	Project string
}

// List returns goals newest first (the ID carries the creation epoch).
func (s *Store) List(f ListFilter) ([]*types.Goal, error) {
	entries, err := os.ReadDir(s.root.GoalsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	var out []*types.Goal
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		g, err := s.Get(strings.TrimSuffix(entry.Name(), ".yaml"))
		if err != nil {
			continue
		}
		if f.Status != "" && g.Status != f.Status {
			continue
		}
		if f.Project != "" && !contains(g.Projects, f.Project) {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (s *Store) update(id string, fn func(*types.Goal) error) (*types.Goal, error) {
	var g *types.Goal
	err := paths.WithLock(s.goalFile(id), func() error {
		loaded, err := s.Get(id)
		if err != nil {
			return err
		}
		if err := fn(loaded); err != nil {
			return err
		}
		g = loaded
		return s.write(loaded)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Activate moves a draft goal to active.
func (s *Store) Activate(id string) (*types.Goal, error) {
	return s.update(id, func(g *types.Goal) error {
		if g.Status == types.GoalCompleted || g.Status == types.GoalCancelled {
			return fmt.Errorf("%w: %s", ErrGoalClosed, id)
		}
		g.Status = types.GoalActive
		return nil
	})
}

// Assign binds a goal to a working session, on both sides: the goal
// records the session, the session records the goal as its active spec.
// A goal still in specify or plan jumps straight to implement:
// assignment means work is starting.
func (s *Store) Assign(id, sessionID string) (*types.Goal, error) {
	g, err := s.update(id, func(g *types.Goal) error {
		if g.Status == types.GoalCompleted || g.Status == types.GoalCancelled {
			return fmt.Errorf("%w: %s", ErrGoalClosed, id)
		}
		now := ids.Now()
		g.Status = types.GoalActive
		g.Lifecycle.AssignedSession = sessionID
		g.Lifecycle.AssignedAt = &now
		if g.Lifecycle.Phase == types.PhaseSpecify || g.Lifecycle.Phase == types.PhasePlan {
			g.Lifecycle.Phase = types.PhaseImplement
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Session side is best-effort: the goal file is the source of truth.
	if s.sessions != nil && sessionID != "" {
		_ = s.sessions.BindSpec(g.ID)
	}
	return g, nil
}

// Advance moves the goal to the next lifecycle phase.
func (s *Store) Advance(id string) (*types.Goal, error) {
	return s.update(id, func(g *types.Goal) error {
		if g.Status == types.GoalCompleted || g.Status == types.GoalCancelled {
			return fmt.Errorf("%w: %s", ErrGoalClosed, id)
		}
		g.Lifecycle.Phase = g.Lifecycle.Phase.NextPhase()
		return nil
	})
}

// Progress sets one criterion's status. When every criterion is completed
// the goal stays active; closing is an explicit Complete call.
func (s *Store) Progress(id, criterionID string, status types.CriterionStatus) (*types.Goal, error) {
	return s.update(id, func(g *types.Goal) error {
		if g.Status == types.GoalCompleted || g.Status == types.GoalCancelled {
			return fmt.Errorf("%w: %s", ErrGoalClosed, id)
		}
		for i := range g.SuccessCriteria {
			if g.SuccessCriteria[i].ID == criterionID {
				g.SuccessCriteria[i].Status = status
				return nil
			}
		}
		return fmt.Errorf("%w: %s in %s", ErrCriterionNotFound, criterionID, id)
	})
}

// Block marks a goal blocked without losing lifecycle state.
func (s *Store) Block(id string) (*types.Goal, error) {
	return s.update(id, func(g *types.Goal) error {
		if g.Status == types.GoalCompleted || g.Status == types.GoalCancelled {
			return fmt.Errorf("%w: %s", ErrGoalClosed, id)
		}
		g.Status = types.GoalBlocked
		return nil
	})
}

// Complete closes a goal with an outcome: stamps the outcome, releases
// the session's spec binding, and, when a journal is wired, records a
// decision tagged spec-outcome so the result is searchable with
// everything else.
func (s *Store) Complete(id, outcomeStatus, sessionID, note string) (*types.Goal, error) {
	if outcomeStatus == "" {
		outcomeStatus = "completed"
	}
	g, err := s.update(id, func(g *types.Goal) error {
		if g.Status == types.GoalCompleted || g.Status == types.GoalCancelled {
			return fmt.Errorf("%w: %s", ErrGoalClosed, id)
		}
		now := ids.Now()
		switch outcomeStatus {
		case "completed":
			g.Status = types.GoalCompleted
		default:
			g.Status = types.GoalCancelled
		}
		g.Lifecycle.Phase = types.PhaseComplete
		g.Lifecycle.AssignedSession = ""
		g.Outcome = &types.GoalOutcome{
			Status:      outcomeStatus,
			CompletedAt: &now,
			SessionID:   sessionID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.sessions != nil {
		_ = s.sessions.ClearSpec(g.ID)
	}

	if s.journal != nil {
		text := fmt.Sprintf("Goal %q finished with status %s", g.Name, outcomeStatus)
		if note != "" {
			text += ": " + note
		}
		d := &types.Decision{
			Decision:  text,
			Rationale: g.Description,
			Tags:      append([]string{"spec-outcome", "spec:" + g.ID}, g.Tags...),
			SessionID: sessionID,
		}
		if err := s.journal.Record(d); err == nil {
			g, _ = s.update(id, func(goal *types.Goal) error {
				goal.Outcome.JournalEntry = d.ID
				return nil
			})
		}
	}
	return g, nil
}

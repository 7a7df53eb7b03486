// Package types defines core data structures for the lore knowledge substrate.
package types

import (
	"time"
)

// Outcome tracks how a recorded decision eventually played out.
type Outcome string

const (
	OutcomePending    Outcome = "pending"
	OutcomeSuccessful Outcome = "successful"
	OutcomeRevised    Outcome = "revised"
	OutcomeAbandoned  Outcome = "abandoned"
)

// Valid reports whether o is a known outcome value.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePending, OutcomeSuccessful, OutcomeRevised, OutcomeAbandoned:
		return true
	}
	return false
}

// DecisionType categorizes a decision by the kind of work it touches.
type DecisionType string

const (
	DecisionArchitecture   DecisionType = "architecture"
	DecisionImplementation DecisionType = "implementation"
	DecisionNaming         DecisionType = "naming"
	DecisionTooling        DecisionType = "tooling"
	DecisionProcess        DecisionType = "process"
	DecisionBugfix         DecisionType = "bugfix"
	DecisionRefactor       DecisionType = "refactor"
	DecisionOther          DecisionType = "other"
)

// Valid reports whether t is a known decision type.
func (t DecisionType) Valid() bool {
	switch t {
	case DecisionArchitecture, DecisionImplementation, DecisionNaming,
		DecisionTooling, DecisionProcess, DecisionBugfix, DecisionRefactor,
		DecisionOther:
		return true
	}
	return false
}

// DecisionStatus tracks the lifecycle of a journal entry.
// Transitions are monotonic: active -> superseded | retracted.
type DecisionStatus string

const (
	DecisionActive     DecisionStatus = "active"
	DecisionSuperseded DecisionStatus = "superseded"
	DecisionRetracted  DecisionStatus = "retracted"
)

// Decision is one revision of a journal entry. The journal is append-only:
// updates append a full new revision with the same ID and the latest
// revision wins on read.
type Decision struct {
	ID               string         `json:"id"`
	Timestamp        time.Time      `json:"timestamp"`
	SessionID        string         `json:"session_id,omitempty"`
	Decision         string         `json:"decision"`
	Rationale        string         `json:"rationale,omitempty"`
	Alternatives     []string       `json:"alternatives,omitempty"`
	Outcome          Outcome        `json:"outcome"`
	Type             DecisionType   `json:"type"`
	Entities         []string       `json:"entities,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	LessonLearned    string         `json:"lesson_learned,omitempty"`
	RelatedDecisions []string       `json:"related_decisions,omitempty"`
	GitCommit        string         `json:"git_commit,omitempty"`
	Status           DecisionStatus `json:"status"`
	SupersededBy     string         `json:"superseded_by,omitempty"`
	SpecQuality      float64        `json:"spec_quality"`
}

// Project derives the project tag for index ingestion: the first tag,
// or "default" when the decision is untagged.
func (d *Decision) Project() string {
	if len(d.Tags) > 0 {
		return d.Tags[0]
	}
	return "default"
}

// SearchableText concatenates the fields substring search runs over.
func (d *Decision) SearchableText() string {
	text := d.Decision + "\n" + d.Rationale + "\n" + d.LessonLearned
	for _, a := range d.Alternatives {
		text += "\n" + a
	}
	for _, e := range d.Entities {
		text += "\n" + e
	}
	for _, t := range d.Tags {
		text += "\n" + t
	}
	return text
}

// PatternCategory buckets patterns by domain.
type PatternCategory string

const (
	CategoryBash         PatternCategory = "bash"
	CategoryGit          PatternCategory = "git"
	CategoryTesting      PatternCategory = "testing"
	CategoryArchitecture PatternCategory = "architecture"
	CategoryNaming       PatternCategory = "naming"
	CategorySecurity     PatternCategory = "security"
	CategoryDocker       PatternCategory = "docker"
	CategoryAPI          PatternCategory = "api"
	CategoryPerformance  PatternCategory = "performance"
	CategoryGeneral      PatternCategory = "general"
)

// Valid reports whether c is a known pattern category.
func (c PatternCategory) Valid() bool {
	switch c {
	case CategoryBash, CategoryGit, CategoryTesting, CategoryArchitecture,
		CategoryNaming, CategorySecurity, CategoryDocker, CategoryAPI,
		CategoryPerformance, CategoryGeneral:
		return true
	}
	return false
}

// PatternExamples holds an optional bad/good code pair illustrating a pattern.
type PatternExamples struct {
	Bad  string `yaml:"bad,omitempty" json:"bad,omitempty"`
	Good string `yaml:"good,omitempty" json:"good,omitempty"`
}

// Pattern is a reusable piece of engineering knowledge with a confidence
// score that rises as the pattern is validated by successful outcomes.
type Pattern struct {
	ID          string           `yaml:"id" json:"id"`
	Name        string           `yaml:"name" json:"name"`
	Context     string           `yaml:"context,omitempty" json:"context,omitempty"`
	Problem     string           `yaml:"problem,omitempty" json:"problem,omitempty"`
	Solution    string           `yaml:"solution,omitempty" json:"solution,omitempty"`
	Category    PatternCategory  `yaml:"category" json:"category"`
	Origin      string           `yaml:"origin,omitempty" json:"origin,omitempty"`
	Confidence  float64          `yaml:"confidence" json:"confidence"`
	Validations int              `yaml:"validations" json:"validations"`
	CreatedAt   time.Time        `yaml:"created_at" json:"created_at"`
	SpecQuality float64          `yaml:"spec_quality" json:"spec_quality"`
	Examples    *PatternExamples `yaml:"examples,omitempty" json:"examples,omitempty"`
	Deprecated  bool             `yaml:"deprecated,omitempty" json:"deprecated,omitempty"`
}

// Stale reports whether the pattern has not earned trust yet.
func (p *Pattern) Stale() bool {
	return p.Confidence < 0.3 || p.Validations == 0
}

// SearchableText concatenates the fields topic matching runs over.
func (p *Pattern) SearchableText() string {
	return p.Name + "\n" + p.Context + "\n" + p.Solution + "\n" + p.Problem
}

// Severity grades how dangerous an anti-pattern is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AntiPattern records a known failure mode worth warning about.
type AntiPattern struct {
	ID        string          `yaml:"id" json:"id"`
	Name      string          `yaml:"name" json:"name"`
	Symptom   string          `yaml:"symptom,omitempty" json:"symptom,omitempty"`
	Risk      string          `yaml:"risk,omitempty" json:"risk,omitempty"`
	Fix       string          `yaml:"fix,omitempty" json:"fix,omitempty"`
	Category  PatternCategory `yaml:"category" json:"category"`
	Severity  Severity        `yaml:"severity" json:"severity"`
	CreatedAt time.Time       `yaml:"created_at" json:"created_at"`
}

// Failure is one append-only entry in the failure log.
type Failure struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ErrorType    string    `json:"error_type"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Tool         string    `json:"tool,omitempty"`
	Step         string    `json:"step,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
}

// NodeType classifies graph nodes.
type NodeType string

const (
	NodeConcept  NodeType = "concept"
	NodeFile     NodeType = "file"
	NodePattern  NodeType = "pattern"
	NodeLesson   NodeType = "lesson"
	NodeDecision NodeType = "decision"
	NodeSession  NodeType = "session"
	NodeProject  NodeType = "project"
)

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeConcept, NodeFile, NodePattern, NodeLesson, NodeDecision,
		NodeSession, NodeProject:
		return true
	}
	return false
}

// Node is a typed graph node. The ID is a pure function of (type, name):
// "<type>-" + first 8 hex chars of md5(name).
type Node struct {
	Type      NodeType               `json:"type"`
	Name      string                 `json:"name"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Relation is the fixed edge vocabulary.
type Relation string

const (
	RelRelatesTo    Relation = "relates_to"
	RelLearnedFrom  Relation = "learned_from"
	RelAffects      Relation = "affects"
	RelSupersedes   Relation = "supersedes"
	RelContradicts  Relation = "contradicts"
	RelContains     Relation = "contains"
	RelReferences   Relation = "references"
	RelImplements   Relation = "implements"
	RelDependsOn    Relation = "depends_on"
	RelProduces     Relation = "produces"
	RelConsumes     Relation = "consumes"
	RelDerivedFrom  Relation = "derived_from"
	RelPartOf       Relation = "part_of"
	RelSummarizedBy Relation = "summarized_by"
	RelYields       Relation = "yields"
	RelInforms      Relation = "informs"
	RelGrounds      Relation = "grounds"
	RelHosts        Relation = "hosts"
)

// Relations lists the full edge vocabulary.
var Relations = []Relation{
	RelRelatesTo, RelLearnedFrom, RelAffects, RelSupersedes, RelContradicts,
	RelContains, RelReferences, RelImplements, RelDependsOn, RelProduces,
	RelConsumes, RelDerivedFrom, RelPartOf, RelSummarizedBy, RelYields,
	RelInforms, RelGrounds, RelHosts,
}

// Valid reports whether r is in the edge vocabulary.
func (r Relation) Valid() bool {
	for _, known := range Relations {
		if r == known {
			return true
		}
	}
	return false
}

// EdgeStatus marks an edge active or soft-deleted.
type EdgeStatus string

const (
	EdgeActive     EdgeStatus = "active"
	EdgeDeprecated EdgeStatus = "deprecated"
)

// Edge is a typed directed edge. (From, To, Relation) is unique among
// active edges; deprecation preserves history.
type Edge struct {
	From          string     `json:"from"`
	To            string     `json:"to"`
	Relation      Relation   `json:"relation"`
	Weight        float64    `json:"weight"`
	Bidirectional bool       `json:"bidirectional,omitempty"`
	Status        EdgeStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ObservationStatus tracks the inbox promote/discard lifecycle.
type ObservationStatus string

const (
	ObservationRaw       ObservationStatus = "raw"
	ObservationPromoted  ObservationStatus = "promoted"
	ObservationDiscarded ObservationStatus = "discarded"
)

// Observation is a raw staged note awaiting promotion into a
// higher-signal store.
type Observation struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source,omitempty"`
	Content   string            `json:"content"`
	Status    ObservationStatus `json:"status"`
	Tags      []string          `json:"tags,omitempty"`
}

// Handoff is the end-of-session transfer block.
type Handoff struct {
	Message   string    `json:"message,omitempty"`
	NextSteps []string  `json:"next_steps,omitempty"`
	Blockers  []string  `json:"blockers,omitempty"`
	Questions []string  `json:"questions,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GitState is a point-in-time fingerprint of the working repository.
type GitState struct {
	Branch      string   `json:"branch,omitempty"`
	Commits     []string `json:"commits,omitempty"`
	Uncommitted int      `json:"uncommitted"`
	StashCount  int      `json:"stash_count"`
}

// SessionContext captures what the session was touching.
type SessionContext struct {
	ActiveFiles    []string          `json:"active_files,omitempty"`
	RecentCommands []string          `json:"recent_commands,omitempty"`
	Environment    map[string]string `json:"environment,omitempty"`
	Spec           string            `json:"spec,omitempty"`
}

// SessionRelated links a session to the records it produced or used.
type SessionRelated struct {
	JournalEntries []string `json:"journal_entries,omitempty"`
	Patterns       []string `json:"patterns,omitempty"`
	Goals          []string `json:"goals,omitempty"`
}

// Session is one work session: init -> snapshots -> handoff.
type Session struct {
	ID              string          `json:"id"`
	StartedAt       time.Time       `json:"started_at"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
	Summary         string          `json:"summary,omitempty"`
	GoalsAddressed  []string        `json:"goals_addressed,omitempty"`
	DecisionsMade   []string        `json:"decisions_made,omitempty"`
	PatternsLearned []string        `json:"patterns_learned,omitempty"`
	OpenThreads     []string        `json:"open_threads,omitempty"`
	Handoff         *Handoff        `json:"handoff,omitempty"`
	GitState        *GitState       `json:"git_state,omitempty"`
	Context         *SessionContext `json:"context,omitempty"`
	Related         *SessionRelated `json:"related,omitempty"`
	Compressed      bool            `json:"compressed,omitempty"`
	CompressedAt    *time.Time      `json:"compressed_at,omitempty"`
}

// Ended reports whether the session has been handed off.
func (s *Session) Ended() bool {
	return s.EndedAt != nil
}

// GoalStatus tracks the goal lifecycle.
type GoalStatus string

const (
	GoalDraft     GoalStatus = "draft"
	GoalActive    GoalStatus = "active"
	GoalBlocked   GoalStatus = "blocked"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

// GoalPriority orders goals for planning.
type GoalPriority string

const (
	PriorityCritical GoalPriority = "critical"
	PriorityHigh     GoalPriority = "high"
	PriorityMedium   GoalPriority = "medium"
	PriorityLow      GoalPriority = "low"
)

// CriterionStatus tracks individual success criteria.
type CriterionStatus string

const (
	CriterionPending    CriterionStatus = "pending"
	CriterionInProgress CriterionStatus = "in_progress"
	CriterionCompleted  CriterionStatus = "completed"
)

// SuccessCriterion is one measurable condition for a goal.
type SuccessCriterion struct {
	ID          string          `yaml:"id" json:"id"`
	Description string          `yaml:"description" json:"description"`
	Priority    GoalPriority    `yaml:"priority,omitempty" json:"priority,omitempty"`
	Status      CriterionStatus `yaml:"status" json:"status"`
	Acceptance  []string        `yaml:"acceptance,omitempty" json:"acceptance,omitempty"`
}

// GoalSource records where an imported spec came from.
type GoalSource struct {
	Type       string            `yaml:"type,omitempty" json:"type,omitempty"`
	Path       string            `yaml:"path,omitempty" json:"path,omitempty"`
	Branch     string            `yaml:"branch,omitempty" json:"branch,omitempty"`
	ImportedAt time.Time         `yaml:"imported_at,omitempty" json:"imported_at,omitempty"`
	Snapshot   map[string]string `yaml:"snapshot,omitempty" json:"snapshot,omitempty"`
}

// LifecyclePhase walks specify -> plan -> tasks -> implement -> complete.
type LifecyclePhase string

const (
	PhaseSpecify   LifecyclePhase = "specify"
	PhasePlan      LifecyclePhase = "plan"
	PhaseTasks     LifecyclePhase = "tasks"
	PhaseImplement LifecyclePhase = "implement"
	PhaseComplete  LifecyclePhase = "complete"
)

// NextPhase returns the phase after p, or p itself at the end of the walk.
func (p LifecyclePhase) NextPhase() LifecyclePhase {
	switch p {
	case PhaseSpecify:
		return PhasePlan
	case PhasePlan:
		return PhaseTasks
	case PhaseTasks:
		return PhaseImplement
	case PhaseImplement:
		return PhaseComplete
	}
	return p
}

// GoalLifecycle binds a goal to the session working it.
type GoalLifecycle struct {
	Phase           LifecyclePhase `yaml:"phase" json:"phase"`
	AssignedSession string         `yaml:"assigned_session,omitempty" json:"assigned_session,omitempty"`
	AssignedAt      *time.Time     `yaml:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	PlanDecisions   []string       `yaml:"plan_decisions,omitempty" json:"plan_decisions,omitempty"`
}

// GoalOutcome records how a goal ended.
type GoalOutcome struct {
	Status       string     `yaml:"status" json:"status"` // completed | failed | abandoned
	CompletedAt  *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
	SessionID    string     `yaml:"session_id,omitempty" json:"session_id,omitempty"`
	JournalEntry string     `yaml:"journal_entry,omitempty" json:"journal_entry,omitempty"`
}

// Goal is a unit of intent: what we are trying to accomplish and how we
// will know it worked.
type Goal struct {
	ID              string             `yaml:"id" json:"id"`
	Name            string             `yaml:"name" json:"name"`
	Description     string             `yaml:"description,omitempty" json:"description,omitempty"`
	Status          GoalStatus         `yaml:"status" json:"status"`
	Priority        GoalPriority       `yaml:"priority,omitempty" json:"priority,omitempty"`
	Deadline        *time.Time         `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	SuccessCriteria []SuccessCriterion `yaml:"success_criteria,omitempty" json:"success_criteria,omitempty"`
	DependsOn       []string           `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Projects        []string           `yaml:"projects,omitempty" json:"projects,omitempty"`
	Tags            []string           `yaml:"tags,omitempty" json:"tags,omitempty"`
	Source          *GoalSource        `yaml:"source,omitempty" json:"source,omitempty"`
	Lifecycle       GoalLifecycle      `yaml:"lifecycle" json:"lifecycle"`
	Outcome         *GoalOutcome       `yaml:"outcome,omitempty" json:"outcome,omitempty"`
}

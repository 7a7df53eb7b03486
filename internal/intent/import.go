package intent

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lorehq/lore/internal/ids"
	"github.com/lorehq/lore/internal/types"
)

// parsedSpec is what the opaque spec reader extracts from a spec file.
type parsedSpec struct {
	Title    string
	Branch   string
	Stories  []parsedStory
	PlanPath string
}

type parsedStory struct {
	Description string
	Priority    types.GoalPriority
	Acceptance  []string
}

var (
	titleRe    = regexp.MustCompile(`^#\s+(.+)$`)
	branchRe   = regexp.MustCompile(`(?i)^\*{0,2}branch\*{0,2}\s*[:=]\s*` + "`?" + `([\w./-]+)` + "`?")
	storyRe    = regexp.MustCompile(`(?i)^[-*]\s+(?:\*\*)?(?:as a|user story|story)\b`)
	priorityRe = regexp.MustCompile(`(?i)\((p[0-3]|critical|high|medium|low)\)`)
)

// ImportSpec reads an external specification file and produces a goal:
// title from the first heading, branch from metadata or the containing
// path or git, user stories as success criteria. A sibling plan.md, when
// present, contributes decisions to the journal tagged spec:<goal_id> and
// plan-decision, linked back through lifecycle.plan_decisions.
func (s *Store) ImportSpec(path string) (*types.Goal, error) {
	spec, err := readSpec(path)
	if err != nil {
		return nil, err
	}
	if spec.Branch == "" {
		spec.Branch = branchFromPath(path)
	}
	if spec.Branch == "" {
		spec.Branch = gitBranch(filepath.Dir(path))
	}

	now := ids.Now()
	g := &types.Goal{
		ID:          ids.NewGoalID(now),
		Name:        spec.Title,
		Status:      types.GoalActive,
		Priority:    types.PriorityMedium,
		Lifecycle:   types.GoalLifecycle{Phase: types.PhasePlan},
		Source: &types.GoalSource{
			Type:       "spec",
			Path:       path,
			Branch:     spec.Branch,
			ImportedAt: now,
		},
	}
	if g.Name == "" {
		g.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for i, story := range spec.Stories {
		g.SuccessCriteria = append(g.SuccessCriteria, types.SuccessCriterion{
			ID:          fmt.Sprintf("sc-%d", i+1),
			Description: story.Description,
			Priority:    story.Priority,
			Status:      types.CriterionPending,
			Acceptance:  story.Acceptance,
		})
	}

	if s.journal != nil && spec.PlanPath != "" {
		for _, text := range readPlanDecisions(spec.PlanPath) {
			d := &types.Decision{
				Decision: text,
				Tags:     []string{"spec:" + g.ID, "plan-decision"},
			}
			if err := s.journal.Record(d); err != nil {
				continue
			}
			g.Lifecycle.PlanDecisions = append(g.Lifecycle.PlanDecisions, d.ID)
		}
	}

	if err := s.write(g); err != nil {
		return nil, err
	}
	return g, nil
}

func readSpec(path string) (*parsedSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening spec file: %w", err)
	}
	defer f.Close()

	spec := &parsedSpec{}
	var current *parsedStory
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if spec.Title == "" {
			if m := titleRe.FindStringSubmatch(trimmed); m != nil {
				spec.Title = strings.TrimSpace(m[1])
				continue
			}
		}
		if spec.Branch == "" {
			if m := branchRe.FindStringSubmatch(trimmed); m != nil {
				spec.Branch = m[1]
				continue
			}
		}

		if storyRe.MatchString(trimmed) {
			desc := strings.TrimSpace(strings.TrimLeft(trimmed, "-* "))
			desc = strings.Trim(desc, "*")
			story := parsedStory{Description: desc, Priority: storyPriority(desc)}
			spec.Stories = append(spec.Stories, story)
			current = &spec.Stories[len(spec.Stories)-1]
			continue
		}
		// Indented bullets under a story are its acceptance criteria.
		if current != nil && strings.HasPrefix(line, "  ") && strings.HasPrefix(trimmed, "-") {
			current.Acceptance = append(current.Acceptance, strings.TrimSpace(strings.TrimPrefix(trimmed, "-")))
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			current = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	plan := filepath.Join(filepath.Dir(path), "plan.md")
	if _, err := os.Stat(plan); err == nil {
		spec.PlanPath = plan
	}
	return spec, nil
}

func storyPriority(desc string) types.GoalPriority {
	m := priorityRe.FindStringSubmatch(desc)
	if m == nil {
		return ""
	}
	switch strings.ToLower(m[1]) {
	case "p0", "critical":
		return types.PriorityCritical
	case "p1", "high":
		return types.PriorityHigh
	case "p2", "medium":
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}

// readPlanDecisions pulls bullet lines out of a plan file's Decisions
// section (or the whole file when no such heading exists).
func readPlanDecisions(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var decisions []string
	inSection := false
	sawHeading := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(trimmed, "#") {
			isDecisions := strings.Contains(strings.ToLower(trimmed), "decision")
			if isDecisions {
				sawHeading = true
			}
			inSection = isDecisions
			continue
		}
		if !inSection && sawHeading {
			continue
		}
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") {
			text := strings.TrimSpace(strings.TrimLeft(trimmed, "-* "))
			if text != "" {
				decisions = append(decisions, text)
			}
		}
	}
	return decisions
}

// branchFromPath recognizes spec-kit style layouts where the containing
// directory is named after the feature branch (specs/001-add-auth/spec.md).
func branchFromPath(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if regexp.MustCompile(`^\d{3}-`).MatchString(dir) {
		return dir
	}
	return ""
}

func gitBranch(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

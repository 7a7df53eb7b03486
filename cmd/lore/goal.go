package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/intent"
	"github.com/lorehq/lore/internal/types"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Track goals and their success criteria",
}

var (
	goalDescription string
	goalPriority    string
	goalDeadline    string
	goalCriteria    []string
	goalTags        []string
	goalProjects    []string
)

var goalCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		g, err := eng.Intent.Create(intent.CreateInput{
			Name:        args[0],
			Description: goalDescription,
			Priority:    types.GoalPriority(goalPriority),
			Deadline:    goalDeadline,
			Criteria:    goalCriteria,
			Tags:        goalTags,
			Projects:    goalProjects,
		})
		if err != nil {
			return err
		}
		emit(g, func() { fmt.Println(g.ID) })
		return nil
	},
}

var goalImportCmd = &cobra.Command{
	Use:   "import <spec-file>",
	Short: "Create a goal from an external spec file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		g, err := eng.Intent.ImportSpec(args[0])
		if err != nil {
			return err
		}
		emit(g, func() {
			fmt.Printf("%s  %s  (%d criteria, %d plan decisions)\n",
				g.ID, g.Name, len(g.SuccessCriteria), len(g.Lifecycle.PlanDecisions))
		})
		return nil
	},
}

var goalListStatus string

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		goals, err := eng.Intent.List(intent.ListFilter{Status: types.GoalStatus(goalListStatus)})
		if err != nil {
			return err
		}
		emit(goals, func() {
			for _, g := range goals {
				done := 0
				for _, c := range g.SuccessCriteria {
					if c.Status == types.CriterionCompleted {
						done++
					}
				}
				fmt.Printf("%s  %-9s  %-9s  %d/%d  %s\n",
					g.ID, g.Status, g.Lifecycle.Phase, done, len(g.SuccessCriteria), g.Name)
			}
		})
		return nil
	},
}

var goalShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		g, err := eng.Intent.Get(args[0])
		if err != nil {
			return err
		}
		emit(g, func() {
			fmt.Printf("%s  %s  [%s, phase %s]\n", g.ID, g.Name, g.Status, g.Lifecycle.Phase)
			if g.Description != "" {
				fmt.Println(g.Description)
			}
			for _, c := range g.SuccessCriteria {
				fmt.Printf("  %-4s [%s] %s\n", c.ID, c.Status, c.Description)
			}
		})
		return nil
	},
}

var goalAssignCmd = &cobra.Command{
	Use:   "assign <goal-id> [session-id]",
	Short: "Bind a goal to a session (defaults to the current one)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		sessionID := ""
		if len(args) == 2 {
			sessionID = args[1]
		} else if id, err := eng.Transfer.CurrentID(); err == nil {
			sessionID = id
		}
		g, err := eng.Intent.Assign(args[0], sessionID)
		if err != nil {
			return err
		}
		emit(g, func() { fmt.Printf("%s assigned to %s (phase %s)\n", g.ID, sessionID, g.Lifecycle.Phase) })
		return nil
	},
}

var goalProgressCmd = &cobra.Command{
	Use:   "progress <goal-id> [criterion-id] [status]",
	Short: "Update a criterion, or advance the lifecycle phase",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		var g *types.Goal
		switch len(args) {
		case 1:
			g, err = eng.Intent.Advance(args[0])
		case 3:
			g, err = eng.Intent.Progress(args[0], args[1], types.CriterionStatus(args[2]))
		default:
			return fmt.Errorf("usage: goal progress <goal-id> [criterion-id status]")
		}
		if err != nil {
			return err
		}
		emit(g, func() { fmt.Printf("%s now in phase %s\n", g.ID, g.Lifecycle.Phase) })
		return nil
	},
}

var (
	completeStatus string
	completeNote   string
)

var goalCompleteCmd = &cobra.Command{
	Use:   "complete <goal-id>",
	Short: "Close a goal and record its outcome in the journal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		sessionID, _ := eng.Transfer.CurrentID()
		g, err := eng.Intent.Complete(args[0], completeStatus, sessionID, completeNote)
		if err != nil {
			return err
		}
		emit(g, func() {
			line := fmt.Sprintf("%s %s", g.ID, g.Status)
			if g.Outcome != nil && g.Outcome.JournalEntry != "" {
				line += " (journal " + g.Outcome.JournalEntry + ")"
			}
			fmt.Println(line)
		})
		return nil
	},
}

func init() {
	goalCreateCmd.Flags().StringVar(&goalDescription, "description", "", "what the goal is about")
	goalCreateCmd.Flags().StringVar(&goalPriority, "priority", "", "critical | high | medium | low")
	goalCreateCmd.Flags().StringVar(&goalDeadline, "deadline", "", "RFC 3339 date or natural language")
	goalCreateCmd.Flags().StringSliceVar(&goalCriteria, "criterion", nil, "success criteria")
	goalCreateCmd.Flags().StringSliceVar(&goalTags, "tag", nil, "tags")
	goalCreateCmd.Flags().StringSliceVar(&goalProjects, "project", nil, "projects")

	goalCompleteCmd.Flags().StringVar(&completeStatus, "status", "completed", "completed | failed | abandoned")
	goalCompleteCmd.Flags().StringVar(&completeNote, "note", "", "outcome note for the journal")

	goalCmd.AddCommand(goalCreateCmd, goalImportCmd, goalListCmd, goalShowCmd,
		goalAssignCmd, goalProgressCmd, goalCompleteCmd)
	rootCmd.AddCommand(goalCmd)
}

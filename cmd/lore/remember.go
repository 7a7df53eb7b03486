package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/journal"
	"github.com/lorehq/lore/internal/types"
	"github.com/lorehq/lore/internal/ui"
)

var (
	rememberWhy          string
	rememberAlternatives []string
	rememberTags         []string
	rememberSession      string
	rememberType         string
	rememberForce        bool
	rememberInteractive  bool
)

var rememberCmd = &cobra.Command{
	Use:   "remember [decision text]",
	Short: "Record a decision in the journal",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := &types.Decision{
			Decision:     strings.Join(args, " "),
			Rationale:    rememberWhy,
			Alternatives: rememberAlternatives,
			Tags:         rememberTags,
			SessionID:    rememberSession,
			Type:         types.DecisionType(rememberType),
		}
		if rememberInteractive {
			if err := rememberForm(d); err != nil {
				return err
			}
		}
		if strings.TrimSpace(d.Decision) == "" {
			return fmt.Errorf("decision text is required")
		}

		eng, err := newEngine()
		if err != nil {
			return err
		}
		res, err := eng.Record(d, rememberForce)
		if err != nil {
			return err
		}
		emit(res, func() {
			fmt.Println(res.Decision.ID)
			for _, c := range res.Contradictions {
				fmt.Println(ui.WarnStyle.Render("warning: " + c.String()))
			}
		})
		return nil
	},
}

// rememberForm collects the decision interactively. Empty optional
// answers leave the field unset.
func rememberForm(d *types.Decision) error {
	var alternatives, tags string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Decision").
				Description("What did you decide?").
				Value(&d.Decision),
			huh.NewText().
				Title("Why").
				Description("The rationale behind it").
				Value(&d.Rationale),
			huh.NewInput().
				Title("Alternatives").
				Description("Comma-separated options you rejected").
				Value(&alternatives),
			huh.NewInput().
				Title("Tags").
				Description("Comma-separated; first tag becomes the project").
				Value(&tags),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	d.Alternatives = splitCSV(alternatives)
	d.Tags = splitCSV(tags)
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

var decisionCmd = &cobra.Command{
	Use:   "decision",
	Short: "Inspect and revise journal decisions",
}

var decisionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the latest revision of a decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		d, err := eng.Journal.Get(args[0])
		if err != nil {
			return err
		}
		emit(d, func() {
			fmt.Printf("%s  [%s/%s]  quality %.2f\n%s\n", d.ID, d.Type, d.Outcome, d.SpecQuality, d.Decision)
			if d.Rationale != "" {
				fmt.Println("why:", d.Rationale)
			}
			if len(d.Tags) > 0 {
				fmt.Println("tags:", strings.Join(d.Tags, ", "))
			}
		})
		return nil
	},
}

var (
	decisionUpdateWhy    string
	decisionUpdateLesson string
)

var decisionUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Append a revised version of a decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		d, err := eng.Journal.Update(args[0], func(d *types.Decision) {
			if decisionUpdateWhy != "" {
				d.Rationale = decisionUpdateWhy
			}
			if decisionUpdateLesson != "" {
				d.LessonLearned = decisionUpdateLesson
			}
		})
		if err != nil {
			return err
		}
		emit(d, func() { fmt.Printf("%s revised (quality %.2f)\n", d.ID, d.SpecQuality) })
		return nil
	},
}

var (
	decisionListRecent  int
	decisionListTag     string
	decisionListOutcome string
)

func journalFilter() journal.Filter {
	return journal.Filter{
		Recent:  decisionListRecent,
		Tag:     decisionListTag,
		Outcome: types.Outcome(decisionListOutcome),
	}
}

var decisionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List decisions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		list, err := eng.Journal.List(journalFilter())
		if err != nil {
			return err
		}
		emit(list, func() {
			for _, d := range list {
				fmt.Printf("%s  %s  [%s/%s]  %s\n",
					d.ID, d.Timestamp.Format("2006-01-02"), d.Type, d.Outcome, d.Decision)
			}
		})
		return nil
	},
}

var decisionCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the journal keeping only the latest revision per id",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if err := eng.Journal.Compact(); err != nil {
			return err
		}
		if !flagQuiet {
			fmt.Println("journal compacted")
		}
		return nil
	},
}

func init() {
	rememberCmd.Flags().StringVar(&rememberWhy, "why", "", "rationale for the decision")
	rememberCmd.Flags().StringSliceVar(&rememberAlternatives, "alt", nil, "alternatives considered")
	rememberCmd.Flags().StringSliceVar(&rememberTags, "tag", nil, "tags; first becomes the project")
	rememberCmd.Flags().StringVar(&rememberSession, "session", "", "session id")
	rememberCmd.Flags().StringVar(&rememberType, "type", "", "decision type (auto-detected when empty)")
	rememberCmd.Flags().BoolVar(&rememberForce, "force", false, "record even when a near-duplicate exists")
	rememberCmd.Flags().BoolVarP(&rememberInteractive, "interactive", "i", false, "fill in the decision with a form")

	decisionUpdateCmd.Flags().StringVar(&decisionUpdateWhy, "why", "", "replace the rationale")
	decisionUpdateCmd.Flags().StringVar(&decisionUpdateLesson, "lesson", "", "attach a lesson learned")
	decisionListCmd.Flags().IntVarP(&decisionListRecent, "recent", "n", 0, "limit to the n most recent")
	decisionListCmd.Flags().StringVar(&decisionListTag, "tag", "", "filter by tag")
	decisionListCmd.Flags().StringVar(&decisionListOutcome, "outcome", "", "filter by outcome")

	decisionCmd.AddCommand(decisionShowCmd, decisionUpdateCmd, decisionListCmd, decisionCompactCmd)
	rootCmd.AddCommand(rememberCmd, decisionCmd)
}

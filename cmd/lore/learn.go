package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/patterns"
	"github.com/lorehq/lore/internal/types"
	"github.com/lorehq/lore/internal/ui"
)

var (
	learnContext  string
	learnProblem  string
	learnSolution string
	learnCategory string
	learnOrigin   string
	learnForce    bool
)

var learnCmd = &cobra.Command{
	Use:   "learn <name>",
	Short: "Capture a pattern in the catalogue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		p := &types.Pattern{
			Name:     args[0],
			Context:  learnContext,
			Problem:  learnProblem,
			Solution: learnSolution,
			Category: types.PatternCategory(learnCategory),
			Origin:   learnOrigin,
		}
		if _, err := eng.Capture(p, learnForce); err != nil {
			return err
		}
		emit(p, func() { fmt.Println(p.ID) })
		return nil
	},
}

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Work with the pattern catalogue",
}

var patternValidateCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Record one successful application of a pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		p, err := eng.Patterns.Validate(args[0])
		if err != nil {
			return err
		}
		emit(p, func() {
			fmt.Printf("%s: %d validations, confidence %.2f\n", p.ID, p.Validations, p.Confidence)
		})
		return nil
	},
}

var patternDeprecateCmd = &cobra.Command{
	Use:   "deprecate <id>",
	Short: "Mark a pattern as no longer recommended",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if err := eng.Patterns.Deprecate(args[0]); err != nil {
			return err
		}
		if !flagQuiet {
			fmt.Println(args[0], "deprecated")
		}
		return nil
	},
}

var (
	warnSymptom  string
	warnRisk     string
	warnFix      string
	warnSeverity string
	warnCategory string
)

var warnCmd = &cobra.Command{
	Use:   "warn <name>",
	Short: "Record an anti-pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ap := &types.AntiPattern{
			Name:     args[0],
			Symptom:  warnSymptom,
			Risk:     warnRisk,
			Fix:      warnFix,
			Severity: types.Severity(warnSeverity),
			Category: types.PatternCategory(warnCategory),
		}
		if err := eng.Patterns.Warn(ap); err != nil {
			return err
		}
		emit(ap, func() { fmt.Println(ap.ID) })
		return nil
	},
}

var patternListKind string

var patternListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patterns and anti-patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		pats, antis, err := eng.Patterns.List(patterns.ListFilter{Kind: patternListKind})
		if err != nil {
			return err
		}
		out := struct {
			Patterns     []*types.Pattern     `json:"patterns"`
			AntiPatterns []*types.AntiPattern `json:"anti_patterns"`
		}{pats, antis}
		emit(out, func() {
			for _, p := range pats {
				stale := ""
				if p.Stale() {
					stale = ui.HintStyle.Render(" (stale)")
				}
				fmt.Printf("%s  %-10s  %.2f  %s%s\n", p.ID, p.Category, p.Confidence, p.Name, stale)
			}
			for _, ap := range antis {
				fmt.Printf("%s  %-10s  %s  ANTI: %s\n", ap.ID, ap.Category, ap.Severity, ap.Name)
			}
		})
		return nil
	},
}

var patternCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Lint a file against the built-in hazard rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		findings := patterns.Check(string(data))
		emit(findings, func() {
			for _, f := range findings {
				fmt.Printf("%s:%d: [%s] %s\n", args[0], f.Line, f.Severity, f.Message)
			}
		})
		if len(findings) > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	learnCmd.Flags().StringVar(&learnContext, "context", "", "when the pattern applies")
	learnCmd.Flags().StringVar(&learnProblem, "problem", "", "the problem it solves")
	learnCmd.Flags().StringVar(&learnSolution, "solution", "", "what to do")
	learnCmd.Flags().StringVar(&learnCategory, "category", "", "category (defaults to general)")
	learnCmd.Flags().StringVar(&learnOrigin, "origin", "", "where the pattern came from")
	learnCmd.Flags().BoolVar(&learnForce, "force", false, "capture even when a near-duplicate exists")

	warnCmd.Flags().StringVar(&warnSymptom, "symptom", "", "how the anti-pattern shows up")
	warnCmd.Flags().StringVar(&warnRisk, "risk", "", "what goes wrong")
	warnCmd.Flags().StringVar(&warnFix, "fix", "", "what to do instead")
	warnCmd.Flags().StringVar(&warnSeverity, "severity", "", "severity (defaults to medium)")
	warnCmd.Flags().StringVar(&warnCategory, "category", "", "category (defaults to general)")

	patternListCmd.Flags().StringVar(&patternListKind, "kind", "", "pattern | anti")

	patternCmd.AddCommand(patternValidateCmd, patternDeprecateCmd, patternListCmd, patternCheckCmd)
	rootCmd.AddCommand(learnCmd, warnCmd, patternCmd)
}

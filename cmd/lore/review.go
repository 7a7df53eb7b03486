package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/types"
)

var reviewDays int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List decisions awaiting an outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		items, err := eng.Outcome.Pending(time.Duration(reviewDays) * 24 * time.Hour)
		if err != nil {
			return err
		}
		emit(items, func() {
			for _, item := range items {
				d := item.Decision
				fmt.Printf("%s  %3dd  [%s]  %s\n", d.ID, item.AgeDays, d.Type, d.Decision)
				if d.Rationale != "" {
					fmt.Printf("      why: %s\n", d.Rationale)
				}
			}
		})
		return nil
	},
}

var resolveLesson string

var resolveCmd = &cobra.Command{
	Use:   "resolve <id> <successful|revised|abandoned>",
	Short: "Record how a decision turned out",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		res, err := eng.Outcome.Resolve(args[0], types.Outcome(args[1]), resolveLesson)
		if err != nil {
			return err
		}
		emit(res, func() {
			fmt.Printf("%s resolved %s\n", res.Decision.ID, res.Decision.Outcome)
			for _, p := range res.ValidatedPatterns {
				fmt.Println("validated pattern:", p)
			}
			if res.FailureID != "" {
				fmt.Println("failure logged:", res.FailureID)
			}
		})
		return nil
	},
}

func init() {
	reviewCmd.Flags().IntVar(&reviewDays, "days", 0, "minimum age in days (default from config)")
	resolveCmd.Flags().StringVar(&resolveLesson, "lesson", "", "lesson learned")
	rootCmd.AddCommand(reviewCmd, resolveCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/failures"
	"github.com/lorehq/lore/internal/types"
)

var (
	failMessage string
	failTool    string
	failStep    string
	failSession string
)

var failCmd = &cobra.Command{
	Use:   "fail <error-type>",
	Short: "Append an entry to the failure log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		f := &types.Failure{
			ErrorType:    args[0],
			ErrorMessage: failMessage,
			Tool:         failTool,
			Step:         failStep,
			SessionID:    failSession,
		}
		if err := eng.Failures.Append(f); err != nil {
			return err
		}
		emit(f, func() { fmt.Println(f.ID) })
		return nil
	},
}

var (
	failListType   string
	failListRecent int
)

var failListCmd = &cobra.Command{
	Use:   "list",
	Short: "List failures, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		list, err := eng.Failures.List(failures.Filter{
			ErrorType: failListType,
			Recent:    failListRecent,
		})
		if err != nil {
			return err
		}
		emit(list, func() {
			for _, f := range list {
				fmt.Printf("%s  %s  %-20s  %s\n",
					f.ID, f.Timestamp.Format("2006-01-02"), f.ErrorType, f.ErrorMessage)
			}
		})
		return nil
	},
}

var failStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Failure counts grouped by error type",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		stats, err := eng.Failures.StatsByType()
		if err != nil {
			return err
		}
		emit(stats, func() {
			for errorType, count := range stats {
				fmt.Printf("%5d  %s\n", count, errorType)
			}
		})
		return nil
	},
}

func init() {
	failCmd.Flags().StringVar(&failMessage, "message", "", "error message")
	failCmd.Flags().StringVar(&failTool, "tool", "", "tool that failed")
	failCmd.Flags().StringVar(&failStep, "step", "", "step being attempted")
	failCmd.Flags().StringVar(&failSession, "session", "", "session id")

	failListCmd.Flags().StringVar(&failListType, "type", "", "filter by error type")
	failListCmd.Flags().IntVarP(&failListRecent, "recent", "n", 0, "limit to the n most recent")

	failCmd.AddCommand(failListCmd, failStatsCmd)
	rootCmd.AddCommand(failCmd)
}

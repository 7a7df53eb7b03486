package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/transfer"
	"github.com/lorehq/lore/internal/types"
	"github.com/lorehq/lore/internal/ui"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Carry working context across sessions",
}

var sessionInitCmd = &cobra.Command{
	Use:   "init [summary]",
	Short: "Start a new session",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		sess, err := eng.Transfer.Init(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		emit(sess, func() { fmt.Println(sess.ID) })
		return nil
	},
}

var (
	snapshotSummary   string
	snapshotDecisions []string
	snapshotThreads   []string
)

var sessionSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Refresh the current session's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		sess, err := eng.Transfer.Snapshot(ctx, transfer.SnapshotInput{
			Summary:       snapshotSummary,
			DecisionsMade: snapshotDecisions,
			OpenThreads:   snapshotThreads,
		})
		if err != nil {
			return err
		}
		emit(sess, func() { fmt.Printf("%s snapshotted\n", sess.ID) })
		return nil
	},
}

var (
	handoffNextSteps []string
	handoffBlockers  []string
	handoffQuestions []string
)

var sessionHandoffCmd = &cobra.Command{
	Use:   "handoff [message]",
	Short: "End the current session with a handoff note",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		sess, err := eng.Transfer.Handoff(ctx, types.Handoff{
			Message:   strings.Join(args, " "),
			NextSteps: handoffNextSteps,
			Blockers:  handoffBlockers,
			Questions: handoffQuestions,
		})
		if err != nil {
			return err
		}
		emit(sess, func() { fmt.Printf("%s ended\n", sess.ID) })
		return nil
	},
}

var sessionResumeCmd = &cobra.Command{
	Use:   "resume [session-id]",
	Short: "Read back the latest (or a specific) handed-off session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		sess, err := eng.Transfer.Resume(id)
		if err != nil {
			return err
		}

		// Resume composes read-only context: session summary, rolling spec
		// quality, and the subtraction check. Nothing is mutated.
		quality, _ := eng.Outcome.RollingSpecQuality(10)
		sub, subErr := eng.Brief.Subtraction()

		emit(sess, func() {
			var md strings.Builder
			fmt.Fprintf(&md, "# Session %s\n\n", sess.ID)
			fmt.Fprintf(&md, "%s\n\n", sess.Summary)
			if sess.Handoff != nil {
				fmt.Fprintf(&md, "**Handoff:** %s\n\n", sess.Handoff.Message)
				for _, step := range sess.Handoff.NextSteps {
					fmt.Fprintf(&md, "- next: %s\n", step)
				}
				for _, b := range sess.Handoff.Blockers {
					fmt.Fprintf(&md, "- blocked: %s\n", b)
				}
			}
			if len(sess.OpenThreads) > 0 {
				md.WriteString("\n**Open threads:**\n")
				for _, t := range sess.OpenThreads {
					fmt.Fprintf(&md, "- %s\n", t)
				}
			}
			fmt.Fprintf(&md, "\nRolling spec quality: %.2f\n", quality)
			if subErr == nil {
				md.WriteString("\n**Subtraction check:**\n")
				for _, line := range sub.Lines() {
					fmt.Fprintf(&md, "- %s\n", line)
				}
			}
			fmt.Print(ui.RenderMarkdown(md.String()))
		})
		return nil
	},
}

var (
	compressOlderThan string
	compressSummarize bool
)

var sessionCompressCmd = &cobra.Command{
	Use:   "compress [session-id]",
	Short: "Reduce ended sessions to their essence",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		var summarizer transfer.Summarizer
		if compressSummarize {
			s, err := transfer.NewHaikuSummarizer(config.GetString("summarize.api-key"))
			if err != nil {
				return err
			}
			summarizer = s
		}

		if len(args) == 1 {
			res, err := eng.Transfer.Compress(ctx, args[0], summarizer)
			if err != nil {
				return err
			}
			emit(res, func() {
				fmt.Printf("%s: %d -> %d bytes (%.0f%%)\n",
					res.ID, res.OriginalSize, res.EssenceSize, res.EssenceRatio*100)
			})
			return nil
		}

		age, err := time.ParseDuration(compressOlderThan)
		if err != nil {
			return fmt.Errorf("parsing --older-than: %w", err)
		}
		results, err := eng.Transfer.CompressOlderThan(ctx, age, summarizer)
		if err != nil {
			return err
		}
		emit(results, func() { fmt.Printf("%d sessions compressed\n", len(results)) })
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		sessions, err := eng.Transfer.List()
		if err != nil {
			return err
		}
		emit(sessions, func() {
			for _, s := range sessions {
				state := "active"
				if s.Compressed {
					state = "compressed"
				} else if s.Ended() {
					state = "ended"
				}
				fmt.Printf("%s  %-10s  %s\n", s.ID, state, s.Summary)
			}
		})
		return nil
	},
}

func init() {
	sessionSnapshotCmd.Flags().StringVar(&snapshotSummary, "summary", "", "updated summary")
	sessionSnapshotCmd.Flags().StringSliceVar(&snapshotDecisions, "decision", nil, "decision ids made this session")
	sessionSnapshotCmd.Flags().StringSliceVar(&snapshotThreads, "thread", nil, "open threads")

	sessionHandoffCmd.Flags().StringSliceVar(&handoffNextSteps, "next", nil, "next steps")
	sessionHandoffCmd.Flags().StringSliceVar(&handoffBlockers, "blocker", nil, "blockers")
	sessionHandoffCmd.Flags().StringSliceVar(&handoffQuestions, "question", nil, "open questions")

	sessionCompressCmd.Flags().StringVar(&compressOlderThan, "older-than", "168h", "compress ended sessions older than this")
	sessionCompressCmd.Flags().BoolVar(&compressSummarize, "summarize", false, "rewrite summaries with the LLM summarizer")

	sessionCmd.AddCommand(sessionInitCmd, sessionSnapshotCmd, sessionHandoffCmd,
		sessionResumeCmd, sessionCompressCmd, sessionListCmd)
	rootCmd.AddCommand(sessionCmd)
}

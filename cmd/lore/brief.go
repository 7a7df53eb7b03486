package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/ui"
)

var briefCmd = &cobra.Command{
	Use:   "brief <topic>",
	Short: "Everything known about a topic, across all stores",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		b, err := eng.Brief.Compose(strings.Join(args, " "))
		if err != nil {
			return err
		}
		emit(b, func() { fmt.Print(ui.RenderMarkdown(b.Markdown())) })
		return nil
	},
}

var subtractCmd = &cobra.Command{
	Use:   "subtract",
	Short: "Advisory checks for knowledge worth pruning",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		report, err := eng.Brief.Subtraction()
		if err != nil {
			return err
		}
		emit(report, func() {
			for _, line := range report.Lines() {
				fmt.Println(line)
			}
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(briefCmd, subtractCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the project registry for inconsistencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := paths.Resolve(flagDataRoot)
		if err != nil {
			return err
		}
		report, err := validation.Validate(root)
		if err != nil {
			return err
		}
		emit(report, func() {
			for _, f := range report.Findings {
				fmt.Println(f.String())
			}
			if len(report.Findings) == 0 && !flagQuiet {
				fmt.Printf("%d projects, no findings\n", len(report.Projects))
			}
		})
		if report.HasErrors() {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

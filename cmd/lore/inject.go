package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/inject"
)

var injectDir string

var injectCmd = &cobra.Command{
	Use:   "inject [prompt...]",
	Short: "Emit a compact memory index for a prompt (hook entry point)",
	Long: "Derives a project tag from the working directory, extracts keywords\n" +
		"from the prompt, and prints a compact index of relevant memory.\n" +
		"Always exits 0; hooks must never break the caller.",
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		// Fail-silent from here down.
		defer func() { _ = recover() }()

		eng, err := newEngine()
		if err != nil {
			return
		}
		dir := injectDir
		if dir == "" {
			dir, _ = os.Getwd()
		}
		block := inject.Compose(eng.Root, eng.Search, dir, strings.Join(args, " "))
		if block != "" {
			fmt.Print(block)
		}
	},
}

func init() {
	injectCmd.Flags().StringVar(&injectDir, "dir", "", "working directory cue (defaults to cwd)")
	rootCmd.AddCommand(injectCmd)
}

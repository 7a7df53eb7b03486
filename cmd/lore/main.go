// Command lore is the CLI surface over the lore memory substrate.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/engine"
	"github.com/lorehq/lore/internal/guard"
	"github.com/lorehq/lore/internal/paths"
)

var (
	flagDataRoot string
	flagJSON     bool
	flagQuiet    bool
	flagActor    string
)

var rootCmd = &cobra.Command{
	Use:           "lore",
	Short:         "Persistent memory for engineering work",
	Long:          "lore captures decisions, patterns, failures, and a knowledge graph,\nand retrieves them at the start of the next session.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		if flagJSON {
			config.Set("json", true)
		}
		if flagQuiet {
			config.Set("quiet", true)
		}
		if flagActor != "" {
			config.Set("actor", flagActor)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataRoot, "data-root", "", "override the data root directory")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "actor name recorded on writes")
}

// newEngine resolves the data root and assembles the stores.
func newEngine() (*engine.Engine, error) {
	root, err := paths.Resolve(flagDataRoot)
	if err != nil {
		return nil, err
	}
	return engine.New(root), nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// emit prints v as JSON in --json mode, otherwise calls human.
func emit(v interface{}, human func()) {
	if config.GetBool("json") {
		data, err := json.MarshalIndent(v, "", "  ")
		if err == nil {
			fmt.Println(string(data))
		}
		return
	}
	human()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var dup *guard.ErrDuplicate
		if errors.As(err, &dup) {
			fmt.Fprintln(os.Stderr, "blocked:", err)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/types"
)

var (
	observeSource string
	observeTags   []string
)

var observeCmd = &cobra.Command{
	Use:   "observe <text>",
	Short: "Drop an observation into the inbox",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		id, err := eng.Inbox.Observe(strings.Join(args, " "), observeSource, observeTags)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Manage inbox observations",
}

var inboxListStatus string

var inboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List observations",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		list, err := eng.Inbox.List(types.ObservationStatus(inboxListStatus))
		if err != nil {
			return err
		}
		emit(list, func() {
			for _, o := range list {
				fmt.Printf("%s  %-9s  %s\n", o.ID, o.Status, o.Content)
			}
		})
		return nil
	},
}

var inboxPromoteCmd = &cobra.Command{
	Use:   "promote <id> <kind>",
	Short: "Mark an observation promoted toward a decision or pattern",
	Long:  "Marks the observation promoted and tags it with the target kind.\nThe target record is not created; follow up with remember or learn.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if err := eng.Inbox.Promote(args[0], args[1]); err != nil {
			return err
		}
		if !flagQuiet {
			fmt.Printf("%s promoted; now run remember/learn with its text\n", args[0])
		}
		return nil
	},
}

var inboxDiscardCmd = &cobra.Command{
	Use:   "discard <id>",
	Short: "Discard an observation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if err := eng.Inbox.Discard(args[0]); err != nil {
			return err
		}
		if !flagQuiet {
			fmt.Println(args[0], "discarded")
		}
		return nil
	},
}

func init() {
	observeCmd.Flags().StringVar(&observeSource, "source", "", "where the observation came from")
	observeCmd.Flags().StringSliceVar(&observeTags, "tag", nil, "tags")

	inboxCmd.AddCommand(inboxListCmd, inboxPromoteCmd, inboxDiscardCmd)
	inboxListCmd.Flags().StringVar(&inboxListStatus, "status", "", "raw | promoted | discarded")
	rootCmd.AddCommand(observeCmd, inboxCmd)
}

package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stashbot/internal/database"
	"stashbot/internal/lifecycle"
)

// NewAcceptCmd creates the accept command
func NewAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept a pending task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			return withRepo(ctx, func(ctx context.Context, repo *database.ItemRepository) error {
				manager := lifecycle.NewManager(repo, nil, zap.NewNop())
				item, err := manager.Accept(ctx, owner(), id)
				if err != nil {
					return err
				}
				return printItem(item)
			})
		},
	}
}

// NewSnoozeCmd creates the snooze command
func NewSnoozeCmd() *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "snooze <id>",
		Short: "Push a task's deadline forward",
		Long:  "Push a task's deadline forward (24 hours by default) and re-score it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			return withRepo(ctx, func(ctx context.Context, repo *database.ItemRepository) error {
				manager := lifecycle.NewManager(repo, nil, zap.NewNop())
				item, err := manager.Snooze(ctx, owner(), id, time.Duration(hours)*time.Hour)
				if err != nil {
					return err
				}
				return printItem(item)
			})
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "hours to snooze (default 24)")
	return cmd
}

// NewDoneCmd creates the done command
func NewDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			return withRepo(ctx, func(ctx context.Context, repo *database.ItemRepository) error {
				manager := lifecycle.NewManager(repo, nil, zap.NewNop())
				item, err := manager.Complete(ctx, owner(), id)
				if err != nil {
					return err
				}
				return printItem(item)
			})
		},
	}
}

func parseIDArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

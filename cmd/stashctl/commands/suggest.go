package commands

import (
	"context"

	"github.com/spf13/cobra"

	"stashbot/internal/database"
	"stashbot/internal/suggest"
)

// NewSuggestCmd creates the suggest command
func NewSuggestCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Show the highest-priority active tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			return withRepo(ctx, func(ctx context.Context, repo *database.ItemRepository) error {
				engine := suggest.NewEngine(repo)
				tasks, err := engine.Suggest(ctx, owner(), limit)
				if err != nil {
					return err
				}
				return printItems(tasks)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", suggest.DefaultLimit, "number of suggestions")
	return cmd
}

// NewTodayCmd creates the today command
func NewTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show tasks due today or high priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			return withRepo(ctx, func(ctx context.Context, repo *database.ItemRepository) error {
				engine := suggest.NewEngine(repo)
				tasks, err := engine.SuggestToday(ctx, owner())
				if err != nil {
					return err
				}
				return printItems(tasks)
			})
		},
	}
}

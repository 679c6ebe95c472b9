package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"stashbot/internal/database"
	"stashbot/internal/search"
)

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>...",
		Short: "Find items matching every keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			ctx, cancel := commandContext()
			defer cancel()

			return withRepo(ctx, func(ctx context.Context, repo *database.ItemRepository) error {
				index := search.NewIndex(repo)
				matches, err := index.Search(ctx, owner(), query)
				if err != nil {
					return err
				}
				return printItems(matches)
			})
		},
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"stashbot/internal/database"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database schema",
		Long:  "Connect to the configured database and apply the items schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			return withRepo(ctx, func(ctx context.Context, _ *database.ItemRepository) error {
				// withRepo already migrated; reaching here means the schema is in place.
				fmt.Println("Schema ready")
				return nil
			})
		},
	}
}

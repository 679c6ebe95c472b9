package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"stashbot/internal/database"
	"stashbot/internal/models"
	"stashbot/internal/validation"
)

// NewClearCmd creates the clear command
func NewClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <kind> <all | id>...",
		Short: "Remove items of one kind",
		Long: `Remove items of one kind, either all of them or an explicit id list:

  stashctl clear note all
  stashctl clear task 3 7 12`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateKind(args[0]); err != nil {
				return err
			}
			kind := models.Kind(args[0])

			all := len(args) == 2 && args[1] == "all"
			var ids []int64
			if !all {
				for _, arg := range args[1:] {
					id, err := parseIDArg(arg)
					if err != nil {
						return err
					}
					ids = append(ids, id)
				}
			}

			ctx, cancel := commandContext()
			defer cancel()

			return withRepo(ctx, func(ctx context.Context, repo *database.ItemRepository) error {
				var deleted int64
				var err error
				if all {
					deleted, err = repo.DeleteAllOfKind(ctx, owner(), kind)
				} else {
					deleted, err = repo.DeleteByIDs(ctx, owner(), kind, ids)
				}
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %d %s item(s)\n", deleted, kind)
				return nil
			})
		},
	}
}

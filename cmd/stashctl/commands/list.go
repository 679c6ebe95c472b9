package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stashbot/internal/database"
	"stashbot/internal/models"
	"stashbot/internal/suggest"
	"stashbot/internal/validation"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var kindFlag, statusFlag string
	var page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored items",
		Long:  "List items newest first, optionally filtered by kind and task status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind *models.Kind
			if kindFlag != "" {
				if err := validation.ValidateKind(kindFlag); err != nil {
					return err
				}
				k := models.Kind(kindFlag)
				kind = &k
			}
			if err := validation.ValidateStatusFilter(statusFlag); err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			return withRepo(ctx, func(ctx context.Context, repo *database.ItemRepository) error {
				engine := suggest.NewEngine(repo)
				result, err := engine.List(ctx, owner(), kind, models.StatusFilter(statusFlag), page)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(result)
				}
				if err := printItems(result.Items); err != nil {
					return err
				}
				fmt.Printf("Page %d of %d (%d items)\n", result.Number, result.TotalPages, result.Total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kindFlag, "kind", "", "filter by kind (task, idea, note)")
	cmd.Flags().StringVar(&statusFlag, "status", "all", "filter tasks by status (all, active, done)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

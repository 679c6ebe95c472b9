package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stashbot/internal/config"
	"stashbot/internal/database"
	"stashbot/internal/pipeline"
	"stashbot/internal/services/ai"
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	var debugMode bool
	cmd := &cobra.Command{
		Use:   "ingest <text>...",
		Short: "Classify and store free-form text",
		Long:  "Run text through the classification pipeline; tasks are scored for priority",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, cancel := commandContext()
			defer cancel()

			return withRepo(ctx, func(ctx context.Context, repo *database.ItemRepository) error {
				logger := zap.NewNop()
				if debugMode {
					logger, _ = zap.NewDevelopment()
				}

				classifier := ai.NewOpenAIClassifier(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, logger, debugMode)
				analyzer := ai.NewOpenAIAnalyzer(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, logger, debugMode)
				p := pipeline.New(classifier, analyzer, repo, nil, logger, cfg.OracleTimeout)

				item, err := p.Ingest(ctx, owner(), text)
				if err != nil {
					return err
				}
				return printItem(item)
			})
		},
	}
	cmd.Flags().BoolVar(&debugMode, "debug", false, "log oracle requests and responses")
	return cmd
}

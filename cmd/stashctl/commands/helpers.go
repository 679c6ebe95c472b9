package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"

	"stashbot/internal/config"
	"stashbot/internal/database"
	"stashbot/internal/models"
)

// withRepo loads config, opens the database, applies the schema, and
// hands the repository to fn. Every command goes through here so the
// connection lifetime stays in one place.
func withRepo(ctx context.Context, fn func(context.Context, *database.ItemRepository) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	return fn(ctx, database.NewItemRepository(db))
}

func owner() string {
	return viper.GetString("owner")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printItems renders items as a table, or JSON with --json
func printItems(items []*models.Item) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}

	if len(items) == 0 {
		fmt.Println("No items")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Kind", "Title", "Status", "Priority", "Deadline"})
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = truncate(item.Text, 48)
		}
		status, priority, deadline := "", "", ""
		if item.Task != nil {
			status = string(item.Task.Status)
			priority = fmt.Sprintf("%.2f", item.Task.Priority)
			if item.Task.Deadline != nil {
				deadline = item.Task.Deadline.Format("2006-01-02")
			}
		}
		tw.AppendRow(table.Row{item.ID, item.Kind, title, status, priority, deadline})
	}
	tw.Render()
	return nil
}

// printItem renders one item, with the full text below the table row
func printItem(item *models.Item) error {
	if viper.GetBool("json") {
		return printJSON(item)
	}
	if err := printItems([]*models.Item{item}); err != nil {
		return err
	}
	fmt.Println(item.Text)
	if item.Task != nil && item.Task.AnalysisReason != "" {
		fmt.Printf("  importance=%d urgency=%d (%s)\n",
			item.Task.Importance, item.Task.Urgency, item.Task.AnalysisReason)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

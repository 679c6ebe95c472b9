package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stashbot/cmd/stashctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "stashctl",
		Short: "CLI for the stashbot item store",
		Long: `stashctl works directly against the stashbot database.
Drop free-form text in with 'ingest'; it is classified into a task,
idea, or note and tasks are scored for priority. 'suggest' and 'today'
rank what to work on next.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("owner", "local", "owner id the commands act on")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON instead of tables")
	_ = viper.BindPFlag("owner", rootCmd.PersistentFlags().Lookup("owner"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewIngestCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewSuggestCmd())
	rootCmd.AddCommand(commands.NewTodayCmd())
	rootCmd.AddCommand(commands.NewSearchCmd())
	rootCmd.AddCommand(commands.NewAcceptCmd())
	rootCmd.AddCommand(commands.NewSnoozeCmd())
	rootCmd.AddCommand(commands.NewDoneCmd())
	rootCmd.AddCommand(commands.NewClearCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("STASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

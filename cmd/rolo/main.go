package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "rolo",
	Short:   "rolo — local personal CRM over your calendar, tasks, mail and contacts",
	Version: version,
	Long: `rolo syncs read-only snapshots of your provider calendar, tasks,
mail and contacts into a local database, and layers a small CRM on top:
contacts, notes, match suggestions and confirmed links.

Run "rolo auth" once to connect your account, then "rolo start" to run
the daemon.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(agendaCmd)
	rootCmd.AddCommand(contactsCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(emailsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

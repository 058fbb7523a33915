package doc

import (
	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/spf13/cobra"
)

var (
	database *store.Database

	// DocumentCommands represents the document command group
	DocumentCommands = &cobra.Command{
		Use:                "doc",
		Short:              "Perform document operations on a collection",
		PersistentPreRunE:  openDatabase,
		PersistentPostRunE: closeDatabase,
	}
)

func init() {
	insertCmd.Flags().Int64("ttl", 0, util.WrapString("Time to live in seconds. The document is removed by the next sweep after it expired. Zero or negative values expire immediately"))

	// Add subcommands
	DocumentCommands.AddCommand(insertCmd)
	DocumentCommands.AddCommand(findCmd)
	DocumentCommands.AddCommand(listCmd)
	DocumentCommands.AddCommand(updateCmd)
	DocumentCommands.AddCommand(deleteCmd)
}

// openDatabase opens the database for the document commands
func openDatabase(cmd *cobra.Command, _ []string) error {
	// PersistentPreRunE of the root command is shadowed by this one
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitLogging("warn"); err != nil {
		return err
	}

	var err error
	database, err = util.OpenDatabase()
	return err
}

func closeDatabase(_ *cobra.Command, _ []string) error {
	if database == nil {
		return nil
	}
	return database.Close()
}

package col

import (
	"fmt"

	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/spf13/cobra"
)

var (
	// CollectionCommands represents the collection command group
	CollectionCommands = &cobra.Command{
		Use:   "col",
		Short: "Manage collections",
	}

	createCmd = &cobra.Command{
		Use:   "create [collection]",
		Short: "Creates a collection (no-op if it already exists)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := util.OpenDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			c, err := db.CreateCollection(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "collection %s created (%s)\n", c.Name(), c.Path())
			return nil
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop [collection]",
		Short: "Drops a collection and deletes its data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := util.OpenDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DropCollection(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "collection %s dropped\n", args[0])
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := util.OpenDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			for _, name := range db.Collections() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
)

func init() {
	CollectionCommands.AddCommand(createCmd)
	CollectionCommands.AddCommand(dropCmd)
	CollectionCommands.AddCommand(listCmd)
}

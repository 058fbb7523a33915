package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ValentinKolb/dDoc/cmd/col"
	"github.com/ValentinKolb/dDoc/cmd/doc"
	"github.com/ValentinKolb/dDoc/cmd/serve"
	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/server/auth"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ddoc",
		Short: "embeddable document store",
		Long: fmt.Sprintf(`dDoc (v%s)

An embeddable document store written in Go: named collections of
schema-less JSON documents with optional expiry, persisted as one
snapshot file per collection.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dDoc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dDoc v%s\n", Version)
		},
	}
	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Removes all expired documents once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := util.OpenDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			evicted, err := db.Sweep()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "evicted %d documents\n", evicted)
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints statistics about the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := util.OpenDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			return util.WriteJSON(cmd.OutOrStdout(), db.Info())
		},
	}
	hashPasswordCmd = &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Prints the bcrypt hash of a password for use with serve --users",
		Long:  `Prints the bcrypt hash of a password for use with serve --users or --users-file. If the password is omitted or -, it is read from stdin.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := "-"
			if len(args) == 1 {
				arg = args[0]
			}
			password, err := util.ReadInput(cmd, arg)
			if err != nil {
				return err
			}

			cost, _ := cmd.Flags().GetInt("cost")
			hash, err := auth.HashPassword(strings.TrimRight(string(password), "\r\n"), cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(col.CollectionCommands)
	RootCmd.AddCommand(doc.DocumentCommands)
	RootCmd.AddCommand(sweepCmd)
	RootCmd.AddCommand(infoCmd)
	RootCmd.AddCommand(hashPasswordCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "data-dir"
	RootCmd.PersistentFlags().String(key, "data", util.WrapString("Directory holding one snapshot file per collection"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("Level at which logs will be output (debug, info, warn, error). Defaults to info for serve and warn otherwise"))

	hashPasswordCmd.Flags().Int("cost", 0, util.WrapString("bcrypt cost (0 = default cost)"))
}

// setup binds the flags of the executed command and initializes the loggers
func setup(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return util.InitLogging("warn")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package doc

import (
	"fmt"

	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/spf13/cobra"
)

var (
	insertCmd = &cobra.Command{
		Use:   "insert [collection] [json]",
		Short: "Inserts a document (use - to read the json from stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := util.ReadInput(cmd, args[1])
			if err != nil {
				return err
			}

			var ttl *int64
			if cmd.Flags().Changed("ttl") {
				seconds, err := cmd.Flags().GetInt64("ttl")
				if err != nil {
					return err
				}
				ttl = &seconds
			}

			col, err := database.Collection(args[0])
			if err != nil {
				return err
			}
			doc, err := col.Insert(data, ttl)
			if err != nil {
				return err
			}
			return util.WriteJSON(cmd.OutOrStdout(), doc)
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [collection] [id]",
		Short: "Prints a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := database.Collection(args[0])
			if err != nil {
				return err
			}
			doc, ok, err := col.Find(args[1])
			if err != nil {
				return err
			}
			if !ok {
				return store.NewError(store.ErrCNotFound, fmt.Sprintf("document %s not found in %s", args[1], args[0]), nil)
			}
			return util.WriteJSON(cmd.OutOrStdout(), doc)
		},
	}
	listCmd = &cobra.Command{
		Use:   "list [collection]",
		Short: "Prints all documents of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := database.Collection(args[0])
			if err != nil {
				return err
			}
			docs, err := col.FindAll()
			if err != nil {
				return err
			}
			return util.WriteJSON(cmd.OutOrStdout(), docs)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [collection] [id] [json]",
		Short: "Replaces the data of a document (use - to read the json from stdin)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := util.ReadInput(cmd, args[2])
			if err != nil {
				return err
			}
			col, err := database.Collection(args[0])
			if err != nil {
				return err
			}
			doc, err := col.Update(args[1], data)
			if err != nil {
				return err
			}
			return util.WriteJSON(cmd.OutOrStdout(), doc)
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [collection] [id]",
		Short: "Deletes a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := database.Collection(args[0])
			if err != nil {
				return err
			}
			if err := col.Delete(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "document %s deleted\n", args[1])
			return nil
		},
	}
)

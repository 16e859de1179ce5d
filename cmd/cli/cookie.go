package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCookieCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookie",
		Short: "Show, set or reset the stored CMS cookie",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the cookie sent with CMS calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := app.c.Credentials
			cookie, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			stored, err := store.Stored(cmd.Context())
			if err != nil {
				return err
			}
			source := store.URL()
			if !stored {
				source = "default"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n(source: %s)\n", cookie, source)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [cookie]",
		Short: "Store a new cookie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.c.Credentials.Save(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cookie saved to %s\n", app.c.Credentials.URL())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget the stored cookie and fall back to the default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.c.Credentials.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cookie reset to default")
			return nil
		},
	})

	return cmd
}

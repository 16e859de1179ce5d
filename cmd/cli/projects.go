package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"cmskit/internal/batch"
)

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List partner projects and their codes",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("CODE", "NAME")
			for _, p := range batch.Projects() {
				t.Row(p.Code, p.Name)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return err
		},
	}
}

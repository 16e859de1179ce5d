package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cmskit/internal/errors"
	"cmskit/internal/export"
)

func newExportCmd(app *cli) *cobra.Command {
	var f export.Filters
	var source, cidFile, outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Query the CMS and save the result as a workbook",
		Long: `Query one CMS list with the given filters and write the reshaped records to
an xlsx file named after the filters.

Sources: inject_cover, inject_video, project_cover, project_video, total_cover.

Example: cmskit export --source project_video --partner nx --cid C1 --cid C2 --inject-ids`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Source = export.Source(source)
			if cidFile != "" {
				text, err := os.ReadFile(cidFile)
				if err != nil {
					return errors.Wrapf(err, "failed to read %s", cidFile)
				}
				f.CIDs = append(f.CIDs, export.ParseCIDList(string(text))...)
			}

			result, err := app.c.Exporter.Export(cmd.Context(), f)
			if err != nil {
				return err
			}
			path, err := writeResult(outDir, result.FileName, result.Data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "exported %d of %d records to %s\n", result.Count, result.Total, path)
			if result.Note != "" {
				fmt.Fprintln(out, result.Note)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&source, "source", "s", "", "Export source")
	flags.StringVar(&f.Partner, "partner", "", "Partner code")
	flags.StringVar(&f.Channel, "channel", "", "Channel name")
	flags.StringSliceVar(&f.CIDs, "cid", nil, "cid to include (repeatable, at most 100)")
	flags.StringVar(&cidFile, "cid-file", "", "File with one cid per line")
	flags.StringVar(&f.CreatedFrom, "created-from", "", "Created on or after YYYY-MM-DD")
	flags.StringVar(&f.CreatedTo, "created-to", "", "Created on or before YYYY-MM-DD")
	flags.StringVar(&f.ModifiedFrom, "modified-from", "", "Modified on or after YYYY-MM-DD")
	flags.StringVar(&f.ModifiedTo, "modified-to", "", "Modified on or before YYYY-MM-DD")
	flags.StringVar(&f.TaskStatus, "task-status", "", "Inject task status: 1, 4, 5 or other")
	flags.StringVar(&f.IsOnline, "online", "", "Inject online flag: 1 or 0")
	flags.StringVar(&f.IsEffective, "effective", "", "total_cover validity: 1 or 0")
	flags.StringVar(&f.M4Status, "m4", "", "total_cover 4M status: 1 or 0")
	flags.StringVar(&f.M8Status, "m8", "", "total_cover 8M status: 1 or 0")
	flags.StringVar(&f.IsFinished, "finished", "", "total_cover completeness")
	flags.StringVar(&f.Batch, "batch", "", "total_cover batch code")
	flags.BoolVar(&f.IncludeInjectIDs, "inject-ids", false, "project_video: add series/program/movie ids")
	flags.BoolVar(&f.IncludeInjectTimes, "inject-times", false, "project_video: add inject send/receive times")
	flags.StringVar(&outDir, "out-dir", ".", "Directory for the workbook")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cmskit/internal/batch"
)

func newImportCmd(app *cli) *cobra.Command {
	var mode, project, sheet string
	var asJSON, quiet bool

	cmd := &cobra.Command{
		Use:   "import [file.xlsx]",
		Short: "Replay spreadsheet rows as CMS update calls",
		Long: `Send one CMS update call per spreadsheet row. Row 1 holds the column names;
identity columns pick the record and every other non-empty column becomes an
update field. Partner modes need --project (display name or partner code).

Modes: master_album, master_episode, master_media, project_album,
project_episode, inject_header, inject_subset.

Example: cmskit import titles.xlsx --mode project_album --project nx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := openWorkbook(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			opts := batch.Options{Mode: batch.Mode(mode), Project: project, Sheet: sheet}
			if !quiet {
				opts.Progress = rowProgress(cmd.ErrOrStderr())
			}
			report, err := app.c.Importer.Import(cmd.Context(), f, opts)
			if report != nil {
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if encErr := enc.Encode(report); encErr != nil {
						return encErr
					}
				} else {
					printReport(cmd.OutOrStdout(), report)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Import mode")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Partner project name or code")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: first sheet)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress")
	_ = cmd.MarkFlagRequired("mode")

	return cmd
}

func printReport(w io.Writer, r *batch.Report) {
	fmt.Fprintf(w, "run %s: %s on sheet %q\n", r.RunID, r.Mode, r.Sheet)
	for _, row := range r.Rows {
		if row.Status == batch.RowSucceeded {
			continue
		}
		fmt.Fprintf(w, "  row %d %s [%s] %s\n", row.Row, row.Identity, row.Status, row.Message)
	}
	fmt.Fprintf(w, "total %d, succeeded %d, failed %d, skipped %d\n", r.Total, r.Succeeded, r.Failed, r.Skipped)
	if r.Latency.Calls > 0 {
		fmt.Fprintf(w, "latency: median %.0fms, p95 %.0fms, max %.0fms over %d calls\n",
			r.Latency.Median, r.Latency.P95, r.Latency.Max, r.Latency.Calls)
	}
	if r.Canceled {
		fmt.Fprintf(w, "canceled after %d of %d rows\n", r.Processed(), r.Total)
	}
}

func rowProgress(w io.Writer) batch.ProgressFunc {
	return func(done, total int) {
		if done == total || done%50 == 0 {
			fmt.Fprintf(w, "%d/%d rows\n", done, total)
		}
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cmskit/app"
	"cmskit/internal/errors"
	"cmskit/internal/tagger"
)

func newCompareCmd(app *cli) *cobra.Command {
	var inputColumn, outputColumn int
	var tagValue, outDir string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "compare [input.xlsx] [output.xlsx]",
		Short: "Tag rows of output.xlsx whose column value appears in input.xlsx",
		Long: `Compare two workbooks by column value. Every row of the output workbook whose
probe column value appears in the input key column is tagged in a new trailing
"标记" column. The result is written next to --out-dir as <name>_已标记.xlsx.

Example: cmskit compare keys.xlsx report.xlsx --input-column 1 --output-column 3 --tag Y`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var progress tagger.ProgressFunc
			if !quiet {
				progress = stepProgress(cmd.ErrOrStderr())
			}
			return runCompare(cmd, app, args[0], args[1], inputColumn, outputColumn, tagValue, outDir, progress)
		},
	}

	cmd.Flags().IntVar(&inputColumn, "input-column", 1, "1-based key column of the input workbook")
	cmd.Flags().IntVar(&outputColumn, "output-column", 1, "1-based probe column of the output workbook")
	cmd.Flags().StringVar(&tagValue, "tag", tagger.DefaultTagValue, "Value written into matched rows")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory for the tagged workbook")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress")

	return cmd
}

func runCompare(cmd *cobra.Command, a *cli, inputPath, outputPath string, inputColumn, outputColumn int,
	tagValue, outDir string, progress tagger.ProgressFunc) error {
	input, err := openWorkbook(inputPath)
	if err != nil {
		return err
	}
	defer input.Close()
	output, err := openWorkbook(outputPath)
	if err != nil {
		return err
	}
	defer output.Close()

	result, err := a.c.Compare.Compare(cmd.Context(), app.CompareRequest{
		Input:        input,
		Output:       output,
		OutputName:   outputPath,
		InputColumn:  inputColumn,
		OutputColumn: outputColumn,
		TagValue:     tagValue,
		Progress:     progress,
	})
	if err != nil {
		return err
	}

	path, err := writeResult(outDir, result.FileName, result.Data)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "input key rows: %d\n", result.Stats.InputKeyCount)
	fmt.Fprintf(out, "probed rows:    %d\n", result.Stats.ProbedRowCount)
	fmt.Fprintf(out, "matched rows:   %d\n", result.Stats.MatchedRowCount)
	fmt.Fprintf(out, "written:        %s\n", path)
	return nil
}

func openWorkbook(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("workbook " + path)
		}
		return nil, errors.Spreadsheet("failed to open "+path, err)
	}
	return f, nil
}

func writeResult(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", dir)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}

// stepProgress prints each stage at 25% steps
func stepProgress(w io.Writer) tagger.ProgressFunc {
	last := map[string]int{}
	return func(stage string, percent float64) {
		step := int(percent) / 25 * 25
		if prev, ok := last[stage]; ok && prev >= step {
			return
		}
		last[stage] = step
		fmt.Fprintf(w, "%s: %d%%\n", stage, step)
	}
}

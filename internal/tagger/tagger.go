// Package tagger marks rows of one spreadsheet whose probe column value appears
// in a key column of another spreadsheet. The marked result is a styled copy of
// the probed table with one extra trailing column.
package tagger

import (
	"go.uber.org/zap"

	"cmskit/domain/sheet"
)

const (
	// DefaultTagValue is written into matched rows when no tag is given
	DefaultTagValue = "T"
	// HeaderText labels the appended column
	HeaderText = "标记"
	// DefaultColumnWidth is used for columns without an explicit width
	DefaultColumnWidth = 10
)

// Progress stages
const (
	StageCollect = "collecting keys"
	StageTag     = "tagging rows"
)

// ProgressFunc receives the current stage and completion percentage
type ProgressFunc func(stage string, percent float64)

func (p ProgressFunc) report(stage string, done, total int) {
	if p == nil || total == 0 {
		return
	}
	p(stage, float64(done)/float64(total)*100)
}

// Options controls a tagging pass
type Options struct {
	ProbeColumn int    // 1-based column of the probed table
	TagValue    string // literal written into matched rows; DefaultTagValue when empty
	Progress    ProgressFunc
}

// Stats summarizes a comparison
type Stats struct {
	InputKeyCount   int `json:"input_key_count"`
	ProbedRowCount  int `json:"probed_row_count"`
	MatchedRowCount int `json:"matched_row_count"`
}

// Tagger produces tagged copies of tables
type Tagger struct {
	logger *zap.Logger
}

// New creates a tagger that reports skipped cells to logger
func New(logger *zap.Logger) *Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tagger{logger: logger}
}

// Tag copies output into a new table with one appended column. Rows whose
// probe cell value is in keys get the tag literal in that column. The output
// table is never modified.
func (t *Tagger) Tag(output *sheet.Table, keys *KeySet, opts Options) (*sheet.Table, Stats) {
	tagValue := opts.TagValue
	if tagValue == "" {
		tagValue = DefaultTagValue
	}

	stats := Stats{InputKeyCount: keys.Rows()}
	columns := output.ColumnCount()
	tagColumn := columns + 1

	tagged := sheet.NewTable(output.Name)
	tagged.Workbook = t.cloneOpaque(output.Workbook, "workbook properties")
	tagged.Settings = t.cloneOpaque(output.Settings, "sheet settings")

	for col := 1; col <= columns; col++ {
		width := output.ColumnWidths[col]
		if width <= 0 {
			width = DefaultColumnWidth
		}
		tagged.ColumnWidths[col] = width
	}
	tagged.ColumnWidths[tagColumn] = DefaultColumnWidth

	// Every row is allocated up front so a skipped cell never changes the
	// row or column count.
	tagged.Rows = make([]sheet.Row, len(output.Rows))
	for i := range output.Rows {
		src := &output.Rows[i]
		dst := &tagged.Rows[i]
		dst.Height = src.Height
		dst.Hidden = src.Hidden
		dst.OutlineLevel = src.OutlineLevel
		dst.Cells = make([]sheet.Cell, tagColumn)

		for c, cell := range src.Cells {
			if cell.Value == nil && cell.Style == nil {
				continue
			}
			style, err := cloneStyle(cell.Style)
			if err != nil {
				t.logger.Warn("skipping cell, style copy failed",
					zap.Int("row", i+1), zap.Int("column", c+1), zap.Error(err))
				continue
			}
			dst.Cells[c] = sheet.Cell{Value: cell.Value, Style: style}
		}
	}

	if len(tagged.Rows) > 0 {
		// The header style always comes from A1, whichever column is probed.
		style, err := cloneStyle(output.Cell(1, 1).Style)
		if err != nil {
			t.logger.Warn("tag header written without style", zap.Error(err))
			style = nil
		}
		tagged.Rows[0].Cells[tagColumn-1] = sheet.Cell{Value: HeaderText, Style: style}
	}

	total := output.RowCount()
	for i := range output.Rows {
		rowNum := i + 1
		if rowNum > 1 {
			probe := output.Rows[i].Cell(opts.ProbeColumn)
			if probe.HasValue() {
				stats.ProbedRowCount++
				if keys.Has(probe.Text()) {
					stats.MatchedRowCount++
					style, err := cloneStyle(probe.Style)
					if err != nil {
						t.logger.Warn("skipping tag cell, style copy failed",
							zap.Int("row", rowNum), zap.Error(err))
					} else {
						tagged.Rows[i].Cells[tagColumn-1] = sheet.Cell{Value: tagValue, Style: style}
					}
				}
			}
		}
		opts.Progress.report(StageTag, rowNum, total)
	}

	return tagged, stats
}

func (t *Tagger) cloneOpaque(src sheet.Opaque, what string) sheet.Opaque {
	if src == nil {
		return nil
	}
	dst, err := src.Clone()
	if err != nil {
		t.logger.Warn("metadata not copied", zap.String("metadata", what), zap.Error(err))
		return nil
	}
	return dst
}

func cloneStyle(s sheet.Style) (sheet.Style, error) {
	if s == nil {
		return nil, nil
	}
	return s.Clone()
}

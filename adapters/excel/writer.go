package excel

import (
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"cmskit/domain/sheet"
	"cmskit/internal/errors"
)

// ContentType is the MIME type of the workbooks this package writes
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

// DataWriter serializes tables and record lists to xlsx
type DataWriter struct {
	logger *zap.Logger
}

// NewDataWriter creates a new workbook writer
func NewDataWriter(logger *zap.Logger) *DataWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataWriter{logger: logger}
}

func newWorkbook(name string) (*excelize.File, string, error) {
	f := excelize.NewFile()
	if name == "" || name == defaultSheet {
		return f, defaultSheet, nil
	}
	if err := f.SetSheetName(defaultSheet, name); err != nil {
		f.Close()
		return nil, "", errors.Spreadsheet("invalid sheet name "+name, err)
	}
	return f, name, nil
}

// WriteTable renders a table into xlsx bytes. Cells whose value or style
// cannot be written are logged and skipped.
func (w *DataWriter) WriteTable(t *sheet.Table) ([]byte, error) {
	f, name, err := newWorkbook(t.Name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w.applyDocProps(f, t.Workbook)
	w.applySettings(f, name, t.Settings)

	cols := make([]int, 0, len(t.ColumnWidths))
	for col := range t.ColumnWidths {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	for _, col := range cols {
		colName, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		if err := f.SetColWidth(name, colName, colName, t.ColumnWidths[col]); err != nil {
			w.logger.Warn("column width not set", zap.String("column", colName), zap.Error(err))
		}
	}

	styles := make(map[string]int)
	for i := range t.Rows {
		rowNum := i + 1
		row := &t.Rows[i]
		w.applyRowMetadata(f, name, rowNum, row)

		for c, cell := range row.Cells {
			if cell.Value == nil && cell.Style == nil {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(c+1, rowNum)
			if err != nil {
				continue
			}
			if cell.Value != nil {
				if err := f.SetCellValue(name, cellName, cell.Value); err != nil {
					w.logger.Warn("skipping cell, value not written", zap.String("cell", cellName), zap.Error(err))
					continue
				}
			}
			if cell.Style != nil {
				w.applyStyle(f, name, cellName, cell.Style, styles)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Spreadsheet("failed to serialize workbook", err)
	}
	return buf.Bytes(), nil
}

// applyStyle registers each distinct style once per workbook; registered maps
// a style's cache key to its id in f.
func (w *DataWriter) applyStyle(f *excelize.File, sheetName, cellName string, s sheet.Style, registered map[string]int) {
	xs, ok := s.(*xlsxStyle)
	if !ok || xs.style == nil {
		w.logger.Warn("unsupported cell style dropped", zap.String("cell", cellName))
		return
	}
	key, err := xs.cacheKey()
	if err != nil {
		w.logger.Warn("cell style not keyed", zap.String("cell", cellName), zap.Error(err))
		return
	}
	id, ok := registered[key]
	if !ok {
		id, err = f.NewStyle(xs.style)
		if err != nil {
			w.logger.Warn("cell style not registered", zap.String("cell", cellName), zap.Error(err))
			return
		}
		registered[key] = id
	}
	if err := f.SetCellStyle(sheetName, cellName, cellName, id); err != nil {
		w.logger.Warn("cell style not applied", zap.String("cell", cellName), zap.Error(err))
	}
}

func (w *DataWriter) applyRowMetadata(f *excelize.File, sheetName string, rowNum int, row *sheet.Row) {
	if row.Height > 0 {
		if err := f.SetRowHeight(sheetName, rowNum, row.Height); err != nil {
			w.logger.Warn("row height not set", zap.Int("row", rowNum), zap.Error(err))
		}
	}
	if row.Hidden {
		if err := f.SetRowVisible(sheetName, rowNum, false); err != nil {
			w.logger.Warn("row visibility not set", zap.Int("row", rowNum), zap.Error(err))
		}
	}
	if row.OutlineLevel > 0 {
		if err := f.SetRowOutlineLevel(sheetName, rowNum, row.OutlineLevel); err != nil {
			w.logger.Warn("row outline not set", zap.Int("row", rowNum), zap.Error(err))
		}
	}
}

func (w *DataWriter) applyDocProps(f *excelize.File, o sheet.Opaque) {
	d, ok := o.(*docProps)
	if !ok {
		return
	}
	props := d.props
	if err := f.SetDocProps(&props); err != nil {
		w.logger.Warn("document properties not copied", zap.Error(err))
	}
}

func (w *DataWriter) applySettings(f *excelize.File, name string, o sheet.Opaque) {
	s, ok := o.(*sheetSettings)
	if !ok {
		return
	}
	if s.HasProps {
		props := s.Props
		if err := f.SetSheetProps(name, &props); err != nil {
			w.logger.Warn("sheet properties not copied", zap.Error(err))
		}
	}
	if s.HasView {
		view := s.View
		if err := f.SetSheetView(name, 0, &view); err != nil {
			w.logger.Warn("sheet view not copied", zap.Error(err))
		}
	}
	if s.HasLayout {
		layout := s.Layout
		if err := f.SetPageLayout(name, &layout); err != nil {
			w.logger.Warn("page setup not copied", zap.Error(err))
		}
	}
}

// WriteRecords writes a header row followed by value rows to a single sheet.
// widths are applied to columns positionally; extra columns keep the default.
func (w *DataWriter) WriteRecords(sheetName string, headers []string, rows [][]any, widths []float64) ([]byte, error) {
	f, name, err := newWorkbook(sheetName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return nil, errors.Spreadsheet("failed to write header row", err)
	}
	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, errors.Spreadsheet("invalid row", err)
		}
		row := values
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return nil, errors.Spreadsheet("failed to write row", err)
		}
	}
	for i, width := range widths {
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			continue
		}
		if err := f.SetColWidth(name, colName, colName, width); err != nil {
			w.logger.Warn("column width not set", zap.String("column", colName), zap.Error(err))
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Spreadsheet("failed to serialize workbook", err)
	}
	return buf.Bytes(), nil
}

package excel

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"cmskit/domain/sheet"
	"cmskit/internal/errors"
)

// Column widths and row heights excelize reports for untouched columns/rows
const (
	defaultColWidth  = 9.140625
	defaultRowHeight = 15
)

// DataReader loads xlsx workbooks
type DataReader struct {
	logger *zap.Logger
}

// NewDataReader creates a new workbook reader
func NewDataReader(logger *zap.Logger) *DataReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataReader{logger: logger}
}

func (r *DataReader) open(src io.Reader) (*excelize.File, error) {
	start := time.Now()
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, errors.Spreadsheet("failed to open workbook", err)
	}
	r.logger.Debug("workbook opened", zap.Duration("elapsed", time.Since(start)))
	return f, nil
}

// ReadTableFile reads the first sheet of the workbook at path
func (r *DataReader) ReadTableFile(path string) (*sheet.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("workbook " + path)
		}
		return nil, errors.Spreadsheet("failed to read workbook", err)
	}
	return r.ReadTable(bytes.NewReader(data))
}

// ReadTable reads the first sheet of a workbook with values, styles, column
// widths, row metadata and document properties.
func (r *DataReader) ReadTable(src io.Reader) (*sheet.Table, error) {
	f, err := r.open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Spreadsheet("workbook has no sheets", nil)
	}
	name := sheets[0]

	start := time.Now()
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Spreadsheet("failed to read sheet "+name, err)
	}

	table := sheet.NewTable(name)
	table.Workbook = r.readDocProps(f)
	table.Settings = r.readSettings(f, name)

	styles := make(map[int]sheet.Style)
	table.Rows = make([]sheet.Row, len(rows))
	for i, values := range rows {
		rowNum := i + 1
		row := &table.Rows[i]
		r.readRowMetadata(f, name, rowNum, row)

		for c, raw := range values {
			if raw == "" {
				continue
			}
			col := c + 1
			cellName, err := excelize.CoordinatesToCellName(col, rowNum)
			if err != nil {
				return nil, errors.Spreadsheet("invalid cell coordinates", err)
			}
			row.SetCell(col, sheet.Cell{
				Value: r.cellValue(f, name, cellName, raw),
				Style: r.cellStyle(f, name, cellName, styles),
			})
		}
	}

	columns := table.ColumnCount()
	for col := 1; col <= columns; col++ {
		colName, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		width, err := f.GetColWidth(name, colName)
		if err != nil || width == defaultColWidth {
			continue
		}
		table.ColumnWidths[col] = width
	}

	r.logger.Debug("sheet read",
		zap.String("sheet", name),
		zap.Int("rows", table.RowCount()),
		zap.Int("columns", columns),
		zap.Duration("elapsed", time.Since(start)))

	return table, nil
}

// cellValue types a raw cell value: booleans, numbers, otherwise text
func (r *DataReader) cellValue(f *excelize.File, sheetName, cell, raw string) any {
	cellType, err := f.GetCellType(sheetName, cell)
	if err != nil {
		return raw
	}
	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeDate:
		return raw
	default:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
		return raw
	}
}

func (r *DataReader) cellStyle(f *excelize.File, sheetName, cell string, cache map[int]sheet.Style) sheet.Style {
	id, err := f.GetCellStyle(sheetName, cell)
	if err != nil || id == 0 {
		return nil
	}
	if s, ok := cache[id]; ok {
		return s
	}
	style, err := f.GetStyle(id)
	if err != nil {
		r.logger.Warn("cell style unreadable", zap.String("cell", cell), zap.Int("style", id), zap.Error(err))
		cache[id] = nil
		return nil
	}
	s := &xlsxStyle{style: style, key: sourceStyleKey(id)}
	cache[id] = s
	return s
}

func (r *DataReader) readRowMetadata(f *excelize.File, sheetName string, rowNum int, row *sheet.Row) {
	if h, err := f.GetRowHeight(sheetName, rowNum); err == nil && h != defaultRowHeight {
		row.Height = h
	}
	if visible, err := f.GetRowVisible(sheetName, rowNum); err == nil {
		row.Hidden = !visible
	}
	if level, err := f.GetRowOutlineLevel(sheetName, rowNum); err == nil {
		row.OutlineLevel = level
	}
}

func (r *DataReader) readDocProps(f *excelize.File) sheet.Opaque {
	props, err := f.GetDocProps()
	if err != nil || props == nil {
		return nil
	}
	return &docProps{props: *props}
}

func (r *DataReader) readSettings(f *excelize.File, name string) sheet.Opaque {
	var s sheetSettings
	if props, err := f.GetSheetProps(name); err == nil {
		s.Props, s.HasProps = props, true
	}
	if view, err := f.GetSheetView(name, 0); err == nil {
		s.View, s.HasView = view, true
	}
	if layout, err := f.GetPageLayout(name); err == nil {
		s.Layout, s.HasLayout = layout, true
	}
	return &s
}

// SheetNames lists the sheets of a workbook
func (r *DataReader) SheetNames(src io.Reader) ([]string, error) {
	f, err := r.open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadData reads one sheet as a header row plus trimmed string rows. An empty
// sheetName selects the first sheet.
func (r *DataReader) ReadData(src io.Reader, sheetName string) (*ExcelData, error) {
	f, err := r.open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.Spreadsheet("workbook has no sheets", nil)
		}
		sheetName = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, errors.NotFound("sheet " + sheetName)
	}

	start := time.Now()
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Spreadsheet("failed to read sheet "+sheetName, err)
	}
	r.logger.Debug("sheet read",
		zap.String("sheet", sheetName),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)))

	data := r.processRows(rows)
	data.Sheet = sheetName
	return data, nil
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(rows [][]string) *ExcelData {
	data := &ExcelData{}
	if len(rows) == 0 {
		return data
	}

	headerRow := rows[0]
	data.Headers = make([]string, len(headerRow))
	for i, header := range headerRow {
		data.Headers[i] = strings.TrimSpace(header)
	}

	for i := 1; i < len(rows); i++ {
		rowData := make(RawRowData, len(data.Headers))
		for j, cell := range rows[i] {
			if j < len(data.Headers) && data.Headers[j] != "" {
				rowData[data.Headers[j]] = strings.TrimSpace(cell)
			}
		}
		data.Rows = append(data.Rows, rowData)
	}

	return data
}

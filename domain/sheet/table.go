package sheet

import (
	"fmt"
	"strconv"
	"time"
)

// Style is an opaque cell formatting descriptor. Callers never look inside it;
// they only carry it along and clone it when a cell is copied.
type Style interface {
	Clone() (Style, error)
}

// Opaque is pass-through metadata (document properties, sheet views, page
// setup) that is copied verbatim between tables.
type Opaque interface {
	Clone() (Opaque, error)
}

// Cell holds a value and its style. A nil Value means the cell is empty.
// Values are one of string, float64, bool or time.Time.
type Cell struct {
	Value any
	Style Style
}

// HasValue reports whether the cell carries a non-empty value
func (c Cell) HasValue() bool {
	switch v := c.Value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	default:
		return true
	}
}

// Text returns the string form of the cell value
func (c Cell) Text() string {
	return FormatValue(c.Value)
}

// Row is one spreadsheet row. Cells are indexed by column-1.
type Row struct {
	Height       float64 // 0 means default height
	Hidden       bool
	OutlineLevel uint8
	Cells        []Cell
}

// Cell returns the cell at the 1-based column, or an empty cell when the
// column is out of range.
func (r *Row) Cell(col int) Cell {
	if col < 1 || col > len(r.Cells) {
		return Cell{}
	}
	return r.Cells[col-1]
}

// SetCell stores a cell at the 1-based column, growing the row as needed.
func (r *Row) SetCell(col int, c Cell) {
	if col < 1 {
		return
	}
	for len(r.Cells) < col {
		r.Cells = append(r.Cells, Cell{})
	}
	r.Cells[col-1] = c
}

// Table is the first sheet of a workbook loaded into memory. Rows are indexed
// by row-1, so Rows[0] is the header row.
type Table struct {
	Name         string
	Workbook     Opaque          // workbook-level document properties
	Settings     Opaque          // sheet properties, views and page setup
	ColumnWidths map[int]float64 // 1-based column -> width; absent or 0 means unset
	Rows         []Row
}

// NewTable creates an empty table with the given sheet name
func NewTable(name string) *Table {
	return &Table{
		Name:         name,
		ColumnWidths: make(map[int]float64),
	}
}

// RowCount returns the number of rows, header included
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnCount returns the widest row's column count
func (t *Table) ColumnCount() int {
	n := 0
	for i := range t.Rows {
		if len(t.Rows[i].Cells) > n {
			n = len(t.Rows[i].Cells)
		}
	}
	return n
}

// Row returns the 1-based row, or nil when out of range
func (t *Table) Row(n int) *Row {
	if n < 1 || n > len(t.Rows) {
		return nil
	}
	return &t.Rows[n-1]
}

// Cell returns the cell at 1-based row/column
func (t *Table) Cell(row, col int) Cell {
	r := t.Row(row)
	if r == nil {
		return Cell{}
	}
	return r.Cell(col)
}

// FormatValue renders a cell value the way it is compared as a key:
// integral numbers without a decimal point, booleans as true/false.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

package excel

// RawRowData represents a row of raw Excel data as header -> trimmed value
type RawRowData map[string]string

// ExcelData represents a header row plus data rows. Headers keeps the sheet's
// column order; iterate it to visit a row's values in order.
type ExcelData struct {
	Sheet   string       // sheet the data came from
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows, Rows[0] is sheet row 2
}

// SheetRow returns the 1-based sheet row number of data row i
func (d *ExcelData) SheetRow(i int) int {
	return i + 2
}

// HasHeader reports whether a column with the given header exists
func (d *ExcelData) HasHeader(name string) bool {
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

package export

import (
	"encoding/json"

	"cmskit/domain/cms"
)

var (
	projectCoverFields = []string{"cid", "title", "channel_name", "is_online", "task_status", "c_time", "m_time"}
	projectVideoFields = []string{"cid", "vid", "title", "channel_name", "tv_is_online", "task_status", "c_time", "m_time"}
	injectIDFields     = []string{"series_id", "program_id", "movie_id"}
	injectTimeFields   = []string{"inject_send_time", "inject_receive_time"}

	projectCoverWidths = []float64{15, 30, 15, 10, 12, 20, 20}
	projectVideoWidths = []float64{15, 15, 30, 15, 10, 12, 20, 20}
	injectIDWidths     = []float64{20, 20, 20}
	injectTimeWidths   = []float64{20, 20}
	// id, cid, title, rate, is_effective, is_online, channel_name, task_priority,
	// task_status, series_id, xml_name, receive_xml_url, inject_send_time,
	// inject_receive_time, c_time, m_time
	defaultWidths = []float64{10, 15, 30, 8, 10, 10, 15, 12, 12, 20, 30, 50, 20, 20, 20, 20}
)

// Sheet is a reshaped result ready to be written
type Sheet struct {
	Headers []string
	Rows    [][]any
	Widths  []float64
}

// Reshape selects and orders columns for a source. Project sources keep a
// fixed field list with falsy values blanked; other sources keep every field
// in order of first appearance.
func Reshape(f Filters, records []cms.Record) Sheet {
	switch f.Source {
	case ProjectCover:
		return fixedSheet(records, projectCoverFields, projectCoverWidths)
	case ProjectVideo:
		fields := append([]string{}, projectVideoFields...)
		widths := append([]float64{}, projectVideoWidths...)
		if f.IncludeInjectIDs {
			fields = append(fields, injectIDFields...)
			widths = append(widths, injectIDWidths...)
		}
		if f.IncludeInjectTimes {
			fields = append(fields, injectTimeFields...)
			widths = append(widths, injectTimeWidths...)
		}
		return fixedSheet(records, fields, widths)
	default:
		return passthroughSheet(records)
	}
}

func fixedSheet(records []cms.Record, fields []string, widths []float64) Sheet {
	sheet := Sheet{Headers: fields, Widths: widths, Rows: make([][]any, len(records))}
	for i, r := range records {
		row := make([]any, len(fields))
		for j, field := range fields {
			row[j] = orBlank(r.Get(field))
		}
		sheet.Rows[i] = row
	}
	return sheet
}

func passthroughSheet(records []cms.Record) Sheet {
	var headers []string
	seen := make(map[string]bool)
	for _, r := range records {
		for _, key := range r.Keys {
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
		}
	}

	sheet := Sheet{Headers: headers, Widths: defaultWidths, Rows: make([][]any, len(records))}
	for i, r := range records {
		row := make([]any, len(headers))
		for j, key := range headers {
			row[j] = cellValue(r.Get(key))
		}
		sheet.Rows[i] = row
	}
	return sheet
}

// orBlank maps falsy values (nil, false, 0, "") to an empty string
func orBlank(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if !x {
			return ""
		}
	case float64:
		if x == 0 {
			return ""
		}
	case string:
		if x == "" {
			return ""
		}
	}
	return cellValue(v)
}

// cellValue flattens nested JSON values to their text form
func cellValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return v
	}
}

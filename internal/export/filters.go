package export

import (
	"strings"
	"time"

	"cmskit/domain/cms"
	"cmskit/internal/errors"
)

const (
	// DefaultLimit caps how many records one export returns
	DefaultLimit = 1000
	// MaxCIDs caps the cid list sent with a query
	MaxCIDs = 100

	dateLayout = "2006-01-02"
)

// Filters are the operator-selected query conditions
type Filters struct {
	Source       Source   `json:"source"`
	Partner      string   `json:"partner_code"`
	Channel      string   `json:"channel_name"`
	CIDs         []string `json:"cid_list"`
	CreatedFrom  string   `json:"c_start_date"`
	CreatedTo    string   `json:"c_end_date"`
	ModifiedFrom string   `json:"m_start_date"`
	ModifiedTo   string   `json:"m_end_date"`

	// inject sources
	TaskStatus string `json:"task_status"` // 1, 4, 5 or other
	IsOnline   string `json:"is_online"`   // 1 or 0

	// total_cover
	IsEffective string `json:"is_effective"`
	M4Status    string `json:"m4_status"`
	M8Status    string `json:"m8_status"`
	IsFinished  string `json:"is_finished"`
	Batch       string `json:"batch"`

	// project_video extra columns
	IncludeInjectIDs   bool `json:"include_inject_ids"`
	IncludeInjectTimes bool `json:"include_inject_times"`
}

// ParseCIDList splits one cid per line, dropping blanks
func ParseCIDList(text string) []string {
	return NormalizeCIDs(strings.Split(text, "\n"))
}

// NormalizeCIDs trims, drops blanks and keeps the first MaxCIDs entries
func NormalizeCIDs(cids []string) []string {
	out := make([]string, 0, len(cids))
	for _, cid := range cids {
		cid = strings.TrimSpace(cid)
		if cid == "" {
			continue
		}
		out = append(out, cid)
		if len(out) == MaxCIDs {
			break
		}
	}
	return out
}

// Normalize trims every field and checks dates and enumerations
func (f Filters) Normalize() (Filters, error) {
	f.Source = Source(strings.TrimSpace(string(f.Source)))
	f.Partner = strings.TrimSpace(f.Partner)
	f.Channel = strings.TrimSpace(f.Channel)
	f.CIDs = NormalizeCIDs(f.CIDs)
	f.TaskStatus = strings.TrimSpace(f.TaskStatus)
	f.IsOnline = strings.TrimSpace(f.IsOnline)
	f.IsEffective = strings.TrimSpace(f.IsEffective)
	f.M4Status = strings.TrimSpace(f.M4Status)
	f.M8Status = strings.TrimSpace(f.M8Status)
	f.IsFinished = strings.TrimSpace(f.IsFinished)
	f.Batch = strings.TrimSpace(f.Batch)

	if _, err := LookupSource(f.Source); err != nil {
		return f, err
	}
	for _, d := range []*string{&f.CreatedFrom, &f.CreatedTo, &f.ModifiedFrom, &f.ModifiedTo} {
		*d = strings.TrimSpace(*d)
		if *d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, *d); err != nil {
			return f, errors.InvalidInputf("invalid date %q, want YYYY-MM-DD", *d)
		}
	}
	if f.TaskStatus != "" {
		if _, ok := taskStatusLabels[f.TaskStatus]; !ok {
			return f, errors.InvalidInputf("invalid task_status %q", f.TaskStatus)
		}
	}
	for name, v := range map[string]string{"is_online": f.IsOnline, "is_effective": f.IsEffective, "m4_status": f.M4Status, "m8_status": f.M8Status} {
		if v != "" && v != "0" && v != "1" {
			return f, errors.InvalidInputf("invalid %s %q, want 0 or 1", name, v)
		}
	}
	if f.IsFinished != "" {
		if _, ok := finishedLabels[f.IsFinished]; !ok {
			return f, errors.InvalidInputf("invalid is_finished %q", f.IsFinished)
		}
	}
	return f, nil
}

func startOfDay(date string) string {
	if date == "" {
		return ""
	}
	return date + " 00:00:00"
}

func endOfDay(date string) string {
	if date == "" {
		return ""
	}
	return date + " 23:59:59"
}

// BuildRequest renders normalized filters as a list query
func BuildRequest(src SourceSpec, f Filters, limit int) cms.Request {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var params cms.Params
	params.Add("channel_name", f.Channel)
	params.Add("offset", 0)
	params.Add("limit", limit)
	if f.Source.Partnered() {
		params.Add("partner_code", f.Partner)
	}

	if f.Source.Inject() {
		params.Add("c_start_time", startOfDay(f.CreatedFrom))
		params.Add("c_end_time", endOfDay(f.CreatedTo))
		params.Add("m_start_time", startOfDay(f.ModifiedFrom))
		params.Add("m_end_time", endOfDay(f.ModifiedTo))
		if f.TaskStatus != "" {
			status := f.TaskStatus
			if status == "other" {
				status = "-1"
			}
			params.Add("task_status", status)
		}
		if f.IsOnline != "" {
			params.Add("is_online", f.IsOnline)
		}
	}

	if f.Source == TotalCover {
		for _, p := range []cms.Param{
			{Key: "is_effective", Value: f.IsEffective},
			{Key: "m4_status", Value: f.M4Status},
			{Key: "m8_status", Value: f.M8Status},
			{Key: "is_finished", Value: f.IsFinished},
			{Key: "batch", Value: f.Batch},
		} {
			if p.Value != "" {
				params = append(params, p)
			}
		}
	}

	if len(f.CIDs) > 0 {
		params.Add("cid_list", f.CIDs)
	}
	return cms.Request{Path: src.Path, Encoding: cms.EncodingJSON, Params: params}
}

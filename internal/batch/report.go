package batch

import (
	"time"

	"github.com/montanaflynn/stats"

	"cmskit/domain/core"
)

// RowStatus is the outcome of one spreadsheet row
type RowStatus string

const (
	RowSucceeded RowStatus = "succeeded"
	RowFailed    RowStatus = "failed"
	RowSkipped   RowStatus = "skipped"
)

// RowResult records what happened to one row
type RowResult struct {
	Row      int       `json:"row"` // 1-based sheet row
	Identity string    `json:"identity"`
	Status   RowStatus `json:"status"`
	Message  string    `json:"message,omitempty"`
	Elapsed  float64   `json:"elapsed_ms,omitempty"`
}

// LatencySummary describes CMS call latency in milliseconds
type LatencySummary struct {
	Calls  int     `json:"calls"`
	Median float64 `json:"median_ms"`
	P95    float64 `json:"p95_ms"`
	Max    float64 `json:"max_ms"`
}

// Report summarizes an import run
type Report struct {
	RunID      core.RunID     `json:"run_id"`
	Mode       Mode           `json:"mode"`
	Project    string         `json:"project,omitempty"`
	Sheet      string         `json:"sheet"`
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	Rows       []RowResult    `json:"rows"`
	Latency    LatencySummary `json:"latency"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Canceled   bool           `json:"canceled,omitempty"`
}

// Processed returns how many rows were handled before the run ended
func (r *Report) Processed() int {
	return r.Succeeded + r.Failed + r.Skipped
}

func (r *Report) add(result RowResult) {
	switch result.Status {
	case RowSucceeded:
		r.Succeeded++
	case RowFailed:
		r.Failed++
	case RowSkipped:
		r.Skipped++
	}
	r.Rows = append(r.Rows, result)
}

// summarizeLatency reduces per-call durations; an empty sample yields zeros
func summarizeLatency(samples []time.Duration) LatencySummary {
	summary := LatencySummary{Calls: len(samples)}
	if len(samples) == 0 {
		return summary
	}

	data := make(stats.Float64Data, len(samples))
	for i, d := range samples {
		data[i] = float64(d) / float64(time.Millisecond)
	}

	if median, err := stats.Median(data); err == nil {
		summary.Median = median
	}
	if max, err := stats.Max(data); err == nil {
		summary.Max = max
	}
	// small samples have no 95th percentile; the slowest call stands in
	if p95, err := stats.Percentile(data, 95); err == nil {
		summary.P95 = p95
	} else {
		summary.P95 = summary.Max
	}
	return summary
}

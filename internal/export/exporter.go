package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cmskit/domain/core"
	"cmskit/internal/errors"
	"cmskit/ports"
)

// SheetName is the name of the single sheet in every export
const SheetName = "Sheet1"

// RecordWriter serializes a header row plus value rows
type RecordWriter interface {
	WriteRecords(sheetName string, headers []string, rows [][]any, widths []float64) ([]byte, error)
}

// Result is a finished export
type Result struct {
	RunID     core.RunID `json:"run_id"`
	FileName  string     `json:"file_name"`
	Data      []byte     `json:"-"`
	Count     int        `json:"count"`
	Total     int64      `json:"total"`
	Truncated bool       `json:"truncated"`
	Note      string     `json:"note,omitempty"`
}

// Exporter runs list queries and writes the reshaped result
type Exporter struct {
	gateway ports.CMSGateway
	writer  RecordWriter
	limit   int
	logger  *zap.Logger
	now     func() time.Time
}

// NewExporter creates an exporter; limit <= 0 uses DefaultLimit
func NewExporter(gateway ports.CMSGateway, writer RecordWriter, limit int, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Exporter{
		gateway: gateway,
		writer:  writer,
		limit:   limit,
		logger:  logger,
		now:     time.Now,
	}
}

// Export queries the source selected by filters and returns the workbook
func (e *Exporter) Export(ctx context.Context, filters Filters) (*Result, error) {
	f, err := filters.Normalize()
	if err != nil {
		return nil, err
	}
	src, err := LookupSource(f.Source)
	if err != nil {
		return nil, err
	}

	runID := core.RunIDFrom(ctx)
	logger := e.logger.With(zap.String("run_id", runID.String()), zap.String("source", string(f.Source)))
	start := time.Now()

	resp, err := e.gateway.Do(ctx, BuildRequest(src, f, e.limit))
	if err != nil {
		return nil, errors.Wrapf(err, "export query %s failed", src.Path)
	}
	if !resp.HasRows {
		return nil, errors.MalformedResponse("export reply has no rows array")
	}
	if len(resp.Rows) == 0 {
		return nil, errors.EmptyResult("no records match the filters")
	}

	sheet := Reshape(f, resp.Rows)
	data, err := e.writer.WriteRecords(SheetName, sheet.Headers, sheet.Rows, sheet.Widths)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:    runID,
		FileName: FileName(src, f, e.now()),
		Data:     data,
		Count:    len(resp.Rows),
		Total:    resp.Total,
	}
	if resp.Total > int64(e.limit) {
		result.Truncated = true
		result.Note = fmt.Sprintf("found %d records, exported the first %d", resp.Total, e.limit)
		logger.Warn("export truncated", zap.Int64("total", resp.Total), zap.Int("limit", e.limit))
	}

	logger.Info("export finished",
		zap.String("file", result.FileName),
		zap.Int("count", result.Count),
		zap.Int64("total", result.Total),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

package batch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"cmskit/adapters/excel"
	"cmskit/domain/cms"
	"cmskit/domain/core"
	"cmskit/internal/errors"
	"cmskit/ports"
)

// SheetReader loads one sheet as headers plus string rows
type SheetReader interface {
	ReadData(src io.Reader, sheetName string) (*excel.ExcelData, error)
}

// ProgressFunc is called after every row
type ProgressFunc func(done, total int)

// Options selects what to import
type Options struct {
	Mode     Mode
	Project  string // display name or partner code; required by partner modes
	Sheet    string // empty selects the first sheet
	Progress ProgressFunc
}

// Importer turns rows into CMS update calls
type Importer struct {
	gateway ports.CMSGateway
	reader  SheetReader
	logger  *zap.Logger
	now     func() time.Time
}

// NewImporter creates an importer
func NewImporter(gateway ports.CMSGateway, reader SheetReader, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		gateway: gateway,
		reader:  reader,
		logger:  logger,
		now:     time.Now,
	}
}

// Import reads the workbook in src and replays it. Setup problems are
// returned before any call is made; per-row failures only land in the
// report. On cancellation the partial report is returned with ctx's error.
func (im *Importer) Import(ctx context.Context, src io.Reader, opts Options) (*Report, error) {
	spec, err := LookupMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	var project Project
	if spec.Partner {
		if project, err = ResolveProject(opts.Project); err != nil {
			return nil, err
		}
	}

	data, err := im.reader.ReadData(src, opts.Sheet)
	if err != nil {
		return nil, err
	}
	return im.Run(ctx, spec, project, data, opts.Progress)
}

// Run replays already-loaded rows. The report takes its run ID from ctx
// when one is attached.
func (im *Importer) Run(ctx context.Context, spec ModeSpec, project Project, data *excel.ExcelData, progress ProgressFunc) (*Report, error) {
	if spec.Partner && project.Code == "" {
		return nil, errors.InvalidInputf("mode %s requires a project", spec.Mode)
	}
	if len(data.Rows) == 0 {
		return nil, errors.EmptyResult(fmt.Sprintf("sheet %q has no data rows", data.Sheet))
	}
	columns, err := resolveColumns(spec, data.Headers)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     core.RunIDFrom(ctx),
		Mode:      spec.Mode,
		Project:   project.Code,
		Sheet:     data.Sheet,
		Total:     len(data.Rows),
		StartedAt: im.now(),
	}
	logger := im.logger.With(
		zap.String("run_id", report.RunID.String()),
		zap.String("mode", string(spec.Mode)))
	logger.Info("import started", zap.String("sheet", data.Sheet), zap.Int("rows", report.Total))

	skip := spec.skipSet()

	var latencies []time.Duration
	var runErr error
	for i, row := range data.Rows {
		if err := ctx.Err(); err != nil {
			report.Canceled = true
			runErr = err
			break
		}

		result, elapsed, called := im.processRow(ctx, spec, project, columns, skip, data.Headers, row)
		result.Row = data.SheetRow(i)
		if called {
			latencies = append(latencies, elapsed)
		}
		report.add(result)

		switch result.Status {
		case RowFailed:
			logger.Warn("row failed", zap.Int("row", result.Row), zap.String("identity", result.Identity), zap.String("reason", result.Message))
		default:
			logger.Debug("row processed", zap.Int("row", result.Row), zap.String("status", string(result.Status)))
		}
		if progress != nil {
			progress(i+1, report.Total)
		}
	}

	report.Latency = summarizeLatency(latencies)
	report.FinishedAt = im.now()
	logger.Info("import finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Bool("canceled", report.Canceled),
		zap.Float64("median_ms", report.Latency.Median))

	return report, runErr
}

// resolveColumns maps each identity key to the header that carries it and
// checks the required columns exist.
func resolveColumns(spec ModeSpec, headers []string) (map[string]string, error) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	columns := make(map[string]string, len(spec.Identity))
	var missing []string
	for _, col := range spec.Required {
		switch {
		case present[col]:
			columns[col] = col
		case spec.FirstColumnKey && len(headers) > 0 && strings.EqualFold(headers[0], col):
			columns[col] = headers[0]
		default:
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.InvalidInputf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func (im *Importer) processRow(ctx context.Context, spec ModeSpec, project Project, columns map[string]string,
	skip map[string]bool, headers []string, row excel.RawRowData) (RowResult, time.Duration, bool) {

	var params cms.Params
	identity := make([]string, 0, len(spec.Identity))
	for _, key := range spec.Identity {
		value := row[columns[key]]
		identity = append(identity, key+"="+value)
		if !present(value) {
			return RowResult{
				Identity: strings.Join(identity, " "),
				Status:   RowFailed,
				Message:  fmt.Sprintf("%s is empty", key),
			}, 0, false
		}
		params.Add(key, value)
	}
	result := RowResult{Identity: strings.Join(identity, " ")}

	if spec.Partner {
		params.Add(PartnerParam, project.Code)
	}
	params = append(params, spec.Fixed...)

	fields := 0
	for _, header := range headers {
		if header == "" || skip[strings.ToLower(header)] {
			continue
		}
		value := row[header]
		if !present(value) {
			continue
		}
		params.Add(header, value)
		fields++
	}

	if fields == 0 && !spec.AlwaysSend {
		result.Status = RowSkipped
		result.Message = "no fields to update"
		return result, 0, false
	}

	start := time.Now()
	resp, err := im.gateway.Do(ctx, cms.Request{Path: spec.Path, Encoding: spec.Encoding, Params: params})
	elapsed := time.Since(start)
	result.Elapsed = float64(elapsed) / float64(time.Millisecond)
	if err != nil {
		result.Status = RowFailed
		result.Message = failureMessage(err)
		return result, elapsed, true
	}
	result.Status = RowSucceeded
	result.Message = resp.Msg
	return result, elapsed, true
}

func failureMessage(err error) string {
	var apiErr *cms.APIError
	if stderrors.As(err, &apiErr) {
		return fmt.Sprintf("%s (code %s)", apiErr.Msg, apiErr.Code)
	}
	var statusErr *cms.StatusError
	if stderrors.As(err, &statusErr) {
		return fmt.Sprintf("HTTP %d", statusErr.StatusCode)
	}
	return err.Error()
}

// present reports whether a cell value should be sent: non-blank and not a
// nan/none placeholder.
func present(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "nan", "none":
		return false
	}
	return true
}

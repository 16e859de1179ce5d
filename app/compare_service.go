package app

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"cmskit/domain/sheet"
	"cmskit/internal/errors"
	"cmskit/internal/tagger"
)

// TableReader loads the first sheet of a workbook
type TableReader interface {
	ReadTable(src io.Reader) (*sheet.Table, error)
}

// TableWriter serializes a table to workbook bytes
type TableWriter interface {
	WriteTable(t *sheet.Table) ([]byte, error)
}

// CompareRequest holds the two workbooks and the columns to compare
type CompareRequest struct {
	Input        io.Reader
	Output       io.Reader
	OutputName   string // file name of Output, used for the download name
	InputColumn  int    // 1-based key column of Input
	OutputColumn int    // 1-based probe column of Output
	TagValue     string
	Progress     tagger.ProgressFunc
}

// CompareResult is the tagged workbook with its summary
type CompareResult struct {
	FileName  string
	SheetName string
	Data      []byte
	Stats     tagger.Stats
}

// CompareService tags rows of one workbook whose column value appears in
// another workbook.
type CompareService struct {
	reader TableReader
	writer TableWriter
	tagger *tagger.Tagger
	logger *zap.Logger
}

// NewCompareService creates a compare service
func NewCompareService(reader TableReader, writer TableWriter, logger *zap.Logger) *CompareService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompareService{
		reader: reader,
		writer: writer,
		tagger: tagger.New(logger),
		logger: logger,
	}
}

// Compare reads both workbooks in order, tags the output copy and serializes
// it. Any unreadable input fails the whole comparison.
func (s *CompareService) Compare(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	if req.Input == nil || req.Output == nil {
		return nil, errors.InvalidInput("both input and output workbooks are required")
	}
	start := time.Now()

	input, err := s.reader.ReadTable(req.Input)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read input workbook")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	output, err := s.reader.ReadTable(req.Output)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read output workbook")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := tagger.BuildKeySet(input, req.InputColumn, req.Progress)
	tagged, stats := s.tagger.Tag(output, keys, tagger.Options{
		ProbeColumn: req.OutputColumn,
		TagValue:    req.TagValue,
		Progress:    req.Progress,
	})

	data, name, err := s.Serialize(tagged, req.OutputName)
	if err != nil {
		return nil, err
	}

	s.logger.Info("comparison finished",
		zap.String("file", name),
		zap.Int("input_keys", stats.InputKeyCount),
		zap.Int("distinct_keys", keys.Len()),
		zap.Int("probed_rows", stats.ProbedRowCount),
		zap.Int("matched_rows", stats.MatchedRowCount),
		zap.Duration("elapsed", time.Since(start)))

	return &CompareResult{
		FileName:  name,
		SheetName: tagged.Name,
		Data:      data,
		Stats:     stats,
	}, nil
}

// Serialize writes a tagged table and derives its download name
func (s *CompareService) Serialize(tagged *sheet.Table, suggestedName string) ([]byte, string, error) {
	data, err := s.writer.WriteTable(tagged)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to write tagged workbook")
	}
	return data, tagger.TaggedFileName(suggestedName), nil
}

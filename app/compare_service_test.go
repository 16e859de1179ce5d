package app

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"cmskit/adapters/excel"
	"cmskit/internal/errors"
	"cmskit/internal/testkit"
)

func newService() *CompareService {
	return NewCompareService(excel.NewDataReader(nil), excel.NewDataWriter(nil), zap.NewNop())
}

func TestCompareTagsMatchingRows(t *testing.T) {
	input := testkit.Workbook(t, "keys", []any{"cid"}, []any{"A1"}, []any{"A2"}, []any{"A2"})
	output := testkit.Workbook(t, "待核对",
		[]any{"title", "cid"},
		[]any{"one", "A2"},
		[]any{"two", "B9"},
		[]any{"three", 7},
	)

	var stages []string
	result, err := newService().Compare(context.Background(), CompareRequest{
		Input:        bytes.NewReader(input),
		Output:       bytes.NewReader(output),
		OutputName:   "待核对.xlsx",
		InputColumn:  1,
		OutputColumn: 2,
		TagValue:     "Y",
		Progress: func(stage string, percent float64) {
			if len(stages) == 0 || stages[len(stages)-1] != stage {
				stages = append(stages, stage)
			}
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "待核对_已标记.xlsx", result.FileName)
	assert.Equal(t, "待核对", result.SheetName)
	assert.Equal(t, 3, result.Stats.InputKeyCount)
	assert.Equal(t, 3, result.Stats.ProbedRowCount)
	assert.Equal(t, 1, result.Stats.MatchedRowCount)
	assert.Equal(t, []string{"collecting keys", "tagging rows"}, stages)

	assert.Equal(t, [][]string{
		{"title", "cid", "标记"},
		{"one", "A2", "Y"},
		{"two", "B9"},
		{"three", "7"},
	}, testkit.Rows(t, result.Data, "待核对"))

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer f.Close()
	width, err := f.GetColWidth("待核对", "C")
	require.NoError(t, err)
	assert.Equal(t, 10.0, width)
}

func TestCompareNumericKeysMatchText(t *testing.T) {
	input := testkit.Workbook(t, "Sheet1", []any{"id"}, []any{"12"})
	output := testkit.Workbook(t, "Sheet1", []any{"id"}, []any{12})

	result, err := newService().Compare(context.Background(), CompareRequest{
		Input:        bytes.NewReader(input),
		Output:       bytes.NewReader(output),
		InputColumn:  1,
		OutputColumn: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.MatchedRowCount)
	assert.Equal(t, "output_已标记.xlsx", result.FileName)
}

func TestCompareFailsOnCorruptWorkbook(t *testing.T) {
	good := testkit.Workbook(t, "Sheet1", []any{"id"}, []any{"1"})

	_, err := newService().Compare(context.Background(), CompareRequest{
		Input:        bytes.NewReader(good),
		Output:       bytes.NewReader([]byte("garbage")),
		InputColumn:  1,
		OutputColumn: 1,
	})

	assert.Equal(t, errors.CodeSpreadsheet, errors.GetCode(err))
}

func TestCompareRequiresBothInputs(t *testing.T) {
	_, err := newService().Compare(context.Background(), CompareRequest{InputColumn: 1, OutputColumn: 1})

	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestCompareCopiesStylesAndWidthsAcrossSheet(t *testing.T) {
	const rows = 600
	src := excelize.NewFile()
	values := [][]any{{"cid", "title"}}
	for r := 2; r <= rows; r++ {
		values = append(values, []any{fmt.Sprintf("C%d", r), "t"})
	}
	for i, row := range values {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, src.SetSheetRow("Sheet1", cell, &row))
	}
	shaded, err := src.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFFF00"}},
	})
	require.NoError(t, err)
	require.NoError(t, src.SetCellStyle("Sheet1", "A1", fmt.Sprintf("B%d", rows), shaded))
	require.NoError(t, src.SetColWidth("Sheet1", "B", "B", 42))
	buf, err := src.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, src.Close())

	input := testkit.Workbook(t, "Sheet1", []any{"cid"}, []any{"C2"}, []any{fmt.Sprintf("C%d", rows)})
	result, err := newService().Compare(context.Background(), CompareRequest{
		Input:        bytes.NewReader(input),
		Output:       bytes.NewReader(buf.Bytes()),
		InputColumn:  1,
		OutputColumn: 1,
		TagValue:     "T",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.MatchedRowCount)

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer f.Close()

	width, err := f.GetColWidth("Sheet1", "B")
	require.NoError(t, err)
	assert.Equal(t, 42.0, width)

	want, err := f.GetCellStyle("Sheet1", "A1")
	require.NoError(t, err)
	require.NotZero(t, want)
	for _, cell := range []string{"C1", "C2", fmt.Sprintf("B%d", rows), fmt.Sprintf("C%d", rows)} {
		id, err := f.GetCellStyle("Sheet1", cell)
		require.NoError(t, err)
		assert.Equal(t, want, id, cell)
	}
	style, err := f.GetStyle(want)
	require.NoError(t, err)
	assert.Equal(t, 1, style.Fill.Pattern)
	require.Len(t, style.Fill.Color, 1)
	assert.Contains(t, style.Fill.Color[0], "FFFF00")
}

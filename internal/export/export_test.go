package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"cmskit/adapters/cmsclient"
	"cmskit/adapters/excel"
	"cmskit/domain/cms"
	"cmskit/internal/cmsmock"
	"cmskit/internal/errors"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Do(ctx context.Context, req cms.Request) (*cms.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*cms.Response)
	return resp, args.Error(1)
}

func record(pairs ...any) cms.Record {
	r := cms.NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1])
	}
	return r
}

var fixedDay = time.Date(2024, 7, 1, 3, 0, 0, 0, time.UTC)

func TestParseCIDList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseCIDList(" a \n\n b\r\n  \n"))

	var lines []string
	for i := 0; i < 150; i++ {
		lines = append(lines, fmt.Sprintf("c%d", i))
	}
	got := ParseCIDList(strings.Join(lines, "\n"))
	assert.Len(t, got, MaxCIDs)
	assert.Equal(t, "c99", got[MaxCIDs-1])
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	cases := []Filters{
		{},
		{Source: "nope"},
		{Source: InjectCover, CreatedFrom: "2024/01/01"},
		{Source: InjectCover, TaskStatus: "9"},
		{Source: TotalCover, IsEffective: "yes"},
		{Source: TotalCover, IsFinished: "3"},
	}
	for _, f := range cases {
		_, err := f.Normalize()
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err), "%+v", f)
	}
}

func TestBuildRequestInject(t *testing.T) {
	f, err := Filters{
		Source:      InjectCover,
		Partner:     " bj ",
		Channel:     "少儿",
		CreatedFrom: "2024-01-01",
		TaskStatus:  "other",
		IsOnline:    "1",
		CIDs:        []string{"c1", " ", "c2"},
	}.Normalize()
	require.NoError(t, err)
	src, _ := LookupSource(f.Source)

	req := BuildRequest(src, f, 0)

	assert.Equal(t, "/zinject/inject/cover/list", req.Path)
	assert.Equal(t, cms.EncodingJSON, req.Encoding)
	assert.Equal(t, cms.Params{
		{Key: "channel_name", Value: "少儿"},
		{Key: "offset", Value: 0},
		{Key: "limit", Value: DefaultLimit},
		{Key: "partner_code", Value: "bj"},
		{Key: "c_start_time", Value: "2024-01-01 00:00:00"},
		{Key: "c_end_time", Value: ""},
		{Key: "m_start_time", Value: ""},
		{Key: "m_end_time", Value: ""},
		{Key: "task_status", Value: "-1"},
		{Key: "is_online", Value: "1"},
		{Key: "cid_list", Value: []string{"c1", "c2"}},
	}, req.Params)
}

func TestBuildRequestTotalCover(t *testing.T) {
	f := Filters{Source: TotalCover, Partner: "bj", IsEffective: "1", Batch: "240626", CreatedTo: "2024-02-01"}
	src, _ := LookupSource(TotalCover)

	req := BuildRequest(src, f, 50)

	assert.Equal(t, []string{"channel_name", "offset", "limit", "is_effective", "batch"}, req.Params.Keys())
	limit, _ := req.Params.Get("limit")
	assert.Equal(t, 50, limit)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		want    string
	}{
		{
			name:    "inject with labels",
			filters: Filters{Source: InjectCover, Partner: "bj", Channel: "少儿", TaskStatus: "1", IsOnline: "0", CreatedFrom: "2024-01-01", CreatedTo: "2024-01-31"},
			want:    "注入库剧头数据_bj_少儿_待注入_下线_创建2024-01-01至2024-01-31_2024-07-01.xlsx",
		},
		{
			name:    "total cover ignores partner",
			filters: Filters{Source: TotalCover, Partner: "bj", IsEffective: "0", M4Status: "1", M8Status: "0", IsFinished: "2", Batch: "241212"},
			want:    "总库专辑数据_无效_4M有效_8M无效_完整性完整_批次7_2024-07-01.xlsx",
		},
		{
			name:    "cid count and modified range",
			filters: Filters{Source: ProjectVideo, Partner: "nx", CIDs: []string{"a", "b", "c"}, ModifiedTo: "2024-03-01"},
			want:    "项目库子集数据_nx_3个CID_修改至2024-03-01_2024-07-01.xlsx",
		},
		{
			name:    "unknown batch keeps code",
			filters: Filters{Source: TotalCover, Batch: "250101"},
			want:    "总库专辑数据_250101_2024-07-01.xlsx",
		},
		{
			name:    "project source drops inject labels",
			filters: Filters{Source: ProjectCover, TaskStatus: "5", ModifiedFrom: "2024-03-01"},
			want:    "项目库专辑数据_修改2024-03-01_2024-07-01.xlsx",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := LookupSource(tt.filters.Source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FileName(src, tt.filters, fixedDay))
		})
	}
}

func TestReshapeProjectCover(t *testing.T) {
	sheet := Reshape(Filters{Source: ProjectCover}, []cms.Record{
		record("m_time", "2024-01-02", "cid", "c1", "title", "片名", "is_online", 0.0, "task_status", 5.0, "extra", "dropped"),
		record("cid", "c2", "is_online", false, "channel_name", nil),
	})

	assert.Equal(t, projectCoverFields, sheet.Headers)
	assert.Equal(t, projectCoverWidths, sheet.Widths)
	assert.Equal(t, []any{"c1", "片名", "", "", 5.0, "", "2024-01-02"}, sheet.Rows[0])
	assert.Equal(t, []any{"c2", "", "", "", "", "", ""}, sheet.Rows[1])
}

func TestReshapeProjectVideoOptionalColumns(t *testing.T) {
	f := Filters{Source: ProjectVideo, IncludeInjectIDs: true, IncludeInjectTimes: true}

	sheet := Reshape(f, []cms.Record{record("cid", "c1", "series_id", "s1", "inject_receive_time", "t")})

	assert.Len(t, sheet.Headers, 13)
	assert.Equal(t, "series_id", sheet.Headers[8])
	assert.Equal(t, "inject_receive_time", sheet.Headers[12])
	assert.Len(t, sheet.Widths, 13)
	assert.Equal(t, "s1", sheet.Rows[0][8])
	assert.Equal(t, "t", sheet.Rows[0][12])

	plain := Reshape(Filters{Source: ProjectVideo}, nil)
	assert.Equal(t, projectVideoFields, plain.Headers)
}

func TestReshapePassthroughKeepsFirstAppearanceOrder(t *testing.T) {
	sheet := Reshape(Filters{Source: TotalCover}, []cms.Record{
		record("id", 1.0, "cid", "c1", "is_online", 0.0),
		record("cid", "c2", "tags", []any{"a", "b"}, "id", 2.0),
	})

	assert.Equal(t, []string{"id", "cid", "is_online", "tags"}, sheet.Headers)
	assert.Equal(t, []any{1.0, "c1", 0.0, nil}, sheet.Rows[0])
	assert.Equal(t, []any{2.0, "c2", nil, `["a","b"]`}, sheet.Rows[1])
	assert.Equal(t, defaultWidths, sheet.Widths)
}

func TestExport(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Do", mock.Anything, mock.MatchedBy(func(r cms.Request) bool {
		return r.Path == "/query/project/cover/list"
	})).Return(&cms.Response{
		Code:  cms.SuccessCode,
		Total:   2500,
		Rows:    []cms.Record{record("cid", "c1", "title", "一"), record("cid", "c2", "title", "二")},
		HasRows: true,
	}, nil)

	exporter := NewExporter(gw, excel.NewDataWriter(nil), 0, zap.NewNop())
	exporter.now = func() time.Time { return fixedDay }

	result, err := exporter.Export(context.Background(), Filters{Source: ProjectCover, Partner: "bj"})
	require.NoError(t, err)

	assert.Equal(t, "项目库专辑数据_bj_2024-07-01.xlsx", result.FileName)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, int64(2500), result.Total)
	assert.True(t, result.Truncated)
	assert.Contains(t, result.Note, "2500")

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, projectCoverFields, rows[0])
	assert.Equal(t, []string{"c2", "二"}, rows[2])
	gw.AssertExpectations(t)
}

func TestExportEmptyResult(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Do", mock.Anything, mock.Anything).Return(&cms.Response{Code: cms.SuccessCode, HasRows: true}, nil)
	exporter := NewExporter(gw, excel.NewDataWriter(nil), 10, nil)

	_, err := exporter.Export(context.Background(), Filters{Source: InjectVideo})

	assert.Equal(t, errors.CodeEmptyResult, errors.GetCode(err))
}

func TestExportRejectsReplyWithoutRows(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Do", mock.Anything, mock.Anything).Return(&cms.Response{Code: cms.SuccessCode, Total: 3}, nil)
	exporter := NewExporter(gw, excel.NewDataWriter(nil), 10, nil)

	_, err := exporter.Export(context.Background(), Filters{Source: InjectVideo})

	assert.Equal(t, errors.CodeMalformedResponse, errors.GetCode(err))
}

func TestExportPropagatesGatewayErrors(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Do", mock.Anything, mock.Anything).Return(nil, errors.ExternalServiceError("cms", &cms.APIError{Code: "B1", Msg: "denied"}))
	exporter := NewExporter(gw, excel.NewDataWriter(nil), 10, nil)

	_, err := exporter.Export(context.Background(), Filters{Source: TotalCover})

	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
	assert.Contains(t, err.Error(), "denied")
}

func TestExportAgainstMockCMS(t *testing.T) {
	mockCMS := cmsmock.New(false)
	mockCMS.Seed("/zinject/inject/video/list", 0,
		`{"id":1,"cid":"c1","vid":"v1","task_status":5}`,
		`{"id":2,"cid":"c2","vid":"v2","task_status":1}`,
		`{"id":3,"cid":"c3","vid":"v3","task_status":1}`)
	srv := httptest.NewServer(mockCMS)
	defer srv.Close()

	client := cmsclient.NewClient(cmsclient.Config{BaseURL: srv.URL}, nil, nil)
	exporter := NewExporter(client, excel.NewDataWriter(nil), 2, nil)

	result, err := exporter.Export(context.Background(), Filters{Source: InjectVideo, Partner: "fj", CIDs: []string{"c1", "c3"}})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	assert.False(t, result.Truncated)
	calls := mockCMS.CallsTo("/zinject/inject/video/list")
	require.Len(t, calls, 1)
	assert.Equal(t, "fj", calls[0].JSON("partner_code").String())
	assert.Equal(t, int64(2), calls[0].JSON("limit").Int())
	assert.Equal(t, 2, len(calls[0].JSON("cid_list").Array()))
}

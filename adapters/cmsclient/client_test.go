package cmsclient

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cmskit/domain/cms"
	"cmskit/internal/cmsmock"
	"cmskit/internal/errors"
)

type staticCookie string

func (c staticCookie) Load(context.Context) (string, error) { return string(c), nil }

type failingCookie struct{}

func (failingCookie) Load(context.Context) (string, error) {
	return "", stderrors.New("disk gone")
}

func newTestClient(t *testing.T, cookie string) (*Client, *cmsmock.Server) {
	t.Helper()
	mock := cmsmock.New(false)
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, staticCookie(cookie), zap.NewNop()), mock
}

func TestDoQueryEncoding(t *testing.T) {
	client, mock := newTestClient(t, `_enj="x"`)

	resp, err := client.Do(context.Background(), cms.Request{
		Path:     "/api/media/edit",
		Encoding: cms.EncodingQuery,
		Params:   cms.Params{{Key: "cid", Value: "c 1"}, {Key: "vid", Value: "v&2"}, {Key: "rate", Value: 4}},
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].Method)
	assert.Equal(t, "cid=c+1&vid=v%262&rate=4", calls[0].RawQuery)
	assert.Equal(t, "v&2", calls[0].Query.Get("vid"))
	assert.Equal(t, `_enj="x"`, calls[0].Header.Get("Cookie"))
	assert.Equal(t, client.BaseURL(), calls[0].Header.Get("Origin"))
	assert.Equal(t, client.BaseURL()+"/", calls[0].Header.Get("Referer"))
	assert.Equal(t, "application/json, text/plain, */*", calls[0].Header.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, calls[0].Header.Get("User-Agent"))
}

func TestDoRawQueryKeepsValuesVerbatim(t *testing.T) {
	client, mock := newTestClient(t, "")

	_, err := client.Do(context.Background(), cms.Request{
		Path:     "/api/cover/master_edit",
		Encoding: cms.EncodingRawQuery,
		Params:   cms.Params{{Key: "cid", Value: "abc"}, {Key: "pic", Value: "http://img/a.jpg"}, {Key: "title", Value: "海 报"}},
	})
	require.NoError(t, err)

	call := mock.Calls()[0]
	assert.Equal(t, "cid=abc&pic=http://img/a.jpg&title=%E6%B5%B7%20%E6%8A%A5", call.RawQuery)
	assert.Equal(t, "海 报", call.Query.Get("title"))
	assert.Empty(t, call.Header.Get("Cookie"))
}

func TestDoJSONKeepsParamOrder(t *testing.T) {
	client, mock := newTestClient(t, "c")

	_, err := client.Do(context.Background(), cms.Request{
		Path:     "/api/project/cover/edit",
		Encoding: cms.EncodingJSON,
		Params:   cms.Params{{Key: "cid", Value: "c1"}, {Key: "partner_code", Value: "bj"}, {Key: "task_status", Value: 1}},
	})
	require.NoError(t, err)

	call := mock.Calls()[0]
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "application/json", call.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"cid":"c1","partner_code":"bj","task_status":1}`, string(call.Body))
	assert.Equal(t, `{"cid":"c1","partner_code":"bj","task_status":1}`, string(call.Body))
}

func TestDoParsesListRowsInOrder(t *testing.T) {
	client, mock := newTestClient(t, "c")
	mock.Seed("/query/cover/list", 1500,
		`{"cid":"c1","title":"一","rate":8.5,"is_online":1}`,
		`{"title":"二","cid":"c2","extra":null}`)

	resp, err := client.Do(context.Background(), cms.Request{
		Path:     "/query/cover/list",
		Encoding: cms.EncodingJSON,
		Params:   cms.Params{{Key: "offset", Value: 0}, {Key: "limit", Value: 1000}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1500), resp.Total)
	assert.True(t, resp.HasRows)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, []string{"cid", "title", "rate", "is_online"}, resp.Rows[0].Keys)
	assert.Equal(t, 8.5, resp.Rows[0].Get("rate"))
	assert.Equal(t, []string{"title", "cid", "extra"}, resp.Rows[1].Keys)
	assert.Nil(t, resp.Rows[1].Get("extra"))
}

func TestParseResponseRowsPresence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"empty array", `{"code":"A000000","rows":[]}`, true},
		{"missing", `{"code":"A000000","total":4}`, false},
		{"not an array", `{"code":"A000000","rows":{"cid":"c1"}}`, false},
		{"null", `{"code":"A000000","rows":null}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := parseResponse([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.HasRows)
			assert.Empty(t, resp.Rows)
		})
	}
}

func TestDoErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply *cmsmock.Reply
		code  string
		check func(t *testing.T, err error)
	}{
		{
			name:  "api error",
			reply: &cmsmock.Reply{Body: `{"code":"B000002","msg":"cid not found"}`},
			code:  errors.CodeExternalService,
			check: func(t *testing.T, err error) {
				var apiErr *cms.APIError
				require.True(t, stderrors.As(err, &apiErr))
				assert.Equal(t, "B000002", apiErr.Code)
				assert.Equal(t, "cid not found", apiErr.Msg)
			},
		},
		{
			name:  "http status",
			reply: &cmsmock.Reply{Status: http.StatusBadGateway, Body: "upstream down"},
			code:  errors.CodeExternalService,
			check: func(t *testing.T, err error) {
				var statusErr *cms.StatusError
				require.True(t, stderrors.As(err, &statusErr))
				assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
				assert.Equal(t, "upstream down", statusErr.Body)
			},
		},
		{
			name:  "not json",
			reply: &cmsmock.Reply{Body: "<html>login</html>"},
			code:  errors.CodeMalformedResponse,
		},
		{
			name:  "json array",
			reply: &cmsmock.Reply{Body: `[1,2]`},
			code:  errors.CodeMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := newTestClient(t, "c")
			mock.Respond(func(cmsmock.Call) *cmsmock.Reply { return tt.reply })

			_, err := client.Do(context.Background(), cms.Request{Path: "/api/video/edit", Encoding: cms.EncodingJSON})

			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestDoRejectedCookie(t *testing.T) {
	client, mock := newTestClient(t, "wrong")
	mock.RequireCookie("right")

	_, err := client.Do(context.Background(), cms.Request{Path: "/api/video/edit", Encoding: cms.EncodingJSON})

	var apiErr *cms.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, "B000401", apiErr.Code)
}

func TestDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}, nil, nil)

	_, err := client.Do(context.Background(), cms.Request{Path: "/api/video/edit"})

	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
}

func TestDoCookieLoadFailure(t *testing.T) {
	client := NewClient(Config{}, failingCookie{}, nil)

	_, err := client.Do(context.Background(), cms.Request{Path: "/api/video/edit"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestConfigDefaults(t *testing.T) {
	client := NewClient(Config{}, nil, nil)

	assert.Equal(t, DefaultBaseURL, client.BaseURL())
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
}

func TestRequote(t *testing.T) {
	assert.Equal(t, "a=b&c/d:e", requote("a=b&c/d:e"))
	assert.Equal(t, "%20%22%7B%7D", requote(` "{}`))
	assert.Equal(t, "%C3%A9", requote("é"))
}

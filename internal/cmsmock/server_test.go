package cmsmock

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func serve(s *Server, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestEditCallsAreRecorded(t *testing.T) {
	s := New(false)

	rec := serve(s, http.MethodGet, "/api/media/edit?cid=c1&vid=v1", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A000000", gjson.Get(rec.Body.String(), "code").String())
	calls := s.CallsTo("/api/media/edit")
	require.Len(t, calls, 1)
	assert.Equal(t, "c1", calls[0].Param("cid"))

	s.Reset()
	assert.Empty(t, s.Calls())
}

func TestListFiltersAndLimits(t *testing.T) {
	s := New(false)
	s.Seed("/query/cover/list", 0, `{"cid":"a"}`, `{"cid":"b"}`, `{"cid":"c"}`)

	rec := serve(s, http.MethodPost, "/query/cover/list", `{"limit":2}`, nil)
	body := rec.Body.String()
	assert.Equal(t, int64(3), gjson.Get(body, "total").Int())
	assert.Len(t, gjson.Get(body, "rows").Array(), 2)

	rec = serve(s, http.MethodPost, "/query/cover/list", `{"cid_list":["c","x"]}`, nil)
	body = rec.Body.String()
	assert.Equal(t, int64(1), gjson.Get(body, "total").Int())
	assert.Equal(t, "c", gjson.Get(body, "rows.0.cid").String())
}

func TestRequireCookie(t *testing.T) {
	s := New(false)
	s.RequireCookie("sid=1")

	rec := serve(s, http.MethodGet, "/api/cover/master_edit?cid=x", "", nil)
	assert.Equal(t, "B000401", gjson.Get(rec.Body.String(), "code").String())

	rec = serve(s, http.MethodGet, "/api/cover/master_edit?cid=x", "", map[string]string{"Cookie": "sid=1"})
	assert.Equal(t, "A000000", gjson.Get(rec.Body.String(), "code").String())
}

func TestRespondOverrides(t *testing.T) {
	s := New(false)
	s.Respond(func(c Call) *Reply {
		if c.Param("cid") == "bad" {
			return &Reply{Status: http.StatusInternalServerError, Body: "oops"}
		}
		return nil
	})

	assert.Equal(t, http.StatusInternalServerError, serve(s, http.MethodGet, "/api/x?cid=bad", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/x?cid=ok", "", nil).Code)
}

func TestSeedFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "rows.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{"cid":"a"},{"cid":"b"}]`), 0o644))
	notArray := filepath.Join(dir, "obj.json")
	require.NoError(t, os.WriteFile(notArray, []byte(`{"cid":"a"}`), 0o644))

	s := New(false)
	path, n, err := SeedFile(s, "query/cover/list="+good)
	require.NoError(t, err)
	assert.Equal(t, "/query/cover/list", path)
	assert.Equal(t, 2, n)
	rec := serve(s, http.MethodPost, "/query/cover/list", `{}`, nil)
	assert.Len(t, gjson.Get(rec.Body.String(), "rows").Array(), 2)

	for _, spec := range []string{"no-equals", "/p=" + filepath.Join(dir, "absent.json"), "/p=" + notArray} {
		_, _, err := SeedFile(s, spec)
		assert.Error(t, err, spec)
	}
}

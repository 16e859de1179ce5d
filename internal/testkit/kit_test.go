package testkit

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkbookRoundTrip(t *testing.T) {
	data := Workbook(t, "数据", []any{"cid", "n"}, []any{"A1", 3})

	assert.Equal(t, [][]string{{"cid", "n"}, {"A1", "3"}}, Rows(t, data, "数据"))
}

func TestWorkbookFile(t *testing.T) {
	path := WorkbookFile(t, t.TempDir(), "in.xlsx", []any{"x"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "in.xlsx", filepath.Base(path))
	assert.Equal(t, [][]string{{"x"}}, Rows(t, data, "Sheet1"))
}

func TestNewCMSServes(t *testing.T) {
	cms := NewCMS(t)

	resp, err := http.Get(cms.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConfigIsIsolatedPerTest(t *testing.T) {
	cfg := Config(t, "http://cms.test")

	assert.Contains(t, cfg.Credential.URL, "TestConfigIsIsolatedPerTest")
	assert.Equal(t, "http://cms.test", cfg.CMS.BaseURL)
	assert.Positive(t, cfg.Server.MaxJobs)
}

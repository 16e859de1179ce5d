// Package testkit provides fixtures shared by package tests: in-memory
// workbooks, a running mock CMS and a ready configuration pointing at it.
package testkit

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cmskit/internal/cmsmock"
	"cmskit/internal/config"
)

// Workbook builds an xlsx with one sheet holding rows from A1 down
func Workbook(t testing.TB, sheet string, rows ...[]any) []byte {
	t.Helper()
	f := newFile(t, sheet, rows)
	defer f.Close()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// WorkbookFile is Workbook saved as dir/name; it returns the path
func WorkbookFile(t testing.TB, dir, name string, rows ...[]any) string {
	t.Helper()
	f := newFile(t, "Sheet1", rows)
	defer f.Close()
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func newFile(t testing.TB, sheet string, rows [][]any) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}
	return f
}

// Rows reads back every row of one sheet of an xlsx
func Rows(t testing.TB, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

// CMS is a mock CMS served over HTTP for the lifetime of a test
type CMS struct {
	*cmsmock.Server
	URL string
}

// NewCMS starts a mock CMS and stops it when the test ends
func NewCMS(t testing.TB) *CMS {
	t.Helper()
	mock := cmsmock.New(false)
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)
	return &CMS{Server: mock, URL: srv.URL}
}

// CredentialURL is an in-memory cookie location unique to the test
func CredentialURL(t testing.TB) string {
	return "mem://localhost/testkit/" + strings.ReplaceAll(t.Name(), "/", "_") + "/cookie"
}

// Config returns a valid configuration aimed at baseURL with the cookie kept
// in memory.
func Config(t testing.TB, baseURL string) *config.Config {
	return &config.Config{
		CMS:        config.CMSConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
		Credential: config.CredentialConfig{URL: CredentialURL(t)},
		Server:     config.ServerConfig{Port: "0", GinMode: "test", MaxJobs: 1},
		Log:        config.LogConfig{Level: "info"},
		Export:     config.ExportConfig{Limit: 1000},
	}
}

package container

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cmskit/adapters/cmsclient"
	"cmskit/internal/batch"
	"cmskit/internal/export"
	"cmskit/internal/testkit"
)

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestContainerWiresCookieIntoCMSCalls(t *testing.T) {
	cms := testkit.NewCMS(t)
	cms.RequireCookie("sid=live")
	cms.Seed("/query/cover/list", 1, `{"cid":"c1","title":"one"}`)

	c, err := New(testkit.Config(t, cms.URL), zap.NewNop())
	require.NoError(t, err)
	defer c.Shutdown(context.Background())

	ctx := context.Background()
	require.NoError(t, c.Credentials.Save(ctx, "sid=live"))

	result, err := c.Exporter.Export(ctx, export.Filters{Source: export.TotalCover})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	require.NotEmpty(t, cms.Calls())
	assert.Equal(t, cmsclient.DefaultUserAgent, cms.Calls()[0].Header.Get("User-Agent"))

	rows := testkit.Workbook(t, "Sheet1", []any{"cid", "title"}, []any{"c1", "renamed"})
	report, err := c.Importer.Import(ctx, bytes.NewReader(rows), batch.Options{Mode: batch.MasterAlbum})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Len(t, cms.CallsTo("/api/cover/master_edit"), 1)
}

func TestContainerRejectedCookieFailsRows(t *testing.T) {
	cms := testkit.NewCMS(t)
	cms.RequireCookie("sid=live")

	c, err := New(testkit.Config(t, cms.URL), nil)
	require.NoError(t, err)

	rows := testkit.Workbook(t, "Sheet1", []any{"cid", "title"}, []any{"c1", "renamed"})
	report, err := c.Importer.Import(context.Background(), bytes.NewReader(rows), batch.Options{Mode: batch.MasterAlbum})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Rows[0].Message, "B000401")
}

func TestContainerUserAgentOverride(t *testing.T) {
	cms := testkit.NewCMS(t)
	cms.Seed("/query/cover/list", 1, `{"cid":"c1"}`)
	cfg := testkit.Config(t, cms.URL)
	cfg.CMS.UserAgent = "ops-sync/2"

	c, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = c.Exporter.Export(context.Background(), export.Filters{Source: export.TotalCover})
	require.NoError(t, err)
	require.Len(t, cms.Calls(), 1)
	assert.Equal(t, "ops-sync/2", cms.Calls()[0].Header.Get("User-Agent"))
}

package ui

import (
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cmskit/adapters/excel"
	"cmskit/app"
	"cmskit/internal/batch"
	"cmskit/internal/errors"
	"cmskit/internal/export"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// credentialBody is the PUT /api/credential payload
type credentialBody struct {
	Cookie string `json:"cookie"`
}

func (s *Server) handleGetCredential(c *gin.Context) {
	ctx := c.Request.Context()
	cookie, err := s.c.Credentials.Load(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	stored, err := s.c.Credentials.Stored(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cookie": cookie,
		"stored": stored,
		"url":    s.c.Credentials.URL(),
	})
}

func (s *Server) handleSaveCredential(c *gin.Context) {
	var body credentialBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, errors.InvalidInput("body must be {\"cookie\": \"...\"}"))
		return
	}
	if err := s.c.Credentials.Save(c.Request.Context(), body.Cookie); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetCredential(c *gin.Context) {
	if err := s.c.Credentials.Reset(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleProjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"projects": batch.Projects()})
}

func (s *Server) handleModes(c *gin.Context) {
	modes := make([]gin.H, 0, len(batch.Modes()))
	for _, m := range batch.Modes() {
		modes = append(modes, gin.H{
			"mode":     m.Mode,
			"label":    m.Label,
			"path":     m.Path,
			"required": m.Required,
			"partner":  m.Partner,
		})
	}
	c.JSON(http.StatusOK, gin.H{"modes": modes})
}

func (s *Server) handleSources(c *gin.Context) {
	sources := make([]gin.H, 0, len(export.Sources()))
	for _, src := range export.Sources() {
		sources = append(sources, gin.H{
			"source":  src.Source,
			"path":    src.Path,
			"prefix":  src.Prefix,
			"partner": src.Source.Partnered(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (s *Server) handleCompare(c *gin.Context) {
	inputColumn, err := positiveInt(c.PostForm("input_column"), "input_column")
	if err != nil {
		s.respondError(c, err)
		return
	}
	outputColumn, err := positiveInt(c.PostForm("output_column"), "output_column")
	if err != nil {
		s.respondError(c, err)
		return
	}
	input, _, err := formFile(c, "input")
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer input.Close()
	output, outputHeader, err := formFile(c, "output")
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer output.Close()

	result, err := s.c.Compare.Compare(c.Request.Context(), app.CompareRequest{
		Input:        input,
		Output:       output,
		OutputName:   outputHeader.Filename,
		InputColumn:  inputColumn,
		OutputColumn: outputColumn,
		TagValue:     c.PostForm("tag_value"),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("X-Input-Keys", strconv.Itoa(result.Stats.InputKeyCount))
	c.Header("X-Probed-Rows", strconv.Itoa(result.Stats.ProbedRowCount))
	c.Header("X-Matched-Rows", strconv.Itoa(result.Stats.MatchedRowCount))
	attachment(c, result.FileName, result.Data)
}

func (s *Server) handleImport(c *gin.Context) {
	file, header, err := formFile(c, "file")
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer file.Close()

	opts := batch.Options{
		Mode:    batch.Mode(strings.TrimSpace(c.PostForm("mode"))),
		Project: c.PostForm("project"),
		Sheet:   strings.TrimSpace(c.PostForm("sheet")),
	}
	s.logger.Info("import requested",
		zap.String("file", header.Filename),
		zap.String("mode", string(opts.Mode)),
		zap.String("project", opts.Project))

	report, err := s.c.Importer.Import(c.Request.Context(), file, opts)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleExport(c *gin.Context) {
	var filters export.Filters
	if err := c.ShouldBindJSON(&filters); err != nil {
		s.respondError(c, errors.InvalidInput("invalid export filters: "+err.Error()))
		return
	}

	result, err := s.c.Exporter.Export(c.Request.Context(), filters)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("X-Export-Count", strconv.Itoa(result.Count))
	c.Header("X-Export-Total", strconv.FormatInt(result.Total, 10))
	if result.Truncated {
		c.Header("X-Export-Truncated", "true")
	}
	attachment(c, result.FileName, result.Data)
}

func positiveInt(raw, field string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, errors.InvalidInputf("%s must be a positive column number, got %q", field, raw)
	}
	return n, nil
}

func formFile(c *gin.Context, field string) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return nil, nil, errors.InvalidInputf("missing upload %q", field)
	}
	return file, header, nil
}

// attachment sends an xlsx download; non-ASCII names go out RFC 2231 encoded
func attachment(c *gin.Context, fileName string, data []byte) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	c.Data(http.StatusOK, excel.ContentType, data)
}

package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cmskit/adapters/cmsclient"
	"cmskit/adapters/credential"
	"cmskit/adapters/excel"
	"cmskit/app"
	"cmskit/internal/batch"
	"cmskit/internal/config"
	"cmskit/internal/export"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	Credentials *credential.Store
	CMS         *cmsclient.Client
	Reader      *excel.DataReader
	Writer      *excel.DataWriter

	// Services
	Compare  *app.CompareService
	Importer *batch.Importer
	Exporter *export.Exporter
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}
	c.initInfrastructure()
	c.initServices()

	logger.Info("container initialized",
		zap.String("cms", c.CMS.BaseURL()),
		zap.String("credential", c.Credentials.URL()))
	return c, nil
}

// initInfrastructure initializes storage, the CMS gateway and workbook I/O
func (c *Container) initInfrastructure() {
	c.Credentials = credential.NewStore(c.Config.Credential.URL, c.Config.Credential.Default,
		c.Logger.Named("credential"))
	c.CMS = cmsclient.NewClient(cmsclient.Config{
		BaseURL:   c.Config.CMS.BaseURL,
		Timeout:   c.Config.CMS.Timeout,
		UserAgent: c.Config.CMS.UserAgent,
	}, c.Credentials, c.Logger.Named("cms"))
	c.Reader = excel.NewDataReader(c.Logger.Named("excel"))
	c.Writer = excel.NewDataWriter(c.Logger.Named("excel"))
}

// initServices initializes the compare, import and export services
func (c *Container) initServices() {
	c.Compare = app.NewCompareService(c.Reader, c.Writer, c.Logger.Named("compare"))
	c.Importer = batch.NewImporter(c.CMS, c.Reader, c.Logger.Named("import"))
	c.Exporter = export.NewExporter(c.CMS, c.Writer, c.Config.Export.Limit, c.Logger.Named("export"))
}

// Shutdown flushes buffered log entries
func (c *Container) Shutdown(ctx context.Context) error {
	// Sync on a terminal stderr reports ENOTTY; nothing is lost
	_ = c.Logger.Sync()
	return ctx.Err()
}

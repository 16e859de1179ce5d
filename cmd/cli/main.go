package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cmskit/internal/config"
	"cmskit/internal/container"
	"cmskit/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries state shared by every subcommand
type cli struct {
	verbose bool
	c       *container.Container
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	rootCmd := &cobra.Command{
		Use:           "cmskit",
		Short:         "Operator toolkit for the CMS: cookie, compare, import, export",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.c != nil {
				_ = app.c.Shutdown(context.Background())
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newCookieCmd(app),
		newCompareCmd(app),
		newImportCmd(app),
		newExportCmd(app),
		newProjectsCmd(),
	)
	return rootCmd
}

func (a *cli) init() error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Development)
	if err != nil {
		return err
	}
	a.c, err = container.New(cfg, logger)
	if err != nil {
		return err
	}
	logger.Debug("cli ready", zap.String("cms", cfg.CMS.BaseURL))
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cmskit/internal/cmsmock"
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

func newRootCmd() *cobra.Command {
	var addr, cookie string
	var seeds []string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "mockcms",
		Short: "Run an in-memory CMS for local dry runs",
		Long: `Serve the CMS edit and list endpoints from memory. Edit calls always succeed;
list calls return the rows seeded with --seed.

Example: mockcms --addr :9090 --seed /query/cover/list=covers.json --cookie sid=dev`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New("info", true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			mock := cmsmock.New(verbose)
			if cookie != "" {
				mock.RequireCookie(cookie)
			}
			for _, seed := range seeds {
				path, n, err := cmsmock.SeedFile(mock, seed)
				if err != nil {
					return err
				}
				logger.Info("seeded", zap.String("path", path), zap.Int("rows", n))
			}
			return serve(cmd.Context(), logger, addr, mock)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9090", "Listen address")
	cmd.Flags().StringVar(&cookie, "cookie", "", "Reject calls without exactly this Cookie header")
	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "List rows as path=file.json, the file holding a JSON array (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every request")

	return cmd
}

func serve(ctx context.Context, logger *zap.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock cms listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

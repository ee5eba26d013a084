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
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/keyboarding/internal/config"
	"github.com/verte-zerg/keyboarding/internal/logging"
	"github.com/verte-zerg/keyboarding/internal/store"
	"github.com/verte-zerg/keyboarding/internal/submit"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the score endpoint",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", config.DefaultServerAddr, "listen address")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd, func(fc *config.FileConfig) {
		applyStringConfig(cmd, "addr", &serveAddr, fc.Server.Addr)
		fc.Server.Addr = &serveAddr
	})
	if err != nil {
		return err
	}
	logger, err := newLogger(settings, os.Stderr)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	st, err := store.Open(config.DefaultServerDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeQuietly(st, "db")

	srv := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           submit.NewServer(st, settings.Server.RequiredAssessments, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("score server listening",
			zap.String("addr", srv.Addr),
			zap.Strings("required", settings.Server.RequiredAssessments))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("score server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claim-comments/internal/handler"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC comment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	handlers := handler.NewHandlers(a.services, version, a.log)
	server := handler.NewApp(handlers, handler.AppConfig{
		CORSOrigins:    a.cfg.CORSOrigins,
		AdminJWTSecret: a.cfg.AdminJWTSecret,
		Services:       a.services,
	}, a.log)

	backupCtx, cancelBackup := context.WithCancel(context.Background())
	backupDone := make(chan struct{})
	go func() {
		defer close(backupDone)
		if err := a.services.Backup.Run(backupCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("backup routine stopped", zap.Error(err))
		}
	}()

	listenErr := make(chan error, 1)
	go func() {
		a.log.Info("server starting", zap.String("addr", a.cfg.Addr()), zap.String("version", version))
		listenErr <- server.Listen(a.cfg.Addr())
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
	case err = <-listenErr:
		a.log.Error("server stopped", zap.Error(err))
	}

	if shutdownErr := server.ShutdownWithTimeout(a.cfg.ShutdownTimeout); shutdownErr != nil {
		a.log.Warn("http shutdown", zap.Error(shutdownErr))
	}

	cancelBackup()
	<-backupDone

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancelDrain()
	if closeErr := a.services.Close(drainCtx); closeErr != nil {
		a.log.Warn("pending work abandoned", zap.Error(closeErr))
	}

	return err
}

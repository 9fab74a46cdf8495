package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claim-comments/internal/config"
	"claim-comments/internal/metrics"
	"claim-comments/internal/pkg/i18n"
	"claim-comments/internal/service"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "claim-comments",
		Short:        "Comment server for content claims",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(serveCommand(), backupCommand())
	return root
}

// app holds everything opened at startup that must be closed on exit.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	writer   *sqlx.DB
	reader   *sqlx.DB
	redis    *redis.Client
	services *service.Services
}

// bootstrap opens the databases and wires the services. withRemote controls
// whether the optional Redis and MinIO backends are connected.
func bootstrap(ctx context.Context, withRemote bool) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	if err := i18n.Load(); err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	a := &app{cfg: cfg, log: logger}

	a.writer, err = config.NewSQLiteWriter(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open writer connection: %w", err)
	}
	if err := config.SetupSchema(ctx, a.writer, cfg.DatabasePath, logger); err != nil {
		a.close()
		return nil, err
	}
	a.reader, err = config.NewSQLiteReader(cfg.DatabasePath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open reader connection: %w", err)
	}

	deps := service.Deps{Reader: a.reader, Writer: a.writer, Metrics: m, Log: logger}
	if withRemote {
		if a.redis, err = config.NewRedisClient(ctx, cfg); err != nil {
			logger.Warn("redis unavailable, listing cache disabled", zap.Error(err))
			a.redis = nil
		}
		deps.Redis = a.redis

		minioClient, err := config.NewMinIOClient(ctx, cfg, logger)
		if err != nil {
			logger.Warn("minio unavailable, backups stay local", zap.Error(err))
		}
		deps.MinIO = minioClient
	}

	a.services = service.NewServices(cfg, deps)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.reader != nil {
		_ = a.reader.Close()
	}
	if a.writer != nil {
		_ = a.writer.Close()
	}
	_ = a.log.Sync()
}

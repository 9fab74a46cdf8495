package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"claim-comments/internal/config"
	"claim-comments/internal/metrics"
	"claim-comments/internal/pkg/signature"
	"claim-comments/internal/repository"
	"claim-comments/internal/service/backup"
	"claim-comments/internal/service/claim"
	"claim-comments/internal/service/comment"
	"claim-comments/internal/service/email"
	"claim-comments/internal/service/jobs"
	"claim-comments/internal/service/notification"
)

type Services struct {
	Comment      comment.Service
	Backup       *backup.Routine
	Executor     *jobs.Executor
	Notification notification.Service
	Metrics      *metrics.Metrics
}

type Deps struct {
	Reader  *sqlx.DB
	Writer  *sqlx.DB
	Redis   *redis.Client
	MinIO   *minio.Client
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

func NewServices(cfg *config.Config, d Deps) *Services {
	repos := repository.NewRepositories(d.Reader, d.Writer)

	executor := jobs.NewExecutor(jobs.Config{
		Limit:        cfg.WriteConcurrency,
		PendingLimit: cfg.WritePendingLimit,
	}, d.Log, d.Metrics)

	resolver := claim.NewClient(claim.Config{
		URL:     cfg.ClaimResolverURL,
		Timeout: cfg.ClaimResolverTimeout,
	}, &http.Client{}, d.Log, d.Metrics)

	commentService := comment.NewService(
		repos,
		resolver,
		signature.NewVerifier(d.Log),
		executor,
		d.Redis,
		comment.Config{CacheTTL: cfg.ListCacheTTL},
		d.Log,
		d.Metrics,
	)

	var emailService email.Service
	if cfg.ResendAPIKey != "" {
		emailService = email.NewService(email.Config{APIKey: cfg.ResendAPIKey, FromEmail: cfg.FromEmail}, nil)
	}
	notificationService := notification.NewService(emailService, cfg.ModeratorEmails, d.Log)
	commentService.SetNotificationService(notificationService)

	var uploader backup.Uploader
	if d.MinIO != nil {
		uploader = backup.NewObjectUploader(d.MinIO, cfg.MinIOBucket)
	}
	backupRoutine := backup.New(d.Reader, backup.Config{
		Path:     cfg.BackupPath,
		Interval: cfg.BackupInterval,
	}, uploader, d.Log, d.Metrics)

	return &Services{
		Comment:      commentService,
		Backup:       backupRoutine,
		Executor:     executor,
		Notification: notificationService,
		Metrics:      d.Metrics,
	}
}

// Close drains the write executor and pending notifications. The caller
// closes the database handles afterwards.
func (s *Services) Close(ctx context.Context) error {
	return errors.Join(
		s.Executor.Close(ctx),
		s.Notification.Close(ctx),
	)
}

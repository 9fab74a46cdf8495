// Package backup periodically snapshots the comment database to a sibling
// file, optionally copying each snapshot to object storage.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"claim-comments/internal/metrics"
)

// Uploader ships a finished snapshot offsite.
type Uploader interface {
	Upload(ctx context.Context, path string, takenAt time.Time) error
}

type Config struct {
	Path     string
	Interval time.Duration
}

// Routine snapshots through the read-only connection, so it never contends
// with the write executor for the writer.
type Routine struct {
	db       *sqlx.DB
	path     string
	interval time.Duration
	uploader Uploader
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(db *sqlx.DB, cfg Config, uploader Uploader, log *zap.Logger, m *metrics.Metrics) *Routine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Routine{
		db:       db,
		path:     cfg.Path,
		interval: cfg.Interval,
		uploader: uploader,
		log:      log.Named("backup"),
		metrics:  m,
		now:      time.Now,
	}
}

func (r *Routine) Path() string { return r.path }

// Run waits one interval, snapshots, and repeats until ctx is cancelled.
// A failed snapshot is logged and retried on the next tick.
func (r *Routine) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("backup loop started", zap.String("path", r.path), zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("ending background backup loop")
			return nil
		case <-ticker.C:
			if err := r.Snapshot(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Error("database backup failed", zap.Error(err))
			}
		}
	}
}

// Snapshot writes a consistent copy of the database to the backup path. The
// copy is built in a temporary file and renamed into place, so the previous
// backup survives a failed run.
func (r *Routine) Snapshot(ctx context.Context) error {
	start := r.now()
	tmp := fmt.Sprintf("%s.tmp-%s", r.path, uuid.NewString())

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		r.metrics.RecordBackup("failure", 0)
		return fmt.Errorf("create backup directory: %w", err)
	}

	r.log.Debug("backing up database", zap.String("tmp", tmp))
	if _, err := r.db.ExecContext(ctx, `VACUUM INTO ?`, tmp); err != nil {
		_ = os.Remove(tmp)
		r.metrics.RecordBackup("failure", 0)
		return fmt.Errorf("vacuum into %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		r.metrics.RecordBackup("failure", 0)
		return fmt.Errorf("replace backup: %w", err)
	}

	elapsed := time.Since(start)
	r.metrics.RecordBackup("success", elapsed)
	r.log.Info("database backed up", zap.String("path", r.path), zap.Duration("duration", elapsed))

	if r.uploader != nil {
		if err := r.uploader.Upload(ctx, r.path, start); err != nil {
			r.metrics.RecordBackup("upload_failure", 0)
			return fmt.Errorf("upload backup: %w", err)
		}
	}
	return nil
}

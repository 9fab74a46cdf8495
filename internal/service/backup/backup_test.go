package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"claim-comments/internal/config"
	"claim-comments/internal/domain"
	"claim-comments/internal/metrics"
	"claim-comments/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingUploader struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (u *recordingUploader) Upload(_ context.Context, path string, _ time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, path)
	return u.err
}

func (u *recordingUploader) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.paths)
}

func seedDatabase(t *testing.T, n int) (dbPath string, reader *sqlx.DB) {
	t.Helper()
	dbPath = filepath.Join(t.TempDir(), "comments.db")

	writer, err := config.NewSQLiteWriter(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { writer.Close() })
	require.NoError(t, config.SetupSchema(context.Background(), writer, dbPath, zaptest.NewLogger(t)))

	w := repository.NewCommentWriter(writer)
	for i := 0; i < n; i++ {
		require.NoError(t, w.Create(context.Background(), &domain.Comment{
			ID:        string(rune('a'+i)) + "0",
			ClaimID:   "cccccccccccccccccccccccccccccccccccccccc",
			Body:      "hello",
			Timestamp: int64(i),
		}))
	}

	reader, err = config.NewSQLiteReader(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })
	return dbPath, reader
}

func countComments(t *testing.T, path string) int {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", "file:"+path+"?mode=ro")
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM comments`))
	return n
}

func TestSnapshot(t *testing.T) {
	dbPath, reader := seedDatabase(t, 3)
	backupPath := config.BackupPathFor(dbPath)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	uploader := &recordingUploader{}

	r := New(reader, Config{Path: backupPath, Interval: time.Hour}, uploader, zaptest.NewLogger(t), m)

	require.NoError(t, r.Snapshot(context.Background()))
	assert.Equal(t, 3, countComments(t, backupPath))
	assert.Equal(t, []string{backupPath}, uploader.paths)

	require.NoError(t, r.Snapshot(context.Background()), "an existing backup is replaced")
	assert.Equal(t, 3, countComments(t, backupPath))

	leftovers, err := filepath.Glob(backupPath + ".tmp-*")
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	expected := `
# HELP comments_backups_total Database snapshots by status
# TYPE comments_backups_total counter
comments_backups_total{status="success"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "comments_backups_total"))
}

func TestSnapshot_UploadFailureKeepsLocalCopy(t *testing.T) {
	dbPath, reader := seedDatabase(t, 1)
	backupPath := config.BackupPathFor(dbPath)
	uploader := &recordingUploader{err: errors.New("bucket gone")}

	r := New(reader, Config{Path: backupPath, Interval: time.Hour}, uploader, zaptest.NewLogger(t), nil)

	err := r.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
	assert.Equal(t, 1, countComments(t, backupPath))
}

func TestSnapshot_UnwritableDestination(t *testing.T) {
	dbPath, reader := seedDatabase(t, 1)
	blocker := filepath.Join(filepath.Dir(dbPath), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	r := New(reader, Config{Path: filepath.Join(blocker, "comments.backup.db"), Interval: time.Hour}, nil, zaptest.NewLogger(t), nil)

	assert.Error(t, r.Snapshot(context.Background()))
}

func TestRun(t *testing.T) {
	dbPath, reader := seedDatabase(t, 2)
	backupPath := config.BackupPathFor(dbPath)
	uploader := &recordingUploader{}

	r := New(reader, Config{Path: backupPath, Interval: 10 * time.Millisecond}, uploader, zaptest.NewLogger(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return uploader.calls() >= 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("backup loop did not stop")
	}
	assert.Equal(t, 2, countComments(t, backupPath))
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "backups/2024/03/09/140507-comments.backup.db", ObjectKey("backups", "/var/db/comments.backup.db", at))
}

package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
)

// ObjectUploader copies snapshots into a MinIO bucket under a
// timestamped key.
type ObjectUploader struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewObjectUploader(client *minio.Client, bucket string) *ObjectUploader {
	return &ObjectUploader{client: client, bucket: bucket, prefix: "backups"}
}

func (u *ObjectUploader) Upload(ctx context.Context, path string, takenAt time.Time) error {
	_, err := u.client.FPutObject(ctx, u.bucket, ObjectKey(u.prefix, path, takenAt), path, minio.PutObjectOptions{
		ContentType: "application/vnd.sqlite3",
	})
	if err != nil {
		return fmt.Errorf("failed to upload to MinIO: %w", err)
	}
	return nil
}

// ObjectKey names a snapshot by date so older copies are kept.
func ObjectKey(prefix, path string, takenAt time.Time) string {
	takenAt = takenAt.UTC()
	return fmt.Sprintf("%s/%s/%s-%s", prefix, takenAt.Format("2006/01/02"), takenAt.Format("150405"), filepath.Base(path))
}

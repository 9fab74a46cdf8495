package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSetupSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "comments.db")
	ctx := context.Background()

	writer, err := NewSQLiteWriter(path)
	require.NoError(t, err)
	t.Cleanup(func() { writer.Close() })

	require.NoError(t, SetupSchema(ctx, writer, path, zaptest.NewLogger(t)))
	require.NoError(t, SetupSchema(ctx, writer, path, zaptest.NewLogger(t)), "schema setup is repeatable")

	reader, err := NewSQLiteReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })

	var count int
	require.NoError(t, reader.GetContext(ctx, &count, `SELECT COUNT(*) FROM comments`))
	assert.Zero(t, count)

	_, err = writer.ExecContext(ctx, `INSERT INTO comments (comment_id, claim_id, channel_id, body, timestamp) VALUES ('a', 'b', 'c', 'x', 1)`)
	assert.Error(t, err, "channel id without a name is rejected")
}

func TestNewSQLiteReader_MissingFile(t *testing.T) {
	_, err := NewSQLiteReader(filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}

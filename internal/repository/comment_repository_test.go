package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"claim-comments/internal/config"
	"claim-comments/internal/domain"
	"claim-comments/internal/repository"
)

const (
	claimA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	claimB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func setupStore(t *testing.T) (*repository.Repositories, *sqlx.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "comments.db")

	writer, err := config.NewSQLiteWriter(path)
	require.NoError(t, err)
	t.Cleanup(func() { writer.Close() })
	require.NoError(t, config.SetupSchema(context.Background(), writer, path, zaptest.NewLogger(t)))

	reader, err := config.NewSQLiteReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })

	return repository.NewRepositories(reader, writer), reader
}

func strPtr(s string) *string { return &s }

func newComment(id, claimID string, ts int64) *domain.Comment {
	return &domain.Comment{
		ID:        id,
		ClaimID:   claimID,
		Body:      "comment " + id,
		Timestamp: ts,
	}
}

func TestCommentRepository_ListByClaim(t *testing.T) {
	repos, _ := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 23; i++ {
		require.NoError(t, repos.Writer.Create(ctx, newComment(fmt.Sprintf("c%02d", i), claimA, int64(1000+i))))
	}
	require.NoError(t, repos.Writer.Create(ctx, newComment("other", claimB, 5000)))

	t.Run("first page newest first", func(t *testing.T) {
		items, total, err := repos.Comments.ListByClaim(ctx, claimA, false, domain.PaginationParams{Page: 1, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(23), total)
		require.Len(t, items, 20)
		assert.Equal(t, "c22", items[0].ID)
		assert.Equal(t, "c03", items[19].ID)
	})

	t.Run("second page holds the rest", func(t *testing.T) {
		items, total, err := repos.Comments.ListByClaim(ctx, claimA, false, domain.PaginationParams{Page: 2, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(23), total)
		require.Len(t, items, 3)
		assert.Equal(t, "c00", items[2].ID)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		items, total, err := repos.Comments.ListByClaim(ctx, claimA, false, domain.PaginationParams{Page: 3, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(23), total)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("enormous page is empty", func(t *testing.T) {
		items, total, err := repos.Comments.ListByClaim(ctx, claimA, false, domain.PaginationParams{Page: 50_000_000_000_000_000, PageSize: 200})
		require.NoError(t, err)
		assert.Equal(t, int64(23), total)
		assert.Empty(t, items)
	})
}

func TestCommentRepository_TopLevelAndHidden(t *testing.T) {
	repos, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, repos.Writer.Create(ctx, newComment("root", claimA, 1)))
	reply := newComment("reply", claimA, 2)
	reply.ParentID = strPtr("root")
	require.NoError(t, repos.Writer.Create(ctx, reply))
	require.NoError(t, repos.Writer.Create(ctx, newComment("secret", claimA, 3)))

	hidden, err := repos.Writer.SetHidden(ctx, []string{"secret", "missing"}, true)
	require.NoError(t, err)
	require.Len(t, hidden, 1)
	assert.True(t, hidden[0].IsHidden)

	all, total, err := repos.Comments.ListByClaim(ctx, claimA, false, domain.DefaultPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "reply", all[0].ID)
	assert.Equal(t, "root", all[1].ID)

	top, total, err := repos.Comments.ListByClaim(ctx, claimA, true, domain.DefaultPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, top, 1)
	assert.Equal(t, "root", top[0].ID)

	has, err := repos.Comments.HasHidden(ctx, claimA)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repos.Comments.HasHidden(ctx, claimB)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCommentRepository_CreateErrors(t *testing.T) {
	repos, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, repos.Writer.Create(ctx, newComment("root", claimA, 1)))

	t.Run("duplicate id", func(t *testing.T) {
		err := repos.Writer.Create(ctx, newComment("root", claimA, 2))
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.Equal(t, domain.CodeDuplicateComment, domain.CodeOf(err))
	})

	t.Run("missing parent", func(t *testing.T) {
		c := newComment("orphan", claimA, 2)
		c.ParentID = strPtr("nope")
		err := repos.Writer.Create(ctx, c)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("parent on another claim", func(t *testing.T) {
		c := newComment("stray", claimB, 2)
		c.ParentID = strPtr("root")
		err := repos.Writer.Create(ctx, c)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestCommentRepository_Delete(t *testing.T) {
	repos, _ := setupStore(t)
	ctx := context.Background()

	owned := newComment("owned", claimA, 1)
	owned.ChannelID = strPtr("1111111111111111111111111111111111111111")
	owned.ChannelName = strPtr("@owner")
	require.NoError(t, repos.Writer.Create(ctx, owned))
	require.NoError(t, repos.Writer.Create(ctx, newComment("anon", claimA, 2)))

	_, err := repos.Writer.Delete(ctx, "missing", *owned.ChannelID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repos.Writer.Delete(ctx, "owned", "2222222222222222222222222222222222222222")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	_, err = repos.Writer.Delete(ctx, "anon", *owned.ChannelID)
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	deleted, err := repos.Writer.Delete(ctx, "owned", *owned.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, claimA, deleted.ClaimID)

	left, err := repos.Comments.GetByIDs(ctx, []string{"owned", "anon"})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "anon", left[0].ID)
}

func TestCommentRepository_GetByIDs(t *testing.T) {
	repos, _ := setupStore(t)
	ctx := context.Background()

	signed := newComment("signed", claimA, 1)
	signed.ChannelID = strPtr("1111111111111111111111111111111111111111")
	signed.ChannelName = strPtr("@owner")
	signed.Signature = strPtr("abcd")
	signed.SigningTS = strPtr("1234")
	require.NoError(t, repos.Writer.Create(ctx, signed))

	got, err := repos.Comments.GetByIDs(ctx, []string{"signed"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, *signed, got[0])

	none, err := repos.Comments.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCommentRepository_ReaderIsReadOnly(t *testing.T) {
	_, reader := setupStore(t)

	_, err := reader.Exec(`INSERT INTO comments (comment_id, claim_id, body, timestamp) VALUES ('x', ?, 'b', 1)`, claimA)
	assert.Error(t, err)
}

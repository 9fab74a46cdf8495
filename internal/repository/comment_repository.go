package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"claim-comments/internal/domain"
)

const commentColumns = `comment_id, claim_id, parent_id, channel_id, channel_name, body, signature, signing_ts, is_hidden, timestamp`

// CommentReader serves listings from the shared read-only connection.
type CommentReader interface {
	ListByClaim(ctx context.Context, claimID string, topLevel bool, params domain.PaginationParams) ([]domain.Comment, int64, error)
	HasHidden(ctx context.Context, claimID string) (bool, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Comment, error)
}

// CommentWriter mutates the store. Every method runs in its own transaction
// and must only be called from inside a write job.
type CommentWriter interface {
	Create(ctx context.Context, comment *domain.Comment) error
	Delete(ctx context.Context, commentID, channelID string) (*domain.Comment, error)
	SetHidden(ctx context.Context, ids []string, hidden bool) ([]domain.Comment, error)
}

type commentReader struct {
	db *sqlx.DB
}

func NewCommentReader(db *sqlx.DB) CommentReader {
	return &commentReader{db: db}
}

func (r *commentReader) ListByClaim(ctx context.Context, claimID string, topLevel bool, params domain.PaginationParams) ([]domain.Comment, int64, error) {
	params.Validate()

	where := `claim_id = ? AND is_hidden = 0`
	if topLevel {
		where += ` AND parent_id IS NULL`
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM comments WHERE `+where, claimID); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE ` + where + `
		ORDER BY timestamp DESC, comment_id ASC
		LIMIT ? OFFSET ?`

	comments := []domain.Comment{}
	if err := r.db.SelectContext(ctx, &comments, query, claimID, params.PageSize, params.Offset()); err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

func (r *commentReader) HasHidden(ctx context.Context, claimID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM comments WHERE claim_id = ? AND is_hidden = 1)`, claimID)
	return exists, err
}

// GetByIDs returns the stored comments among ids, hidden ones included.
// Unknown ids are skipped.
func (r *commentReader) GetByIDs(ctx context.Context, ids []string) ([]domain.Comment, error) {
	comments := []domain.Comment{}
	if len(ids) == 0 {
		return comments, nil
	}

	query, args, err := sqlx.In(`SELECT `+commentColumns+` FROM comments WHERE comment_id IN (?) ORDER BY timestamp DESC, comment_id ASC`, ids)
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &comments, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return comments, nil
}

type commentWriter struct {
	db *sqlx.DB
}

func NewCommentWriter(db *sqlx.DB) CommentWriter {
	return &commentWriter{db: db}
}

func (w *commentWriter) Create(ctx context.Context, comment *domain.Comment) error {
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	if comment.ParentID != nil {
		var parentClaim string
		err := tx.GetContext(ctx, &parentClaim, `SELECT claim_id FROM comments WHERE comment_id = ?`, *comment.ParentID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewValidationError("parent_id", "parent comment does not exist")
		}
		if err != nil {
			return domain.NewStorageError("look up parent comment", err)
		}
		if parentClaim != comment.ClaimID {
			return domain.NewValidationError("parent_id", "parent comment belongs to another claim")
		}
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO comments (`+commentColumns+`)
		VALUES (:comment_id, :claim_id, :parent_id, :channel_id, :channel_name, :body, :signature, :signing_ts, :is_hidden, :timestamp)`,
		comment)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return &domain.Error{
				Kind:    domain.KindStorage,
				Code:    domain.CodeDuplicateComment,
				Message: "comment already exists",
				Err:     err,
			}
		}
		return domain.NewStorageError("insert comment", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit comment", err)
	}
	return nil
}

// Delete removes a comment owned by channelID and returns the removed row.
// Replies are kept.
func (w *commentWriter) Delete(ctx context.Context, commentID, channelID string) (*domain.Comment, error) {
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	var comment domain.Comment
	err = tx.GetContext(ctx, &comment, `SELECT `+commentColumns+` FROM comments WHERE comment_id = ?`, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("comment not found")
	}
	if err != nil {
		return nil, domain.NewStorageError("look up comment", err)
	}
	if comment.ChannelID == nil || *comment.ChannelID != channelID {
		return nil, domain.NewAuthenticationError("comment does not belong to channel")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE comment_id = ?`, commentID); err != nil {
		return nil, domain.NewStorageError("delete comment", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.NewStorageError("commit delete", err)
	}
	return &comment, nil
}

// SetHidden flags the given comments and returns the ones that exist.
func (w *commentWriter) SetHidden(ctx context.Context, ids []string, hidden bool) ([]domain.Comment, error) {
	comments := []domain.Comment{}
	if len(ids) == 0 {
		return comments, nil
	}

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	query, args, err := sqlx.In(`UPDATE comments SET is_hidden = ? WHERE comment_id IN (?)`, hidden, ids)
	if err != nil {
		return nil, domain.NewStorageError("build hide query", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return nil, domain.NewStorageError("hide comments", err)
	}

	query, args, err = sqlx.In(`SELECT `+commentColumns+` FROM comments WHERE comment_id IN (?)`, ids)
	if err != nil {
		return nil, domain.NewStorageError("build select query", err)
	}
	if err := tx.SelectContext(ctx, &comments, tx.Rebind(query), args...); err != nil {
		return nil, domain.NewStorageError("read hidden comments", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.NewStorageError("commit hide", err)
	}
	return comments, nil
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

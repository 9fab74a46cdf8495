package repository

import (
	"github.com/jmoiron/sqlx"
)

// Repositories splits comment storage by connection role: reads go through
// the shared read-only handle, mutations through the single writer.
type Repositories struct {
	Comments CommentReader
	Writer   CommentWriter
}

func NewRepositories(reader, writer *sqlx.DB) *Repositories {
	return &Repositories{
		Comments: NewCommentReader(reader),
		Writer:   NewCommentWriter(writer),
	}
}

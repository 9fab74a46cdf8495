package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
)

const (
	MaxCommentLength = 2000
	ClaimIDLength    = 40
)

type Comment struct {
	ID          string  `json:"comment_id" db:"comment_id"`
	ClaimID     string  `json:"claim_id" db:"claim_id"`
	ParentID    *string `json:"parent_id,omitempty" db:"parent_id"`
	ChannelID   *string `json:"channel_id,omitempty" db:"channel_id"`
	ChannelName *string `json:"channel_name,omitempty" db:"channel_name"`
	Body        string  `json:"comment" db:"body"`
	Signature   *string `json:"signature,omitempty" db:"signature"`
	SigningTS   *string `json:"signing_ts,omitempty" db:"signing_ts"`
	IsHidden    bool    `json:"is_hidden" db:"is_hidden"`
	Timestamp   int64   `json:"timestamp" db:"timestamp"`
}

// IsAnonymous reports whether the comment carries no channel identity.
func (c *Comment) IsAnonymous() bool {
	return c.ChannelID == nil && c.ChannelName == nil
}

type CreateCommentInput struct {
	ClaimID     string  `json:"claim_id"`
	ParentID    *string `json:"parent_id"`
	ChannelID   *string `json:"channel_id"`
	ChannelName *string `json:"channel_name"`
	Comment     string  `json:"comment"`
	Signature   *string `json:"signature"`
	SigningTS   *string `json:"signing_ts"`
}

// HasChannel reports whether any part of a channel identity was submitted.
func (in *CreateCommentInput) HasChannel() bool {
	return in.ChannelID != nil || in.ChannelName != nil
}

type DeleteCommentInput struct {
	CommentID   string `json:"comment_id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Signature   string `json:"signature"`
}

type HideCommentsInput struct {
	CommentIDs []string `json:"comment_ids"`
}

type ListCommentsParams struct {
	ClaimID  string `json:"claim_id"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	TopLevel bool   `json:"top_level"`
}

// Claim is the resolved view of an externally owned claim. It is fetched
// fresh for every verification and never stored.
type Claim struct {
	ClaimID   string `json:"claim_id"`
	Name      string `json:"name"`
	PublicKey []byte `json:"-"`
}

// SignedCommentID derives the id of a signed comment. Signers can compute it
// themselves, so the detached signature binds to the stored id.
func SignedCommentID(in *CreateCommentInput) string {
	return commentID(in, deref(in.SigningTS))
}

// AnonymousCommentID derives the id of an anonymous comment salted with the
// creation time and a random uuid.
func AnonymousCommentID(in *CreateCommentInput, timestamp int64) string {
	return commentID(in, strconv.FormatInt(timestamp, 10)+uuid.NewString())
}

func commentID(in *CreateCommentInput, salt string) string {
	h := sha256.New()
	for _, part := range []string{
		in.ClaimID,
		deref(in.ParentID),
		deref(in.ChannelID),
		deref(in.ChannelName),
		in.Comment,
		salt,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Package comment runs the comment write pipeline and the listing read
// path.
package comment

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"claim-comments/internal/domain"
	"claim-comments/internal/metrics"
	"claim-comments/internal/pkg/signature"
	"claim-comments/internal/pkg/validation"
	"claim-comments/internal/repository"
	"claim-comments/internal/service/claim"
	"claim-comments/internal/service/jobs"
	"claim-comments/internal/service/notification"
)

type Service interface {
	Create(ctx context.Context, input domain.CreateCommentInput) (*domain.Comment, error)
	List(ctx context.Context, params domain.ListCommentsParams) (domain.Page[domain.Comment], error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Comment, error)
	Delete(ctx context.Context, input domain.DeleteCommentInput) (*domain.Comment, error)
	Hide(ctx context.Context, input domain.HideCommentsInput) ([]domain.Comment, error)
	SetNotificationService(notifier notification.Service)
}

type Config struct {
	CacheTTL time.Duration
}

type service struct {
	reader   repository.CommentReader
	writer   repository.CommentWriter
	resolver claim.Resolver
	verifier *signature.Verifier
	executor *jobs.Executor
	notifier notification.Service
	cache    *listCache
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	repos *repository.Repositories,
	resolver claim.Resolver,
	verifier *signature.Verifier,
	executor *jobs.Executor,
	redisClient *redis.Client,
	cfg Config,
	log *zap.Logger,
	m *metrics.Metrics,
) Service {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("comment")
	return &service{
		reader:   repos.Comments,
		writer:   repos.Writer,
		resolver: resolver,
		verifier: verifier,
		executor: executor,
		notifier: notification.NewService(nil, nil, nil),
		cache:    &listCache{redis: redisClient, ttl: cfg.CacheTTL, log: log, metrics: m},
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *service) SetNotificationService(notifier notification.Service) {
	s.notifier = notifier
}

// Create validates, authenticates and persists a comment. Resolution and
// verification finish before a write job is submitted, so the writer is
// never held across a network call.
func (s *service) Create(ctx context.Context, input domain.CreateCommentInput) (*domain.Comment, error) {
	validation.NormalizeInput(&input)
	if err := validation.ValidateComment(&input); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ClaimID:     input.ClaimID,
		ParentID:    input.ParentID,
		ChannelID:   input.ChannelID,
		ChannelName: input.ChannelName,
		Body:        input.Comment,
		Signature:   input.Signature,
		SigningTS:   input.SigningTS,
	}

	if input.HasChannel() {
		comment.ID = domain.SignedCommentID(&input)
		if err := s.authenticate(ctx, comment.ID, *input.ChannelID, *input.ChannelName, input.ClaimID, *input.Signature); err != nil {
			return nil, err
		}
	}

	_, err := s.write(ctx, "create_comment", func(ctx context.Context) (any, error) {
		comment.Timestamp = s.now().Unix()
		if comment.ID == "" {
			comment.ID = domain.AnonymousCommentID(&input, comment.Timestamp)
		}
		return nil, s.writer.Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("comment created",
		zap.String("comment_id", comment.ID),
		zap.String("claim_id", comment.ClaimID),
		zap.Bool("anonymous", comment.IsAnonymous()))
	s.metrics.RecordCommentCreated(comment.IsAnonymous())
	s.cache.invalidate(ctx, comment.ClaimID)
	s.notifier.NotifyNewComment(ctx, comment)

	return comment, nil
}

// write runs fn on the writer. Once the job is admitted it is waited for
// even if ctx ends, so the caller never reports a failure for a committed
// write and the follow-up cache and notification steps still run.
func (s *service) write(ctx context.Context, name string, fn jobs.Func) (any, error) {
	job, err := s.executor.Submit(name, fn)
	if err != nil {
		return nil, err
	}
	return job.Wait(context.WithoutCancel(ctx))
}

// authenticate resolves the channel and checks the detached signature over
// commentID. An unknown channel fails the same way as a bad signature.
func (s *service) authenticate(ctx context.Context, commentID, channelID, channelName, claimID, sig string) error {
	channel, err := s.resolver.Resolve(ctx, channelID, channelName, claimID)
	if err != nil {
		return err
	}
	if channel == nil {
		return domain.NewAuthenticationError("channel could not be resolved")
	}
	if !s.verifier.Verify(commentID, sig, channel) {
		return domain.NewAuthenticationError("signature could not be verified")
	}
	return nil
}

// List returns one page of visible comments, newest first.
func (s *service) List(ctx context.Context, params domain.ListCommentsParams) (domain.Page[domain.Comment], error) {
	claimID := strings.ToLower(strings.TrimSpace(params.ClaimID))
	if err := validation.ValidateClaimID(claimID); err != nil {
		return domain.Page[domain.Comment]{}, err
	}

	p := domain.PaginationParams{Page: params.Page, PageSize: params.PageSize}
	p.Validate()

	key, cached := s.cache.pageKey(ctx, claimID, p, params.TopLevel)
	if cached {
		if page, ok := s.cache.get(ctx, key); ok {
			return page, nil
		}
	}

	items, total, err := s.reader.ListByClaim(ctx, claimID, params.TopLevel, p)
	if err != nil {
		return domain.Page[domain.Comment]{}, domain.NewStorageError("list comments", err)
	}
	hasHidden, err := s.reader.HasHidden(ctx, claimID)
	if err != nil {
		return domain.Page[domain.Comment]{}, domain.NewStorageError("check hidden comments", err)
	}

	page := domain.NewPage(items, p.Page, p.PageSize, total)
	page.HasHidden = hasHidden

	if cached {
		s.cache.set(ctx, key, page)
	}
	return page, nil
}

func (s *service) GetByIDs(ctx context.Context, ids []string) ([]domain.Comment, error) {
	ids, err := normalizeIDs(ids)
	if err != nil {
		return nil, err
	}

	comments, err := s.reader.GetByIDs(ctx, ids)
	if err != nil {
		return nil, domain.NewStorageError("get comments", err)
	}
	return comments, nil
}

// Delete removes a comment on behalf of its channel. The request carries a
// signature over the comment id made with the channel key.
func (s *service) Delete(ctx context.Context, input domain.DeleteCommentInput) (*domain.Comment, error) {
	commentID := strings.ToLower(strings.TrimSpace(input.CommentID))
	channelID := strings.ToLower(strings.TrimSpace(input.ChannelID))
	channelName := strings.TrimSpace(input.ChannelName)
	sig := strings.TrimSpace(input.Signature)

	if err := validation.ValidateCommentID(commentID); err != nil {
		return nil, err
	}
	if err := validation.ValidateChannel(channelID, channelName); err != nil {
		return nil, err
	}
	if err := validation.ValidateSignatureHex(sig); err != nil {
		return nil, err
	}

	if err := s.authenticate(ctx, commentID, channelID, channelName, "", sig); err != nil {
		return nil, err
	}

	result, err := s.write(ctx, "delete_comment", func(ctx context.Context) (any, error) {
		return s.writer.Delete(ctx, commentID, channelID)
	})
	if err != nil {
		return nil, err
	}

	deleted := result.(*domain.Comment)
	s.log.Info("comment deleted", zap.String("comment_id", commentID), zap.String("channel_id", channelID))
	s.cache.invalidate(ctx, deleted.ClaimID)
	return deleted, nil
}

// Hide flags comments as hidden. Unknown ids are ignored; the hidden
// comments are returned.
func (s *service) Hide(ctx context.Context, input domain.HideCommentsInput) ([]domain.Comment, error) {
	ids, err := normalizeIDs(input.CommentIDs)
	if err != nil {
		return nil, err
	}

	result, err := s.write(ctx, "hide_comments", func(ctx context.Context) (any, error) {
		return s.writer.SetHidden(ctx, ids, true)
	})
	if err != nil {
		return nil, err
	}

	hidden := result.([]domain.Comment)
	claims := make([]string, 0, len(hidden))
	seen := make(map[string]bool, len(hidden))
	for _, c := range hidden {
		if !seen[c.ClaimID] {
			seen[c.ClaimID] = true
			claims = append(claims, c.ClaimID)
		}
	}

	s.log.Info("comments hidden", zap.Int("requested", len(ids)), zap.Int("hidden", len(hidden)))
	s.cache.invalidate(ctx, claims...)
	s.notifier.NotifyCommentsHidden(ctx, hidden)
	return hidden, nil
}

func normalizeIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, domain.NewValidationError("comment_ids", "at least one comment id is required")
	}
	if len(ids) > domain.MaxPageSize {
		return nil, domain.NewValidationError("comment_ids", "too many comment ids")
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if err := validation.ValidateCommentID(id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

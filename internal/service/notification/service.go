// Package notification alerts moderators about comment activity. Delivery
// happens in the background and never fails the triggering request.
package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"claim-comments/internal/domain"
	"claim-comments/internal/service/email"
)

const sendTimeout = 10 * time.Second

type Service interface {
	NotifyNewComment(ctx context.Context, comment *domain.Comment)
	NotifyCommentsHidden(ctx context.Context, comments []domain.Comment)
	Close(ctx context.Context) error
}

type service struct {
	emailSvc   email.Service
	moderators []string
	log        *zap.Logger
	wg         sync.WaitGroup
}

// NewService returns a no-op notifier when there is no mailer or nobody to
// notify.
func NewService(emailSvc email.Service, moderators []string, log *zap.Logger) Service {
	if emailSvc == nil || len(moderators) == 0 {
		return noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		emailSvc:   emailSvc,
		moderators: moderators,
		log:        log.Named("notification"),
	}
}

func (s *service) NotifyNewComment(ctx context.Context, comment *domain.Comment) {
	c := *comment
	s.dispatch(ctx, "new_comment", func(ctx context.Context) error {
		return s.emailSvc.SendNewCommentEmail(ctx, s.moderators, &c)
	})
}

func (s *service) NotifyCommentsHidden(ctx context.Context, comments []domain.Comment) {
	if len(comments) == 0 {
		return
	}
	cs := append([]domain.Comment(nil), comments...)
	s.dispatch(ctx, "comments_hidden", func(ctx context.Context) error {
		return s.emailSvc.SendHiddenCommentsEmail(ctx, s.moderators, cs)
	})
}

func (s *service) dispatch(ctx context.Context, kind string, send func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.log.Warn("failed to notify moderators", zap.String("kind", kind), zap.Error(err))
		}
	}()
}

// Close waits for in-flight notifications.
func (s *service) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type noop struct{}

func (noop) NotifyNewComment(context.Context, *domain.Comment)       {}
func (noop) NotifyCommentsHidden(context.Context, []domain.Comment) {}
func (noop) Close(context.Context) error                            { return nil }

package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"claim-comments/internal/domain"
	"claim-comments/internal/mocks"
	"claim-comments/internal/service/notification"
)

var moderators = []string{"mod@example.com"}

func TestNotifyNewComment(t *testing.T) {
	mockEmail := new(mocks.EmailService)
	svc := notification.NewService(mockEmail, moderators, zaptest.NewLogger(t))

	comment := &domain.Comment{ID: "abc", ClaimID: "claim"}
	mockEmail.On("SendNewCommentEmail", mock.Anything, moderators, mock.MatchedBy(func(c *domain.Comment) bool {
		return c.ID == "abc"
	})).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	svc.NotifyNewComment(ctx, comment)
	cancel()

	require.NoError(t, svc.Close(context.Background()))
	mockEmail.AssertExpectations(t)
}

func TestNotifyCommentsHidden(t *testing.T) {
	mockEmail := new(mocks.EmailService)
	svc := notification.NewService(mockEmail, moderators, zaptest.NewLogger(t))

	hidden := []domain.Comment{{ID: "one"}, {ID: "two"}}
	mockEmail.On("SendHiddenCommentsEmail", mock.Anything, moderators, hidden).Return(errors.New("provider down")).Once()

	svc.NotifyCommentsHidden(context.Background(), hidden)
	svc.NotifyCommentsHidden(context.Background(), nil)

	require.NoError(t, svc.Close(context.Background()))
	mockEmail.AssertExpectations(t)
}

func TestClose_Timeout(t *testing.T) {
	mockEmail := new(mocks.EmailService)
	svc := notification.NewService(mockEmail, moderators, zaptest.NewLogger(t))

	release := make(chan struct{})
	mockEmail.On("SendNewCommentEmail", mock.Anything, moderators, mock.Anything).
		Run(func(mock.Arguments) { <-release }).Return(nil).Once()

	svc.NotifyNewComment(context.Background(), &domain.Comment{ID: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Close(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, svc.Close(context.Background()))
}

func TestNewService_NoopWithoutModerators(t *testing.T) {
	mockEmail := new(mocks.EmailService)
	svc := notification.NewService(mockEmail, nil, nil)

	svc.NotifyNewComment(context.Background(), &domain.Comment{ID: "abc"})
	require.NoError(t, svc.Close(context.Background()))

	mockEmail.AssertNotCalled(t, "SendNewCommentEmail", mock.Anything, mock.Anything, mock.Anything)
}

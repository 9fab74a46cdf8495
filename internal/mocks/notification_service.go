package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claim-comments/internal/domain"
)

type NotificationService struct {
	mock.Mock
}

func (m *NotificationService) NotifyNewComment(ctx context.Context, comment *domain.Comment) {
	m.Called(ctx, comment)
}

func (m *NotificationService) NotifyCommentsHidden(ctx context.Context, comments []domain.Comment) {
	m.Called(ctx, comments)
}

func (m *NotificationService) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

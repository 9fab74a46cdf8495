package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claim-comments/internal/domain"
	"claim-comments/internal/service/notification"
)

type CommentService struct {
	mock.Mock
}

func (m *CommentService) Create(ctx context.Context, input domain.CreateCommentInput) (*domain.Comment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *CommentService) List(ctx context.Context, params domain.ListCommentsParams) (domain.Page[domain.Comment], error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.Page[domain.Comment]), args.Error(1)
}

func (m *CommentService) GetByIDs(ctx context.Context, ids []string) ([]domain.Comment, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Comment), args.Error(1)
}

func (m *CommentService) Delete(ctx context.Context, input domain.DeleteCommentInput) (*domain.Comment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *CommentService) Hide(ctx context.Context, input domain.HideCommentsInput) ([]domain.Comment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Comment), args.Error(1)
}

func (m *CommentService) SetNotificationService(notifier notification.Service) {
	m.Called(notifier)
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claim-comments/internal/domain"
)

type CommentReader struct {
	mock.Mock
}

func (m *CommentReader) ListByClaim(ctx context.Context, claimID string, topLevel bool, params domain.PaginationParams) ([]domain.Comment, int64, error) {
	args := m.Called(ctx, claimID, topLevel, params)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.Comment), args.Get(1).(int64), args.Error(2)
}

func (m *CommentReader) HasHidden(ctx context.Context, claimID string) (bool, error) {
	args := m.Called(ctx, claimID)
	return args.Bool(0), args.Error(1)
}

func (m *CommentReader) GetByIDs(ctx context.Context, ids []string) ([]domain.Comment, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Comment), args.Error(1)
}

type CommentWriter struct {
	mock.Mock
}

func (m *CommentWriter) Create(ctx context.Context, comment *domain.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *CommentWriter) Delete(ctx context.Context, commentID, channelID string) (*domain.Comment, error) {
	args := m.Called(ctx, commentID, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *CommentWriter) SetHidden(ctx context.Context, ids []string, hidden bool) ([]domain.Comment, error) {
	args := m.Called(ctx, ids, hidden)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Comment), args.Error(1)
}

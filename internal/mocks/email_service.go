package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claim-comments/internal/domain"
)

type EmailService struct {
	mock.Mock
}

func (m *EmailService) SendNewCommentEmail(ctx context.Context, to []string, comment *domain.Comment) error {
	args := m.Called(ctx, to, comment)
	return args.Error(0)
}

func (m *EmailService) SendHiddenCommentsEmail(ctx context.Context, to []string, comments []domain.Comment) error {
	args := m.Called(ctx, to, comments)
	return args.Error(0)
}

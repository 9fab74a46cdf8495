package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claim-comments/internal/domain"
)

type Resolver struct {
	mock.Mock
}

func (m *Resolver) Resolve(ctx context.Context, channelID, channelName, claimID string) (*domain.Claim, error) {
	args := m.Called(ctx, channelID, channelName, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claim), args.Error(1)
}

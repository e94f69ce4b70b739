package infrastructure

import (
	"context"

	"betbot/models"
	"betbot/repository"

	"github.com/stretchr/testify/mock"
)

type mockMessagePublisher struct {
	mock.Mock
}

func (m *mockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) RecordBalanceChanges(ctx context.Context, entries []*models.BalanceHistory) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *mockJournal) RecordWagerOutcome(ctx context.Context, outcome repository.WagerOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

func (m *mockJournal) RecordDepositDecision(ctx context.Context, d models.Deposit) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

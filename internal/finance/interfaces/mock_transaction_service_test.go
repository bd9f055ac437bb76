package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
)

// MockTransactionService returns err from every call and records the last list filter.
type MockTransactionService struct {
	err        error
	lastFilter domain.TransactionFilter
}

func (m *MockTransactionService) Create(_ context.Context, _ string, _ *domain.Transaction) error {
	return m.err
}

func (m *MockTransactionService) Update(_ context.Context, _ string, _ uuid.UUID, _ application.TransactionUpdate) (*domain.Transaction, error) {
	return nil, m.err
}

func (m *MockTransactionService) Delete(_ context.Context, _ string, _ uuid.UUID) error {
	return m.err
}

func (m *MockTransactionService) Recategorize(_ context.Context, _ string, _, _ uuid.UUID) (*domain.Transaction, error) {
	return nil, m.err
}

func (m *MockTransactionService) Get(_ context.Context, _ string, _ uuid.UUID) (*domain.Transaction, error) {
	return nil, m.err
}

func (m *MockTransactionService) List(_ context.Context, _ string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	m.lastFilter = filter
	return []domain.Transaction{}, m.err
}

func (m *MockTransactionService) Summary(_ context.Context, _ string, _, _ time.Time) (map[int]application.TransactionSummary, error) {
	return nil, m.err
}

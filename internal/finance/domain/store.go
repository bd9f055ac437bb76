package domain

import "context"

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Accounts     AccountRepository
	Transactions TransactionRepository
	Categories   CategoryRepository
	Budgets      BudgetRepository
	Recurring    RecurringRepository
}

type Store interface {
	Repos() Repositories
	// WithinTx runs fn against repositories sharing one database transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

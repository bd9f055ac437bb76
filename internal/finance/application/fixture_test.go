package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/categorize"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	"github.com/sebuszqo/FinanceTracker/internal/finance/infrastructure"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTrigger struct {
	mu    sync.Mutex
	users []string
}

func (r *recordingTrigger) Trigger(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

func (r *recordingTrigger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []BudgetAlert
	fail   int
	delay  time.Duration
}

func (n *fakeNotifier) NotifyBudgetAlert(_ context.Context, alert BudgetAlert) error {
	time.Sleep(n.delay)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	if n.fail > 0 {
		n.fail--
		return errors.New("smtp unavailable")
	}
	return nil
}

func (n *fakeNotifier) attempts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type fixture struct {
	ctx        context.Context
	t          *testing.T
	store      *infrastructure.MemoryStore
	userID     string
	account    domain.Account
	categories map[string]domain.Category
	now        time.Time
	trigger    *recordingTrigger
	notifier   *fakeNotifier

	reconciler   *BalanceReconciler
	accounts     *AccountService
	transactions *TransactionService
	imports      *ImportService
	budgets      *BudgetService
	recurring    *RecurringService
	evaluator    *BudgetAlertEvaluator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rules, err := categorize.DefaultRules()
	require.NoError(t, err)

	f := &fixture{
		ctx:      context.Background(),
		t:        t,
		store:    infrastructure.NewMemoryStore(),
		userID:   uuid.NewString(),
		now:      time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC),
		trigger:  &recordingTrigger{},
		notifier: &fakeNotifier{},
	}
	clock := Clock(func() time.Time { return f.now })
	log := zerolog.Nop()
	categorizer := categorize.New(rules)

	f.reconciler = NewBalanceReconciler(nil, log)
	f.accounts = NewAccountService(f.store, f.reconciler, clock, log)
	f.transactions = NewTransactionService(f.store, f.reconciler, categorizer, f.trigger, clock, log)
	f.imports = NewImportService(f.store, f.reconciler, categorizer, f.trigger, nil, clock, 0, log)
	f.budgets = NewBudgetService(f.store, f.trigger, clock, log)
	f.recurring = NewRecurringService(f.store, clock, log)
	f.evaluator = NewBudgetAlertEvaluator(f.store, f.notifier, nil, clock, log)

	seeded, err := NewCategoryService(f.store, log).SeedDefaults(f.ctx, f.userID)
	require.NoError(t, err)
	f.categories = map[string]domain.Category{}
	for _, category := range seeded {
		f.categories[category.Name] = category
	}

	f.account = domain.Account{Name: "Main", Type: domain.AccountTypeChecking, Currency: "eur"}
	require.NoError(t, f.accounts.Create(f.ctx, f.userID, &f.account))
	return f
}

func (f *fixture) balance() decimal.Decimal {
	f.t.Helper()
	account, err := f.store.Repos().Accounts.FindByID(f.ctx, f.userID, f.account.ID)
	require.NoError(f.t, err)
	return account.Balance
}

// assertLedger checks that the stored balance equals the signed sum of the account's transactions.
func (f *fixture) assertLedger() {
	f.t.Helper()
	ledger, err := f.store.Repos().Transactions.SumSignedByAccount(f.ctx, f.account.ID)
	require.NoError(f.t, err)
	assert.True(f.t, ledger.Equal(f.balance()), "balance %s, ledger %s", f.balance(), ledger)
}

func (f *fixture) transactionCount() int {
	f.t.Helper()
	listed, err := f.store.Repos().Transactions.List(f.ctx, f.userID, domain.TransactionFilter{AccountID: &f.account.ID})
	require.NoError(f.t, err)
	return len(listed)
}

func (f *fixture) expense(amount string, description string) *domain.Transaction {
	f.t.Helper()
	transaction := &domain.Transaction{
		AccountID:   f.account.ID,
		Type:        domain.TransactionTypeExpense,
		Amount:      decimal.RequireFromString(amount),
		Currency:    "EUR",
		Date:        f.now,
		Description: description,
	}
	require.NoError(f.t, f.transactions.Create(f.ctx, f.userID, transaction))
	return transaction
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

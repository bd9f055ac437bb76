package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	"github.com/sebuszqo/FinanceTracker/internal/finance/infrastructure"
	"github.com/sebuszqo/FinanceTracker/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type triggers struct {
	mu    sync.Mutex
	users map[string]int
}

func (t *triggers) Trigger(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.users[userID]++
}

type env struct {
	ctx       context.Context
	store     domain.Store
	memory    *infrastructure.MemoryStore
	clock     *testClock
	triggers  *triggers
	scheduler *RecurrenceScheduler
	userID    string
	account   domain.Account
}

func newEnv(t *testing.T, wrap func(*infrastructure.MemoryStore) domain.Store) *env {
	t.Helper()
	memory := infrastructure.NewMemoryStore()
	var store domain.Store = memory
	if wrap != nil {
		store = wrap(memory)
	}
	e := &env{
		ctx:      context.Background(),
		store:    store,
		memory:   memory,
		clock:    &testClock{now: time.Date(2024, time.January, 31, 9, 0, 0, 0, time.UTC)},
		triggers: &triggers{users: map[string]int{}},
		userID:   uuid.NewString(),
	}
	e.account = domain.Account{
		ID: uuid.New(), UserID: e.userID, Name: "Main", Type: domain.AccountTypeChecking,
		Currency: "EUR", Balance: decimal.Zero, ExternalProvider: domain.ProviderManual, IsActive: true,
	}
	require.NoError(t, memory.Repos().Accounts.Create(e.ctx, &e.account))

	reconciler := application.NewBalanceReconciler(nil, zerolog.Nop())
	e.scheduler = New(store, reconciler, e.triggers, metrics.New(), e.clock.Now, "@every 1h", zerolog.Nop())
	return e
}

func (e *env) template(t *testing.T, description string, schedule domain.Schedule, next time.Time) *domain.RecurringTransaction {
	t.Helper()
	rt := &domain.RecurringTransaction{
		ID: uuid.New(), UserID: e.userID, AccountID: e.account.ID, Type: domain.TransactionTypeExpense,
		Amount: decimal.NewFromInt(100), Currency: "EUR", Description: description, Schedule: schedule,
		StartDate: next, NextExecutionDate: next, IsActive: true, CreatedAt: next,
	}
	require.NoError(t, e.memory.Repos().Recurring.Create(e.ctx, rt))
	return rt
}

func (e *env) reload(t *testing.T, id uuid.UUID) *domain.RecurringTransaction {
	t.Helper()
	rt, err := e.memory.Repos().Recurring.FindByID(e.ctx, e.userID, id)
	require.NoError(t, err)
	return rt
}

func (e *env) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	account, err := e.memory.Repos().Accounts.FindByID(e.ctx, e.userID, e.account.ID)
	require.NoError(t, err)
	return account.Balance
}

func (e *env) transactions(t *testing.T) []domain.Transaction {
	t.Helper()
	listed, err := e.memory.Repos().Transactions.List(e.ctx, e.userID, domain.TransactionFilter{})
	require.NoError(t, err)
	return listed
}

func TestSweepStopsAfterOccurrences(t *testing.T) {
	e := newEnv(t, nil)
	limit := 3
	rt := e.template(t, "Gym", domain.Schedule{Frequency: domain.FrequencyDaily, Interval: 1}, e.clock.Now())
	rt.EndAfterOccurrences = &limit
	require.NoError(t, e.memory.Repos().Recurring.Update(e.ctx, rt))

	for day := 0; day < 5; day++ {
		_, err := e.scheduler.Sweep(e.ctx)
		require.NoError(t, err)
		e.clock.Set(e.clock.Now().AddDate(0, 0, 1))
	}

	reloaded := e.reload(t, rt.ID)
	assert.False(t, reloaded.IsActive)
	assert.Equal(t, 3, reloaded.OccurrenceCount)
	assert.Len(t, e.transactions(t), 3)
	assert.True(t, decimal.NewFromInt(-300).Equal(e.balance(t)))
}

func TestSweepClampsMonthEnd(t *testing.T) {
	e := newEnv(t, nil)
	day := 31
	rt := e.template(t, "Rent", domain.Schedule{Frequency: domain.FrequencyMonthly, Interval: 1, DayOfMonth: &day}, e.clock.Now())

	result, err := e.scheduler.Sweep(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Materialized: 1}, result)
	assert.Equal(t, time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC), e.reload(t, rt.ID).NextExecutionDate)

	result, err = e.scheduler.Sweep(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Due, "nothing is due before the next execution date")

	e.clock.Set(time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC))
	_, err = e.scheduler.Sweep(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 31, 9, 0, 0, 0, time.UTC), e.reload(t, rt.ID).NextExecutionDate)

	materialized := e.transactions(t)
	require.Len(t, materialized, 2)
	for _, transaction := range materialized {
		assert.True(t, transaction.IsRecurring)
		assert.Equal(t, "Rent", transaction.Description)
	}
	assert.Equal(t, 2, e.triggers.users[e.userID])
}

func TestSweepStopsExpiredTemplateWithoutGenerating(t *testing.T) {
	e := newEnv(t, nil)
	rt := e.template(t, "Old plan", domain.Schedule{Frequency: domain.FrequencyWeekly, Interval: 1}, e.clock.Now().AddDate(0, 0, -10))
	ended := e.clock.Now().AddDate(0, 0, -1)
	rt.EndDate = &ended
	require.NoError(t, e.memory.Repos().Recurring.Update(e.ctx, rt))

	result, err := e.scheduler.Sweep(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Stopped: 1}, result)
	assert.False(t, e.reload(t, rt.ID).IsActive)
	assert.Empty(t, e.transactions(t))
	assert.Empty(t, e.triggers.users)
}

func TestSweepIsolatesFailures(t *testing.T) {
	e := newEnv(t, nil)
	schedule := domain.Schedule{Frequency: domain.FrequencyMonthly, Interval: 1}
	first := e.template(t, "Insurance", schedule, e.clock.Now().Add(-2*time.Hour))
	second := e.template(t, "Phone", schedule, e.clock.Now().Add(-time.Hour))
	e.memory.InjectFailure("recurring.Update", errors.New("deadlock detected"))

	result, err := e.scheduler.Sweep(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 2, Materialized: 1, Failed: 1}, result)

	failed := e.reload(t, first.ID)
	assert.Equal(t, 0, failed.OccurrenceCount, "the failed record is rolled back")
	assert.Equal(t, 1, e.reload(t, second.ID).OccurrenceCount)
	assert.Len(t, e.transactions(t), 1)
	assert.True(t, decimal.NewFromInt(-100).Equal(e.balance(t)))

	result, err = e.scheduler.Sweep(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Materialized: 1}, result, "the failed record is retried")
}

// panickingTransactions blows up when asked to store a transaction with a given description.
type panickingTransactions struct {
	domain.TransactionRepository
	description string
}

func (p panickingTransactions) Create(ctx context.Context, transaction *domain.Transaction) error {
	if transaction.Description == p.description {
		panic("corrupt template")
	}
	return p.TransactionRepository.Create(ctx, transaction)
}

type panickingStore struct {
	*infrastructure.MemoryStore
}

func (s panickingStore) WithinTx(ctx context.Context, fn func(domain.Repositories) error) error {
	return s.MemoryStore.WithinTx(ctx, func(repos domain.Repositories) error {
		repos.Transactions = panickingTransactions{TransactionRepository: repos.Transactions, description: "Broken"}
		return fn(repos)
	})
}

func TestSweepRecoversFromPanics(t *testing.T) {
	e := newEnv(t, func(m *infrastructure.MemoryStore) domain.Store { return panickingStore{m} })
	schedule := domain.Schedule{Frequency: domain.FrequencyDaily, Interval: 1}
	e.template(t, "Broken", schedule, e.clock.Now().Add(-2*time.Hour))
	healthy := e.template(t, "Netflix", schedule, e.clock.Now().Add(-time.Hour))

	result, err := e.scheduler.Sweep(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Materialized)
	assert.Equal(t, 1, e.reload(t, healthy.ID).OccurrenceCount)
	assert.True(t, decimal.NewFromInt(-100).Equal(e.balance(t)))
}

func TestStartRunsImmediateSweep(t *testing.T) {
	e := newEnv(t, nil)
	rt := e.template(t, "Salary", domain.Schedule{Frequency: domain.FrequencyMonthly, Interval: 1}, e.clock.Now())

	require.NoError(t, e.scheduler.Start())
	assert.Eventually(t, func() bool {
		stored, err := e.memory.Repos().Recurring.FindByID(e.ctx, e.userID, rt.ID)
		return err == nil && stored.OccurrenceCount == 1
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.scheduler.Stop(ctx))
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := New(infrastructure.NewMemoryStore(), application.NewBalanceReconciler(nil, zerolog.Nop()), nil, nil, nil, "every now and then", zerolog.Nop())
	assert.Error(t, s.Start())
}

// listHookRecurring runs afterList once the due templates have been read.
type listHookRecurring struct {
	domain.RecurringRepository
	afterList *func()
}

func (r listHookRecurring) ListDue(ctx context.Context, asOf time.Time) ([]domain.RecurringTransaction, error) {
	due, err := r.RecurringRepository.ListDue(ctx, asOf)
	if err == nil && *r.afterList != nil {
		(*r.afterList)()
	}
	return due, err
}

type listHookStore struct {
	*infrastructure.MemoryStore
	afterList *func()
}

func (s listHookStore) Repos() domain.Repositories {
	repos := s.MemoryStore.Repos()
	repos.Recurring = listHookRecurring{RecurringRepository: repos.Recurring, afterList: s.afterList}
	return repos
}

func TestSweepSkipsTemplatePausedAfterListing(t *testing.T) {
	var afterList func()
	e := newEnv(t, func(m *infrastructure.MemoryStore) domain.Store { return listHookStore{m, &afterList} })
	rt := e.template(t, "Gym", domain.Schedule{Frequency: domain.FrequencyMonthly, Interval: 1}, e.clock.Now())

	recurring := application.NewRecurringService(e.memory, e.clock.Now, zerolog.Nop())
	afterList = func() {
		paused, err := recurring.Toggle(e.ctx, e.userID, rt.ID)
		require.NoError(t, err)
		require.False(t, paused.IsActive)
	}

	result, err := e.scheduler.Sweep(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Skipped: 1}, result)

	reloaded := e.reload(t, rt.ID)
	assert.False(t, reloaded.IsActive, "the pause survives the sweep")
	assert.Equal(t, 0, reloaded.OccurrenceCount)
	assert.Empty(t, e.transactions(t))
	assert.True(t, decimal.Zero.Equal(e.balance(t)))
}

func TestSweepMaterializesTheLatestAmount(t *testing.T) {
	var afterList func()
	e := newEnv(t, func(m *infrastructure.MemoryStore) domain.Store { return listHookStore{m, &afterList} })
	rt := e.template(t, "Rent", domain.Schedule{Frequency: domain.FrequencyMonthly, Interval: 1}, e.clock.Now())

	recurring := application.NewRecurringService(e.memory, e.clock.Now, zerolog.Nop())
	afterList = func() {
		amount := decimal.NewFromInt(250)
		_, err := recurring.Update(e.ctx, e.userID, rt.ID, application.RecurringUpdate{Amount: &amount})
		require.NoError(t, err)
	}

	result, err := e.scheduler.Sweep(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 1, Materialized: 1}, result)

	materialized := e.transactions(t)
	require.Len(t, materialized, 1)
	assert.True(t, decimal.NewFromInt(250).Equal(materialized[0].Amount))
	assert.True(t, decimal.NewFromInt(-250).Equal(e.balance(t)))
	assert.True(t, decimal.NewFromInt(250).Equal(e.reload(t, rt.ID).Amount), "the edit is kept")
}

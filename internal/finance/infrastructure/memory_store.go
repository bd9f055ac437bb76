package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
)

var _ domain.Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in maps. WithinTx restores the previous state when fn fails,
// which is enough to exercise rollback paths in tests.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data memoryData
	// failures holds one-shot errors keyed by operation name, e.g. "transactions.CreateBatch".
	failures map[string]error
}

type memoryData struct {
	accounts     map[uuid.UUID]domain.Account
	transactions map[uuid.UUID]domain.Transaction
	categories   []domain.Category
	budgets      map[uuid.UUID]domain.Budget
	recurring    map[uuid.UUID]domain.RecurringTransaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: memoryData{
			accounts:     map[uuid.UUID]domain.Account{},
			transactions: map[uuid.UUID]domain.Transaction{},
			budgets:      map[uuid.UUID]domain.Budget{},
			recurring:    map[uuid.UUID]domain.RecurringTransaction{},
		},
		failures: map[string]error{},
	}
}

func (s *MemoryStore) Repos() domain.Repositories {
	return domain.Repositories{
		Accounts:     &memoryAccounts{s},
		Transactions: &memoryTransactions{s},
		Categories:   &memoryCategories{s},
		Budgets:      &memoryBudgets{s},
		Recurring:    &memoryRecurring{s},
	}
}

func (s *MemoryStore) WithinTx(_ context.Context, fn func(repos domain.Repositories) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		} else if err != nil {
			s.restore(snapshot)
		}
	}()
	return fn(s.Repos())
}

// InjectFailure makes the next call of op return err.
func (s *MemoryStore) InjectFailure(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *MemoryStore) restore(snapshot memoryData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = snapshot
}

// fail must be called with mu held.
func (s *MemoryStore) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return financeErrors.NewPersistenceError(op, err)
	}
	return nil
}

func (d memoryData) clone() memoryData {
	out := memoryData{
		accounts:     make(map[uuid.UUID]domain.Account, len(d.accounts)),
		transactions: make(map[uuid.UUID]domain.Transaction, len(d.transactions)),
		categories:   append([]domain.Category(nil), d.categories...),
		budgets:      make(map[uuid.UUID]domain.Budget, len(d.budgets)),
		recurring:    make(map[uuid.UUID]domain.RecurringTransaction, len(d.recurring)),
	}
	for k, v := range d.accounts {
		out.accounts[k] = v
	}
	for k, v := range d.transactions {
		out.transactions[k] = v
	}
	for k, v := range d.budgets {
		out.budgets[k] = v
	}
	for k, v := range d.recurring {
		out.recurring[k] = v
	}
	return out
}

type memoryAccounts struct{ s *MemoryStore }

func (r *memoryAccounts) Create(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.Create"); err != nil {
		return err
	}
	r.s.data.accounts[account.ID] = *account
	return nil
}

func (r *memoryAccounts) FindByID(_ context.Context, userID string, accountID uuid.UUID) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.data.accounts[accountID]
	if !ok || account.UserID != userID {
		return nil, financeErrors.NewNotFoundError("account", accountID.String())
	}
	return &account, nil
}

func (r *memoryAccounts) ListByUser(_ context.Context, userID string) ([]domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	accounts := []domain.Account{}
	for _, account := range r.s.data.accounts {
		if account.UserID == userID {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}

func (r *memoryAccounts) AdjustBalance(_ context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("accounts.AdjustBalance"); err != nil {
		return decimal.Zero, err
	}
	account, ok := r.s.data.accounts[accountID]
	if !ok {
		return decimal.Zero, financeErrors.NewNotFoundError("account", accountID.String())
	}
	account.Balance = account.Balance.Add(delta)
	r.s.data.accounts[accountID] = account
	return account.Balance, nil
}

func (r *memoryAccounts) SetBalance(_ context.Context, accountID uuid.UUID, balance decimal.Decimal) error {
	return r.update(accountID, func(a *domain.Account) { a.Balance = balance })
}

func (r *memoryAccounts) MarkSynced(_ context.Context, accountID uuid.UUID, at time.Time) error {
	return r.update(accountID, func(a *domain.Account) { a.LastSyncedAt = &at })
}

func (r *memoryAccounts) Deactivate(_ context.Context, userID string, accountID uuid.UUID) error {
	r.s.mu.Lock()
	account, ok := r.s.data.accounts[accountID]
	r.s.mu.Unlock()
	if !ok || account.UserID != userID {
		return financeErrors.NewNotFoundError("account", accountID.String())
	}
	return r.update(accountID, func(a *domain.Account) { a.IsActive = false })
}

func (r *memoryAccounts) update(accountID uuid.UUID, fn func(*domain.Account)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.data.accounts[accountID]
	if !ok {
		return financeErrors.NewNotFoundError("account", accountID.String())
	}
	fn(&account)
	r.s.data.accounts[accountID] = account
	return nil
}

type memoryTransactions struct{ s *MemoryStore }

func (r *memoryTransactions) Create(_ context.Context, transaction *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("transactions.Create"); err != nil {
		return err
	}
	return r.insert(*transaction)
}

func (r *memoryTransactions) CreateBatch(_ context.Context, transactions []domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("transactions.CreateBatch"); err != nil {
		return err
	}
	for i, transaction := range transactions {
		if err := r.insert(transaction); err != nil {
			return financeErrors.NewPersistenceError(fmt.Sprintf("create transaction %d of batch", i+1), err)
		}
	}
	return nil
}

// insert enforces the per-owner import hash uniqueness. mu must be held.
func (r *memoryTransactions) insert(transaction domain.Transaction) error {
	if transaction.ImportHash != nil {
		for _, existing := range r.s.data.transactions {
			if existing.UserID == transaction.UserID && existing.ImportHash != nil && *existing.ImportHash == *transaction.ImportHash {
				return financeErrors.NewPersistenceError("create transaction", fmt.Errorf("duplicate import hash %s", *transaction.ImportHash))
			}
		}
	}
	transaction.Tags = append([]string(nil), transaction.Tags...)
	r.s.data.transactions[transaction.ID] = transaction
	return nil
}

func (r *memoryTransactions) Update(_ context.Context, transaction *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("transactions.Update"); err != nil {
		return err
	}
	existing, ok := r.s.data.transactions[transaction.ID]
	if !ok || existing.UserID != transaction.UserID {
		return financeErrors.NewNotFoundError("transaction", transaction.ID.String())
	}
	r.s.data.transactions[transaction.ID] = *transaction
	return nil
}

func (r *memoryTransactions) Delete(_ context.Context, userID string, transactionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.data.transactions[transactionID]
	if !ok || existing.UserID != userID {
		return financeErrors.NewNotFoundError("transaction", transactionID.String())
	}
	delete(r.s.data.transactions, transactionID)
	return nil
}

// FindByIDForUpdate needs no extra locking: WithinTx already runs one transaction at a time.
func (r *memoryTransactions) FindByIDForUpdate(ctx context.Context, userID string, transactionID uuid.UUID) (*domain.Transaction, error) {
	return r.FindByID(ctx, userID, transactionID)
}

func (r *memoryTransactions) FindByID(_ context.Context, userID string, transactionID uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	transaction, ok := r.s.data.transactions[transactionID]
	if !ok || transaction.UserID != userID {
		return nil, financeErrors.NewNotFoundError("transaction", transactionID.String())
	}
	return &transaction, nil
}

func (r *memoryTransactions) List(_ context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Transaction{}
	for _, t := range r.s.data.transactions {
		if t.UserID != userID {
			continue
		}
		if filter.AccountID != nil && t.AccountID != *filter.AccountID {
			continue
		}
		if filter.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if !filter.From.IsZero() && t.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && t.Date.After(filter.To) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryTransactions) ExistingImportHashes(_ context.Context, userID string, hashes []string) (map[string]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := toSet(hashes)
	found := map[string]bool{}
	for _, t := range r.s.data.transactions {
		if t.UserID == userID && t.ImportHash != nil && wanted[*t.ImportHash] {
			found[*t.ImportHash] = true
		}
	}
	return found, nil
}

func (r *memoryTransactions) ExistingExternalIDs(_ context.Context, userID string, externalIDs []string) (map[string]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := toSet(externalIDs)
	found := map[string]bool{}
	for _, t := range r.s.data.transactions {
		if t.UserID == userID && t.ExternalID != nil && wanted[*t.ExternalID] {
			found[*t.ExternalID] = true
		}
	}
	return found, nil
}

func (r *memoryTransactions) SumExpenses(_ context.Context, userID, categoryName string, from, to time.Time) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matching := map[uuid.UUID]bool{}
	for _, c := range r.s.data.categories {
		if c.UserID == userID && c.Name == categoryName {
			matching[c.ID] = true
		}
	}
	sum := decimal.Zero
	for _, t := range r.s.data.transactions {
		if t.UserID != userID || t.Type != domain.TransactionTypeExpense || t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		if categoryName != "" && (t.CategoryID == nil || !matching[*t.CategoryID]) {
			continue
		}
		sum = sum.Add(t.Amount.Abs())
	}
	return sum, nil
}

func (r *memoryTransactions) SumSignedByAccount(_ context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, t := range r.s.data.transactions {
		if t.AccountID == accountID {
			sum = sum.Add(t.SignedAmount())
		}
	}
	return sum, nil
}

type memoryCategories struct{ s *MemoryStore }

func (r *memoryCategories) Create(_ context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.categories = append(r.s.data.categories, *category)
	return nil
}

func (r *memoryCategories) CreateBatch(ctx context.Context, categories []domain.Category) error {
	for i := range categories {
		if err := r.Create(ctx, &categories[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryCategories) FindByID(_ context.Context, userID string, categoryID uuid.UUID) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.data.categories {
		if c.ID == categoryID && c.UserID == userID {
			return &c, nil
		}
	}
	return nil, financeErrors.NewNotFoundError("category", categoryID.String())
}

func (r *memoryCategories) FindByName(_ context.Context, userID, name string) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.data.categories {
		if c.Name == name && c.UserID == userID {
			return &c, nil
		}
	}
	return nil, financeErrors.NewNotFoundError("category", name)
}

func (r *memoryCategories) ListByUser(_ context.Context, userID string) ([]domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Category{}
	for _, c := range r.s.data.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memoryBudgets struct{ s *MemoryStore }

func (r *memoryBudgets) Create(_ context.Context, budget *domain.Budget) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.budgets[budget.ID] = *budget
	return nil
}

func (r *memoryBudgets) Update(_ context.Context, budget *domain.Budget) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.data.budgets[budget.ID]
	if !ok || existing.UserID != budget.UserID {
		return financeErrors.NewNotFoundError("budget", budget.ID.String())
	}
	r.s.data.budgets[budget.ID] = *budget
	return nil
}

func (r *memoryBudgets) FindByIDForUpdate(ctx context.Context, userID string, budgetID uuid.UUID) (*domain.Budget, error) {
	return r.FindByID(ctx, userID, budgetID)
}

func (r *memoryBudgets) FindByID(_ context.Context, userID string, budgetID uuid.UUID) (*domain.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	budget, ok := r.s.data.budgets[budgetID]
	if !ok || budget.UserID != userID {
		return nil, financeErrors.NewNotFoundError("budget", budgetID.String())
	}
	budget.CategoryName = r.categoryName(budget.CategoryID)
	return &budget, nil
}

func (r *memoryBudgets) ListByUser(_ context.Context, userID string, activeOnly bool) ([]domain.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Budget{}
	for _, budget := range r.s.data.budgets {
		if budget.UserID != userID || (activeOnly && !budget.IsActive) {
			continue
		}
		budget.CategoryName = r.categoryName(budget.CategoryID)
		out = append(out, budget)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (r *memoryBudgets) SetAlertSent(_ context.Context, budgetID uuid.UUID, sent bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("budgets.SetAlertSent"); err != nil {
		return err
	}
	budget, ok := r.s.data.budgets[budgetID]
	if !ok {
		return financeErrors.NewNotFoundError("budget", budgetID.String())
	}
	budget.AlertSent = sent
	r.s.data.budgets[budgetID] = budget
	return nil
}

// categoryName must be called with mu held.
func (r *memoryBudgets) categoryName(categoryID uuid.UUID) string {
	for _, c := range r.s.data.categories {
		if c.ID == categoryID {
			return c.Name
		}
	}
	return ""
}

type memoryRecurring struct{ s *MemoryStore }

func (r *memoryRecurring) Create(_ context.Context, rt *domain.RecurringTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.recurring[rt.ID] = *rt
	return nil
}

func (r *memoryRecurring) Update(_ context.Context, rt *domain.RecurringTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("recurring.Update"); err != nil {
		return err
	}
	existing, ok := r.s.data.recurring[rt.ID]
	if !ok || existing.UserID != rt.UserID {
		return financeErrors.NewNotFoundError("recurring transaction", rt.ID.String())
	}
	r.s.data.recurring[rt.ID] = *rt
	return nil
}

func (r *memoryRecurring) FindByIDForUpdate(ctx context.Context, userID string, recurringID uuid.UUID) (*domain.RecurringTransaction, error) {
	return r.FindByID(ctx, userID, recurringID)
}

func (r *memoryRecurring) FindByID(_ context.Context, userID string, recurringID uuid.UUID) (*domain.RecurringTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.data.recurring[recurringID]
	if !ok || rt.UserID != userID {
		return nil, financeErrors.NewNotFoundError("recurring transaction", recurringID.String())
	}
	return &rt, nil
}

func (r *memoryRecurring) ListByUser(_ context.Context, userID string, active *bool) ([]domain.RecurringTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.RecurringTransaction{}
	for _, rt := range r.s.data.recurring {
		if rt.UserID == userID && (active == nil || rt.IsActive == *active) {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRecurring) ListDue(_ context.Context, asOf time.Time) ([]domain.RecurringTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.RecurringTransaction{}
	for _, rt := range r.s.data.recurring {
		if rt.IsDue(asOf) {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextExecutionDate.Before(out[j].NextExecutionDate) })
	return out, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

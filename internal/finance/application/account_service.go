package application

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	"github.com/shopspring/decimal"
)

const openingBalanceDescription = "Opening balance"

type AccountService struct {
	store      domain.Store
	reconciler *BalanceReconciler
	clock      Clock
	log        zerolog.Logger
}

func NewAccountService(store domain.Store, reconciler *BalanceReconciler, clock Clock, log zerolog.Logger) *AccountService {
	return &AccountService{store: store, reconciler: reconciler, clock: clock, log: log}
}

// Create stores a new account. A non-zero starting balance is recorded as an opening
// transaction so the balance always matches the ledger.
func (s *AccountService) Create(ctx context.Context, userID string, account *domain.Account) error {
	now := s.clock.now()
	opening := account.Balance.Round(2)

	account.ID = uuid.New()
	account.UserID = userID
	account.Currency = strings.ToUpper(account.Currency)
	account.Balance = decimal.Zero
	account.IsActive = true
	account.CreatedAt = now
	if account.ExternalProvider == "" {
		account.ExternalProvider = domain.ProviderManual
	}
	if err := account.Validate(); err != nil {
		return err
	}

	return s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if err := repos.Accounts.Create(ctx, account); err != nil {
			return err
		}
		if opening.IsZero() {
			return nil
		}
		transactionType := domain.TransactionTypeIncome
		if opening.IsNegative() {
			transactionType = domain.TransactionTypeExpense
		}
		transaction := domain.Transaction{
			ID:          uuid.New(),
			UserID:      userID,
			AccountID:   account.ID,
			Type:        transactionType,
			Amount:      opening.Abs(),
			Currency:    account.Currency,
			Date:        now,
			Description: openingBalanceDescription,
			CreatedAt:   now,
		}
		if err := repos.Transactions.Create(ctx, &transaction); err != nil {
			return err
		}
		balance, err := s.reconciler.ApplyCreate(ctx, repos.Accounts, transaction)
		if err != nil {
			return err
		}
		account.Balance = balance
		return nil
	})
}

func (s *AccountService) Get(ctx context.Context, userID string, accountID uuid.UUID) (*domain.Account, error) {
	return s.store.Repos().Accounts.FindByID(ctx, userID, accountID)
}

func (s *AccountService) List(ctx context.Context, userID string) ([]domain.Account, error) {
	return s.store.Repos().Accounts.ListByUser(ctx, userID)
}

// Deactivate soft deletes the account. Its transactions stay in the ledger.
func (s *AccountService) Deactivate(ctx context.Context, userID string, accountID uuid.UUID) error {
	return s.store.Repos().Accounts.Deactivate(ctx, userID, accountID)
}

// Reconcile repairs balance drift and returns the account with the correction applied.
func (s *AccountService) Reconcile(ctx context.Context, userID string, accountID uuid.UUID) (*domain.Account, decimal.Decimal, error) {
	correction, err := s.reconciler.Reconcile(ctx, s.store, userID, accountID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	account, err := s.Get(ctx, userID, accountID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return account, correction, nil
}

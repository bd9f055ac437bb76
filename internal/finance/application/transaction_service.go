package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/categorize"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
)

type TransactionService struct {
	store       domain.Store
	reconciler  *BalanceReconciler
	categorizer *categorize.Categorizer
	alerts      AlertTrigger
	clock       Clock
	log         zerolog.Logger
}

func NewTransactionService(store domain.Store, reconciler *BalanceReconciler, categorizer *categorize.Categorizer, alerts AlertTrigger, clock Clock, log zerolog.Logger) *TransactionService {
	return &TransactionService{
		store:       store,
		reconciler:  reconciler,
		categorizer: categorizer,
		alerts:      triggerOrNoop(alerts),
		clock:       clock,
		log:         log,
	}
}

// TransactionUpdate holds the fields an edit may change. Nil fields are left as they are.
type TransactionUpdate struct {
	AccountID    *uuid.UUID              `json:"accountId"`
	CategoryID   *uuid.UUID              `json:"categoryId"`
	Type         *domain.TransactionType `json:"type"`
	Amount       *decimal.Decimal        `json:"amount"`
	Currency     *string                 `json:"currency"`
	Date         *time.Time              `json:"date"`
	Description  *string                 `json:"description"`
	MerchantName *string                 `json:"merchantName"`
	Notes        *string                 `json:"notes"`
	Tags         []string                `json:"tags"`
}

// Create stores a manual transaction. Without a category the categorizer picks one.
func (s *TransactionService) Create(ctx context.Context, userID string, transaction *domain.Transaction) error {
	transaction.ID = uuid.New()
	transaction.UserID = userID
	transaction.CreatedAt = s.clock.now()
	transaction.Currency = strings.ToUpper(transaction.Currency)
	transaction.Amount = transaction.Amount.Round(2)
	if transaction.Date.IsZero() {
		transaction.Date = transaction.CreatedAt
	}
	if err := transaction.Validate(); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if err := s.requireAccount(ctx, repos, userID, transaction.AccountID); err != nil {
			return err
		}
		if err := s.assignCategory(ctx, repos, userID, transaction); err != nil {
			return err
		}
		if err := repos.Transactions.Create(ctx, transaction); err != nil {
			return err
		}
		_, err := s.reconciler.ApplyCreate(ctx, repos.Accounts, *transaction)
		return err
	})
	if err != nil {
		return err
	}
	s.alerts.Trigger(userID)
	return nil
}

func (s *TransactionService) Update(ctx context.Context, userID string, transactionID uuid.UUID, patch TransactionUpdate) (*domain.Transaction, error) {
	var updated domain.Transaction
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		original, err := repos.Transactions.FindByIDForUpdate(ctx, userID, transactionID)
		if err != nil {
			return err
		}
		updated = *original
		patch.apply(&updated)
		if err := updated.Validate(); err != nil {
			return err
		}
		if updated.AccountID != original.AccountID {
			if err := s.requireAccount(ctx, repos, userID, updated.AccountID); err != nil {
				return err
			}
		}
		if patch.CategoryID != nil {
			if _, err := repos.Categories.FindByID(ctx, userID, *patch.CategoryID); err != nil {
				return err
			}
			confidence := domain.ManualConfidence
			updated.CategoryConfidence = &confidence
		}
		if err := repos.Transactions.Update(ctx, &updated); err != nil {
			return err
		}
		return s.reconciler.ApplyEdit(ctx, repos.Accounts, *original, updated)
	})
	if err != nil {
		return nil, err
	}
	s.alerts.Trigger(userID)
	return &updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID string, transactionID uuid.UUID) error {
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		transaction, err := repos.Transactions.FindByIDForUpdate(ctx, userID, transactionID)
		if err != nil {
			return err
		}
		if err := repos.Transactions.Delete(ctx, userID, transactionID); err != nil {
			return err
		}
		return s.reconciler.ApplyDelete(ctx, repos.Accounts, *transaction)
	})
	if err != nil {
		return err
	}
	s.alerts.Trigger(userID)
	return nil
}

// Recategorize records a manual category choice, which always carries full confidence.
func (s *TransactionService) Recategorize(ctx context.Context, userID string, transactionID, categoryID uuid.UUID) (*domain.Transaction, error) {
	var transaction *domain.Transaction
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		var err error
		transaction, err = repos.Transactions.FindByIDForUpdate(ctx, userID, transactionID)
		if err != nil {
			return err
		}
		if _, err := repos.Categories.FindByID(ctx, userID, categoryID); err != nil {
			return err
		}
		confidence := domain.ManualConfidence
		transaction.CategoryID = &categoryID
		transaction.CategoryConfidence = &confidence
		return repos.Transactions.Update(ctx, transaction)
	})
	if err != nil {
		return nil, err
	}
	s.alerts.Trigger(userID)
	return transaction, nil
}

func (s *TransactionService) Get(ctx context.Context, userID string, transactionID uuid.UUID) (*domain.Transaction, error) {
	return s.store.Repos().Transactions.FindByID(ctx, userID, transactionID)
}

func (s *TransactionService) List(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Type != "" && !domain.IsValidTransactionType(filter.Type) {
		return nil, financeErrors.ErrInvalidTransactionType
	}
	return s.store.Repos().Transactions.List(ctx, userID, filter)
}

func (s *TransactionService) requireAccount(ctx context.Context, repos domain.Repositories, userID string, accountID uuid.UUID) error {
	account, err := repos.Accounts.FindByID(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return financeErrors.NewValidationError("Account is inactive")
	}
	return nil
}

func (s *TransactionService) assignCategory(ctx context.Context, repos domain.Repositories, userID string, transaction *domain.Transaction) error {
	if transaction.CategoryID != nil {
		if _, err := repos.Categories.FindByID(ctx, userID, *transaction.CategoryID); err != nil {
			return err
		}
		confidence := domain.ManualConfidence
		transaction.CategoryConfidence = &confidence
		return nil
	}
	categories, err := repos.Categories.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	merchant := transaction.MerchantName
	if merchant == "" {
		merchant = transaction.Description
	}
	result := s.categorizer.Categorize(transaction.Type, transaction.Description, merchant, categories)
	if result.CategoryID != nil {
		transaction.CategoryID = result.CategoryID
		confidence := result.Confidence
		transaction.CategoryConfidence = &confidence
	}
	return nil
}

func (p TransactionUpdate) apply(t *domain.Transaction) {
	if p.AccountID != nil {
		t.AccountID = *p.AccountID
	}
	if p.CategoryID != nil {
		t.CategoryID = p.CategoryID
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = p.Amount.Round(2)
	}
	if p.Currency != nil {
		t.Currency = strings.ToUpper(*p.Currency)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.MerchantName != nil {
		t.MerchantName = *p.MerchantName
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Tags != nil {
		t.Tags = p.Tags
	}
}

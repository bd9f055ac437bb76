package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
)

// RecurringUpdate holds the template fields an edit may change. Nil fields are left as they are.
type RecurringUpdate struct {
	AccountID           *uuid.UUID              `json:"accountId"`
	CategoryID          *uuid.UUID              `json:"categoryId"`
	Type                *domain.TransactionType `json:"type"`
	Amount              *decimal.Decimal        `json:"amount"`
	Currency            *string                 `json:"currency"`
	Description         *string                 `json:"description"`
	MerchantName        *string                 `json:"merchantName"`
	Notes               *string                 `json:"notes"`
	Tags                []string                `json:"tags"`
	Frequency           *domain.Frequency       `json:"frequency"`
	Interval            *int                    `json:"interval"`
	DayOfMonth          *int                    `json:"dayOfMonth"`
	DayOfWeek           *int                    `json:"dayOfWeek"`
	StartDate           *time.Time              `json:"startDate"`
	EndDate             *time.Time              `json:"endDate"`
	EndAfterOccurrences *int                    `json:"endAfterOccurrences"`
	IsActive            *bool                   `json:"isActive"`
}

func (u RecurringUpdate) changesSchedule() bool {
	return u.Frequency != nil || u.Interval != nil || u.DayOfMonth != nil || u.DayOfWeek != nil || u.StartDate != nil
}

type RecurringService struct {
	store domain.Store
	clock Clock
	log   zerolog.Logger
}

func NewRecurringService(store domain.Store, clock Clock, log zerolog.Logger) *RecurringService {
	return &RecurringService{store: store, clock: clock, log: log}
}

func (s *RecurringService) Create(ctx context.Context, userID string, rt *domain.RecurringTransaction) error {
	rt.ID = uuid.New()
	rt.UserID = userID
	rt.Amount = rt.Amount.Abs().Round(2)
	rt.Currency = strings.ToUpper(rt.Currency)
	if rt.Interval == 0 {
		rt.Interval = 1
	}
	rt.OccurrenceCount = 0
	rt.LastExecutionDate = nil
	rt.IsActive = true
	rt.CreatedAt = s.clock.now()

	return s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		account, err := repos.Accounts.FindByID(ctx, userID, rt.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return financeErrors.NewValidationError("Account is inactive")
		}
		if rt.Currency == "" {
			rt.Currency = account.Currency
		}
		if err := rt.Validate(); err != nil {
			return err
		}
		if rt.CategoryID != nil {
			if _, err := repos.Categories.FindByID(ctx, userID, *rt.CategoryID); err != nil {
				return err
			}
		}
		rt.RecomputeNext()
		return repos.Recurring.Create(ctx, rt)
	})
}

func (s *RecurringService) Update(ctx context.Context, userID string, recurringID uuid.UUID, patch RecurringUpdate) (*domain.RecurringTransaction, error) {
	var rt *domain.RecurringTransaction
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		var err error
		rt, err = repos.Recurring.FindByIDForUpdate(ctx, userID, recurringID)
		if err != nil {
			return err
		}
		if patch.AccountID != nil {
			if _, err := repos.Accounts.FindByID(ctx, userID, *patch.AccountID); err != nil {
				return err
			}
		}
		if patch.CategoryID != nil {
			if _, err := repos.Categories.FindByID(ctx, userID, *patch.CategoryID); err != nil {
				return err
			}
		}
		patch.apply(rt)
		if err := rt.Validate(); err != nil {
			return err
		}
		if patch.changesSchedule() {
			rt.RecomputeNext()
		}
		return repos.Recurring.Update(ctx, rt)
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// Delete deactivates the template. Transactions it produced are kept.
func (s *RecurringService) Delete(ctx context.Context, userID string, recurringID uuid.UUID) error {
	active := false
	_, err := s.Update(ctx, userID, recurringID, RecurringUpdate{IsActive: &active})
	return err
}

// Toggle pauses an active template or resumes a paused one.
func (s *RecurringService) Toggle(ctx context.Context, userID string, recurringID uuid.UUID) (*domain.RecurringTransaction, error) {
	var rt *domain.RecurringTransaction
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		var err error
		rt, err = repos.Recurring.FindByIDForUpdate(ctx, userID, recurringID)
		if err != nil {
			return err
		}
		rt.IsActive = !rt.IsActive
		return repos.Recurring.Update(ctx, rt)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID).Str("recurring_id", recurringID.String()).Bool("active", rt.IsActive).
		Msg("Recurring transaction toggled")
	return rt, nil
}

func (s *RecurringService) Get(ctx context.Context, userID string, recurringID uuid.UUID) (*domain.RecurringTransaction, error) {
	return s.store.Repos().Recurring.FindByID(ctx, userID, recurringID)
}

// List returns the owner's templates, optionally filtered by the active flag.
func (s *RecurringService) List(ctx context.Context, userID string, active *bool) ([]domain.RecurringTransaction, error) {
	return s.store.Repos().Recurring.ListByUser(ctx, userID, active)
}

func (u RecurringUpdate) apply(rt *domain.RecurringTransaction) {
	if u.AccountID != nil {
		rt.AccountID = *u.AccountID
	}
	if u.CategoryID != nil {
		rt.CategoryID = u.CategoryID
	}
	if u.Type != nil {
		rt.Type = *u.Type
	}
	if u.Amount != nil {
		rt.Amount = u.Amount.Abs().Round(2)
	}
	if u.Currency != nil {
		rt.Currency = strings.ToUpper(*u.Currency)
	}
	if u.Description != nil {
		rt.Description = *u.Description
	}
	if u.MerchantName != nil {
		rt.MerchantName = *u.MerchantName
	}
	if u.Notes != nil {
		rt.Notes = *u.Notes
	}
	if u.Tags != nil {
		rt.Tags = u.Tags
	}
	if u.Frequency != nil {
		rt.Frequency = *u.Frequency
	}
	if u.Interval != nil {
		rt.Interval = *u.Interval
	}
	if u.DayOfMonth != nil {
		rt.DayOfMonth = u.DayOfMonth
	}
	if u.DayOfWeek != nil {
		rt.DayOfWeek = u.DayOfWeek
	}
	if u.StartDate != nil {
		rt.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		rt.EndDate = u.EndDate
	}
	if u.EndAfterOccurrences != nil {
		rt.EndAfterOccurrences = u.EndAfterOccurrences
	}
	if u.IsActive != nil {
		rt.IsActive = *u.IsActive
	}
}

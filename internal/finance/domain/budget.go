package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
)

// GlobalCategoryName is the budget category that counts every expense.
const GlobalCategoryName = "Global"

const DefaultAlertThreshold = 80

type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

type Budget struct {
	ID             uuid.UUID       `json:"id"`
	UserID         string          `json:"userId"`
	CategoryID     uuid.UUID       `json:"categoryId"`
	CategoryName   string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	Period         BudgetPeriod    `json:"period"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        *time.Time      `json:"endDate,omitempty"`
	AlertThreshold int             `json:"alertThreshold"`
	AlertSent      bool            `json:"alertSent"`
	IsActive       bool            `json:"isActive"`
}

func (b *Budget) Validate() error {
	if !b.Amount.IsPositive() {
		return errors.NewValidationError("Budget amount must be greater than zero")
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		return errors.NewValidationError("Alert threshold must be between 0 and 100")
	}
	if b.StartDate.IsZero() {
		return errors.NewValidationError("Start date is required")
	}
	if b.EndDate != nil && b.EndDate.Before(b.StartDate) {
		return errors.NewValidationError("End date must not be before start date")
	}
	if b.Period != BudgetPeriodMonthly && b.Period != BudgetPeriodYearly {
		return errors.NewValidationError("Period must be 'monthly' or 'yearly'")
	}
	return nil
}

func (b *Budget) IsGlobal() bool {
	return b.CategoryName == GlobalCategoryName
}

// Covers reports whether now falls inside the budget window. A nil end date is open ended.
func (b *Budget) Covers(now time.Time) bool {
	if now.Before(b.StartDate) {
		return false
	}
	return b.EndDate == nil || !now.After(*b.EndDate)
}

// SpendWindow is [start, min(end, now)].
func (b *Budget) SpendWindow(now time.Time) (time.Time, time.Time) {
	to := now
	if b.EndDate != nil && b.EndDate.Before(now) {
		to = *b.EndDate
	}
	return b.StartDate, to
}

func (b *Budget) Percentage(spent decimal.Decimal) decimal.Decimal {
	if b.Amount.IsZero() {
		return decimal.Zero
	}
	return spent.Div(b.Amount).Mul(decimal.NewFromInt(100))
}

type BudgetRepository interface {
	Create(ctx context.Context, budget *Budget) error
	Update(ctx context.Context, budget *Budget) error
	FindByID(ctx context.Context, userID string, budgetID uuid.UUID) (*Budget, error)
	FindByIDForUpdate(ctx context.Context, userID string, budgetID uuid.UUID) (*Budget, error)
	// ListByUser returns budgets with CategoryName resolved.
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]Budget, error)
	SetAlertSent(ctx context.Context, budgetID uuid.UUID, sent bool) error
}

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

// BudgetInput is the create and update payload. Period is a length in months.
type BudgetInput struct {
	Category       *string          `json:"category"`
	Amount         *decimal.Decimal `json:"amount"`
	Period         *int             `json:"period"`
	StartDate      *time.Time       `json:"startDate"`
	AlertThreshold *int             `json:"alertThreshold"`
	IsActive       *bool            `json:"isActive"`
}

// BudgetStatus is a budget together with what has been spent against it so far.
type BudgetStatus struct {
	domain.Budget
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
}

type BudgetService struct {
	store  domain.Store
	alerts AlertTrigger
	clock  Clock
	log    zerolog.Logger
}

func NewBudgetService(store domain.Store, alerts AlertTrigger, clock Clock, log zerolog.Logger) *BudgetService {
	return &BudgetService{store: store, alerts: triggerOrNoop(alerts), clock: clock, log: log}
}

func (s *BudgetService) Create(ctx context.Context, userID string, input BudgetInput) (*domain.Budget, error) {
	if input.Category == nil || strings.TrimSpace(*input.Category) == "" {
		return nil, financeErrors.NewValidationError("Category is required")
	}
	if input.Amount == nil {
		return nil, financeErrors.NewValidationError("Amount is required")
	}
	if input.Period == nil {
		return nil, financeErrors.NewValidationError("Period is required")
	}

	budget := &domain.Budget{
		ID:             uuid.New(),
		UserID:         userID,
		Amount:         input.Amount.Round(2),
		StartDate:      s.clock.now(),
		AlertThreshold: domain.DefaultAlertThreshold,
		IsActive:       true,
	}
	if input.StartDate != nil {
		budget.StartDate = input.StartDate.UTC()
	}
	if input.AlertThreshold != nil {
		budget.AlertThreshold = *input.AlertThreshold
	}
	if err := applyPeriod(budget, *input.Period); err != nil {
		return nil, err
	}

	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		category, err := s.resolveCategory(ctx, repos, userID, strings.TrimSpace(*input.Category))
		if err != nil {
			return err
		}
		budget.CategoryID = category.ID
		budget.CategoryName = category.Name
		if err := budget.Validate(); err != nil {
			return err
		}
		return repos.Budgets.Create(ctx, budget)
	})
	if err != nil {
		return nil, err
	}
	s.alerts.Trigger(userID)
	return budget, nil
}

func (s *BudgetService) Update(ctx context.Context, userID string, budgetID uuid.UUID, input BudgetInput) (*domain.Budget, error) {
	var budget *domain.Budget
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		var err error
		budget, err = repos.Budgets.FindByIDForUpdate(ctx, userID, budgetID)
		if err != nil {
			return err
		}
		if input.Category != nil {
			category, err := s.resolveCategory(ctx, repos, userID, strings.TrimSpace(*input.Category))
			if err != nil {
				return err
			}
			budget.CategoryID = category.ID
			budget.CategoryName = category.Name
		}
		if input.Amount != nil {
			budget.Amount = input.Amount.Round(2)
		}
		if input.StartDate != nil {
			budget.StartDate = input.StartDate.UTC()
		}
		if input.Period != nil {
			if err := applyPeriod(budget, *input.Period); err != nil {
				return err
			}
		}
		if input.AlertThreshold != nil {
			budget.AlertThreshold = *input.AlertThreshold
		}
		if input.IsActive != nil {
			budget.IsActive = *input.IsActive
		}
		if err := budget.Validate(); err != nil {
			return err
		}
		return repos.Budgets.Update(ctx, budget)
	})
	if err != nil {
		return nil, err
	}
	s.alerts.Trigger(userID)
	return budget, nil
}

// Delete deactivates the budget. History is kept.
func (s *BudgetService) Delete(ctx context.Context, userID string, budgetID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		budget, err := repos.Budgets.FindByIDForUpdate(ctx, userID, budgetID)
		if err != nil {
			return err
		}
		budget.IsActive = false
		return repos.Budgets.Update(ctx, budget)
	})
}

// List returns the owner's active budgets with spending computed up to now.
func (s *BudgetService) List(ctx context.Context, userID string) ([]BudgetStatus, error) {
	repos := s.store.Repos()
	budgets, err := repos.Budgets.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	statuses := make([]BudgetStatus, 0, len(budgets))
	for i := range budgets {
		status, err := s.status(ctx, repos, &budgets[i], now)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *BudgetService) Get(ctx context.Context, userID string, budgetID uuid.UUID) (*BudgetStatus, error) {
	repos := s.store.Repos()
	budget, err := repos.Budgets.FindByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}
	status, err := s.status(ctx, repos, budget, s.clock.now())
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *BudgetService) status(ctx context.Context, repos domain.Repositories, budget *domain.Budget, now time.Time) (BudgetStatus, error) {
	spent, err := Spent(ctx, repos.Transactions, budget, now)
	if err != nil {
		return BudgetStatus{}, err
	}
	return BudgetStatus{
		Budget:     *budget,
		Spent:      spent,
		Remaining:  budget.Amount.Sub(spent),
		Percentage: budget.Percentage(spent).Round(2),
	}, nil
}

// resolveCategory finds a category by name. The Global category is created on first use.
func (s *BudgetService) resolveCategory(ctx context.Context, repos domain.Repositories, userID, name string) (*domain.Category, error) {
	category, err := repos.Categories.FindByName(ctx, userID, name)
	if err == nil {
		return category, nil
	}
	if !financeErrors.IsNotFoundError(err) || name != domain.GlobalCategoryName {
		return nil, err
	}
	category = &domain.Category{
		ID:     uuid.New(),
		UserID: userID,
		Name:   domain.GlobalCategoryName,
		Type:   domain.TransactionTypeExpense,
		Icon:   "🌐",
		Color:  "#6B7280",
	}
	if err := repos.Categories.Create(ctx, category); err != nil {
		return nil, err
	}
	s.log.Debug().Str("user_id", userID).Msg("Created Global budget category")
	return category, nil
}

// applyPeriod sets the end date to start plus months. Twelve months or more is a yearly budget.
func applyPeriod(budget *domain.Budget, months int) error {
	if months < 1 {
		return financeErrors.NewValidationError("Period must be a positive number of months")
	}
	budget.Period = domain.BudgetPeriodMonthly
	if months >= 12 {
		budget.Period = domain.BudgetPeriodYearly
	}
	end := budget.StartDate.AddDate(0, months, 0)
	budget.EndDate = &end
	return nil
}

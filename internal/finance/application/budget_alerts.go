package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/sebuszqo/FinanceTracker/internal/metrics"
	"github.com/shopspring/decimal"
)

// BudgetAlert describes a budget that crossed its alert threshold.
type BudgetAlert struct {
	UserID       string
	BudgetID     uuid.UUID
	CategoryName string
	Spent        decimal.Decimal
	Total        decimal.Decimal
	Percentage   int
	Threshold    int
}

// Notifier delivers budget alerts. It reports failure so the latch can stay open for a retry.
type Notifier interface {
	NotifyBudgetAlert(ctx context.Context, alert BudgetAlert) error
}

// BudgetAlertEvaluator notifies owners once per threshold crossing. The AlertSent latch is set
// after a successful notification and cleared when spending drops back below the threshold.
type BudgetAlertEvaluator struct {
	store    domain.Store
	notifier Notifier
	metrics  *metrics.Metrics
	clock    Clock
	log      zerolog.Logger

	// userLocks maps a user ID to the *sync.Mutex serializing that user's evaluations.
	userLocks sync.Map
}

func NewBudgetAlertEvaluator(store domain.Store, notifier Notifier, m *metrics.Metrics, clock Clock, log zerolog.Logger) *BudgetAlertEvaluator {
	return &BudgetAlertEvaluator{store: store, notifier: notifier, metrics: m, clock: clock, log: log}
}

// Evaluate checks every active budget of userID whose window contains now.
// A failing budget does not stop the others; persistence failures are joined into the result.
// Evaluations of the same user run one at a time, so a latch is never read twice before it is set.
func (e *BudgetAlertEvaluator) Evaluate(ctx context.Context, userID string) error {
	unlock := e.lockUser(userID)
	defer unlock()

	repos := e.store.Repos()
	budgets, err := repos.Budgets.ListByUser(ctx, userID, true)
	if err != nil {
		return err
	}

	now := e.clock.now()
	var errs []error
	for i := range budgets {
		budget := &budgets[i]
		if !budget.Covers(now) {
			continue
		}
		if err := e.evaluateBudget(ctx, repos, budget, now); err != nil {
			e.log.Error().Err(err).Str("user_id", userID).Str("budget_id", budget.ID.String()).Msg("Budget evaluation failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *BudgetAlertEvaluator) lockUser(userID string) func() {
	lock, _ := e.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Spent totals the expenses counted against budget up to now.
func Spent(ctx context.Context, transactions domain.TransactionRepository, budget *domain.Budget, now time.Time) (decimal.Decimal, error) {
	categoryName := budget.CategoryName
	if budget.IsGlobal() {
		categoryName = ""
	}
	from, to := budget.SpendWindow(now)
	return transactions.SumExpenses(ctx, budget.UserID, categoryName, from, to)
}

func (e *BudgetAlertEvaluator) evaluateBudget(ctx context.Context, repos domain.Repositories, budget *domain.Budget, now time.Time) error {
	spent, err := Spent(ctx, repos.Transactions, budget, now)
	if err != nil {
		return err
	}
	percentage := budget.Percentage(spent)
	threshold := decimal.NewFromInt(int64(budget.AlertThreshold))

	switch {
	case percentage.GreaterThanOrEqual(threshold) && !budget.AlertSent:
		alert := BudgetAlert{
			UserID:       budget.UserID,
			BudgetID:     budget.ID,
			CategoryName: budget.CategoryName,
			Spent:        spent,
			Total:        budget.Amount,
			Percentage:   int(percentage.Round(0).IntPart()),
			Threshold:    budget.AlertThreshold,
		}
		if err := e.notifier.NotifyBudgetAlert(ctx, alert); err != nil {
			e.metrics.BudgetAlert("failed")
			e.log.Warn().Err(&financeErrors.NotificationError{Recipient: budget.UserID, Err: err}).
				Str("budget_id", budget.ID.String()).Msg("Budget alert not delivered")
			return nil
		}
		e.metrics.BudgetAlert("sent")
		e.log.Info().Str("user_id", budget.UserID).Str("category", budget.CategoryName).
			Int("percentage", alert.Percentage).Msg("Budget alert sent")
		return repos.Budgets.SetAlertSent(ctx, budget.ID, true)
	case percentage.LessThan(threshold) && budget.AlertSent:
		e.metrics.BudgetAlert("reset")
		return repos.Budgets.SetAlertSent(ctx, budget.ID, false)
	}
	return nil
}

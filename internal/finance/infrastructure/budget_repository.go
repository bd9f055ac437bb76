package infrastructure

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
)

type BudgetRepository struct {
	db DBTX
}

func NewBudgetRepository(db DBTX) *BudgetRepository {
	return &BudgetRepository{db: db}
}

const selectBudget = `SELECT b.id, b.user_id, b.category_id, COALESCE(c.name, ''), b.amount, b.period, b.start_date,
	b.end_date, b.alert_threshold, b.alert_sent, b.is_active
	FROM budgets b LEFT JOIN categories c ON c.id = b.category_id`

func (r *BudgetRepository) Create(ctx context.Context, b *domain.Budget) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, category_id, amount, period, start_date, end_date, alert_threshold, alert_sent, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.UserID, b.CategoryID, b.Amount, b.Period, b.StartDate, b.EndDate, b.AlertThreshold, b.AlertSent, b.IsActive,
	)
	return financeErrors.NewPersistenceError("create budget", err)
}

func (r *BudgetRepository) Update(ctx context.Context, b *domain.Budget) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category_id = $1, amount = $2, period = $3, start_date = $4, end_date = $5,
		alert_threshold = $6, alert_sent = $7, is_active = $8 WHERE id = $9 AND user_id = $10`,
		b.CategoryID, b.Amount, b.Period, b.StartDate, b.EndDate, b.AlertThreshold, b.AlertSent, b.IsActive, b.ID, b.UserID,
	)
	return affectedOne(res, err, "update budget", "budget", b.ID)
}

func (r *BudgetRepository) FindByID(ctx context.Context, userID string, budgetID uuid.UUID) (*domain.Budget, error) {
	return r.find(ctx, userID, budgetID, "")
}

// FindByIDForUpdate locks the budget row. The category side of the join stays unlocked.
func (r *BudgetRepository) FindByIDForUpdate(ctx context.Context, userID string, budgetID uuid.UUID) (*domain.Budget, error) {
	return r.find(ctx, userID, budgetID, " FOR UPDATE OF b")
}

func (r *BudgetRepository) find(ctx context.Context, userID string, budgetID uuid.UUID, lock string) (*domain.Budget, error) {
	row := r.db.QueryRowContext(ctx, selectBudget+` WHERE b.id = $1 AND b.user_id = $2`+lock, budgetID, userID)
	budget, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.NewNotFoundError("budget", budgetID.String())
	}
	if err != nil {
		return nil, financeErrors.NewPersistenceError("find budget", err)
	}
	return budget, nil
}

func (r *BudgetRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]domain.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		selectBudget+` WHERE b.user_id = $1 AND (NOT $2 OR b.is_active) ORDER BY b.start_date DESC`, userID, activeOnly)
	if err != nil {
		return nil, financeErrors.NewPersistenceError("list budgets", err)
	}
	defer rows.Close()

	budgets := []domain.Budget{}
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, financeErrors.NewPersistenceError("scan budget", err)
		}
		budgets = append(budgets, *budget)
	}
	return budgets, financeErrors.NewPersistenceError("list budgets", rows.Err())
}

func (r *BudgetRepository) SetAlertSent(ctx context.Context, budgetID uuid.UUID, sent bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE budgets SET alert_sent = $1 WHERE id = $2`, sent, budgetID)
	return affectedOne(res, err, "set budget alert", "budget", budgetID)
}

func scanBudget(row rowScanner) (*domain.Budget, error) {
	var b domain.Budget
	err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.Amount, &b.Period, &b.StartDate,
		&b.EndDate, &b.AlertThreshold, &b.AlertSent, &b.IsActive)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
)

type RecurringRepository struct {
	db DBTX
}

func NewRecurringRepository(db DBTX) *RecurringRepository {
	return &RecurringRepository{db: db}
}

const recurringColumns = `id, user_id, account_id, category_id, type, amount, currency, description, merchant_name,
	notes, tags, frequency, schedule_interval, day_of_month, day_of_week, start_date, end_date,
	end_after_occurrences, next_execution_date, last_execution_date, occurrence_count, is_active, created_at`

func (r *RecurringRepository) Create(ctx context.Context, rt *domain.RecurringTransaction) error {
	tags := rt.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions (`+recurringColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		rt.ID, rt.UserID, rt.AccountID, rt.CategoryID, rt.Type, rt.Amount, rt.Currency, rt.Description, rt.MerchantName,
		rt.Notes, tags, rt.Frequency, rt.Interval, rt.DayOfMonth, rt.DayOfWeek, rt.StartDate, rt.EndDate,
		rt.EndAfterOccurrences, rt.NextExecutionDate, rt.LastExecutionDate, rt.OccurrenceCount, rt.IsActive, rt.CreatedAt,
	)
	return financeErrors.NewPersistenceError("create recurring transaction", err)
}

func (r *RecurringRepository) Update(ctx context.Context, rt *domain.RecurringTransaction) error {
	tags := rt.Tags
	if tags == nil {
		tags = []string{}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET account_id = $1, category_id = $2, type = $3, amount = $4, currency = $5,
		description = $6, merchant_name = $7, notes = $8, tags = $9, frequency = $10, schedule_interval = $11,
		day_of_month = $12, day_of_week = $13, start_date = $14, end_date = $15, end_after_occurrences = $16,
		next_execution_date = $17, last_execution_date = $18, occurrence_count = $19, is_active = $20
		WHERE id = $21 AND user_id = $22`,
		rt.AccountID, rt.CategoryID, rt.Type, rt.Amount, rt.Currency, rt.Description, rt.MerchantName, rt.Notes,
		tags, rt.Frequency, rt.Interval, rt.DayOfMonth, rt.DayOfWeek, rt.StartDate, rt.EndDate,
		rt.EndAfterOccurrences, rt.NextExecutionDate, rt.LastExecutionDate, rt.OccurrenceCount, rt.IsActive,
		rt.ID, rt.UserID,
	)
	return affectedOne(res, err, "update recurring transaction", "recurring transaction", rt.ID)
}

func (r *RecurringRepository) FindByID(ctx context.Context, userID string, recurringID uuid.UUID) (*domain.RecurringTransaction, error) {
	return r.find(ctx, userID, recurringID, "")
}

// FindByIDForUpdate locks the template row until the surrounding transaction ends.
func (r *RecurringRepository) FindByIDForUpdate(ctx context.Context, userID string, recurringID uuid.UUID) (*domain.RecurringTransaction, error) {
	return r.find(ctx, userID, recurringID, " FOR UPDATE")
}

func (r *RecurringRepository) find(ctx context.Context, userID string, recurringID uuid.UUID, lock string) (*domain.RecurringTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = $1 AND user_id = $2`+lock, recurringID, userID)
	rt, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.NewNotFoundError("recurring transaction", recurringID.String())
	}
	if err != nil {
		return nil, financeErrors.NewPersistenceError("find recurring transaction", err)
	}
	return rt, nil
}

func (r *RecurringRepository) ListByUser(ctx context.Context, userID string, active *bool) ([]domain.RecurringTransaction, error) {
	if active != nil {
		return r.list(ctx, `WHERE user_id = $1 AND is_active = $2 ORDER BY created_at DESC`, userID, *active)
	}
	return r.list(ctx, `WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *RecurringRepository) ListDue(ctx context.Context, asOf time.Time) ([]domain.RecurringTransaction, error) {
	return r.list(ctx, `WHERE is_active AND next_execution_date <= $1 ORDER BY next_execution_date`, asOf)
}

func (r *RecurringRepository) list(ctx context.Context, where string, args ...any) ([]domain.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recurringColumns+` FROM recurring_transactions `+where, args...)
	if err != nil {
		return nil, financeErrors.NewPersistenceError("list recurring transactions", err)
	}
	defer rows.Close()

	items := []domain.RecurringTransaction{}
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, financeErrors.NewPersistenceError("scan recurring transaction", err)
		}
		items = append(items, *rt)
	}
	return items, financeErrors.NewPersistenceError("list recurring transactions", rows.Err())
}

func scanRecurring(row rowScanner) (*domain.RecurringTransaction, error) {
	var rt domain.RecurringTransaction
	err := row.Scan(&rt.ID, &rt.UserID, &rt.AccountID, &rt.CategoryID, &rt.Type, &rt.Amount, &rt.Currency,
		&rt.Description, &rt.MerchantName, &rt.Notes, stringArray(&rt.Tags), &rt.Frequency, &rt.Interval,
		&rt.DayOfMonth, &rt.DayOfWeek, &rt.StartDate, &rt.EndDate, &rt.EndAfterOccurrences,
		&rt.NextExecutionDate, &rt.LastExecutionDate, &rt.OccurrenceCount, &rt.IsActive, &rt.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
)

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, user_id, name, type, currency, balance, external_id, external_provider,
	institution_name, last_synced_at, is_active, created_at`

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		account.ID, account.UserID, account.Name, account.Type, account.Currency, account.Balance,
		account.ExternalID, account.ExternalProvider, account.InstitutionName, account.LastSyncedAt,
		account.IsActive, account.CreatedAt,
	)
	return financeErrors.NewPersistenceError("create account", err)
}

func (r *AccountRepository) FindByID(ctx context.Context, userID string, accountID uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND user_id = $2`, accountID, userID)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.NewNotFoundError("account", accountID.String())
	}
	if err != nil {
		return nil, financeErrors.NewPersistenceError("find account", err)
	}
	return account, nil
}

func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, financeErrors.NewPersistenceError("list accounts", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, financeErrors.NewPersistenceError("scan account", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, financeErrors.NewPersistenceError("list accounts", rows.Err())
}

func (r *AccountRepository) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`, delta, accountID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, financeErrors.NewNotFoundError("account", accountID.String())
	}
	if err != nil {
		return decimal.Zero, financeErrors.NewPersistenceError("adjust balance", err)
	}
	return balance, nil
}

func (r *AccountRepository) SetBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error {
	return r.execOne(ctx, "set balance", accountID,
		`UPDATE accounts SET balance = $1 WHERE id = $2`, balance, accountID)
}

func (r *AccountRepository) MarkSynced(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	return r.execOne(ctx, "mark account synced", accountID,
		`UPDATE accounts SET last_synced_at = $1 WHERE id = $2`, at, accountID)
}

func (r *AccountRepository) Deactivate(ctx context.Context, userID string, accountID uuid.UUID) error {
	return r.execOne(ctx, "deactivate account", accountID,
		`UPDATE accounts SET is_active = FALSE WHERE id = $1 AND user_id = $2`, accountID, userID)
}

func (r *AccountRepository) execOne(ctx context.Context, op string, accountID uuid.UUID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return financeErrors.NewPersistenceError(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return financeErrors.NewNotFoundError("account", accountID.String())
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(&account.ID, &account.UserID, &account.Name, &account.Type, &account.Currency,
		&account.Balance, &account.ExternalID, &account.ExternalProvider, &account.InstitutionName,
		&account.LastSyncedAt, &account.IsActive, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

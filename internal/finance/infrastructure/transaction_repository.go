package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
)

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, account_id, category_id, type, amount, currency, date, description,
	merchant_name, notes, tags, import_hash, category_confidence, external_id, is_recurring, created_at`

const insertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

func transactionArgs(t *domain.Transaction) []any {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		t.ID, t.UserID, t.AccountID, t.CategoryID, t.Type, t.Amount, t.Currency, t.Date, t.Description,
		t.MerchantName, t.Notes, tags, t.ImportHash, t.CategoryConfidence, t.ExternalID, t.IsRecurring, t.CreatedAt,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) error {
	_, err := r.db.ExecContext(ctx, insertTransaction, transactionArgs(transaction)...)
	return financeErrors.NewPersistenceError("create transaction", err)
}

func (r *TransactionRepository) CreateBatch(ctx context.Context, transactions []domain.Transaction) error {
	for i := range transactions {
		if _, err := r.db.ExecContext(ctx, insertTransaction, transactionArgs(&transactions[i])...); err != nil {
			return financeErrors.NewPersistenceError(fmt.Sprintf("create transaction %d of batch", i+1), err)
		}
	}
	return nil
}

func (r *TransactionRepository) Update(ctx context.Context, t *domain.Transaction) error {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET account_id = $1, category_id = $2, type = $3, amount = $4, currency = $5,
		date = $6, description = $7, merchant_name = $8, notes = $9, tags = $10, category_confidence = $11
		WHERE id = $12 AND user_id = $13`,
		t.AccountID, t.CategoryID, t.Type, t.Amount, t.Currency, t.Date, t.Description, t.MerchantName,
		t.Notes, tags, t.CategoryConfidence, t.ID, t.UserID,
	)
	return affectedOne(res, err, "update transaction", "transaction", t.ID)
}

func (r *TransactionRepository) Delete(ctx context.Context, userID string, transactionID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, transactionID, userID)
	return affectedOne(res, err, "delete transaction", "transaction", transactionID)
}

func (r *TransactionRepository) FindByID(ctx context.Context, userID string, transactionID uuid.UUID) (*domain.Transaction, error) {
	return r.find(ctx, userID, transactionID, "")
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (r *TransactionRepository) FindByIDForUpdate(ctx context.Context, userID string, transactionID uuid.UUID) (*domain.Transaction, error) {
	return r.find(ctx, userID, transactionID, " FOR UPDATE")
}

func (r *TransactionRepository) find(ctx context.Context, userID string, transactionID uuid.UUID, lock string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2`+lock, transactionID, userID)
	transaction, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.NewNotFoundError("transaction", transactionID.String())
	}
	if err != nil {
		return nil, financeErrors.NewPersistenceError("find transaction", err)
	}
	return transaction, nil
}

func (r *TransactionRepository) List(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}
	if filter.AccountID != nil {
		add("account_id = $%d", *filter.AccountID)
	}
	if filter.CategoryID != nil {
		add("category_id = $%d", *filter.CategoryID)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if !filter.From.IsZero() {
		add("date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("date <= $%d", filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY date DESC, created_at DESC LIMIT $%d`,
		transactionColumns, strings.Join(conditions, " AND "), len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, financeErrors.NewPersistenceError("list transactions", err)
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, financeErrors.NewPersistenceError("scan transaction", err)
		}
		transactions = append(transactions, *transaction)
	}
	return transactions, financeErrors.NewPersistenceError("list transactions", rows.Err())
}

func (r *TransactionRepository) ExistingImportHashes(ctx context.Context, userID string, hashes []string) (map[string]bool, error) {
	return r.existing(ctx, "import_hash", userID, hashes)
}

func (r *TransactionRepository) ExistingExternalIDs(ctx context.Context, userID string, externalIDs []string) (map[string]bool, error) {
	return r.existing(ctx, "external_id", userID, externalIDs)
}

func (r *TransactionRepository) existing(ctx context.Context, column, userID string, values []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(values) == 0 {
		return found, nil
	}
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %[1]s FROM transactions WHERE user_id = $1 AND %[1]s = ANY($2)`, column), userID, values)
	if err != nil {
		return nil, financeErrors.NewPersistenceError("lookup "+column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, financeErrors.NewPersistenceError("scan "+column, err)
		}
		found[value] = true
	}
	return found, financeErrors.NewPersistenceError("lookup "+column, rows.Err())
}

func (r *TransactionRepository) SumExpenses(ctx context.Context, userID, categoryName string, from, to time.Time) (decimal.Decimal, error) {
	var spent decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ABS(t.amount)), 0)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1 AND t.type = 'expense' AND t.date >= $2 AND t.date <= $3
		AND ($4::text = '' OR (c.user_id = t.user_id AND c.name = $4::text))`,
		userID, from, to, categoryName,
	).Scan(&spent)
	if err != nil {
		return decimal.Zero, financeErrors.NewPersistenceError("sum expenses", err)
	}
	return spent, nil
}

func (r *TransactionRepository) SumSignedByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE -amount END), 0)
		FROM transactions WHERE account_id = $1`, accountID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, financeErrors.NewPersistenceError("sum account transactions", err)
	}
	return sum, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &t.Type, &t.Amount, &t.Currency, &t.Date,
		&t.Description, &t.MerchantName, &t.Notes, stringArray(&t.Tags), &t.ImportHash, &t.CategoryConfidence,
		&t.ExternalID, &t.IsRecurring, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func affectedOne(res sql.Result, err error, op, entity string, id uuid.UUID) error {
	if err != nil {
		return financeErrors.NewPersistenceError(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return financeErrors.NewNotFoundError(entity, id.String())
	}
	return nil
}

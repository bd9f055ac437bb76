package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	database "github.com/sebuszqo/FinanceTracker/db"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("finance"),
		postgres.WithUsername("finance"),
		postgres.WithPassword("finance"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dbService, err := database.NewDBService(ctx, connStr, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbService.Close() })

	require.NoError(t, Migrate(ctx, dbService.DB))
	require.NoError(t, Migrate(ctx, dbService.DB), "migrations are idempotent")
	return dbService.DB
}

func TestPostgresRepositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	store := NewPostgresStore(db, zerolog.Nop())
	repos := store.Repos()
	userID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)

	account := &domain.Account{
		ID: uuid.New(), UserID: userID, Name: "Main", Type: domain.AccountTypeChecking, Currency: "EUR",
		Balance: decimal.Zero, ExternalProvider: domain.ProviderManual, IsActive: true, CreatedAt: now,
	}
	require.NoError(t, repos.Accounts.Create(ctx, account))

	groceries := domain.Category{ID: uuid.New(), UserID: userID, Name: "Groceries", Type: domain.TransactionTypeExpense}
	groceriesDup := domain.Category{ID: uuid.New(), UserID: userID, Name: "Groceries", Type: domain.TransactionTypeExpense}
	travel := domain.Category{ID: uuid.New(), UserID: userID, Name: "Travel", Type: domain.TransactionTypeExpense}
	require.NoError(t, repos.Categories.CreateBatch(ctx, []domain.Category{groceries, groceriesDup, travel}))

	found, err := repos.Categories.FindByName(ctx, userID, "Groceries")
	require.NoError(t, err)
	assert.Equal(t, groceries.ID, found.ID)

	t.Run("accounts adjust atomically", func(t *testing.T) {
		balance, err := repos.Accounts.AdjustBalance(ctx, account.ID, decimal.RequireFromString("100.50"))
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("100.50").Equal(balance))

		balance, err = repos.Accounts.AdjustBalance(ctx, account.ID, decimal.RequireFromString("-0.50"))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(100).Equal(balance))

		_, err = repos.Accounts.AdjustBalance(ctx, uuid.New(), decimal.NewFromInt(1))
		assert.True(t, financeErrors.IsNotFoundError(err))
	})

	hash := "abc123"
	t.Run("transactions and import hashes", func(t *testing.T) {
		batch := []domain.Transaction{
			newTransaction(userID, account.ID, &groceries.ID, "12.00", now.Add(-48*time.Hour), &hash),
			newTransaction(userID, account.ID, &groceriesDup.ID, "8.00", now.Add(-24*time.Hour), nil),
			newTransaction(userID, account.ID, &travel.ID, "50.00", now.Add(-24*time.Hour), nil),
		}
		batch[0].Tags = []string{"food", "weekly"}
		require.NoError(t, repos.Transactions.CreateBatch(ctx, batch))

		loaded, err := repos.Transactions.FindByID(ctx, userID, batch[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"food", "weekly"}, loaded.Tags)
		require.NotNil(t, loaded.ImportHash)

		existing, err := repos.Transactions.ExistingImportHashes(ctx, userID, []string{hash, "other"})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{hash: true}, existing)

		duplicate := newTransaction(userID, account.ID, nil, "1.00", now, &hash)
		err = repos.Transactions.Create(ctx, &duplicate)
		assert.True(t, financeErrors.IsPersistenceError(err))

		spent, err := repos.Transactions.SumExpenses(ctx, userID, "Groceries", now.Add(-72*time.Hour), now)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(20).Equal(spent), spent.String())

		spent, err = repos.Transactions.SumExpenses(ctx, userID, "", now.Add(-72*time.Hour), now)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(70).Equal(spent), spent.String())

		sum, err := repos.Transactions.SumSignedByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(-70).Equal(sum))

		listed, err := repos.Transactions.List(ctx, userID, domain.TransactionFilter{CategoryID: &travel.ID})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, batch[2].ID, listed[0].ID)
	})

	t.Run("within tx rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.WithinTx(ctx, func(tx domain.Repositories) error {
			if _, err := tx.Accounts.AdjustBalance(ctx, account.ID, decimal.NewFromInt(1000)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		reloaded, err := repos.Accounts.FindByID(ctx, userID, account.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(100).Equal(reloaded.Balance))
	})

	t.Run("budgets resolve category name", func(t *testing.T) {
		budget := &domain.Budget{
			ID: uuid.New(), UserID: userID, CategoryID: groceriesDup.ID, Amount: decimal.NewFromInt(200),
			Period: domain.BudgetPeriodMonthly, StartDate: now.Add(-72 * time.Hour), AlertThreshold: 80, IsActive: true,
		}
		require.NoError(t, repos.Budgets.Create(ctx, budget))
		require.NoError(t, repos.Budgets.SetAlertSent(ctx, budget.ID, true))

		budgets, err := repos.Budgets.ListByUser(ctx, userID, true)
		require.NoError(t, err)
		require.Len(t, budgets, 1)
		assert.Equal(t, "Groceries", budgets[0].CategoryName)
		assert.True(t, budgets[0].AlertSent)
	})

	t.Run("recurring due listing", func(t *testing.T) {
		day := 31
		rt := &domain.RecurringTransaction{
			ID: uuid.New(), UserID: userID, AccountID: account.ID, Type: domain.TransactionTypeExpense,
			Amount: decimal.NewFromInt(900), Currency: "EUR", Description: "Rent",
			Schedule:  domain.Schedule{Frequency: domain.FrequencyMonthly, Interval: 1, DayOfMonth: &day},
			StartDate: now.Add(-time.Hour), NextExecutionDate: now.Add(-time.Hour), IsActive: true, CreatedAt: now,
		}
		require.NoError(t, repos.Recurring.Create(ctx, rt))

		due, err := repos.Recurring.ListDue(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, 31, *due[0].DayOfMonth)

		rt.IsActive = false
		require.NoError(t, repos.Recurring.Update(ctx, rt))
		due, err = repos.Recurring.ListDue(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}

func newTransaction(userID string, accountID uuid.UUID, categoryID *uuid.UUID, amount string, date time.Time, hash *string) domain.Transaction {
	return domain.Transaction{
		ID: uuid.New(), UserID: userID, AccountID: accountID, CategoryID: categoryID,
		Type: domain.TransactionTypeExpense, Amount: decimal.RequireFromString(amount), Currency: "EUR",
		Date: date, Description: "test", ImportHash: hash, CreatedAt: date,
	}
}

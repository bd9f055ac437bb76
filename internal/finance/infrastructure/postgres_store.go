package infrastructure

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ domain.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewPostgresStore(db *sql.DB, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

func (s *PostgresStore) Repos() domain.Repositories {
	return reposFor(s.db)
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(repos domain.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			s.safeRollback(tx)
			panic(p)
		} else if err != nil {
			s.safeRollback(tx)
		} else {
			err = tx.Commit()
		}
	}()

	return fn(reposFor(tx))
}

func (s *PostgresStore) safeRollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		s.log.Error().Err(err).Msg("error during transaction rollback")
	}
}

func reposFor(db DBTX) domain.Repositories {
	return domain.Repositories{
		Accounts:     NewAccountRepository(db),
		Transactions: NewTransactionRepository(db),
		Categories:   NewCategoryRepository(db),
		Budgets:      NewBudgetRepository(db),
		Recurring:    NewRecurringRepository(db),
	}
}

// typeMap scans TEXT[] columns into []string.
var typeMap = pgtype.NewMap()

func stringArray(dst *[]string) sql.Scanner {
	return typeMap.SQLScanner(dst)
}

package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	"github.com/sebuszqo/FinanceTracker/internal/metrics"
	"github.com/shopspring/decimal"
)

// BalanceReconciler keeps account balances equal to the signed sum of their transactions.
// Every Apply method must run on the repositories of the transaction that wrote the ledger change.
type BalanceReconciler struct {
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewBalanceReconciler(m *metrics.Metrics, log zerolog.Logger) *BalanceReconciler {
	return &BalanceReconciler{metrics: m, log: log}
}

func (r *BalanceReconciler) ApplyCreate(ctx context.Context, accounts domain.AccountRepository, transaction domain.Transaction) (decimal.Decimal, error) {
	balance, err := accounts.AdjustBalance(ctx, transaction.AccountID, transaction.SignedAmount())
	if err != nil {
		return decimal.Zero, err
	}
	r.metrics.BalanceAdjusted("create")
	return balance, nil
}

// ApplyEdit reverses the original effect and then applies the updated one.
// The updated transaction may live on a different account.
func (r *BalanceReconciler) ApplyEdit(ctx context.Context, accounts domain.AccountRepository, original, updated domain.Transaction) error {
	if original.AccountID == updated.AccountID && original.Type == updated.Type && original.Amount.Equal(updated.Amount) {
		return nil
	}
	if _, err := accounts.AdjustBalance(ctx, original.AccountID, original.SignedAmount().Neg()); err != nil {
		return err
	}
	if _, err := accounts.AdjustBalance(ctx, updated.AccountID, updated.SignedAmount()); err != nil {
		return err
	}
	r.metrics.BalanceAdjusted("edit")
	return nil
}

func (r *BalanceReconciler) ApplyDelete(ctx context.Context, accounts domain.AccountRepository, transaction domain.Transaction) error {
	if _, err := accounts.AdjustBalance(ctx, transaction.AccountID, transaction.SignedAmount().Neg()); err != nil {
		return err
	}
	r.metrics.BalanceAdjusted("delete")
	return nil
}

// ApplyBatch applies the net delta of a bulk insert in one increment and returns the new balance.
func (r *BalanceReconciler) ApplyBatch(ctx context.Context, accounts domain.AccountRepository, accountID uuid.UUID, transactions []domain.Transaction) (decimal.Decimal, error) {
	delta := decimal.Zero
	for _, transaction := range transactions {
		delta = delta.Add(transaction.SignedAmount())
	}
	balance, err := accounts.AdjustBalance(ctx, accountID, delta)
	if err != nil {
		return decimal.Zero, err
	}
	if len(transactions) > 0 {
		r.metrics.BalanceAdjusted("batch")
	}
	return balance, nil
}

// Reconcile recomputes the balance from the ledger and returns the correction it applied.
func (r *BalanceReconciler) Reconcile(ctx context.Context, store domain.Store, userID string, accountID uuid.UUID) (decimal.Decimal, error) {
	correction := decimal.Zero
	err := store.WithinTx(ctx, func(repos domain.Repositories) error {
		account, err := repos.Accounts.FindByID(ctx, userID, accountID)
		if err != nil {
			return err
		}
		ledger, err := repos.Transactions.SumSignedByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		correction = ledger.Sub(account.Balance)
		if correction.IsZero() {
			return nil
		}
		return repos.Accounts.SetBalance(ctx, accountID, ledger)
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !correction.IsZero() {
		r.metrics.BalanceAdjusted("reconcile")
		r.log.Warn().Str("user_id", userID).Str("account_id", accountID.String()).
			Str("correction", correction.String()).Msg("Account balance drift repaired")
	}
	return correction, nil
}

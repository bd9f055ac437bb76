package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/categorize"
	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/sebuszqo/FinanceTracker/internal/finance/ingest"
	"github.com/sebuszqo/FinanceTracker/internal/metrics"
	"github.com/shopspring/decimal"
)

const (
	sourceFile = "file"
	sourceFeed = "feed"

	maxSamples = 5
)

type ImportResult struct {
	Imported         int             `json:"imported"`
	Duplicates       int             `json:"duplicates"`
	Errors           int             `json:"errors"`
	AccountBalance   decimal.Decimal `json:"accountBalance"`
	DuplicateSamples []RowSample     `json:"duplicateSamples"`
	ErrorSamples     []RowError      `json:"errorSamples"`
}

type RowSample struct {
	Row         int                    `json:"row"`
	Date        time.Time              `json:"date"`
	Type        domain.TransactionType `json:"type"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func newImportResult() *ImportResult {
	return &ImportResult{DuplicateSamples: []RowSample{}, ErrorSamples: []RowError{}}
}

func (r *ImportResult) addDuplicate(row int, d ingest.Draft) {
	r.Duplicates++
	if len(r.DuplicateSamples) < maxSamples {
		r.DuplicateSamples = append(r.DuplicateSamples, RowSample{
			Row: row, Date: d.Date, Type: d.Type, Amount: d.Amount, Description: d.Description,
		})
	}
}

func (r *ImportResult) addError(row int, err error) {
	r.Errors++
	if len(r.ErrorSamples) < maxSamples {
		r.ErrorSamples = append(r.ErrorSamples, RowError{Row: row, Message: err.Error()})
	}
}

// numberedDraft keeps the source row number for reporting.
type numberedDraft struct {
	row   int
	draft ingest.Draft
}

// ImportService runs normalized rows through dedup, categorization, a single batch insert and
// one net balance delta, all inside one database transaction.
type ImportService struct {
	store       domain.Store
	reconciler  *BalanceReconciler
	categorizer *categorize.Categorizer
	alerts      AlertTrigger
	metrics     *metrics.Metrics
	clock       Clock
	maxBytes    int64
	log         zerolog.Logger
}

func NewImportService(store domain.Store, reconciler *BalanceReconciler, categorizer *categorize.Categorizer, alerts AlertTrigger,
	m *metrics.Metrics, clock Clock, maxBytes int64, log zerolog.Logger) *ImportService {
	if maxBytes <= 0 {
		maxBytes = ingest.DefaultMaxFileSize
	}
	return &ImportService{
		store:       store,
		reconciler:  reconciler,
		categorizer: categorizer,
		alerts:      triggerOrNoop(alerts),
		metrics:     m,
		clock:       clock,
		maxBytes:    maxBytes,
		log:         log,
	}
}

// ImportFile imports a CSV or XLSX statement into accountID. Bad rows are counted and skipped;
// request level problems abort before any row is written.
func (s *ImportService) ImportFile(ctx context.Context, userID string, accountID uuid.UUID, filename string, data []byte) (*ImportResult, error) {
	if _, err := s.activeAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}

	table, err := ingest.Parse(data, filename, s.maxBytes)
	if err != nil {
		return nil, err
	}
	dialect := ingest.DetectDialect(table.Headers)

	result := newImportResult()
	drafts := make([]numberedDraft, 0, len(table.Rows))
	for i, row := range table.Rows {
		draft, err := ingest.Normalize(row, dialect)
		if err != nil {
			result.addError(i+1, financeErrors.NewIndexedValidationError(i+1, err.Error()))
			continue
		}
		drafts = append(drafts, numberedDraft{row: i + 1, draft: draft})
	}

	log := s.log.With().Str("user_id", userID).Str("account_id", accountID.String()).Str("file", filename).Logger()
	log.Debug().Str("dialect", string(dialect)).Int("rows", len(table.Rows)).Msg("Parsed import file")

	if err := s.ingest(ctx, userID, accountID, drafts, result, sourceFile); err != nil {
		s.metrics.ImportRows(sourceFile, metrics.OutcomeError, len(table.Rows))
		return nil, err
	}
	log.Info().Int("imported", result.Imported).Int("duplicates", result.Duplicates).Int("errors", result.Errors).
		Msg("File import finished")
	return result, nil
}

// SyncFeed ingests rows delivered by a connected bank feed. Known external ids are duplicates.
func (s *ImportService) SyncFeed(ctx context.Context, userID string, accountID uuid.UUID, feed []ingest.FeedTransaction) (*ImportResult, error) {
	if _, err := s.activeAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}

	result := newImportResult()
	drafts := make([]numberedDraft, 0, len(feed))
	for i, item := range feed {
		if item.Timestamp.IsZero() {
			result.addError(i+1, financeErrors.NewIndexedValidationError(i+1, "missing timestamp"))
			continue
		}
		drafts = append(drafts, numberedDraft{row: i + 1, draft: ingest.FromFeed(item)})
	}

	if err := s.ingest(ctx, userID, accountID, drafts, result, sourceFeed); err != nil {
		s.metrics.ImportRows(sourceFeed, metrics.OutcomeError, len(feed))
		return nil, err
	}
	if err := s.store.Repos().Accounts.MarkSynced(ctx, accountID, s.clock.now()); err != nil {
		s.log.Error().Err(err).Str("account_id", accountID.String()).Msg("Failed to record feed sync time")
	}
	s.log.Info().Str("user_id", userID).Str("account_id", accountID.String()).
		Int("imported", result.Imported).Int("duplicates", result.Duplicates).Msg("Feed sync finished")
	return result, nil
}

func (s *ImportService) activeAccount(ctx context.Context, userID string, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.store.Repos().Accounts.FindByID(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, financeErrors.NewValidationError("Account is inactive")
	}
	return account, nil
}

func (s *ImportService) ingest(ctx context.Context, userID string, accountID uuid.UUID, drafts []numberedDraft, result *ImportResult, source string) error {
	plain := make([]ingest.Draft, len(drafts))
	for i, d := range drafts {
		plain[i] = d.draft
	}

	accepted := make([]domain.Transaction, 0, len(drafts))
	balance := decimal.Zero
	now := s.clock.now()

	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		batch, err := ingest.NewDeduplicator(repos.Transactions).Begin(ctx, userID, plain)
		if err != nil {
			return err
		}
		categories, err := repos.Categories.ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		for _, numbered := range drafts {
			draft := numbered.draft
			hash, err := batch.Check(draft)
			if financeErrors.IsDuplicateError(err) {
				result.addDuplicate(numbered.row, draft)
				continue
			}
			accepted = append(accepted, s.toTransaction(userID, accountID, draft, hash, categories, now))
		}

		if len(accepted) > 0 {
			if err := repos.Transactions.CreateBatch(ctx, accepted); err != nil {
				return err
			}
		}
		balance, err = s.reconciler.ApplyBatch(ctx, repos.Accounts, accountID, accepted)
		return err
	})
	if err != nil {
		return err
	}

	result.Imported = len(accepted)
	result.AccountBalance = balance
	s.metrics.ImportRows(source, metrics.OutcomeImported, result.Imported)
	s.metrics.ImportRows(source, metrics.OutcomeDuplicate, result.Duplicates)
	s.metrics.ImportRows(source, metrics.OutcomeError, result.Errors)
	if result.Imported > 0 {
		s.alerts.Trigger(userID)
	}
	return nil
}

func (s *ImportService) toTransaction(userID string, accountID uuid.UUID, draft ingest.Draft, hash string, categories []domain.Category, now time.Time) domain.Transaction {
	transaction := domain.Transaction{
		ID:           uuid.New(),
		UserID:       userID,
		AccountID:    accountID,
		Type:         draft.Type,
		Amount:       draft.Amount,
		Currency:     draft.Currency,
		Date:         draft.Date,
		Description:  draft.Description,
		MerchantName: draft.MerchantName,
		ImportHash:   &hash,
		CreatedAt:    now,
	}
	if draft.ExternalID != "" {
		externalID := draft.ExternalID
		transaction.ExternalID = &externalID
	}
	result := s.categorizer.Categorize(draft.Type, draft.Description, draft.MerchantName, categories)
	if result.CategoryID != nil {
		confidence := result.Confidence
		transaction.CategoryID = result.CategoryID
		transaction.CategoryConfidence = &confidence
	}
	return transaction
}

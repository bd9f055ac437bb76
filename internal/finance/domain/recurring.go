package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

type Schedule struct {
	Frequency  Frequency `json:"frequency"`
	Interval   int       `json:"interval"`
	DayOfMonth *int      `json:"dayOfMonth,omitempty"`
	DayOfWeek  *int      `json:"dayOfWeek,omitempty"`
}

func (s Schedule) Validate() error {
	switch s.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
	default:
		return errors.NewValidationError("Invalid frequency")
	}
	if s.Interval < 1 {
		return errors.NewValidationError("Interval must be a positive integer")
	}
	if s.DayOfMonth != nil && (*s.DayOfMonth < 1 || *s.DayOfMonth > 31) {
		return errors.NewValidationError("Day of month must be between 1 and 31")
	}
	if s.DayOfWeek != nil && (*s.DayOfWeek < 0 || *s.DayOfWeek > 6) {
		return errors.NewValidationError("Day of week must be between 0 and 6")
	}
	return nil
}

// Next returns the execution date following from.
// Month based frequencies clamp the day to the last valid day of the target month.
func (s Schedule) Next(from time.Time) time.Time {
	interval := s.Interval
	if interval < 1 {
		interval = 1
	}
	switch s.Frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, interval)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7*interval)
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return addMonthsClamped(from, interval, s.DayOfMonth)
	case FrequencyQuarterly:
		return addMonthsClamped(from, 3, s.DayOfMonth)
	case FrequencyYearly:
		return addMonthsClamped(from, 12*interval, nil)
	}
	return from
}

func addMonthsClamped(from time.Time, months int, dayOfMonth *int) time.Time {
	day := from.Day()
	if dayOfMonth != nil {
		day = *dayOfMonth
	}
	// day 1 never overflows, so AddDate lands in the intended month
	firstOfTarget := time.Date(from.Year(), from.Month(), 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location()).
		AddDate(0, months, 0)
	if last := daysIn(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return firstOfTarget.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

type RecurringTransaction struct {
	ID                  uuid.UUID       `json:"id"`
	UserID              string          `json:"userId"`
	AccountID           uuid.UUID       `json:"accountId"`
	CategoryID          *uuid.UUID      `json:"categoryId,omitempty"`
	Type                TransactionType `json:"type"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	Description         string          `json:"description"`
	MerchantName        string          `json:"merchantName,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	Tags                []string        `json:"tags,omitempty"`
	Schedule
	StartDate           time.Time  `json:"startDate"`
	EndDate             *time.Time `json:"endDate,omitempty"`
	EndAfterOccurrences *int       `json:"endAfterOccurrences,omitempty"`
	NextExecutionDate   time.Time  `json:"nextExecutionDate"`
	LastExecutionDate   *time.Time `json:"lastExecutionDate,omitempty"`
	OccurrenceCount     int        `json:"occurrenceCount"`
	IsActive            bool       `json:"isActive"`
	CreatedAt           time.Time  `json:"createdAt"`
}

func (r *RecurringTransaction) Validate() error {
	if !IsValidTransactionType(r.Type) {
		return errors.ErrInvalidTransactionType
	}
	if !r.Amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if r.Description == "" {
		return errors.NewValidationError("Description is required")
	}
	if len(r.Currency) != 3 {
		return errors.NewValidationError("Currency must be a 3-letter ISO 4217 code")
	}
	if r.StartDate.IsZero() {
		return errors.NewValidationError("Start date is required")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return errors.NewValidationError("End date must not be before start date")
	}
	if r.EndAfterOccurrences != nil && *r.EndAfterOccurrences < 1 {
		return errors.NewValidationError("End after occurrences must be a positive integer")
	}
	return r.Schedule.Validate()
}

func (r *RecurringTransaction) IsDue(now time.Time) bool {
	return r.IsActive && !r.NextExecutionDate.After(now)
}

// Exhausted reports whether a stop condition holds at now.
func (r *RecurringTransaction) Exhausted(now time.Time) bool {
	if r.EndDate != nil && now.After(*r.EndDate) {
		return true
	}
	return r.EndAfterOccurrences != nil && r.OccurrenceCount >= *r.EndAfterOccurrences
}

// Materialize builds the concrete transaction for one occurrence dated at now.
func (r *RecurringTransaction) Materialize(now time.Time) Transaction {
	transaction := Transaction{
		ID:           uuid.New(),
		UserID:       r.UserID,
		AccountID:    r.AccountID,
		CategoryID:   r.CategoryID,
		Type:         r.Type,
		Amount:       r.Amount,
		Currency:     r.Currency,
		Date:         now,
		Description:  r.Description,
		MerchantName: r.MerchantName,
		Notes:        r.Notes,
		Tags:         append([]string(nil), r.Tags...),
		IsRecurring:  true,
		CreatedAt:    now,
	}
	if r.CategoryID != nil {
		confidence := ManualConfidence
		transaction.CategoryConfidence = &confidence
	}
	return transaction
}

// Advance records an occurrence at now and moves the schedule forward.
// The template deactivates itself once the next occurrence could no longer run.
func (r *RecurringTransaction) Advance(now time.Time) {
	r.OccurrenceCount++
	executed := now
	r.LastExecutionDate = &executed
	r.NextExecutionDate = r.Schedule.Next(now)
	if r.EndAfterOccurrences != nil && r.OccurrenceCount >= *r.EndAfterOccurrences {
		r.IsActive = false
	}
	if r.EndDate != nil && r.NextExecutionDate.After(*r.EndDate) {
		r.IsActive = false
	}
}

// RecomputeNext derives NextExecutionDate from the last execution, or from the start date
// when the template never ran. The first occurrence is one period after the start date.
func (r *RecurringTransaction) RecomputeNext() {
	base := r.StartDate
	if r.LastExecutionDate != nil {
		base = *r.LastExecutionDate
	}
	r.NextExecutionDate = r.Schedule.Next(base)
}

type RecurringRepository interface {
	Create(ctx context.Context, recurring *RecurringTransaction) error
	Update(ctx context.Context, recurring *RecurringTransaction) error
	FindByID(ctx context.Context, userID string, recurringID uuid.UUID) (*RecurringTransaction, error)
	FindByIDForUpdate(ctx context.Context, userID string, recurringID uuid.UUID) (*RecurringTransaction, error)
	ListByUser(ctx context.Context, userID string, active *bool) ([]RecurringTransaction, error)
	ListDue(ctx context.Context, asOf time.Time) ([]RecurringTransaction, error)
}

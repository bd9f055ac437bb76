package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sebuszqo/FinanceTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceTracker/internal/finance/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	DefaultCurrency    = "EUR"
	unknownDescription = "Unknown"
)

var (
	dateColumns        = []string{"Date", "Transaction Date", "Datetime", "Booking Date", "Posted Date"}
	revolutDateColumns = []string{"Completed Date", "Started Date", "Date"}
	descriptionColumns = []string{"Description", "Label", "Details", "Memo"}
	amountColumns      = []string{"Amount", "Value"}
	currencyColumns    = []string{"Currency"}
	feeColumns         = []string{"Fee"}
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
}

// Draft is a normalized transaction that has not been persisted yet.
type Draft struct {
	Date         time.Time
	Type         domain.TransactionType
	Amount       decimal.Decimal // unsigned
	Currency     string
	Description  string
	MerchantName string
	ExternalID   string
}

// Normalize maps one file row onto a Draft. Missing or unparsable dates and amounts are
// returned as validation errors so the caller can skip the row and keep going.
func Normalize(row Row, dialect Dialect) (Draft, error) {
	dateValue := row.Lookup(dateColumns...)
	if dialect == DialectRevolut {
		dateValue = row.Lookup(revolutDateColumns...)
	}
	if dateValue == "" {
		return Draft{}, financeErrors.NewValidationError("missing date")
	}
	date, err := ParseDate(dateValue)
	if err != nil {
		return Draft{}, err
	}

	amountValue := row.Lookup(amountColumns...)
	if amountValue == "" {
		return Draft{}, financeErrors.NewValidationError("missing amount")
	}
	amount, err := ParseAmount(amountValue)
	if err != nil {
		return Draft{}, err
	}
	if dialect == DialectRevolut {
		if feeValue := row.Lookup(feeColumns...); feeValue != "" {
			fee, err := ParseAmount(feeValue)
			if err != nil {
				return Draft{}, err
			}
			amount = amount.Sub(fee)
		}
	}

	description := row.Lookup(descriptionColumns...)
	if description == "" {
		description = unknownDescription
	}
	currency := strings.ToUpper(row.Lookup(currencyColumns...))
	if currency == "" {
		currency = DefaultCurrency
	}

	return newDraft(date, amount, currency, description, description, ""), nil
}

// newDraft splits a signed amount into type and unsigned amount. Zero counts as income.
func newDraft(date time.Time, signed decimal.Decimal, currency, description, merchant, externalID string) Draft {
	transactionType := domain.TransactionTypeIncome
	if signed.IsNegative() {
		transactionType = domain.TransactionTypeExpense
	}
	return Draft{
		Date:         date.UTC(),
		Type:         transactionType,
		Amount:       signed.Abs(),
		Currency:     currency,
		Description:  description,
		MerchantName: merchant,
		ExternalID:   externalID,
	}
}

// ParseDate accepts the common statement layouts and spreadsheet serial dates.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, financeErrors.NewValidationError(fmt.Sprintf("unparsable date %q", value))
}

// ParseAmount reads a signed decimal, tolerating thousands separators and a decimal comma.
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	switch {
	case strings.Contains(cleaned, ".") && strings.Contains(cleaned, ","):
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Contains(cleaned, ","):
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, financeErrors.NewValidationError(fmt.Sprintf("unparsable amount %q", value))
	}
	return amount, nil
}

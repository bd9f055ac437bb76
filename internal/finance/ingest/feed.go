package ingest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FeedTransaction is one row delivered by a connected bank feed.
type FeedTransaction struct {
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Timestamp     time.Time       `json:"timestamp"`
	Description   string          `json:"description"`
	MerchantName  string          `json:"merchantName"`
}

func FromFeed(feed FeedTransaction) Draft {
	description := strings.TrimSpace(feed.Description)
	if description == "" {
		description = unknownDescription
	}
	merchant := strings.TrimSpace(feed.MerchantName)
	if merchant == "" {
		merchant = description
	}
	currency := strings.ToUpper(feed.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}
	return newDraft(feed.Timestamp, feed.Amount, currency, description, merchant, feed.TransactionID)
}

package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/config"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDirectory map[string]Contact

func (d staticDirectory) Contact(_ context.Context, userID string) (Contact, error) {
	contact, ok := d[userID]
	if !ok {
		return Contact{}, errors.New("user not found")
	}
	return contact, nil
}

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestNotifier(t *testing.T, sent *[]sentMail, sendErr error) *EmailNotifier {
	t.Helper()
	directory := staticDirectory{
		"u1": {Email: "anna@example.com", Name: "Anna"},
		"u2": {Email: "not-an-address", Name: "Bob"},
	}
	cfg := config.SMTPConfig{Host: "smtp.example.com", Port: "587", From: "alerts@example.com", Password: "pw"}
	n, err := NewEmailNotifier(cfg, directory, zerolog.Nop())
	require.NoError(t, err)
	return n.WithSender(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return sendErr
	})
}

func alertFor(userID string) application.BudgetAlert {
	return application.BudgetAlert{
		UserID:       userID,
		BudgetID:     uuid.New(),
		CategoryName: "Groceries",
		Spent:        decimal.RequireFromString("412.5"),
		Total:        decimal.NewFromInt(500),
		Percentage:   82,
		Threshold:    80,
	}
}

func TestNotifyBudgetAlertSendsEmail(t *testing.T) {
	var sent []sentMail
	n := newTestNotifier(t, &sent, nil)

	require.NoError(t, n.NotifyBudgetAlert(context.Background(), alertFor("u1")))
	require.Len(t, sent, 1)
	assert.Equal(t, "smtp.example.com:587", sent[0].addr)
	assert.Equal(t, "alerts@example.com", sent[0].from)
	assert.Equal(t, []string{"anna@example.com"}, sent[0].to)
	assert.Contains(t, sent[0].msg, "Subject: Budget alert: Groceries at 82%")
	assert.Contains(t, sent[0].msg, "Hi Anna")
	assert.Contains(t, sent[0].msg, "412.50 of 500.00")
	assert.NotContains(t, sent[0].msg, "already exceeded")
}

func TestNotifyBudgetAlertRejectsInvalidRecipient(t *testing.T) {
	var sent []sentMail
	n := newTestNotifier(t, &sent, nil)

	err := n.NotifyBudgetAlert(context.Background(), alertFor("u2"))
	assert.ErrorIs(t, err, ErrInvalidRecipient)
	assert.Empty(t, sent)

	err = n.NotifyBudgetAlert(context.Background(), alertFor("unknown"))
	assert.Error(t, err)
}

func TestNotifyBudgetAlertReportsTransportFailure(t *testing.T) {
	var sent []sentMail
	n := newTestNotifier(t, &sent, errors.New("connection refused"))

	alert := alertFor("u1")
	alert.Percentage = 120
	err := n.NotifyBudgetAlert(context.Background(), alert)
	assert.ErrorContains(t, err, "connection refused")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].msg, "already exceeded")
}

func TestLogNotifierNeverFails(t *testing.T) {
	assert.NoError(t, LogNotifier{Log: zerolog.Nop()}.NotifyBudgetAlert(context.Background(), alertFor("u1")))
}

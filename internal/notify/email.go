package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/badoux/checkmail"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/config"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
)

const (
	subjectBudgetAlert  = "Budget alert: %s at %d%%"
	templateBudgetAlert = "budget_alert.html"
)

var ErrInvalidRecipient = errors.New("recipient email address is invalid")

//go:embed templates/*.html
var templatesFS embed.FS

// Contact is where alerts for a user are delivered.
type Contact struct {
	Email string
	Name  string
}

// Directory resolves the contact details of a user.
type Directory interface {
	Contact(ctx context.Context, userID string) (Contact, error)
}

// SendFunc has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type budgetAlertData struct {
	Name         string
	CategoryName string
	Spent        string
	Total        string
	Percentage   int
	Threshold    int
	Exceeded     bool
}

var _ application.Notifier = (*EmailNotifier)(nil)

// EmailNotifier sends budget alerts as HTML mail over SMTP.
type EmailNotifier struct {
	cfg       config.SMTPConfig
	directory Directory
	templates *template.Template
	send      SendFunc
	log       zerolog.Logger
}

func NewEmailNotifier(cfg config.SMTPConfig, directory Directory, log zerolog.Logger) (*EmailNotifier, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}
	return &EmailNotifier{
		cfg:       cfg,
		directory: directory,
		templates: tmpl,
		send:      smtp.SendMail,
		log:       log.With().Str("component", "email_notifier").Logger(),
	}, nil
}

// WithSender replaces the SMTP transport, mostly for tests.
func (n *EmailNotifier) WithSender(send SendFunc) *EmailNotifier {
	n.send = send
	return n
}

func (n *EmailNotifier) NotifyBudgetAlert(ctx context.Context, alert application.BudgetAlert) error {
	contact, err := n.directory.Contact(ctx, alert.UserID)
	if err != nil {
		return fmt.Errorf("could not resolve recipient: %w", err)
	}
	if err := checkmail.ValidateFormat(contact.Email); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, contact.Email)
	}

	data := budgetAlertData{
		Name:         contact.Name,
		CategoryName: alert.CategoryName,
		Spent:        alert.Spent.StringFixed(2),
		Total:        alert.Total.StringFixed(2),
		Percentage:   alert.Percentage,
		Threshold:    alert.Threshold,
		Exceeded:     alert.Percentage >= 100,
	}
	subject := fmt.Sprintf(subjectBudgetAlert, alert.CategoryName, alert.Percentage)
	if err := n.sendTemplatedEmail(contact.Email, templateBudgetAlert, data, subject); err != nil {
		return err
	}
	n.log.Info().Str("user_id", alert.UserID).Str("budget_id", alert.BudgetID.String()).
		Int("percentage", alert.Percentage).Msg("Budget alert email sent")
	return nil
}

func (n *EmailNotifier) sendTemplatedEmail(to, templateName string, data any, subject string) error {
	var body bytes.Buffer
	if err := n.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("error executing template: %w", err)
	}

	message := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n" +
		body.String())

	auth := smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.Host)
	if err := n.send(n.cfg.Host+":"+n.cfg.Port, auth, n.cfg.From, []string{to}, message); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// LogNotifier only logs alerts. It is used when no SMTP credentials are configured.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) NotifyBudgetAlert(_ context.Context, alert application.BudgetAlert) error {
	n.Log.Warn().Str("user_id", alert.UserID).Str("category", alert.CategoryName).
		Str("spent", alert.Spent.StringFixed(2)).Str("total", alert.Total.StringFixed(2)).
		Int("percentage", alert.Percentage).Msg("Budget alert threshold reached")
	return nil
}

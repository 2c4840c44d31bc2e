// Package notifier emails trend reports to account owners.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/sakif/socialpulse/internal/metrics"
	"github.com/sakif/socialpulse/internal/model"
)

const (
	// Subject is the subject line of every report email.
	Subject = "Competitor Trend Analysis Report"
	// ConfirmationSubject is the subject of the signup address check.
	ConfirmationSubject = "Email verified"
)

const confirmationBody = "Your email address has been verified for Social Pulse trend reports."

var (
	// ErrSenderNotConfigured means no From address is configured.
	ErrSenderNotConfigured = errors.New("notifier: sender address not configured")
	// ErrNoRecipient means the account has no email address.
	ErrNoRecipient = errors.New("notifier: account has no email address")
)

// Sender transmits a built message.
type Sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// AccountLookup finds the recipient's account.
type AccountLookup interface {
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
}

// Notifier builds report emails and hands them to a Sender.
type Notifier struct {
	accounts AccountLookup
	sender   Sender
	from     string
	logger   *slog.Logger
}

// New creates a Notifier sending from the given address.
func New(accounts AccountLookup, sender Sender, from string, logger *slog.Logger) *Notifier {
	return &Notifier{accounts: accounts, sender: sender, from: strings.TrimSpace(from), logger: logger}
}

// Deliver emails html to username's registered address. A failed delivery is
// returned to the caller and not retried.
func (n *Notifier) Deliver(ctx context.Context, username, html string) error {
	err := n.deliver(ctx, username, html)
	metrics.RecordDelivery(err)
	if err != nil {
		n.logger.Warn("report delivery failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return err
	}
	n.logger.Info("report delivered", slog.String("username", username))
	return nil
}

func (n *Notifier) deliver(ctx context.Context, username, html string) error {
	if n.from == "" {
		return ErrSenderNotConfigured
	}

	account, err := n.accounts.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("notifier: looking up %s: %w", username, err)
	}
	to := strings.TrimSpace(account.Email)
	if to == "" {
		return ErrNoRecipient
	}

	msg, err := BuildMessage(n.from, to, html)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notifier: sending to %s: %w", to, err)
	}
	return nil
}

// Confirm sends a short plain-text message to email. Registration uses it to
// prove the address accepts mail before the account is created.
func (n *Notifier) Confirm(ctx context.Context, email string) error {
	if n.from == "" {
		return ErrSenderNotConfigured
	}
	to := strings.TrimSpace(email)
	if to == "" {
		return ErrNoRecipient
	}

	msg, err := newMessage(n.from, to)
	if err != nil {
		return err
	}
	msg.Subject(ConfirmationSubject)
	msg.SetBodyString(mail.TypeTextPlain, confirmationBody)

	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Warn("confirmation email failed",
			slog.String("email", to),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("notifier: confirming %s: %w", to, err)
	}
	n.logger.Debug("confirmation email sent", slog.String("email", to))
	return nil
}

// BuildMessage assembles the HTML report email.
func BuildMessage(from, to, html string) (*mail.Msg, error) {
	msg, err := newMessage(from, to)
	if err != nil {
		return nil, err
	}
	msg.Subject(Subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	return msg, nil
}

func newMessage(from, to string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("notifier: invalid sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("notifier: invalid recipient %q: %w", to, err)
	}
	return msg, nil
}

// SMTPConfig holds relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPSender delivers through an SMTP relay with STARTTLS and PLAIN auth.
type SMTPSender struct {
	host string
	opts []mail.Option
}

// NewSMTPSender creates an SMTPSender. A new connection is opened per message.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	// WithPort after WithTLSPortPolicy so an explicit port wins
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	return &SMTPSender{host: cfg.Host, opts: opts}
}

// Send dials the relay, sends msg and closes the connection.
func (s *SMTPSender) Send(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.host, s.opts...)
	if err != nil {
		return fmt.Errorf("smtp: creating client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp: sending: %w", err)
	}
	return nil
}

package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"finboard/internal/log"
)

// SMTPConfig locates the mail relay.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// EmailNotifier sends reminders to users who opted into email.
type EmailNotifier struct {
	cfg    SMTPConfig
	send   func(e *email.Email) error
	logger *log.Logger
}

func NewEmailNotifier(cfg SMTPConfig, logger *log.Logger) *EmailNotifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	n := &EmailNotifier{cfg: cfg, logger: logger.WithComponent(log.ComponentNotify)}
	n.send = n.sendSMTP
	return n
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) sendSMTP(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	return e.Send(addr, auth)
}

func (n *EmailNotifier) Notify(ctx context.Context, r Reminder) error {
	if !r.User.NotifyEmail || r.User.Email == "" {
		return ErrNoAddress
	}

	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = []string{r.User.Email}
	e.Subject = r.Subject()
	e.Text = []byte(r.Body())

	if err := n.send(e); err != nil {
		n.logger.ErrorContext(ctx, "Failed to send reminder email", log.FieldOwnerID, r.User.ID, log.FieldError, err)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.InfoContext(ctx, "Reminder email sent", log.FieldOwnerID, r.User.ID, "payments", len(r.Payments))
	return nil
}

// Package notify delivers questionnaire completion emails.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"discovery/internal/model"
)

var ErrNotConfigured = errors.New("smtp notifier is not configured")

// SubmissionsPort is the implicit-TLS SMTP port
const SubmissionsPort = 465

// SMTPConfig holds the outbound mail settings
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
}

// Configured reports whether enough settings are present to send mail
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != "" && len(c.Recipients) > 0
}

// SMTPNotifier sends the completion report by email
type SMTPNotifier struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

// NewSMTPNotifier creates a new SMTP notifier
func NewSMTPNotifier(cfg SMTPConfig, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// Notify sends n as an HTML email with the report attached
func (s *SMTPNotifier) Notify(ctx context.Context, n model.Notification) error {
	if !s.cfg.Configured() {
		return ErrNotConfigured
	}

	msg, err := s.buildMessage(n)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send completion email: %w", err)
	}

	s.logger.Info("completion email sent",
		zap.String("subject", n.Subject),
		zap.Int("recipients", len(s.cfg.Recipients)))
	return nil
}

// clientOptions selects implicit TLS on the submissions port and
// opportunistic STARTTLS everywhere else
func (s *SMTPNotifier) clientOptions() []mail.Option {
	var opts []mail.Option
	if s.cfg.Port == SubmissionsPort {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts,
			mail.WithPort(s.cfg.Port),
			mail.WithTLSPolicy(mail.TLSOpportunistic),
		)
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

func (s *SMTPNotifier) buildMessage(n model.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(s.cfg.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextHTML, n.HTMLBody)
	if n.AttachmentName != "" {
		if err := msg.AttachReader(n.AttachmentName, bytes.NewReader(n.Attachment)); err != nil {
			return nil, fmt.Errorf("failed to attach report: %w", err)
		}
	}
	return msg, nil
}

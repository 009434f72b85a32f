package email

import (
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/juvenxu/account-service/internal/infra/config"
	"github.com/juvenxu/account-service/internal/infra/logger"
)

// SMTPMailer implements port.Mailer over an SMTP relay. Each Send call
// produces exactly one outbound message; retry policy, if any, belongs to
// the caller.
type SMTPMailer struct {
	client *mail.Client
	from   string
	logger *zap.Logger
}

// NewSMTPMailer constructs a mailer from SMTP settings.
func NewSMTPMailer(cfg config.SMTPSettings, log *zap.Logger) (*SMTPMailer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if !cfg.TLSEnabled {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPMailer{
		client: client,
		from:   cfg.From,
		logger: log,
	}, nil
}

// Send delivers a single HTML message to the recipient.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Info("mail sent",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
	)

	return nil
}

// LoggingMailer records outbound messages instead of delivering them.
// Useful for development environments without an SMTP relay.
type LoggingMailer struct {
	logger *zap.Logger
}

// NewLoggingMailer constructs a development-friendly mailer.
func NewLoggingMailer(log *zap.Logger) *LoggingMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingMailer{logger: log}
}

// Send logs the message without delivering it.
func (m *LoggingMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.logger.Info("mail dispatch (logging only)",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(htmlBody)),
	)
	return nil
}

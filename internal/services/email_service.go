// Package services provides business logic services for the corporate site back-office.
package services

import (
	"context"
	"fmt"

	"corpsite/internal/config"
	"corpsite/internal/observability"
	"corpsite/internal/services/mailer"
	contextutils "corpsite/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

// EmailService implements mailer.Mailer using gomail over SMTP
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
}

var _ mailer.Mailer = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
		// gomail takes no context; the dialer timeout is what bounds a send
		dialer.Timeout = cfg.Email.SMTP.Timeout
		if dialer.Timeout <= 0 {
			dialer.Timeout = config.SMTPTimeout
		}
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
	}
}

// SendEmail sends a generic email with the given parameters
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "send_email",
		attribute.String("email.to", contextutils.MaskEmail(to)),
		attribute.String("email.template", templateName),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping email send", map[string]interface{}{
			"to":       contextutils.MaskEmail(to),
			"template": templateName,
		})
		return nil
	}

	if e.dialer == nil {
		return contextutils.ErrorWithContextf("email service not properly configured")
	}

	if err := ctx.Err(); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrEmailDelivery, "email to %s not sent: %w", contextutils.MaskEmail(to), err)
	}

	contentType, body, err := RenderEmail(templateName, data)
	if err != nil {
		return contextutils.WrapError(err, "failed to generate email content")
	}

	m := mail.NewMessage()
	m.SetHeader("From", e.fromHeader())
	if e.cfg.Email.AdminAddress != "" {
		m.SetHeader("Reply-To", e.cfg.Email.AdminAddress)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody(contentType+"; charset=UTF-8", body)

	if err = e.dialer.DialAndSend(m); err != nil {
		e.logger.Error(ctx, "Failed to send email", err, map[string]interface{}{
			"to":       contextutils.MaskEmail(to),
			"template": templateName,
			"subject":  subject,
		})
		return contextutils.WrapErrorf(contextutils.ErrEmailDelivery, "failed to send email: %v", err)
	}

	e.logger.Info(ctx, "Email sent successfully", map[string]interface{}{
		"to":       contextutils.MaskEmail(to),
		"template": templateName,
		"subject":  subject,
	})

	return nil
}

// IsEnabled returns whether email functionality is enabled
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.cfg.Email.SMTP.Host != ""
}

func (e *EmailService) fromHeader() string {
	from := e.cfg.Email.SMTP.FromAddress
	if from == "" {
		from = e.cfg.Email.AdminAddress
	}
	if e.cfg.Email.SMTP.FromName == "" {
		return from
	}
	return fmt.Sprintf("%s <%s>", e.cfg.Email.SMTP.FromName, from)
}

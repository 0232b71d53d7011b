package services

import (
	"context"
	"sort"
	"sync"

	"corpsite/internal/config"
	"corpsite/internal/observability"
	"corpsite/internal/services/mailer"
	contextutils "corpsite/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// SentEmail is a message captured by TestEmailService
type SentEmail struct {
	To          string
	Subject     string
	Template    string
	ContentType string
	Body        string
}

// TestEmailService implements the Mailer interface for testing purposes.
// It renders templates like the real service but keeps messages in memory instead of sending them.
type TestEmailService struct {
	cfg    *config.Config
	logger *observability.Logger

	mu      sync.Mutex
	sent    []SentEmail
	failFor map[string]bool
}

var _ mailer.Mailer = (*TestEmailService)(nil)

// NewTestEmailService creates a new TestEmailService instance
func NewTestEmailService(cfg *config.Config, logger *observability.Logger) *TestEmailService {
	return &TestEmailService{
		cfg:     cfg,
		logger:  logger,
		failFor: map[string]bool{},
	}
}

// SendEmail renders and records the email (test mode - nothing leaves the process)
func (e *TestEmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "send_email_test_mode",
		attribute.String("email.template", templateName),
	)
	defer observability.FinishSpan(span, &err)

	contentType, body, err := RenderEmail(templateName, data)
	if err != nil {
		return contextutils.WrapError(err, "failed to generate email content")
	}

	e.mu.Lock()
	fail := e.failFor[to]
	if !fail {
		e.sent = append(e.sent, SentEmail{To: to, Subject: subject, Template: templateName, ContentType: contentType, Body: body})
	}
	e.mu.Unlock()

	if fail {
		return contextutils.WrapErrorf(contextutils.ErrEmailDelivery, "test mode delivery failure for %s", contextutils.MaskEmail(to))
	}

	e.logger.Info(ctx, "TEST MODE: Would send email", map[string]interface{}{
		"to":        contextutils.MaskEmail(to),
		"subject":   subject,
		"template":  templateName,
		"test_mode": true,
		"data_keys": getMapKeys(data),
	})
	return nil
}

// IsEnabled always reports true so callers exercise their send paths in tests
func (e *TestEmailService) IsEnabled() bool {
	return true
}

// Sent returns a copy of the captured messages in send order
func (e *TestEmailService) Sent() []SentEmail {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SentEmail, len(e.sent))
	copy(out, e.sent)
	return out
}

// FailFor makes subsequent sends to the address return a delivery error
func (e *TestEmailService) FailFor(address string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failFor[address] = true
}

// Reset drops captured messages and failure injections
func (e *TestEmailService) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = nil
	e.failFor = map[string]bool{}
}

func getMapKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

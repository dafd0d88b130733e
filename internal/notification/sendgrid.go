package notification

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
)

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers notifications through the SendGrid v3 mail API.
type SendGridSender struct {
	client mailClient
	from   *mail.Email
	logger *zap.Logger
}

// NewSendGridSender builds a sender using cfg's API key and from identity.
func NewSendGridSender(cfg config.EmailConfig, logger *zap.Logger) *SendGridSender {
	return newSendGridSender(sendgrid.NewSendClient(cfg.APIKey), cfg, logger)
}

func newSendGridSender(client mailClient, cfg config.EmailConfig, logger *zap.Logger) *SendGridSender {
	return &SendGridSender{
		client: client,
		from:   mail.NewEmail(cfg.FromName, cfg.FromAddress),
		logger: logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg domain.Email) error {
	message := mail.NewSingleEmail(
		s.from,
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Body,
		"<p>"+html.EscapeString(msg.Body)+"</p>",
	)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	s.logger.Debug("email accepted",
		zap.String("to", msg.To),
		zap.Int("status", resp.StatusCode))
	return nil
}

package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
)

// ErrDelivery marks a message the provider did not accept.
var ErrDelivery = errors.New("notification delivery failed")

// DeliveryError carries the provider response for a rejected message.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", ErrDelivery, e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *DeliveryError) Unwrap() error {
	return ErrDelivery
}

// Sender delivers outbound notifications. A nil error means the provider
// accepted the message.
type Sender interface {
	Send(ctx context.Context, msg domain.Email) error
}

// New returns a SendGrid sender when an API key is configured and a logging
// sender otherwise.
func New(cfg config.EmailConfig, logger *zap.Logger) Sender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("EMAIL_API_KEY not provided; notifications will only be logged")
		return NewLogSender(logger)
	}
	return NewSendGridSender(cfg, logger)
}

// LogSender writes notifications to the log instead of sending them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs the sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg domain.Email) error {
	s.logger.Info("notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

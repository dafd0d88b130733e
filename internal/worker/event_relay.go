package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/events"
)

// StartEventRelay forwards every lifecycle event to handler, typically a
// Redis stream publisher. Relay failures are logged and returned to the
// dispatcher.
func StartEventRelay(dispatcher events.Dispatcher, handler events.EventHandler, logger *zap.Logger) {
	if dispatcher == nil || handler == nil {
		return
	}
	dispatcher.SubscribeAll(func(ctx context.Context, event events.Event) error {
		if err := handler(ctx, event); err != nil {
			logger.Warn("event relay failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Int64("user_id", event.UserID),
				zap.Error(err))
			return err
		}
		logger.Debug("event relayed", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
		return nil
	})
}

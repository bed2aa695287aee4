package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogProvider writes messages to the logger instead of sending them.
// Used in dev mode and when no mail transport is configured.
type LogProvider struct {
	logger *zap.Logger
}

// NewLogProvider creates a provider that logs each message.
func NewLogProvider(logger *zap.Logger) *LogProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogProvider{logger: logger}
}

// Deliver logs msg and returns ErrNotDelivered so callers never treat a
// logged message as sent.
func (p *LogProvider) Deliver(_ context.Context, msg Message) error {
	p.logger.Info("email",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return ErrNotDelivered
}

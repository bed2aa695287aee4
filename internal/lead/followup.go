package lead

import (
	"context"

	"go.uber.org/zap"
)

// LogFollowUp records follow-ups in the log. It stands in for an SMS or CRM
// integration.
type LogFollowUp struct {
	logger *zap.Logger
}

// NewLogFollowUp creates a log-only follow-up channel.
func NewLogFollowUp(logger *zap.Logger) *LogFollowUp {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogFollowUp{logger: logger.Named("followup")}
}

// FollowUp logs the lead's contact details.
func (f *LogFollowUp) FollowUp(_ context.Context, l *Lead) error {
	fields := []zap.Field{
		zap.String("ref", l.Ref),
		zap.String("name", l.Name),
		zap.String("email", l.Email),
	}
	if l.Phone != "" {
		fields = append(fields, zap.String("phone", l.Phone))
	}
	f.logger.Info("follow up", fields...)
	return nil
}

package email

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the log instead of sending them. Used in
// development when no mail transport is configured.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates the development transport
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs msg
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Warn().
		Str("to", msg.ToEmail).
		Str("subject", msg.Subject).
		Str("text", msg.Text).
		Msg("Mail transport not configured - email logged, not sent")
	return nil
}

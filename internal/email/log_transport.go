package email

import (
	"context"

	"go.uber.org/zap"
)

// LogTransport logs a message instead of sending it. Grounded on househunt's
// LogSender: a local-environment fallback, never meant for production since
// it writes full message bodies (including subscriber addresses) to the log.
type LogTransport struct {
	log *zap.Logger
}

// NewLogTransport builds a LogTransport.
func NewLogTransport(log *zap.Logger) *LogTransport {
	return &LogTransport{log: log}
}

// Send logs msg at info level and always succeeds.
func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.log.Info("email: send (log transport, not actually delivered)",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

// LogSender writes reset messages to the log instead of mailing them. It is
// used when no SMTP host is configured, typically in development.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, n ports.ResetNotification) error {
	s.log.Info().
		Str("to", n.To).
		Str("username", n.Username).
		Str("reset_link", n.ResetLink).
		Msg("password reset email (not sent, SMTP disabled)")
	return nil
}

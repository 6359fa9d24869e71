package email

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/account-service/internal/application/account"
)

// LogSender writes the message to the log instead of delivering it.
// Development only: the log line contains the one-time code.
type LogSender struct {
	lg zerolog.Logger
}

func NewLogSender(lg zerolog.Logger) *LogSender {
	return &LogSender{lg: lg.With().Str("component", "log_sender").Logger()}
}

func (s *LogSender) Send(ctx context.Context, msg account.EmailMessage) error {
	s.lg.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("FAKE send email")
	return nil
}

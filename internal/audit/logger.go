package audit

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	appCtx "github.com/baechuer/account-service/internal/pkg/context"
)

// Logger writes account lifecycle events as structured audit lines.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// warnActions are logged at warn; everything else at info.
var warnActions = map[string]bool{
	"login_failed":                true,
	"verification_failed":         true,
	"password_change_failed":      true,
	"human_verification_rejected": true,
	"human_verification_error":    true,
	"email_dispatch_failed":       true,
}

// Record logs one event. Emails are masked; other fields are written as-is.
func (l *Logger) Record(ctx context.Context, action string, fields map[string]string) {
	ev := l.log.Info()
	if warnActions[action] {
		ev = l.log.Warn()
	}

	ev = ev.Str("action", action).
		Str("request_id", appCtx.GetRequestID(ctx))
	if ip := appCtx.GetClientIP(ctx); ip != "" {
		ev = ev.Str("ip", ip)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if k == "email" {
			v = MaskEmail(v)
		}
		ev = ev.Str(k, v)
	}
	ev.Msg("account event")
}

// MaskEmail partially masks email for privacy in logs
func MaskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := 0
	for i, c := range email {
		if c == '@' {
			at = i
			break
		}
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}

package account

import (
	"context"

	"github.com/baechuer/account-service/internal/domain"
)

/*
RecordStore
-----------
Persistence port for identity records, one record per key.
Ordinary accounts are keyed by normalized email, demo accounts by
normalized username.

Not found        -> domain.ErrUserNotFound()
Create collision -> domain.ErrRecordExists(key)

No locking is implied: check-then-act sequences in the service are racy
by contract (two registrations can both pass the username scan).
*/
type RecordStore interface {
	Get(ctx context.Context, key string) (domain.Record, error)
	Exists(ctx context.Context, key string) (bool, error)

	// FindByField scans every record (O(n)) and returns the first whose
	// field equals value case-insensitively.
	FindByField(ctx context.Context, field, value string) (domain.Record, error)

	Create(ctx context.Context, key string, rec domain.Record) error
	Update(ctx context.Context, key string, rec domain.Record) error
	Delete(ctx context.Context, key string) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
CodeIssuer
----------
Generates the numeric one-time code mailed at registration.
*/
type CodeIssuer interface {
	Issue() (string, error)
}

/*
HumanVerifier
-------------
Validates a client-supplied anti-bot token (Cloudflare Turnstile).
Any error is treated as a failed check by the service.
*/
type VerifyResult struct {
	Success    bool
	ErrorCodes []string
}

type HumanVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (VerifyResult, error)
}

/*
EmailDispatcher
---------------
Delivers a message to the user's mailbox, directly (SMTP) or through the
email-service queue. Failures never roll back a registration.
*/
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

type EmailDispatcher interface {
	Send(ctx context.Context, msg EmailMessage) error
}

/*
RecordIndex
-----------
Enumerates store keys for operator maintenance (account-tool).
Not used on the request path.
*/
type RecordIndex interface {
	Keys(ctx context.Context) ([]string, error)
	Get(ctx context.Context, key string) (domain.Record, error)
	Delete(ctx context.Context, key string) error
}

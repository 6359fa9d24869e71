package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/baechuer/account-service/internal/domain"
)

const (
	defaultHumanVerifyTimeout = 5 * time.Second
	defaultDispatchTimeout    = 10 * time.Second

	verificationSubject = "Your Verification Code"
)

type Service struct {
	store  RecordStore
	hasher PasswordHasher
	codes  CodeIssuer
	human  HumanVerifier
	mailer EmailDispatcher

	now   func() time.Time
	audit func(ctx context.Context, action string, fields map[string]string)

	echoCode           bool
	hashPending        bool
	humanVerifyTimeout time.Duration
	dispatchTimeout    time.Duration
}

type Config struct {
	// EchoCode returns the one-time code in the registration result.
	// Meant for dev/demo deployments without a working mailbox.
	EchoCode bool

	// HashPendingPasswords hashes the password at registration instead of
	// keeping plaintext until verification.
	HashPendingPasswords bool

	HumanVerifyTimeout time.Duration
	DispatchTimeout    time.Duration
}

func NewService(
	store RecordStore,
	hasher PasswordHasher,
	codes CodeIssuer,
	human HumanVerifier,
	mailer EmailDispatcher,
	cfg Config,
) *Service {
	hvt := cfg.HumanVerifyTimeout
	if hvt <= 0 {
		hvt = defaultHumanVerifyTimeout
	}
	dt := cfg.DispatchTimeout
	if dt <= 0 {
		dt = defaultDispatchTimeout
	}
	return &Service{
		store:  store,
		hasher: hasher,
		codes:  codes,
		human:  human,
		mailer: mailer,

		now:   time.Now,
		audit: func(context.Context, string, map[string]string) {},

		echoCode:           cfg.EchoCode,
		hashPending:        cfg.HashPendingPasswords,
		humanVerifyTimeout: hvt,
		dispatchTimeout:    dt,
	}
}

// WithAudit installs a hook that receives business events (registrations,
// verification outcomes, logins, demo lifecycle).
func (s *Service) WithAudit(fn func(ctx context.Context, action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// WithClock overrides the time source used for createdTime.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// VerifyHuman runs the anti-bot check. It fails closed: a transport error
// is reported exactly like a rejected token.
func (s *Service) VerifyHuman(ctx context.Context, token, remoteIP string) error {
	if token == "" {
		return domain.ErrMissingField("verificationToken")
	}

	ctx, cancel := context.WithTimeout(ctx, s.humanVerifyTimeout)
	defer cancel()

	res, err := s.human.Verify(ctx, token, remoteIP)
	if err != nil {
		s.audit(ctx, "human_verification_error", map[string]string{"error": err.Error()})
		return domain.Wrap(domain.KindValidation, "verification_failed", "human verification failed", err)
	}
	if !res.Success {
		s.audit(ctx, "human_verification_rejected", map[string]string{"error_codes": strings.Join(res.ErrorCodes, ",")})
		return domain.ErrVerificationFailed()
	}
	return nil
}

// Lookup returns the record stored under identifier (email or demo username).
func (s *Service) Lookup(ctx context.Context, identifier string) (domain.Record, error) {
	key := domain.Normalize(identifier)
	if key == "" {
		return domain.Record{}, domain.ErrMissingField("identifier")
	}
	rec, err := s.store.Get(ctx, key)
	if err != nil {
		return domain.Record{}, storeErr(err)
	}
	return rec, nil
}

// storeErr passes domain errors through and wraps everything else.
func storeErr(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrStorageFailed(err)
}

func isNotFound(err error) bool {
	return domain.Is(err, "user_not_found")
}

package account

import (
	"context"

	"github.com/baechuer/account-service/internal/domain"
)

// Login checks credentials against a finalized record.
// IMPORTANT: unknown email and wrong password must look identical to callers.
func (s *Service) Login(ctx context.Context, email, password string) error {
	email = domain.Normalize(email)
	if email == "" {
		return domain.ErrMissingField("email")
	}
	if password == "" {
		return domain.ErrMissingField("password")
	}

	rec, err := s.store.Get(ctx, email)
	if err != nil {
		if isNotFound(err) {
			s.audit(ctx, "login_failed", map[string]string{"email": email, "reason": "unknown_email"})
			return domain.ErrInvalidCredentials()
		}
		return storeErr(err)
	}

	switch rec.State() {
	case domain.StateDemo:
		// demo records carry no password
		s.audit(ctx, "login_failed", map[string]string{"email": email, "reason": "demo"})
		return domain.ErrInvalidCredentials()
	case domain.StatePending:
		// gated regardless of whether the password is right
		s.audit(ctx, "login_failed", map[string]string{"email": email, "reason": "not_verified"})
		return domain.ErrAccountNotVerified()
	}

	if err := s.hasher.Compare(rec.Password, password); err != nil {
		s.audit(ctx, "login_failed", map[string]string{"email": email, "reason": "bad_password"})
		return domain.ErrInvalidCredentials()
	}

	s.audit(ctx, "login_succeeded", map[string]string{"email": email})
	return nil
}

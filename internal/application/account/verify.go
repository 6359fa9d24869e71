package account

import (
	"context"
	"crypto/subtle"

	"github.com/baechuer/account-service/internal/domain"
)

// Verify consumes the one-time code of a pending record.
//
// A wrong code deletes the record: the user has to register again. A correct
// code finalizes it with a hashed password and no code.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	email = domain.Normalize(email)
	if email == "" {
		return domain.ErrMissingField("email")
	}
	if code == "" {
		return domain.ErrMissingField("code")
	}

	rec, err := s.store.Get(ctx, email)
	if err != nil {
		return storeErr(err)
	}

	switch rec.State() {
	case domain.StateFinalized:
		return domain.ErrAlreadyVerified()
	case domain.StateDemo:
		return domain.ErrUserNotFound()
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		if err := s.store.Delete(ctx, email); err != nil && !isNotFound(err) {
			return storeErr(err)
		}
		s.audit(ctx, "verification_failed", map[string]string{"email": email})
		return domain.ErrInvalidCode()
	}

	hash := rec.Password
	if !rec.PasswordHashed {
		hash, err = s.hasher.Hash(rec.Password)
		if err != nil {
			return domain.ErrHashFailed(err)
		}
	}

	final := domain.Record{
		Email:       rec.Email,
		Username:    rec.Username,
		Password:    hash,
		CreatedTime: rec.CreatedTime,
		Verified:    true,
	}
	if err := s.store.Update(ctx, email, final); err != nil {
		return storeErr(err)
	}

	s.audit(ctx, "verified", map[string]string{"email": email})
	return nil
}

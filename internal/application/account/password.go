package account

import (
	"context"

	"github.com/baechuer/account-service/internal/domain"
)

// ChangePassword replaces the hash on a finalized record after checking the
// current password. No length or reuse policy is applied here.
func (s *Service) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	email = domain.Normalize(email)
	switch {
	case email == "":
		return domain.ErrMissingField("email")
	case currentPassword == "":
		return domain.ErrMissingField("currentPassword")
	case newPassword == "":
		return domain.ErrMissingField("newPassword")
	}

	rec, err := s.store.Get(ctx, email)
	if err != nil {
		return storeErr(err)
	}
	// only finalized records have a password hash to check against
	if rec.State() != domain.StateFinalized {
		return domain.ErrUserNotFound()
	}

	if err := s.hasher.Compare(rec.Password, currentPassword); err != nil {
		s.audit(ctx, "password_change_failed", map[string]string{"email": email})
		return domain.ErrInvalidCredentials()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.ErrHashFailed(err)
	}

	rec.Password = hash
	if err := s.store.Update(ctx, email, rec); err != nil {
		return storeErr(err)
	}

	s.audit(ctx, "password_changed", map[string]string{"email": email})
	return nil
}

package account

import (
	"context"

	"github.com/baechuer/account-service/internal/domain"
)

// CreateDemo persists a credential-less record keyed by username.
func (s *Service) CreateDemo(ctx context.Context, username string) (domain.Record, error) {
	username = domain.Normalize(username)
	if username == "" {
		return domain.Record{}, domain.ErrMissingField("username")
	}

	exists, err := s.store.Exists(ctx, username)
	if err != nil {
		return domain.Record{}, storeErr(err)
	}
	if exists {
		return domain.Record{}, domain.ErrUsernameAlreadyExists()
	}
	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return domain.Record{}, err
	}

	rec := domain.Record{
		Email:       domain.DemoEmail(username),
		Username:    username,
		CreatedTime: s.now().UTC(),
		Demo:        true,
	}
	if err := s.store.Create(ctx, username, rec); err != nil {
		if domain.Is(err, "record_exists") {
			return domain.Record{}, domain.ErrUsernameAlreadyExists()
		}
		return domain.Record{}, storeErr(err)
	}

	s.audit(ctx, "demo_created", map[string]string{"username": username})
	return rec, nil
}

// CreateDemoVerified is CreateDemo behind the human check, used by the
// "continue without an account" flow.
func (s *Service) CreateDemoVerified(ctx context.Context, username, token, remoteIP string) (domain.Record, error) {
	if domain.Normalize(username) == "" {
		return domain.Record{}, domain.ErrMissingField("username")
	}
	if err := s.VerifyHuman(ctx, token, remoteIP); err != nil {
		return domain.Record{}, err
	}
	return s.CreateDemo(ctx, username)
}

// DeleteDemo removes a demo record. Non-demo records are left untouched.
func (s *Service) DeleteDemo(ctx context.Context, identifier string) error {
	key := domain.Normalize(identifier)
	if key == "" {
		return domain.ErrMissingField("identifier")
	}

	rec, err := s.store.Get(ctx, key)
	if err != nil {
		return storeErr(err)
	}
	if !rec.Demo {
		return domain.ErrNotADemoAccount()
	}

	if err := s.store.Delete(ctx, key); err != nil {
		return storeErr(err)
	}

	s.audit(ctx, "demo_deleted", map[string]string{"username": rec.Username})
	return nil
}

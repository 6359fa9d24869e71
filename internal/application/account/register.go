package account

import (
	"context"
	"fmt"

	"github.com/baechuer/account-service/internal/domain"
	"github.com/baechuer/account-service/internal/logger"
)

type RegisterInput struct {
	Email             string
	Username          string
	Password          string
	VerificationToken string
	RemoteIP          string
}

type RegisterResult struct {
	Email    string
	Username string
	Message  string

	// Code is only set when the service runs with EchoCode.
	Code string
}

// Register creates a pending record and mails its one-time code.
//
// Order matters: the human check runs before any store access, so a bot
// cannot probe which emails or usernames are taken.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	switch {
	case in.Email == "":
		return RegisterResult{}, domain.ErrMissingField("email")
	case in.Username == "":
		return RegisterResult{}, domain.ErrMissingField("username")
	case in.Password == "":
		return RegisterResult{}, domain.ErrMissingField("password")
	}

	if err := s.VerifyHuman(ctx, in.VerificationToken, in.RemoteIP); err != nil {
		return RegisterResult{}, err
	}

	email := domain.Normalize(in.Email)
	username := domain.Normalize(in.Username)
	if email == "" {
		return RegisterResult{}, domain.ErrMissingField("email")
	}
	if username == "" {
		return RegisterResult{}, domain.ErrMissingField("username")
	}

	exists, err := s.store.Exists(ctx, email)
	if err != nil {
		return RegisterResult{}, storeErr(err)
	}
	if exists {
		return RegisterResult{}, domain.ErrEmailAlreadyExists()
	}

	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return RegisterResult{}, err
	}

	code, err := s.codes.Issue()
	if err != nil {
		return RegisterResult{}, domain.ErrRandomFailed(err)
	}

	rec := domain.Record{
		Email:       email,
		Username:    username,
		Password:    in.Password,
		Code:        code,
		CreatedTime: s.now().UTC(),
	}
	if s.hashPending {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return RegisterResult{}, domain.ErrHashFailed(err)
		}
		rec.Password = hash
		rec.PasswordHashed = true
	}

	if err := s.store.Create(ctx, email, rec); err != nil {
		if domain.Is(err, "record_exists") {
			// lost the race against a concurrent registration for the same email
			return RegisterResult{}, domain.ErrEmailAlreadyExists()
		}
		return RegisterResult{}, storeErr(err)
	}

	s.audit(ctx, "registered", map[string]string{"email": email, "username": username})
	s.dispatchCode(ctx, email, code)

	res := RegisterResult{
		Email:    email,
		Username: username,
		Message:  "Registration successful. Please check your email for the verification code.",
	}
	if s.echoCode {
		res.Code = code
	}
	return res, nil
}

// ensureUsernameFree scans the whole store. Check-then-create is not atomic.
func (s *Service) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.store.FindByField(ctx, domain.FieldUsername, username)
	switch {
	case err == nil:
		return domain.ErrUsernameAlreadyExists()
	case isNotFound(err):
		return nil
	default:
		return storeErr(err)
	}
}

// dispatchCode sends the code synchronously under its own deadline. The
// request context is detached so a client hang-up does not abort delivery.
// Failures are logged and never surface to the caller.
func (s *Service) dispatchCode(ctx context.Context, email, code string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
	defer cancel()

	err := s.mailer.Send(dctx, EmailMessage{
		To:      email,
		Subject: verificationSubject,
		Body:    fmt.Sprintf("Your verification code is: %s", code),
	})
	if err != nil {
		// the address reaches logs only through the audit hook, which masks it
		logger.WithCtx(ctx).Warn().Err(err).Msg("verification email dispatch failed")
		s.audit(ctx, "email_dispatch_failed", map[string]string{"email": email, "error": err.Error()})
	}
}

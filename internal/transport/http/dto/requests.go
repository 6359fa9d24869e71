package dto

import "strings"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,max=64,username_format"`
	Password string `json:"password" validate:"required"`

	// Older clients send turnstileToken.
	VerificationToken string `json:"verificationToken"`
	TurnstileToken    string `json:"turnstileToken"`
}

func (r *RegisterRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
}

// Token returns the human-verification token under either name.
func (r *RegisterRequest) Token() string {
	if r.VerificationToken != "" {
		return r.VerificationToken
	}
	return r.TurnstileToken
}

func (r *RegisterRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	return checkPasswordLen("password", r.Password)
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required,max=16"`
}

func (r *VerifyRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyRequest) Validate() error { return validateStruct(r) }

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() { r.Email = strings.TrimSpace(r.Email) }

func (r *LoginRequest) Validate() error { return validateStruct(r) }

type ChangePasswordRequest struct {
	Email           string `json:"email" validate:"required"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (r *ChangePasswordRequest) Normalize() { r.Email = strings.TrimSpace(r.Email) }

func (r *ChangePasswordRequest) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	return checkPasswordLen("newPassword", r.NewPassword)
}

type DemoRequest struct {
	Username string `json:"username" validate:"required,max=64,username_format"`

	// Only read by /no-acc.
	TurnstileToken string `json:"turnstileToken"`
}

func (r *DemoRequest) Normalize() { r.Username = strings.TrimSpace(r.Username) }

func (r *DemoRequest) Validate() error { return validateStruct(r) }

type TurnstileRequest struct {
	TurnstileToken string `json:"turnstileToken" validate:"required"`
}

func (r *TurnstileRequest) Validate() error { return validateStruct(r) }

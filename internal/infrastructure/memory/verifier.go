package memory

import (
	"context"

	"github.com/baechuer/account-service/internal/application/account"
)

// StaticVerifier answers every human check the same way. Dev only: it is
// wired when ENV=dev and no Turnstile secret is configured.
type StaticVerifier struct {
	Pass bool
}

func NewStaticVerifier(pass bool) *StaticVerifier { return &StaticVerifier{Pass: pass} }

func (v *StaticVerifier) Verify(ctx context.Context, token, remoteIP string) (account.VerifyResult, error) {
	if !v.Pass {
		return account.VerifyResult{Success: false, ErrorCodes: []string{"static-reject"}}, nil
	}
	return account.VerifyResult{Success: true}, nil
}

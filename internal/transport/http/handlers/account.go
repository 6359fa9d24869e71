package http_handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/account-service/internal/application/account"
	"github.com/baechuer/account-service/internal/logger"
	appCtx "github.com/baechuer/account-service/internal/pkg/context"
	"github.com/baechuer/account-service/internal/transport/http/dto"
	"github.com/baechuer/account-service/internal/transport/http/response"
)

// a code check against an unknown email is a bad request, not a missing page
var verifyOverrides = response.StatusOverrides{"user_not_found": http.StatusBadRequest}

type AccountHandler struct {
	svc *account.Service
}

func NewAccountHandler(svc *account.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// User handles GET /user/{identifier}.
func (h *AccountHandler) User(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Lookup(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(rec))
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), account.RegisterInput{
		Email:             req.Email,
		Username:          req.Username,
		Password:          req.Password,
		VerificationToken: req.Token(),
		RemoteIP:          appCtx.GetClientIP(r.Context()),
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("username", res.Username).
		Msg("account_registered")

	response.OK(w, dto.RegisterResponse{
		Success: true,
		Message: res.Message,
		Code:    res.Code,
	})
}

func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.Verify(r.Context(), req.Email, req.Code); err != nil {
		response.WriteErrorWith(w, r, err, verifyOverrides)
		return
	}

	response.OK(w, dto.SuccessResponse{Success: true, Message: "Account verified"})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.Login(r.Context(), req.Email, req.Password); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.SuccessResponse{Success: true})
}

// ChangePassword handles POST /re-register.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), req.Email, req.CurrentPassword, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.SuccessResponse{Success: true, Message: "Password updated successfully"})
}

func (h *AccountHandler) CreateDemo(w http.ResponseWriter, r *http.Request) {
	var req dto.DemoRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	rec, err := h.svc.CreateDemo(r.Context(), req.Username)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.NewDemoResponse(rec))
}

// NoAccount handles POST /no-acc: demo creation behind the human check.
func (h *AccountHandler) NoAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.DemoRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	rec, err := h.svc.CreateDemoVerified(r.Context(), req.Username, req.TurnstileToken, appCtx.GetClientIP(r.Context()))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.NewDemoResponse(rec))
}

// DeleteDemo handles DELETE /demo/{identifier}.
func (h *AccountHandler) DeleteDemo(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDemo(r.Context(), chi.URLParam(r, "identifier")); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.SuccessResponse{Success: true, Message: "Demo account deleted"})
}

// VerifyTurnstile handles POST /verify-turnstile for front-ends that run the
// human check before showing a form.
func (h *AccountHandler) VerifyTurnstile(w http.ResponseWriter, r *http.Request) {
	var req dto.TurnstileRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.VerifyHuman(r.Context(), req.TurnstileToken, appCtx.GetClientIP(r.Context())); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.SuccessResponse{Success: true})
}

package dto

import (
	"time"

	"github.com/baechuer/account-service/internal/domain"
)

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// UserView is what GET /user/{identifier} exposes. Never the password or code.
type UserView struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Demo     bool   `json:"demo"`
}

func NewUserView(rec domain.Record) UserView {
	return UserView{Username: rec.Username, Email: rec.Email, Demo: rec.Demo}
}

type DemoAccountView struct {
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Demo        bool      `json:"demo"`
	CreatedTime time.Time `json:"createdTime"`
}

type DemoResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Account DemoAccountView `json:"account"`
}

func NewDemoResponse(rec domain.Record) DemoResponse {
	return DemoResponse{
		Success: true,
		Message: "Demo account created",
		Account: DemoAccountView{
			Username:    rec.Username,
			Email:       rec.Email,
			Demo:        rec.Demo,
			CreatedTime: rec.CreatedTime,
		},
	}
}

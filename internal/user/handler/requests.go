package handler

import (
	"time"

	"schoolpay/internal/payment"
	"schoolpay/internal/user"
)

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

type UpdateDetailsRequest struct {
	Bio           *string `json:"bio,omitempty"`
	BankName      *string `json:"bank_name,omitempty"`
	BankCode      *string `json:"bank_code,omitempty"`
	AccountName   *string `json:"account_name,omitempty"`
	AccountNumber *string `json:"account_number,omitempty"`
	Picture       *string `json:"picture,omitempty"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UserResponse is the public view of an account. The password hash and reset
// token never appear here.
type UserResponse struct {
	ID            string               `json:"id"`
	FirstName     string               `json:"first_name"`
	LastName      string               `json:"last_name"`
	Email         string               `json:"email"`
	Username      string               `json:"username"`
	Role          string               `json:"role"`
	Bio           string               `json:"bio,omitempty"`
	BankName      string               `json:"bank_name,omitempty"`
	BankCode      string               `json:"bank_code,omitempty"`
	AccountName   string               `json:"account_name,omitempty"`
	AccountNumber string               `json:"account_number,omitempty"`
	Picture       string               `json:"picture,omitempty"`
	School        string               `json:"school,omitempty"`
	CustomValues  map[string]string    `json:"custom_values,omitempty"`
	Entitlement   *payment.Entitlement `json:"entitlement,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

type SessionResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toUserResponse(u *user.User) UserResponse {
	resp := UserResponse{
		ID:            u.ID.String(),
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		Username:      u.Username,
		Role:          string(u.Role),
		Bio:           u.Bio,
		BankName:      u.BankName,
		BankCode:      u.BankCode,
		AccountName:   u.AccountName,
		AccountNumber: u.AccountNumber,
		Picture:       u.Picture,
		CustomValues:  u.CustomValues,
		Entitlement:   u.Entitlement,
		CreatedAt:     u.CreatedAt,
	}
	if !u.School.IsNil() {
		resp.School = u.School.String()
	}
	return resp
}

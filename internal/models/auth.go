package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	FullName       string   `json:"full_name"`
	Role           UserRole `json:"role"`
	MunicipalityID string   `json:"municipality_id,omitempty"`
	DepartmentID   string   `json:"department_id,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens. The municipality and
// department travel with the token so scoping needs no extra lookup.
type JWTClaims struct {
	UserID         string   `json:"user_id"`
	Username       string   `json:"username"`
	Role           UserRole `json:"role"`
	FullName       string   `json:"full_name"`
	MunicipalityID string   `json:"municipality_id,omitempty"`
	DepartmentID   string   `json:"department_id,omitempty"`
	jwt.RegisteredClaims
}

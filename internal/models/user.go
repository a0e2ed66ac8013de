package models

import "time"

// User is an account holder. Balance is a cache of the sum of the user's
// transaction amounts in minor units and is only written by synchronization.
type User struct {
	ID                   string    `json:"id"`
	Username             string    `json:"username"`
	Email                string    `json:"email"`
	PasswordHash         string    `json:"-"`
	Role                 string    `json:"role"`
	Balance              int64     `json:"balance"`
	CardNumber           string    `json:"card_number,omitempty"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DisplayName is the label used for the counterparty on mirrored transactions.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	CardNumber string `json:"card_number"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token,omitempty"`
}

// BalanceView is what callers get back after a balance refresh.
type BalanceView struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
	Display string `json:"display"`
}

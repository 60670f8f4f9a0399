package models

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
	UserStatusBanned    UserStatus = "BANNED"
)

type UserRole string

const (
	UserRolePlayer UserRole = "PLAYER"
	UserRoleAdmin  UserRole = "ADMIN"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CanAuthenticate reports whether the account status permits login and
// request handling. Suspended and banned accounts are short-circuited
// with a 403 before any handler runs.
func (u *User) CanAuthenticate() bool {
	return u.Status == UserStatusActive
}

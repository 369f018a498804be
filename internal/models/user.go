package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleBroker = "BROKER"
	RoleClient = "CLIENT"
)

// User is an account able to authenticate against the API.
type User struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Email             string    `db:"email" json:"email"`
	PasswordHash      string    `db:"password_hash" json:"-"`
	FirstName         string    `db:"first_name" json:"first_name"`
	LastName          string    `db:"last_name" json:"last_name"`
	Role              string    `db:"role" json:"role"`
	PreferredLanguage string    `db:"preferred_language" json:"preferred_language"`
	Phone             *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName returns the name used in notifications and emails.
func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

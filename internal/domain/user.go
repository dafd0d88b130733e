package domain

import "time"

// UserStatus represents lifecycle states for a user record.
type UserStatus string

const (
	UserStatusInactive UserStatus = "inactive"
	UserStatusActive   UserStatus = "active"
)

// Valid reports whether s is a known status. The empty status is treated as
// Inactive by callers and is not valid on its own.
func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusInactive
}

// User is the domain model for a managed user record.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	Address      string
	PhoneNumber  string
	CreatedDate  time.Time
	ModifiedDate time.Time
	Status       UserStatus
}

// IsActive reports whether the user has been activated. Anything other than
// UserStatusActive, including the zero value, counts as inactive.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Normalize replaces an unset status with UserStatusInactive.
func (u *User) Normalize() {
	if u.Status != UserStatusActive {
		u.Status = UserStatusInactive
	}
}

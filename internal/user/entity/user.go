package entity

import "time"

// Account lifecycle states stored in users.status.
const (
	StatusActive   = "active"
	StatusLocked   = "locked"
	StatusDisabled = "disabled"
)

// User represents an account row in the `users` table. The ID is shared with
// the owner's row in `profiles`.
type User struct {
	ID                  string     `db:"id"`
	Username            *string    `db:"username"`
	Email               *string    `db:"email"`
	EmailVerified       bool       `db:"email_verified"`
	PasswordHash        *string    `db:"password_hash"`
	PasswordAlgo        *string    `db:"password_algo"`
	PasswordUpdatedAt   *time.Time `db:"password_updated_at"`
	MustResetPassword   bool       `db:"must_reset_password"`
	Status              string     `db:"status"` // active / locked / disabled
	LoginFailedAttempts int        `db:"login_failed_attempts"`
	LockedUntil         *time.Time `db:"locked_until"`
	LastLoginAt         *time.Time `db:"last_login_at"`
	Version             int64      `db:"version"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
	DeactivatedAt       *time.Time `db:"deactivated_at"`
}

// MinimalAuthView is the minimal projection required for token claim hydration.
type MinimalAuthView struct {
	ID            string  `db:"id" json:"id"`
	Version       int64   `db:"version" json:"version"`
	Email         *string `db:"email" json:"email,omitempty"`
	EmailVerified bool    `db:"email_verified" json:"email_verified"`
	Username      *string `db:"username" json:"username,omitempty"`
	Status        string  `db:"status" json:"status"`
}

// Usable reports whether credentials issued at version may still act for the account.
func (v *MinimalAuthView) Usable(version int64) bool {
	return v.Status == StatusActive && v.Version == version
}

// Summary is the account projection returned by the admin listing; it never
// carries credentials.
type Summary struct {
	ID          string     `db:"id" json:"id"`
	Email       *string    `db:"email" json:"email,omitempty"`
	Username    *string    `db:"username" json:"username,omitempty"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_sign_in_at,omitempty"`
}

package domain

import (
	"errors"
	"time"
)

// User is the identity root. Soft-deletable: DeletedAt is a tombstone and
// rows are never physically removed by this service.
type User struct {
	ID        string
	Email     string
	Name      string // empty until profile completion
	AvatarURL string
	Role      string
	CreatedAt time.Time
	DeletedAt *time.Time
}

const DefaultRole = "user"

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}
	return nil
}

// NeedsProfileCompletion reports whether required profile fields are still missing.
func (u *User) NeedsProfileCompletion() bool {
	return u.Name == ""
}

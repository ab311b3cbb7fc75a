// Package domain contains the core ledger entities and types.
package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// User is the owner of bills. The ledger only reads users; it never manages them.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserSummary is the user part embedded in a bill view.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// ToSummary converts a User to the embedded UserSummary.
func (u *User) ToSummary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
	}
}

// Validate validates the user data.
func (u *User) Validate() error {
	if err := validateUsername(u.Username); err != nil {
		return fmt.Errorf("username: %w", err)
	}
	return nil
}

// validateUsername validates username format and length.
func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}

	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}

	if len(username) > 50 {
		return fmt.Errorf("username must be at most 50 characters")
	}

	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, and underscores")
	}

	return nil
}

// Package domain contains entities without logic, just meta-data
// and the validation rules that guard their construction.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	MaxUsernameLen = 36
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// ErrInvalidInput is the base of every validation error so callers can
// classify with a single errors.Is.
var ErrInvalidInput = errors.New("invalid input")

var (
	ErrUsernameEmpty   = fmt.Errorf("%w: username empty", ErrInvalidInput)
	ErrUsernameTooLong = fmt.Errorf("%w: username too long", ErrInvalidInput)
)

type UserID string

type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username, email string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	return &User{
		ID:        UserID(uuid.NewString()),
		Username:  username,
		Email:     email,
		CreatedAt: time.Now(),
	}, nil
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

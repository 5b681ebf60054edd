package auth

import (
	"errors"
	"fmt"
	"net/mail"

	"github.com/rs/zerolog/log"

	"github.com/khadijauser/chat-app/internal/domain"
	"github.com/khadijauser/chat-app/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("username or email already taken")
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	ErrWeakPassword       = fmt.Errorf("%w: password too short", domain.ErrInvalidInput)
	// bcrypt silently truncates past 72 bytes, so refuse longer input.
	ErrPasswordTooLong = fmt.Errorf("%w: password too long", domain.ErrInvalidInput)
)

// UserStore is the persistence surface auth needs.
type UserStore interface {
	CreateUser(u *domain.User) error
	UserByEmail(email string) (*domain.User, error)
	UserByID(id domain.UserID) (*domain.User, error)
}

type Service struct {
	store  UserStore
	hasher *PasswordHasher
	tokens *TokenManager
}

func NewService(store UserStore, hasher *PasswordHasher, tokens *TokenManager) *Service {
	return &Service{store: store, hasher: hasher, tokens: tokens}
}

// Register creates an account and returns the user with a fresh token.
func (s *Service) Register(username, email, password string) (*domain.User, string, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, "", err
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < domain.MinPasswordLen {
		return nil, "", ErrWeakPassword
	}
	if len(password) > domain.MaxPasswordLen {
		return nil, "", ErrPasswordTooLong
	}

	user, err := domain.NewUser(username, email)
	if err != nil {
		return nil, "", err
	}
	user.PasswordHash, err = s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.CreateUser(user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, "", ErrUserExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}
	log.Info().Str("module", "auth").Str("user", string(user.ID)).Msg("user registered")

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(email, password string) (*domain.User, string, error) {
	user, err := s.store.UserByEmail(email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// UserByID backs the /auth/me endpoint.
func (s *Service) UserByID(id domain.UserID) (*domain.User, error) {
	return s.store.UserByID(id)
}

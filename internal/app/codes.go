package app

import (
	"github.com/jaevor/go-nanoid"

	"github.com/khadijauser/chat-app/internal/domain"
)

// NewCodeGenerator returns a draw function for room-code candidates.
// Uniqueness is not checked here: the service treats the room insert itself
// as the atomic uniqueness check and redraws on conflict, so there is no
// check-then-insert window.
func NewCodeGenerator() (func() string, error) {
	return nanoid.CustomASCII(domain.CodeAlphabet, domain.CodeLen)
}

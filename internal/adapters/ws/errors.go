package ws

import (
	"errors"

	"github.com/khadijauser/chat-app/internal/app"
	"github.com/khadijauser/chat-app/internal/domain"
)

// errorCode flattens the service taxonomy into short wire codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, app.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, app.ErrForbidden):
		return "forbidden"
	case errors.Is(err, app.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "internal_error"
	}
}

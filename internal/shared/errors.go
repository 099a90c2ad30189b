package shared

import (
	"errors"

	"github.com/comal-pos/comal-pos/internal/platform/httpx"
)

// UserSafeMessage returns a message suitable for API consumers. Internal
// failures are collapsed to a generic message so no driver detail leaks.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, httpx.ErrNotFound),
		errors.Is(err, httpx.ErrDuplicate),
		errors.Is(err, httpx.ErrValidation),
		errors.Is(err, httpx.ErrConflict):
		return err.Error()
	default:
		return "something went wrong, try again"
	}
}

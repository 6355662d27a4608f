package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hireloop/chatsync/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors map to deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return http.StatusNotFound, "no chat room for this entity"
	case errors.Is(err, domain.ErrIdentityNotFound):
		return http.StatusNotFound, "no chat identity for this user"
	case errors.Is(err, domain.ErrMissingCredential):
		return http.StatusConflict, "user has no chat credential yet"
	case errors.Is(err, domain.ErrRoomExists):
		return http.StatusConflict, "chat room already exists"
	case errors.Is(err, domain.ErrIdentityExists):
		return http.StatusConflict, "chat identity already exists"
	case errors.Is(err, domain.ErrInvalidEntityKind):
		return http.StatusUnprocessableEntity, "unknown entity kind"
	case errors.Is(err, domain.ErrChatDisabled):
		return http.StatusServiceUnavailable, "chat backend not configured"
	}

	// ErrIntegrity deliberately falls through to the generic branch: the
	// client learns nothing about the credential store, the log tells all.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

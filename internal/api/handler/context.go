package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxSubject extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call: both subject and role
// must be present, otherwise the token carries no usable identity.
func ctxSubject(c echo.Context) (subject, role string, err error) {
	subject, _ = c.Get("subject").(string)
	role, _ = c.Get("role").(string)
	if subject == "" || role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return subject, role, nil
}

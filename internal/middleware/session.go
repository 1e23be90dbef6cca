package middleware // middleware contains reusable HTTP middleware functions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skywatch/drone-investigations/internal/utils"
)

// SessionCookie is the name of the HttpOnly cookie carrying the signed
// session token.
const SessionCookie = "session"

// SessionAuth returns an Echo middleware that validates the session
// cookie and injects the authenticated account ID into the request
// context under "account_id". The provided secret must match the one
// used when issuing session tokens at login. Requests without a valid
// session get a 401 and never reach the handler.
func SessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			accountID, err := utils.ParseSessionToken(secret, cookie.Value)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
			}
			c.Set("account_id", accountID)
			return next(c)
		}
	}
}

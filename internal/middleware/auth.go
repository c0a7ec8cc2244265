package middleware

import (
	"context"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"payhere_donations/internal/apperrors"
)

// SessionVerifier is the subset of the Firebase auth client that checks session cookies
type SessionVerifier interface {
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*auth.Token, error)
}

// RequireAuth returns a middleware that verifies Firebase session cookies.
// A nil verifier rejects every request.
func RequireAuth(authClient SessionVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authClient == nil {
				return apperrors.New("AUTH_NOT_CONFIGURED", http.StatusServiceUnavailable, "authentication is not configured")
			}

			cookie, err := c.Cookie("session")
			if err != nil || cookie.Value == "" {
				return apperrors.ErrUnauthorized()
			}

			decodedToken, err := authClient.VerifySessionCookie(c.Request().Context(), cookie.Value)
			if err != nil {
				// Invalid session, clear cookie
				c.SetCookie(&http.Cookie{
					Name:     "session",
					Value:    "",
					MaxAge:   -1,
					HttpOnly: true,
					Path:     "/",
				})
				return apperrors.ErrUnauthorized()
			}

			// Set user info in context for downstream handlers
			c.Set("userUID", decodedToken.UID)
			if email, ok := decodedToken.Claims["email"].(string); ok {
				c.Set("userEmail", email)
			}
			if name, ok := decodedToken.Claims["name"].(string); ok {
				c.Set("userName", name)
			}

			return next(c)
		}
	}
}

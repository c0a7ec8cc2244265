package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"payhere_donations/internal/apperrors"
)

const sessionExpiry = 5 * 24 * time.Hour

// SessionIssuer is the subset of the Firebase auth client used to start admin sessions
type SessionIssuer interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authClient   SessionIssuer
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. A nil authClient disables login.
func NewAuthHandler(authClient SessionIssuer, secureCookie bool) *AuthHandler {
	return &AuthHandler{authClient: authClient, secureCookie: secureCookie}
}

// HandleLogin verifies the Firebase ID token and creates a session cookie
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	if h.authClient == nil {
		return apperrors.New("AUTH_NOT_CONFIGURED", http.StatusServiceUnavailable, "Firebase not initialized")
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return apperrors.New("UNAUTHORIZED", http.StatusUnauthorized, "Missing authorization header")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return apperrors.New("UNAUTHORIZED", http.StatusUnauthorized, "Invalid authorization format")
	}

	if _, err := h.authClient.VerifyIDToken(c.Request().Context(), tokenString); err != nil {
		return apperrors.New("UNAUTHORIZED", http.StatusUnauthorized, "Invalid token")
	}

	cookieValue, err := h.authClient.SessionCookie(c.Request().Context(), tokenString, sessionExpiry)
	if err != nil {
		return apperrors.New("SESSION_FAILED", http.StatusInternalServerError, "Failed to create session")
	}

	c.SetCookie(&http.Cookie{
		Name:     "session",
		Value:    cookieValue,
		MaxAge:   int(sessionExpiry.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, map[string]string{
		"status": "success",
	})
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     "session",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})

	return c.JSON(http.StatusOK, map[string]string{
		"status": "logged out",
	})
}

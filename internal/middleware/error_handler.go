package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"payhere_donations/internal/apperrors"
	"payhere_donations/web/templates/pages"
)

// CustomErrorHandler renders JSON {code, message} for API routes and an HTML error page otherwise
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	appErr := resolveError(err)
	if appErr.HTTPCode >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}

	if wantsJSON(c.Request()) {
		if jsonErr := c.JSON(appErr.HTTPCode, appErr); jsonErr != nil {
			c.Logger().Error(jsonErr)
		}
		return
	}

	props := pages.ErrorPageProps{
		Title:        errorTitle(appErr.HTTPCode),
		ErrorTitle:   errorTitle(appErr.HTTPCode),
		ErrorMessage: appErr.Message,
		BackLink:     "/",
		BackText:     "Back to home",
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(appErr.HTTPCode)
	if renderErr := pages.ErrorPage(props).Render(c.Request().Context(), c.Response()); renderErr != nil {
		c.Logger().Error(fmt.Errorf("failed to render error page: %w", renderErr))
	}
}

func resolveError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		}
		return apperrors.New(httpErrorCode(he.Code), he.Code, message)
	}

	return apperrors.ErrInternal()
}

func wantsJSON(r *http.Request) bool {
	path := r.URL.Path
	if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/admin/") || strings.HasPrefix(path, "/auth/") {
		return true
	}
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func httpErrorCode(code int) string {
	switch code {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	}
	if code >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "HTTP_" + fmt.Sprint(code)
}

func errorTitle(code int) string {
	switch code {
	case http.StatusNotFound:
		return "Page Not Found"
	case http.StatusForbidden:
		return "Access Denied"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusBadRequest:
		return "Bad Request"
	case http.StatusConflict:
		return "Already Processed"
	}
	return "Something went wrong"
}

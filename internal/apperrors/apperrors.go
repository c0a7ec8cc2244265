package apperrors

import (
	"fmt"
	"net/http"
)

type AppError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	HTTPCode int    `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, httpCode int, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
	}
}

func ErrInvalidDonation(detail string) *AppError {
	return New("INVALID_DONATION", http.StatusBadRequest, "invalid donation: "+detail)
}

func ErrDonationNotFound() *AppError {
	return New("DONATION_NOT_FOUND", http.StatusNotFound, "donation not found")
}

func ErrDonationClosed(status string) *AppError {
	return New("DONATION_CLOSED", http.StatusConflict, "donation is no longer awaiting payment: "+status)
}

func ErrUntrustedNotification() *AppError {
	return New("UNTRUSTED_NOTIFICATION", http.StatusBadRequest, "notification signature could not be verified")
}

func ErrNotificationMismatch() *AppError {
	return New("NOTIFICATION_MISMATCH", http.StatusBadRequest, "notification does not match the donation record")
}

func ErrUnauthorized() *AppError {
	return New("UNAUTHORIZED", http.StatusUnauthorized, "please log in to continue")
}

func ErrInternal() *AppError {
	return New("INTERNAL_ERROR", http.StatusInternalServerError, "an internal error occurred")
}

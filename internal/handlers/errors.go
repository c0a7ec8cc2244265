package handlers

import (
	"errors"
	"log"

	"payhere_donations/internal/apperrors"
	"payhere_donations/internal/payhere"
	"payhere_donations/internal/services"
)

// toAppError translates service and signing errors into API errors
func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErr *payhere.ValidationError
	var closedErr *services.DonationClosedError
	switch {
	case errors.As(err, &validationErr):
		return apperrors.ErrInvalidDonation(validationErr.Error())
	case errors.Is(err, services.ErrDonationNotFound):
		return apperrors.ErrDonationNotFound()
	case errors.As(err, &closedErr):
		return apperrors.ErrDonationClosed(string(closedErr.Status))
	case errors.Is(err, payhere.ErrUntrustedNotification):
		return apperrors.ErrUntrustedNotification()
	case errors.Is(err, services.ErrNotificationMismatch):
		return apperrors.ErrNotificationMismatch()
	}

	log.Printf("internal error: %v", err)
	return apperrors.ErrInternal()
}

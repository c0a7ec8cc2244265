package services

import (
	"errors"

	"payhere_donations/internal/models"
)

var (
	ErrDonationNotFound     = errors.New("donation not found")
	ErrDonationClosed       = errors.New("donation is no longer pending")
	ErrNotificationMismatch = errors.New("notification does not match donation")
)

// DonationClosedError reports the status that keeps a donation from checkout.
// It matches ErrDonationClosed with errors.Is.
type DonationClosedError struct {
	Status models.DonationStatus
}

func (e *DonationClosedError) Error() string {
	return ErrDonationClosed.Error() + ": " + string(e.Status)
}

func (e *DonationClosedError) Unwrap() error {
	return ErrDonationClosed
}

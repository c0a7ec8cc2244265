package apperrors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrInvalidDonationIncludesDetail(t *testing.T) {
	err := ErrInvalidDonation("amount must be positive")

	assert.Equal(t, "INVALID_DONATION", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.HTTPCode)
	assert.Equal(t, "invalid donation: amount must be positive", err.Message)
	assert.Equal(t, "INVALID_DONATION: invalid donation: amount must be positive", err.Error())
}

func TestErrUntrustedNotification(t *testing.T) {
	err := ErrUntrustedNotification()

	assert.Equal(t, "UNTRUSTED_NOTIFICATION", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.HTTPCode)
}

func TestErrDonationClosed(t *testing.T) {
	err := ErrDonationClosed("paid")

	assert.Equal(t, http.StatusConflict, err.HTTPCode)
	assert.Contains(t, err.Message, "paid")
}

func TestErrDonationNotFound(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ErrDonationNotFound().HTTPCode)
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payhere_donations/internal/payhere"
)

func TestPayHereService_ClientConfig(t *testing.T) {
	s := NewPayHereService(payhere.NewConfig("1217129", "TESTSECRET", false, "https://give.example.lk", "https://api.example.lk"))

	cc := s.ClientConfig()
	assert.Equal(t, "1217129", cc.MerchantID)
	assert.False(t, cc.Sandbox)
	assert.Equal(t, payhere.ProductionCheckoutURL, cc.CheckoutURL)
	assert.Equal(t, []string{"LKR", "USD", "EUR", "GBP"}, cc.Currencies)
}

func TestPayHereService_SignAndRestore(t *testing.T) {
	s := NewPayHereService(payhere.NewConfig("1217129", "TESTSECRET", true, "http://localhost:3000", "http://localhost:5000/"))

	req, err := s.SignWithOrderID(
		payhere.Donation{Amount: "25", Currency: "USD"},
		payhere.Donor{FirstName: "Jane", LastName: "Doe", Email: "jane@x.com"},
		"DON_1700000000000_abc123def456",
	)
	require.NoError(t, err)
	assert.Equal(t, "257A0C5FF65EF7776062B62B73288222", req.Hash())

	restored, err := s.Restore(*req)
	require.NoError(t, err)
	assert.Equal(t, req.Hash(), restored.Hash())
}

func TestPayHereService_MissingCredentials(t *testing.T) {
	s := NewPayHereService(payhere.Config{})

	_, err := s.Sign(payhere.Donation{Amount: "1", Currency: "LKR"}, payhere.Donor{})
	assert.ErrorIs(t, err, payhere.ErrMissingCredentials)
	assert.False(t, s.Verify(payhere.PaymentNotification{Signature: "X"}))
}

package services

import (
	"log"

	"payhere_donations/internal/payhere"
)

// PayHereService binds the signing module to one merchant configuration
type PayHereService struct {
	cfg payhere.Config
}

func NewPayHereService(cfg payhere.Config) *PayHereService {
	if cfg.MerchantID == "" || cfg.MerchantSecret == "" {
		log.Println("Warning: PayHere merchant credentials not set, checkout will be rejected")
	}
	return &PayHereService{cfg: cfg}
}

// ClientConfig is the public subset of the gateway config exposed to the donation form
type ClientConfig struct {
	MerchantID  string   `json:"merchant_id"`
	Sandbox     bool     `json:"sandbox"`
	CheckoutURL string   `json:"checkout_url"`
	Currencies  []string `json:"currencies"`
}

// Sign builds a signed request with a freshly generated order id
func (s *PayHereService) Sign(d payhere.Donation, donor payhere.Donor) (*payhere.PaymentRequest, error) {
	return payhere.BuildSignedRequest(d, donor, s.cfg)
}

// SignWithOrderID builds a signed request for an existing order id
func (s *PayHereService) SignWithOrderID(d payhere.Donation, donor payhere.Donor, orderID string) (*payhere.PaymentRequest, error) {
	return payhere.BuildSignedRequestWithOrderID(d, donor, s.cfg, orderID)
}

// Restore re-signs a stored request
func (s *PayHereService) Restore(req payhere.PaymentRequest) (*payhere.PaymentRequest, error) {
	return payhere.RestoreSignedRequest(req, s.cfg)
}

// Verify checks the md5sig of an inbound notification
func (s *PayHereService) Verify(n payhere.PaymentNotification) bool {
	return payhere.VerifyNotification(n, s.cfg)
}

func (s *PayHereService) MerchantID() string {
	return s.cfg.MerchantID
}

func (s *PayHereService) CheckoutURL() string {
	return s.cfg.CheckoutURL()
}

func (s *PayHereService) ClientConfig() ClientConfig {
	currencies := make([]string, 0, len(payhere.SupportedCurrencies))
	for _, c := range payhere.SupportedCurrencies {
		currencies = append(currencies, string(c))
	}
	return ClientConfig{
		MerchantID:  s.cfg.MerchantID,
		Sandbox:     s.cfg.SandboxMode,
		CheckoutURL: s.cfg.CheckoutURL(),
		Currencies:  currencies,
	}
}

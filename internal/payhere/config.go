package payhere

import "strings"

const (
	SandboxCheckoutURL    = "https://sandbox.payhere.lk/pay/checkout"
	ProductionCheckoutURL = "https://www.payhere.lk/pay/checkout"

	DefaultOrderPrefix = "DON"
)

// Config holds the merchant credentials and callback URLs used to sign requests.
// It is passed by value into every call so several configs can coexist in one process.
type Config struct {
	MerchantID     string
	MerchantSecret string
	SandboxMode    bool

	ReturnURL string
	CancelURL string
	NotifyURL string

	// OrderPrefix is the first segment of generated order ids. Empty means DefaultOrderPrefix.
	OrderPrefix string
}

// NewConfig builds a Config whose callback URLs are derived from the frontend and API base URLs
func NewConfig(merchantID, merchantSecret string, sandbox bool, frontendURL, apiURL string) Config {
	frontendURL = strings.TrimRight(frontendURL, "/")
	apiURL = strings.TrimRight(apiURL, "/")

	return Config{
		MerchantID:     merchantID,
		MerchantSecret: merchantSecret,
		SandboxMode:    sandbox,
		ReturnURL:      frontendURL + "/donations/return",
		CancelURL:      frontendURL + "/donations/cancel",
		NotifyURL:      apiURL + "/api/payhere/notify",
		OrderPrefix:    DefaultOrderPrefix,
	}
}

// CheckoutURL returns the vendor checkout endpoint for the configured environment
func (c Config) CheckoutURL() string {
	if c.SandboxMode {
		return SandboxCheckoutURL
	}
	return ProductionCheckoutURL
}

func (c Config) orderPrefix() string {
	if c.OrderPrefix == "" {
		return DefaultOrderPrefix
	}
	return c.OrderPrefix
}

func (c Config) validate() error {
	if c.MerchantID == "" || c.MerchantSecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

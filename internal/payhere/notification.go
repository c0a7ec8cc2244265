package payhere

import "net/url"

type StatusCode string

const (
	StatusSuccess     StatusCode = "2"
	StatusPending     StatusCode = "0"
	StatusCanceled    StatusCode = "-1"
	StatusFailed      StatusCode = "-2"
	StatusChargedBack StatusCode = "-3"
)

// PaymentNotification is the asynchronous callback the gateway posts after a transaction
type PaymentNotification struct {
	MerchantID string     `json:"merchant_id"`
	OrderID    string     `json:"order_id"`
	PaymentID  string     `json:"payment_id"`
	Amount     string     `json:"payhere_amount"`
	Currency   string     `json:"payhere_currency"`
	StatusCode StatusCode `json:"status_code"`
	Signature  string     `json:"md5sig"`

	// Informational, not covered by the signature
	Method        string `json:"method,omitempty"`
	StatusMessage string `json:"status_message,omitempty"`
	Custom1       string `json:"custom_1,omitempty"`
	Custom2       string `json:"custom_2,omitempty"`
}

// ParseNotification reads the vendor form fields. Values are kept verbatim.
func ParseNotification(form url.Values) PaymentNotification {
	return PaymentNotification{
		MerchantID:    form.Get("merchant_id"),
		OrderID:       form.Get("order_id"),
		PaymentID:     form.Get("payment_id"),
		Amount:        form.Get("payhere_amount"),
		Currency:      form.Get("payhere_currency"),
		StatusCode:    StatusCode(form.Get("status_code")),
		Signature:     form.Get("md5sig"),
		Method:        form.Get("method"),
		StatusMessage: form.Get("status_message"),
		Custom1:       form.Get("custom_1"),
		Custom2:       form.Get("custom_2"),
	}
}

// FormValues serializes the notification the way the gateway posts it
func (n PaymentNotification) FormValues() url.Values {
	v := url.Values{}
	v.Set("merchant_id", n.MerchantID)
	v.Set("order_id", n.OrderID)
	v.Set("payment_id", n.PaymentID)
	v.Set("payhere_amount", n.Amount)
	v.Set("payhere_currency", n.Currency)
	v.Set("status_code", string(n.StatusCode))
	v.Set("md5sig", n.Signature)
	if n.Method != "" {
		v.Set("method", n.Method)
	}
	if n.StatusMessage != "" {
		v.Set("status_message", n.StatusMessage)
	}
	if n.Custom1 != "" {
		v.Set("custom_1", n.Custom1)
	}
	if n.Custom2 != "" {
		v.Set("custom_2", n.Custom2)
	}
	return v
}

// SignNotification computes the signature the gateway attaches to a notification
func SignNotification(n PaymentNotification, secret string) string {
	return signature(secret, n.MerchantID, n.OrderID, n.Amount, n.Currency, string(n.StatusCode))
}

// VerifyNotification reports whether the received md5sig matches the recomputed one.
// The received signature is compared as-is, without case folding.
func VerifyNotification(n PaymentNotification, cfg Config) bool {
	if cfg.MerchantSecret == "" || n.Signature == "" {
		return false
	}
	return signaturesEqual(SignNotification(n, cfg.MerchantSecret), n.Signature)
}

// CheckNotification is VerifyNotification returning ErrUntrustedNotification on mismatch
func CheckNotification(n PaymentNotification, cfg Config) error {
	if !VerifyNotification(n, cfg) {
		return ErrUntrustedNotification
	}
	return nil
}

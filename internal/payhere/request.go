package payhere

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Placeholders substituted for donor fields the vendor form requires but the donor left empty
const (
	PlaceholderFirstName = "Anonymous"
	PlaceholderLastName  = "Donor"
	PlaceholderEmail     = "donor@example.com"
	PlaceholderPhone     = "+94770000000"
	PlaceholderAddress   = "No. 1, Galle Road"
	PlaceholderCity      = "Colombo"
	PlaceholderCountry   = "Sri Lanka"
	PlaceholderItems     = "Donation"
)

// Donation describes what is being paid for
type Donation struct {
	Amount   string
	Currency string
	Purpose  string
}

// Donor is the (possibly partial) identity of the payer
type Donor struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	Country   string
}

// PaymentRequest is a fully populated, signed checkout request
type PaymentRequest struct {
	MerchantID string `json:"merchant_id"`
	OrderID    string `json:"order_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Items      string `json:"items"`
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	NotifyURL  string `json:"notify_url"`

	hash string
}

// Hash returns the signature computed when the request was built
func (r *PaymentRequest) Hash() string {
	return r.hash
}

// BuildSignedRequest validates the donation, fills donor placeholders, generates an order id and signs the result
func BuildSignedRequest(d Donation, donor Donor, cfg Config) (*PaymentRequest, error) {
	return BuildSignedRequestWithOrderID(d, donor, cfg, NewOrderID(cfg.orderPrefix(), time.Now()))
}

// BuildSignedRequestWithOrderID is BuildSignedRequest with a caller supplied order id
func BuildSignedRequestWithOrderID(d Donation, donor Donor, cfg Config, orderID string) (*PaymentRequest, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cents, err := ParseAmount(d.Amount)
	if err != nil {
		return nil, err
	}
	currency, err := ParseCurrency(d.Currency)
	if err != nil {
		return nil, err
	}

	req := &PaymentRequest{
		MerchantID: cfg.MerchantID,
		OrderID:    orderID,
		Amount:     FormatAmount(cents),
		Currency:   string(currency),
		FirstName:  orDefault(donor.FirstName, PlaceholderFirstName),
		LastName:   orDefault(donor.LastName, PlaceholderLastName),
		Email:      orDefault(donor.Email, PlaceholderEmail),
		Phone:      orDefault(donor.Phone, PlaceholderPhone),
		Address:    orDefault(donor.Address, PlaceholderAddress),
		City:       orDefault(donor.City, PlaceholderCity),
		Country:    orDefault(donor.Country, PlaceholderCountry),
		Items:      orDefault(d.Purpose, PlaceholderItems),
		ReturnURL:  cfg.ReturnURL,
		CancelURL:  cfg.CancelURL,
		NotifyURL:  cfg.NotifyURL,
	}
	req.hash = req.sign(cfg.MerchantSecret)

	return req, nil
}

// RestoreSignedRequest re-signs a request loaded from storage so its hash reflects its fields
func RestoreSignedRequest(req PaymentRequest, cfg Config) (*PaymentRequest, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	req.hash = req.sign(cfg.MerchantSecret)
	return &req, nil
}

// field order is fixed by the vendor
func (r *PaymentRequest) sign(secret string) string {
	return signature(
		secret,
		r.MerchantID,
		r.OrderID,
		r.Amount,
		r.Currency,
		r.FirstName,
		r.LastName,
		r.Email,
		r.Phone,
		r.Address,
		r.City,
		r.Country,
		r.Items,
		r.ReturnURL,
		r.CancelURL,
		r.NotifyURL,
	)
}

// FormValues serializes the request as the vendor checkout form fields
func (r *PaymentRequest) FormValues() url.Values {
	v := url.Values{}
	for _, f := range r.Fields() {
		v.Set(f.Name, f.Value)
	}
	return v
}

// FormField is a single hidden input of the checkout form
type FormField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Fields returns the form fields in submission order, hash last
func (r *PaymentRequest) Fields() []FormField {
	return []FormField{
		{"merchant_id", r.MerchantID},
		{"return_url", r.ReturnURL},
		{"cancel_url", r.CancelURL},
		{"notify_url", r.NotifyURL},
		{"order_id", r.OrderID},
		{"items", r.Items},
		{"currency", r.Currency},
		{"amount", r.Amount},
		{"first_name", r.FirstName},
		{"last_name", r.LastName},
		{"email", r.Email},
		{"phone", r.Phone},
		{"address", r.Address},
		{"city", r.City},
		{"country", r.Country},
		{"hash", r.hash},
	}
}

// NewOrderID returns {prefix}_{unix millis}_{12 random hex chars}
func NewOrderID(prefix string, now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), random)
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

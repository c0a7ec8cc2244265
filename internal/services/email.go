package services

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"payhere_donations/internal/models"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASS"),
		from:     os.Getenv("EMAIL_FROM"),
		send:     smtp.SendMail,
	}
}

func (s *EmailService) SendEmail(to []string, subject, body string) error {
	if s.host == "" || s.port == "" || s.user == "" || s.password == "" {
		return fmt.Errorf("SMTP credentials not fully configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	auth := smtp.PlainAuth("", s.user, s.password, s.host)

	message := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n", s.from, strings.Join(to, ", "), subject, body))

	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	if err := s.send(addr, auth, s.from, to, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// SendReceipt emails the donor a payment confirmation
func (s *EmailService) SendReceipt(d models.Donation) error {
	if d.DonorEmail == "" {
		return fmt.Errorf("donation %d has no donor email", d.ID)
	}
	return s.SendEmail([]string{d.DonorEmail}, "Thank you for your donation", ReceiptText(d))
}

// ReceiptText renders the plain text receipt shared by all channels
func ReceiptText(d models.Donation) string {
	name := d.DonorName()
	if name == "" {
		name = "friend"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	fmt.Fprintf(&b, "We received your donation of %s %s", d.Currency, d.Amount)
	if d.Purpose != "" {
		fmt.Fprintf(&b, " for %s", d.Purpose)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Order: %s\n", d.OrderID)
	if d.PaymentID != "" {
		fmt.Fprintf(&b, "Payment reference: %s\n", d.PaymentID)
	}
	if d.PaidAt != nil {
		fmt.Fprintf(&b, "Date: %s\n", d.PaidAt.Format("2006-01-02 15:04"))
	}
	b.WriteString("\nThank you for supporting our learners.")
	return b.String()
}

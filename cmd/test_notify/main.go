package main

import (
	"flag"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"payhere_donations/internal/config"
	"payhere_donations/internal/payhere"
)

func main() {
	orderID := flag.String("order", "", "Order id of a pending donation (mandatory)")
	amount := flag.String("amount", "", "Amount exactly as signed, e.g. 25.00 (mandatory)")
	currency := flag.String("currency", "LKR", "Currency code")
	status := flag.String("status", "2", "Status code: 2 paid, 0 pending, -1 canceled, -2 failed, -3 charged back")
	target := flag.String("url", "", "Notify URL (default: API_URL + /api/payhere/notify)")
	forge := flag.Bool("forge", false, "Send a wrong md5sig to check that the server rejects it")
	flag.Parse()

	if *orderID == "" || *amount == "" {
		log.Fatal("Please provide -order and -amount")
	}

	cfg := config.Load()
	if cfg.PayHereMerchantSecret == "" {
		log.Fatal("PAYHERE_MERCHANT_SECRET not set")
	}
	payhereCfg := cfg.PayHere()

	n := payhere.PaymentNotification{
		MerchantID:    payhereCfg.MerchantID,
		OrderID:       *orderID,
		PaymentID:     strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Amount:        *amount,
		Currency:      *currency,
		StatusCode:    payhere.StatusCode(*status),
		Method:        "TEST",
		StatusMessage: "Sent by test_notify",
	}
	n.Signature = payhere.SignNotification(n, payhereCfg.MerchantSecret)
	if *forge {
		n.Signature = payhere.SignNotification(n, payhereCfg.MerchantSecret+"-forged")
	}

	notifyURL := *target
	if notifyURL == "" {
		notifyURL = payhereCfg.NotifyURL
	}

	log.Printf("Posting notification for order %s (status %s, forged=%t) to %s", n.OrderID, n.StatusCode, *forge, notifyURL)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.PostForm(notifyURL, n.FormValues())
	if err != nil {
		log.Fatalf("Failed to send notification: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	log.Printf("Server replied %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

	if *forge && resp.StatusCode < 400 {
		log.Fatal("Forged notification was accepted")
	}
	if !*forge && resp.StatusCode >= 400 {
		log.Fatal("Notification was rejected")
	}
}

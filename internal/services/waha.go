package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"payhere_donations/internal/models"
)

// WahaService sends WhatsApp messages through a WAHA instance
type WahaService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	pause   func(time.Duration)
}

func NewWahaService() *WahaService {
	url := os.Getenv("WAHA_BASE_URL")
	if url == "" {
		url = "http://waha:3000"
	}
	return NewWahaServiceWithClient(url, os.Getenv("WAHA_API_KEY"), &http.Client{Timeout: 10 * time.Second})
}

func NewWahaServiceWithClient(baseURL, apiKey string, client *http.Client) *WahaService {
	return &WahaService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		pause:   time.Sleep,
	}
}

func (s *WahaService) makeRequest(method, endpoint string, payload interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, s.baseURL+endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func (s *WahaService) chatAction(endpoint, chatID string) error {
	return s.makeRequest(http.MethodPost, endpoint, map[string]string{
		"chatId":  chatID,
		"session": "default",
	})
}

// NormalizeChatID turns a phone number into a WhatsApp chat id.
// Sri Lankan local numbers (0XXXXXXXXX) get the 94 country code; '+', spaces and dashes are dropped.
func NormalizeChatID(chatID string) string {
	chatID = strings.TrimSpace(chatID)

	if strings.HasSuffix(chatID, "@g.us") {
		return chatID
	}

	chatID = strings.TrimSuffix(chatID, "@c.us")
	chatID = strings.NewReplacer("+", "", " ", "", "-", "").Replace(chatID)

	if strings.HasPrefix(chatID, "0") {
		chatID = "94" + strings.TrimPrefix(chatID, "0")
	}

	return chatID + "@c.us"
}

// SendMessage marks the chat seen, simulates typing, then sends the text
func (s *WahaService) SendMessage(chatID, text string) error {
	chatID = NormalizeChatID(chatID)

	if err := s.chatAction("/api/sendSeen", chatID); err != nil {
		return fmt.Errorf("failed to send seen: %w", err)
	}
	s.pause(100 * time.Millisecond)

	if err := s.chatAction("/api/startTyping", chatID); err != nil {
		return fmt.Errorf("failed to start typing: %w", err)
	}
	s.pause(150 * time.Millisecond)

	if err := s.chatAction("/api/stopTyping", chatID); err != nil {
		return fmt.Errorf("failed to stop typing: %w", err)
	}
	s.pause(50 * time.Millisecond)

	err := s.makeRequest(http.MethodPost, "/api/sendText", map[string]string{
		"chatId":  chatID,
		"text":    text,
		"session": "default",
	})
	if err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	return nil
}

// SendReceipt sends the donor receipt to the donor's phone
func (s *WahaService) SendReceipt(d models.Donation) error {
	if d.DonorPhone == "" {
		return fmt.Errorf("donation %d has no donor phone", d.ID)
	}
	return s.SendMessage(d.DonorPhone, ReceiptText(d))
}

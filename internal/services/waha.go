package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"installment_app_echo/internal/config"
)

// WahaService sends WhatsApp messages through a WAHA gateway
type WahaService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	pause   func(time.Duration)
}

func NewWahaService(cfg *config.Config) *WahaService {
	return &WahaService{
		baseURL: strings.TrimRight(cfg.WahaBaseURL, "/"),
		apiKey:  cfg.WahaAPIKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		pause:   time.Sleep,
	}
}

func (s *WahaService) makeRequest(ctx context.Context, endpoint string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

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

func (s *WahaService) chatAction(ctx context.Context, endpoint, chatID string) error {
	return s.makeRequest(ctx, endpoint, map[string]string{
		"chatId":  chatID,
		"session": "default",
	})
}

// NormalizeChatID turns a phone number or chat id into a WAHA chat id.
// Group ids pass through; domestic numbers starting with 8 are rewritten to the +7 country code.
func NormalizeChatID(chatID string) string {
	chatID = strings.TrimSpace(chatID)

	if strings.HasSuffix(chatID, "@g.us") {
		return chatID
	}

	chatID = strings.TrimSuffix(chatID, "@c.us")
	chatID = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, chatID)

	if len(chatID) == 11 && strings.HasPrefix(chatID, "8") {
		chatID = "7" + chatID[1:]
	}

	return chatID + "@c.us"
}

// SendMessage marks the chat seen, shows typing briefly and then sends the text
func (s *WahaService) SendMessage(ctx context.Context, chatID, text string) error {
	chatID = NormalizeChatID(chatID)

	if err := s.chatAction(ctx, "/api/sendSeen", chatID); err != nil {
		return fmt.Errorf("failed to send seen: %w", err)
	}
	s.pause(100 * time.Millisecond)

	if err := s.chatAction(ctx, "/api/startTyping", chatID); err != nil {
		return fmt.Errorf("failed to start typing: %w", err)
	}
	s.pause(150 * time.Millisecond)

	if err := s.chatAction(ctx, "/api/stopTyping", chatID); err != nil {
		return fmt.Errorf("failed to stop typing: %w", err)
	}
	s.pause(50 * time.Millisecond)

	err := s.makeRequest(ctx, "/api/sendText", map[string]string{
		"chatId":  chatID,
		"text":    text,
		"session": "default",
	})
	if err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	return nil
}

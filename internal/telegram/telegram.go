package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"realestate/server/config"
	"realestate/server/internal/models"
)

// Service posts staff notifications to a Telegram chat
type Service struct {
	logger *logrus.Logger
	client *http.Client
	config config.TelegramConfig
}

func NewService(cfg config.TelegramConfig, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.telegram.org"
	}
	return &Service{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		config: cfg,
	}
}

// SendMessage sends an HTML formatted message to the configured chat
func (s *Service) SendMessage(ctx context.Context, message string) error {
	if !s.config.Enabled {
		return nil
	}

	if s.config.BotToken == "" {
		return errors.New("Telegram bot token is not configured")
	}

	if s.config.ChatID == "" {
		return errors.New("Telegram chat ID is not configured")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.config.APIURL, "/"), s.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build Telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found - please check your token from @BotFather")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyEnquiry tells staff about a new enquiry. It is meant to be
// subscribed to the notification queue.
func (s *Service) NotifyEnquiry(e *models.Enquiry) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()

	if err := s.SendMessage(ctx, FormatEnquiry(e)); err != nil {
		return err
	}
	s.logger.WithField("enquiry_id", e.ID).Info("Enquiry notification sent to Telegram")
	return nil
}

// FormatEnquiry renders an enquiry for Telegram's HTML parse mode
func FormatEnquiry(e *models.Enquiry) string {
	phone := e.PhoneNumber
	if phone == "" {
		phone = "N/A"
	}

	message := e.Message
	if len([]rune(message)) > 500 {
		message = string([]rune(message)[:500]) + "…"
	}

	return fmt.Sprintf(
		"<b>New Enquiry #%d</b>\n\n"+
			"👤 %s\n"+
			"✉️ %s\n"+
			"📞 %s\n"+
			"📝 <b>%s</b>\n\n"+
			"%s",
		e.ID,
		html.EscapeString(e.Name),
		html.EscapeString(e.Email),
		html.EscapeString(phone),
		html.EscapeString(e.Subject),
		html.EscapeString(message),
	)
}

package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the notifier at another Bot API endpoint
func (t *TelegramNotifier) WithBaseURL(u string) *TelegramNotifier {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

func (t *TelegramNotifier) SendAlert(ctx context.Context, level, message string) error {
	emoji := "ℹ️"
	switch level {
	case LevelWarning:
		emoji = "⚠️"
	case LevelError:
		emoji = "🚨"
	case LevelSuccess:
		emoji = "✅"
	}

	text := fmt.Sprintf("%s *Risk Engine Alert*\n\n%s", emoji, message)

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

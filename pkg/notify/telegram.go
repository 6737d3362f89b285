package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTelegramAPI is the public Bot API endpoint
const DefaultTelegramAPI = "https://api.telegram.org"

// maxMessageLen is the Bot API limit on message text
const maxMessageLen = 4096

// TelegramConfig configures the Bot API sender
type TelegramConfig struct {
	Token       string
	APIURL      string
	Timeout     time.Duration
	MinInterval time.Duration // minimum spacing between messages
}

// Telegram sends messages through the Telegram Bot API
type Telegram struct {
	client  *http.Client
	apiURL  string
	token   string
	limiter *rate.Limiter
}

// NewTelegram creates a Bot API sender
func NewTelegram(cfg TelegramConfig) *Telegram {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultTelegramAPI
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Telegram{
		client:  &http.Client{Timeout: timeout},
		apiURL:  strings.TrimRight(apiURL, "/"),
		token:   cfg.Token,
		limiter: rate.NewLimiter(limit, 1),
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Send delivers text to a chat, splitting it when it exceeds the API limit
func (t *Telegram) Send(ctx context.Context, channel, text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := t.sendMessage(ctx, channel, part); err != nil {
			return err
		}
	}
	return nil
}

func (t *Telegram) sendMessage(ctx context.Context, channel, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: channel, Text: text})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// the request error embeds the URL, which carries the token
		return fmt.Errorf("telegram request failed: %w", redact(err, t.token))
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	if !result.OK {
		return fmt.Errorf("telegram rejected message (status %d): %s", resp.StatusCode, result.Description)
	}
	return nil
}

// splitMessage cuts text into parts of at most limit characters, preferring
// line boundaries. A line longer than limit is cut between runes.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := lastNewline(runes[:limit])
		if cut <= 0 {
			cut = limit
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
		if len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastNewline(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}

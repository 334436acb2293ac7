// Package telegram talks to the Telegram Bot HTTP API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BaseURL     string
	Token       string
	HTTPTimeout time.Duration
}

type Client struct {
	config     Config
	httpClient *http.Client
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// APIError is a non-success answer from the Bot API.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram API error %d", e.StatusCode)
	}
	return fmt.Sprintf("telegram API error %d: %s", e.StatusCode, e.Description)
}

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.telegram.org"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.HTTPTimeout},
	}
}

// SendMessage posts text to chatID. parseMode may be empty for plain text.
func (c *Client) SendMessage(ctx context.Context, chatID, text, parseMode string) error {
	payload := map[string]string{
		"chat_id": chatID,
		"text":    text,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}

	_, err := c.call(ctx, "sendMessage", payload)
	return err
}

// GetUpdates long-polls for updates with update_id >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]interface{}{
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message"},
	}
	if offset > 0 {
		payload["offset"] = offset
	}

	result, err := c.call(ctx, "getUpdates", payload)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, payload interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := c.config.BaseURL + "/bot" + c.config.Token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send %s request: %w", method, redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var parsed apiResponse
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil || resp.StatusCode != http.StatusOK || !parsed.OK {
		return nil, &APIError{StatusCode: resp.StatusCode, Description: parsed.Description}
	}

	return parsed.Result, nil
}

// redact strips the request URL, which carries the bot token, from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// ChatIDString renders a numeric chat id the way it is configured.
func ChatIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}

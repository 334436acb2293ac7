package telegram

import (
	"context"
	"errors"

	"FloodMonitorAPI/internal/models"
)

// Notifier delivers messages to a single configured chat.
type Notifier struct {
	client    *Client
	chatID    string
	parseMode string
}

func NewNotifier(client *Client, chatID, parseMode string) *Notifier {
	return &Notifier{client: client, chatID: chatID, parseMode: parseMode}
}

func (n *Notifier) ChatID() string {
	return n.chatID
}

func (n *Notifier) Send(ctx context.Context, text string) error {
	if err := n.client.SendMessage(ctx, n.chatID, text, n.parseMode); err != nil {
		deliveryErr := &models.DeliveryError{Channel: "telegram", Err: err}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			deliveryErr.StatusCode = apiErr.StatusCode
		}
		return deliveryErr
	}
	return nil
}

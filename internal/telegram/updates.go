package telegram

import (
	"context"
	"sync"
	"time"

	"FloodMonitorAPI/internal/models"
)

// UpdateSource turns getUpdates long polls into commands and tracks the
// acknowledgement offset so no update is delivered twice.
type UpdateSource struct {
	client  *Client
	timeout time.Duration

	mu     sync.Mutex
	offset int64
}

func NewUpdateSource(client *Client, timeout time.Duration) *UpdateSource {
	return &UpdateSource{client: client, timeout: timeout}
}

func (s *UpdateSource) Offset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Fetch returns the next batch of text messages. Updates without text still
// advance the offset.
func (s *UpdateSource) Fetch(ctx context.Context) ([]models.Command, error) {
	offset := s.Offset()

	updates, err := s.client.GetUpdates(ctx, offset, s.timeout)
	if err != nil {
		return nil, &models.CommandSourceError{Err: err}
	}

	commands := make([]models.Command, 0, len(updates))
	next := offset
	for _, u := range updates {
		if u.UpdateID+1 > next {
			next = u.UpdateID + 1
		}
		if u.Message == nil || u.Message.Text == "" {
			continue
		}
		commands = append(commands, models.Command{
			UpdateID: u.UpdateID,
			ChatID:   ChatIDString(u.Message.Chat.ID),
			Text:     u.Message.Text,
		})
	}

	s.mu.Lock()
	s.offset = next
	s.mu.Unlock()

	return commands, nil
}

// Package notifier delivers operator-facing text messages.
package notifier

import (
	"context"
	"errors"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"
)

// Notifier sends one formatted message to the operator channel. A nil error
// means the channel acknowledged delivery.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

var ErrNoChannel = errors.New("no notification channel configured")

// LogOnly writes messages to the log and reports them as undelivered.
type LogOnly struct {
	log *logger.Logger
}

func NewLogOnly(log *logger.Logger) *LogOnly {
	return &LogOnly{log: log}
}

func (n *LogOnly) Send(ctx context.Context, text string) error {
	n.log.Warn("Notification not delivered (no channel): %s", text)
	return &models.DeliveryError{Channel: "log", Err: ErrNoChannel}
}

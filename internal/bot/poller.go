package bot

import (
	"context"
	"errors"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/metrics"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/notifier"
	"FloodMonitorAPI/internal/retry"
)

// CommandSource blocks for a bounded time and returns the next commands.
type CommandSource interface {
	Fetch(ctx context.Context) ([]models.Command, error)
}

// Poller is the background loop that answers operator commands.
type Poller struct {
	source  CommandSource
	handler *Handler
	replies notifier.Notifier
	chatID  string
	backoff retry.Backoff
	log     *logger.Logger
}

func NewPoller(
	source CommandSource,
	handler *Handler,
	replies notifier.Notifier,
	chatID string,
	backoff retry.Backoff,
	log *logger.Logger,
) *Poller {
	return &Poller{
		source:  source,
		handler: handler,
		replies: replies,
		chatID:  chatID,
		backoff: backoff,
		log:     log,
	}
}

// Run polls until ctx is cancelled. Fetch failures are retried with backoff and
// never end the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("Command poller started for chat %s", p.chatID)
	defer p.log.Info("Command poller stopped")

	failures := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		commands, err := p.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			failures++
			metrics.BotPollErrors.Inc()
			var sourceErr *models.CommandSourceError
			if errors.As(err, &sourceErr) {
				p.log.Warn("Command poll failed (attempt %d): %v", failures, err)
			} else {
				p.log.Error("Command poll failed (attempt %d): %v", failures, err)
			}

			if waitErr := p.backoff.Wait(ctx, failures); waitErr != nil {
				return waitErr
			}
			continue
		}
		failures = 0

		for _, cmd := range commands {
			p.dispatch(ctx, cmd)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, cmd models.Command) {
	if cmd.ChatID != p.chatID {
		p.log.Debug("Ignoring update %d from chat %s", cmd.UpdateID, cmd.ChatID)
		return
	}

	reply, ok := p.handler.Handle(ctx, cmd.Text)
	if !ok {
		return
	}

	if err := p.replies.Send(ctx, reply); err != nil {
		p.log.Error("Failed to send command reply: %v", err)
	}
}

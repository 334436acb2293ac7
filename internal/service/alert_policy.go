package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/metrics"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/notifier"
	"FloodMonitorAPI/internal/repository"
)

// AlertListener observes every triggered alert after the delivery attempt.
type AlertListener func(event models.AlertEvent)

// AlertPolicy gates flood notifications behind a threshold and a cooldown.
//
// The cooldown check-and-set happens under mu, and lastAlertAt is written
// before the notifier is called, so concurrent evaluations and slow deliveries
// cannot produce more than one alert per cooldown window. A failed delivery
// still consumes the window.
type AlertPolicy struct {
	cfg      models.AlertConfig
	notifier notifier.Notifier
	history  repository.IAlertRepository
	location *time.Location
	now      func() time.Time
	log      *logger.Logger

	mu          sync.Mutex
	lastAlertAt time.Time
	hasAlerted  bool

	listenersMu sync.RWMutex
	listeners   []AlertListener
}

type AlertPolicyOption func(*AlertPolicy)

func WithClock(now func() time.Time) AlertPolicyOption {
	return func(p *AlertPolicy) { p.now = now }
}

func WithLocation(loc *time.Location) AlertPolicyOption {
	return func(p *AlertPolicy) { p.location = loc }
}

func WithHistory(history repository.IAlertRepository) AlertPolicyOption {
	return func(p *AlertPolicy) { p.history = history }
}

func NewAlertPolicy(cfg models.AlertConfig, n notifier.Notifier, log *logger.Logger, opts ...AlertPolicyOption) *AlertPolicy {
	p := &AlertPolicy{
		cfg:      cfg,
		notifier: n,
		location: time.Local,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *AlertPolicy) Config() models.AlertConfig {
	return p.cfg
}

func (p *AlertPolicy) Subscribe(l AlertListener) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.listeners = append(p.listeners, l)
}

// Evaluate reports whether a notification was sent and acknowledged.
func (p *AlertPolicy) Evaluate(ctx context.Context, level int, deviceID string, ts int64) bool {
	now, ok := p.acquire(level)
	if !ok {
		return false
	}

	severity := p.cfg.Severity(level)
	text := p.FormatAlert(level, deviceID, ts)
	metrics.AlertsTriggered.WithLabelValues(severity).Inc()
	p.log.Warn("Flood alert triggered: device=%s level=%d%% severity=%s", deviceID, level, severity)

	// The cooldown is already consumed, so the send must outlive the caller.
	sendCtx := context.WithoutCancel(ctx)
	if p.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, p.cfg.SendTimeout)
		defer cancel()
	}

	delivered := true
	if err := p.notifier.Send(sendCtx, text); err != nil {
		delivered = false
		metrics.AlertDeliveries.WithLabelValues("failed").Inc()
		p.log.Error("Alert delivery failed for device %s: %v", deviceID, err)
	} else {
		metrics.AlertDeliveries.WithLabelValues("ok").Inc()
	}

	event := models.AlertEvent{
		DeviceID:     deviceID,
		LevelPercent: level,
		Severity:     severity,
		Message:      text,
		Delivered:    delivered,
		ReadingTS:    ts,
		CreatedAt:    now.UTC(),
	}
	p.record(ctx, &event)

	return delivered
}

// acquire is the single critical section: it checks the cooldown and, when the
// level qualifies, claims the window before any I/O happens.
func (p *AlertPolicy) acquire(level int) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.hasAlerted && now.Sub(p.lastAlertAt) < p.cfg.Cooldown {
		return now, false
	}

	if level < p.cfg.Threshold {
		return now, false
	}

	p.lastAlertAt = now
	p.hasAlerted = true
	return now, true
}

// CooldownActive reports whether an alert would currently be suppressed.
func (p *AlertPolicy) CooldownActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasAlerted && p.now().Sub(p.lastAlertAt) < p.cfg.Cooldown
}

// LastAlertAt returns the time of the last triggered alert, if any.
func (p *AlertPolicy) LastAlertAt() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAlertAt, p.hasAlerted
}

func (p *AlertPolicy) FormatAlert(level int, deviceID string, ts int64) string {
	header, status := "⚠️ WARNING", "WATCH"
	if p.cfg.Severity(level) == models.SeverityCritical {
		header, status = "🚨 CRITICAL", "HIGH DANGER"
	}
	localTime := time.Unix(ts, 0).In(p.location).Format("2006-01-02 15:04:05")

	return fmt.Sprintf(`%s - FLOOD DETECTED

📊 *Water Level*: %d%%
📱 *Device*: %s
🕐 *Time*: %s
📍 *Status*: %s

Immediate action required!`, header, level, deviceID, localTime, status)
}

func (p *AlertPolicy) record(ctx context.Context, event *models.AlertEvent) {
	if p.history != nil {
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := p.history.Create(recCtx, event); err != nil {
			p.log.Warn("Failed to record alert event: %v", err)
		}
		cancel()
	}

	p.listenersMu.RLock()
	listeners := append([]AlertListener(nil), p.listeners...)
	p.listenersMu.RUnlock()

	for _, l := range listeners {
		l(*event)
	}
}

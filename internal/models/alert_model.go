package models

import "time"

const (
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// AlertEvent is the recorded history of a triggered flood alert.
type AlertEvent struct {
	ID           int64     `json:"id" db:"id"`
	DeviceID     string    `json:"device_id" db:"device_id"`
	LevelPercent int       `json:"level_percent" db:"level_percent"`
	Severity     string    `json:"severity" db:"severity"`
	Message      string    `json:"message" db:"message"`
	Delivered    bool      `json:"delivered" db:"delivered"`
	ReadingTS    int64     `json:"reading_ts" db:"reading_ts"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AlertConfig holds the policy parameters.
type AlertConfig struct {
	Threshold     int           `json:"threshold"`
	CriticalLevel int           `json:"critical_level"`
	WatchLevel    int           `json:"watch_level"`
	Cooldown      time.Duration `json:"cooldown"`
	SendTimeout   time.Duration `json:"send_timeout"`
}

var DefaultAlertConfig = AlertConfig{
	Threshold:     85,
	CriticalLevel: 95,
	WatchLevel:    60,
	Cooldown:      10 * time.Minute,
	SendTimeout:   10 * time.Second,
}

// Severity returns the alert tier for a level at or above the threshold.
func (c AlertConfig) Severity(level int) string {
	if level >= c.CriticalLevel {
		return SeverityCritical
	}
	return SeverityWarning
}

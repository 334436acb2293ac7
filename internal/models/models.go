// internal/models/models.go

package models

import (
	"time"
)

// Reading is one normalized telemetry sample from a flood sensor.
type Reading struct {
	ID                int64   `json:"id" db:"id"`
	DeviceID          string  `json:"device_id" db:"device_id"`
	Timestamp         int64   `json:"ts" db:"ts"`
	TimestampISO      string  `json:"ts_iso" db:"ts_iso"`
	UltrasonicCM      float64 `json:"ultrasonic_cm" db:"ultrasonic_cm"`
	LevelPercent      int     `json:"level_percent" db:"level_percent"`
	WaterLevelPercent *int    `json:"water_level_percent" db:"water_level_percent"`
	FinalLevelPercent *int    `json:"final_level_percent" db:"final_level_percent"`
	SensorStatus      *string `json:"sensor_status" db:"sensor_status"`
}

// Time returns the reading timestamp as a time.Time.
func (r *Reading) Time() time.Time {
	return time.Unix(r.Timestamp, 0)
}

// ReadingQuery filters a store lookup. A nil SinceHours disables the time cutoff.
type ReadingQuery struct {
	Limit      int
	DeviceID   string
	SinceHours *float64
}

const (
	DefaultQueryLimit = 1000
	StatsQueryLimit   = 10000
	DefaultStatsHours = 24
	UnknownDeviceID   = "unknown"
)

// StatsResult is only meaningful beyond Count when Count > 0.
type StatsResult struct {
	Count   int     `json:"count"`
	Current int     `json:"current"`
	Mean    float64 `json:"mean"`
	Max     int     `json:"max"`
	Min     int     `json:"min"`
	Std     float64 `json:"std"`
}

type IngestResponse struct {
	OK       bool            `json:"ok"`
	Received ReceivedSummary `json:"received"`
}

type ReceivedSummary struct {
	DeviceID     string  `json:"device_id"`
	LevelPercent int     `json:"level_percent"`
	UltrasonicCM float64 `json:"ultrasonic_cm"`
}

type StatsResponse struct {
	OK    bool         `json:"ok"`
	Stats *StatsResult `json:"stats"`
}

// EmptyStatsResponse is returned when the query window holds no readings.
type EmptyStatsResponse struct {
	OK    bool     `json:"ok"`
	Count int      `json:"count"`
	Data  struct{} `json:"data"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  struct {
		Database bool  `json:"database"`
		MQTT     *bool `json:"mqtt,omitempty"`
	} `json:"services"`
	Readings int64 `json:"readings"`
}

// Command is one inbound operator message from the chat channel.
type Command struct {
	UpdateID int64
	ChatID   string
	Text     string
}

type WSMessage struct {
	Type      string      `json:"type"`
	DeviceID  string      `json:"device_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

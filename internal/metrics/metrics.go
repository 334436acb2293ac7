package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flood_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ReadingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_readings_ingested_total",
			Help: "Readings accepted and stored, by transport",
		},
		[]string{"source"},
	)

	ReadingsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_readings_rejected_total",
			Help: "Readings rejected, by reason",
		},
		[]string{"reason"},
	)

	LastLevelPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flood_level_percent",
			Help: "Most recent water level reported by each device",
		},
		[]string{"device_id"},
	)

	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_alerts_triggered_total",
			Help: "Alerts that passed threshold and cooldown, by severity",
		},
		[]string{"severity"},
	)

	AlertDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_alert_deliveries_total",
			Help: "Alert delivery attempts, by result",
		},
		[]string{"result"},
	)

	BotCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_bot_commands_total",
			Help: "Chat commands handled, by command",
		},
		[]string{"command"},
	)

	BotPollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flood_bot_poll_errors_total",
			Help: "Failed attempts to fetch chat updates",
		},
	)

	StatsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_stats_cache_lookups_total",
			Help: "Stats cache lookups, by result",
		},
		[]string{"result"},
	)

	HTTPPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flood_http_panics_total",
			Help: "Handler panics recovered, by method and route",
		},
		[]string{"method", "route"},
	)
)

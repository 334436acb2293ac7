package repository

import (
	"context"
	"fmt"
	"time"

	"FloodMonitorAPI/internal/database"
	"FloodMonitorAPI/internal/models"
)

// IAlertRepository records the history of triggered flood alerts.
type IAlertRepository interface {
	Create(ctx context.Context, event *models.AlertEvent) error
	GetHistory(ctx context.Context, limit int) ([]models.AlertEvent, error)
}

type AlertRepository struct {
	db *database.Database
}

func NewAlertRepository(db *database.Database) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert event and sets its generated ID.
func (r *AlertRepository) Create(ctx context.Context, event *models.AlertEvent) error {
	query := r.db.Rebind(`
		INSERT INTO alert_events (
			device_id, level_percent, severity, message,
			delivered, reading_ts, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	err := r.db.DB.QueryRowContext(
		ctx, query,
		event.DeviceID,
		event.LevelPercent,
		event.Severity,
		event.Message,
		event.Delivered,
		event.ReadingTS,
		event.CreatedAt,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("failed to create alert event: %w", err)
	}

	return nil
}

// GetHistory returns the most recent alert events first.
func (r *AlertRepository) GetHistory(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.Rebind(`
		SELECT id, device_id, level_percent, severity, message,
		       delivered, reading_ts, created_at
		FROM alert_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)

	rows, err := r.db.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert history: %w", err)
	}
	defer rows.Close()

	events := []models.AlertEvent{}
	for rows.Next() {
		var e models.AlertEvent
		err := rows.Scan(
			&e.ID, &e.DeviceID, &e.LevelPercent, &e.Severity, &e.Message,
			&e.Delivered, &e.ReadingTS, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

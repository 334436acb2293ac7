package repository

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"sync"
	"time"

	"FloodMonitorAPI/internal/database"
	"FloodMonitorAPI/internal/models"
)

// ReadingStore is the append-only time-series log of readings.
type ReadingStore interface {
	Append(ctx context.Context, reading *models.Reading) error
	Query(ctx context.Context, q models.ReadingQuery) ([]models.Reading, error)
	Count(ctx context.Context) (int64, error)
}

type ReadingRepository struct {
	db  *database.Database
	now func() time.Time

	// writeMu serializes appends so surrogate ids are handed out in commit order.
	writeMu sync.Mutex
}

func NewReadingRepository(db *database.Database) *ReadingRepository {
	return &ReadingRepository{db: db, now: time.Now}
}

// WithClock overrides the clock used to compute the SinceHours cutoff.
func (r *ReadingRepository) WithClock(now func() time.Time) *ReadingRepository {
	r.now = now
	return r
}

// Append inserts the reading and sets reading.ID to the assigned surrogate id.
func (r *ReadingRepository) Append(ctx context.Context, reading *models.Reading) error {
	query := r.db.Rebind(`
		INSERT INTO logs (
			device_id, ts, ts_iso, ultrasonic_cm, level_percent,
			water_level_percent, final_level_percent, sensor_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	err := r.db.DB.QueryRowContext(
		ctx, query,
		reading.DeviceID,
		reading.Timestamp,
		reading.TimestampISO,
		reading.UltrasonicCM,
		reading.LevelPercent,
		nullInt(reading.WaterLevelPercent),
		nullInt(reading.FinalLevelPercent),
		nullString(reading.SensorStatus),
	).Scan(&reading.ID)
	if err != nil {
		return &models.StoreError{Op: "append", Err: err}
	}

	return nil
}

// Query returns readings newest first.
func (r *ReadingRepository) Query(ctx context.Context, q models.ReadingQuery) ([]models.Reading, error) {
	var conditions []string
	var args []interface{}

	if q.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, q.DeviceID)
	}

	if window, ok := sinceWindow(q.SinceHours); ok {
		conditions = append(conditions, "ts >= ?")
		args = append(args, r.now().Add(-window).Unix())
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = models.DefaultQueryLimit
	}
	args = append(args, limit)

	query := r.db.Rebind(`
		SELECT id, device_id, ts, ts_iso, ultrasonic_cm, level_percent,
		       water_level_percent, final_level_percent, sensor_status
		FROM logs
		` + whereClause + `
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`)

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &models.StoreError{Op: "query", Err: err}
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var (
			rd           models.Reading
			ultrasonic   sql.NullFloat64
			waterLevel   sql.NullInt64
			finalLevel   sql.NullInt64
			sensorStatus sql.NullString
		)

		err := rows.Scan(
			&rd.ID, &rd.DeviceID, &rd.Timestamp, &rd.TimestampISO, &ultrasonic,
			&rd.LevelPercent, &waterLevel, &finalLevel, &sensorStatus,
		)
		if err != nil {
			return nil, &models.StoreError{Op: "scan", Err: err}
		}

		rd.UltrasonicCM = -1
		if ultrasonic.Valid {
			rd.UltrasonicCM = ultrasonic.Float64
		}
		if waterLevel.Valid {
			v := int(waterLevel.Int64)
			rd.WaterLevelPercent = &v
		}
		if finalLevel.Valid {
			v := int(finalLevel.Int64)
			rd.FinalLevelPercent = &v
		}
		if sensorStatus.Valid {
			rd.SensorStatus = &sensorStatus.String
		}

		readings = append(readings, rd)
	}

	if err := rows.Err(); err != nil {
		return nil, &models.StoreError{Op: "query", Err: err}
	}

	return readings, nil
}

// Latest returns the newest reading, or nil when the log is empty.
func (r *ReadingRepository) Latest(ctx context.Context) (*models.Reading, error) {
	readings, err := r.Query(ctx, models.ReadingQuery{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

func (r *ReadingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs").Scan(&count); err != nil {
		return 0, &models.StoreError{Op: "count", Err: err}
	}
	return count, nil
}

// sinceWindow converts an hours filter into a duration. NaN and windows too
// large for a time.Duration disable the cutoff; a negative window puts the
// cutoff in the future.
func sinceWindow(hours *float64) (time.Duration, bool) {
	if hours == nil || math.IsNaN(*hours) {
		return 0, false
	}
	span := *hours * float64(time.Hour)
	switch {
	case span >= math.MaxInt64:
		return 0, false
	case span < 0:
		return -time.Hour, true
	}
	return time.Duration(span), true
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

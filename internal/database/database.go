// internal/database/database.go

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"FloodMonitorAPI/internal/config"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	DB     *sql.DB
	cfg    *config.DatabaseConfig
	driver string
}

func New(cfg *config.DatabaseConfig) (*Database, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = sql.Open("postgres", cfg.DSN())
	case config.DriverSQLite, "":
		db, err = sql.Open("sqlite3", cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Database{
		DB:     db,
		cfg:    cfg,
		driver: cfg.Driver,
	}
	if d.driver == "" {
		d.driver = config.DriverSQLite
	}

	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) Driver() string {
	return d.driver
}

func (d *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := d.DB.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Rebind rewrites '?' placeholders into the driver's bind syntax.
func (d *Database) Rebind(query string) string {
	if d.driver != config.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *Database) migrate(ctx context.Context) error {
	schema := sqliteSchema
	if d.driver == config.DriverPostgres {
		schema = postgresSchema
	}

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		ts INTEGER NOT NULL,
		ts_iso TEXT NOT NULL,
		ultrasonic_cm REAL,
		level_percent INTEGER NOT NULL,
		water_level_percent INTEGER,
		final_level_percent INTEGER,
		sensor_status TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_ts ON logs(ts);
	CREATE INDEX IF NOT EXISTS idx_device ON logs(device_id);

	CREATE TABLE IF NOT EXISTS alert_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		level_percent INTEGER NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		delivered INTEGER NOT NULL DEFAULT 0,
		reading_ts INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alert_events_created ON alert_events(created_at)
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS logs (
		id BIGSERIAL PRIMARY KEY,
		device_id TEXT NOT NULL,
		ts BIGINT NOT NULL,
		ts_iso TEXT NOT NULL,
		ultrasonic_cm DOUBLE PRECISION,
		level_percent INTEGER NOT NULL,
		water_level_percent INTEGER,
		final_level_percent INTEGER,
		sensor_status TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_ts ON logs(ts);
	CREATE INDEX IF NOT EXISTS idx_device ON logs(device_id);

	CREATE TABLE IF NOT EXISTS alert_events (
		id BIGSERIAL PRIMARY KEY,
		device_id TEXT NOT NULL,
		level_percent INTEGER NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		delivered BOOLEAN NOT NULL DEFAULT FALSE,
		reading_ts BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alert_events_created ON alert_events(created_at)
`

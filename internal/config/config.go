package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Alert    AlertConfig
	Telegram TelegramConfig
	MQTT     MQTTConfig
	Redis    RedisConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Environment     string
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxHeaderBytes  int
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type DatabaseConfig struct {
	Driver          string
	Path            string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type AlertConfig struct {
	Threshold     int
	CriticalLevel int
	WatchLevel    int
	Cooldown      time.Duration
	SendTimeout   time.Duration
	Timezone      string
}

type TelegramConfig struct {
	Enabled      bool
	BotToken     string
	ChatID       string
	APIURL       string
	PollTimeout  time.Duration
	HTTPTimeout  time.Duration
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	ParseMode    string
	PollCommands bool
}

type MQTTConfig struct {
	Enabled        bool
	Broker         string
	Port           int
	ClientID       string
	Username       string
	Password       string
	ReadingTopic   string
	AlertTopic     string
	QoS            byte
	RetainMessages bool
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AutoReconnect  bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	StatsTTL time.Duration
}

type SecurityConfig struct {
	JWTSecret          string
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	RateLimitPerMinute int
	EnableRateLimit    bool
}

type LoggingConfig struct {
	Level     logger.Level
	Mode      logger.Mode
	FilePath  string
	UseColors bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	if err := validateRequired(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Alert:    loadAlertConfig(),
		Telegram: loadTelegramConfig(),
		MQTT:     loadMQTTConfig(),
		Redis:    loadRedisConfig(),
		Security: loadSecurityConfig(),
		Logging:  loadLoggingConfig(),
	}

	return cfg, nil
}

// validateRequired only insists on connection settings for the postgres driver.
func validateRequired() error {
	if getEnv("DB_DRIVER", DriverSQLite) != DriverPostgres {
		return nil
	}

	var missing []string
	for _, key := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME"} {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getEnvAsInt("SERVER_PORT", 5000),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", "15s"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", "10s"),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", "30s"),
		MaxHeaderBytes:  getEnvAsInt("MAX_HEADER_BYTES", 1048576),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", DriverSQLite),
		Path:            getEnv("DB_PATH", "flood_logs.db"),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "flood_admin"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "flood_monitor"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", "5m"),
	}
}

func loadAlertConfig() AlertConfig {
	return AlertConfig{
		Threshold:     getEnvAsInt("ALERT_THRESHOLD", 85),
		CriticalLevel: getEnvAsInt("ALERT_CRITICAL_LEVEL", 95),
		WatchLevel:    getEnvAsInt("ALERT_WATCH_LEVEL", 60),
		Cooldown:      getEnvAsDuration("ALERT_COOLDOWN", "10m"),
		SendTimeout:   getEnvAsDuration("ALERT_SEND_TIMEOUT", "10s"),
		Timezone:      getEnv("ALERT_TIMEZONE", "Local"),
	}
}

func loadTelegramConfig() TelegramConfig {
	token := getEnv("TELEGRAM_BOT_TOKEN", "")
	return TelegramConfig{
		Enabled:      token != "",
		BotToken:     token,
		ChatID:       getEnv("TELEGRAM_CHAT_ID", ""),
		APIURL:       getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		PollTimeout:  getEnvAsDuration("TELEGRAM_POLL_TIMEOUT", "10s"),
		HTTPTimeout:  getEnvAsDuration("TELEGRAM_HTTP_TIMEOUT", "30s"),
		BackoffBase:  getEnvAsDuration("TELEGRAM_BACKOFF_BASE", "2s"),
		BackoffMax:   getEnvAsDuration("TELEGRAM_BACKOFF_MAX", "1m"),
		ParseMode:    getEnv("TELEGRAM_PARSE_MODE", "Markdown"),
		PollCommands: getEnvAsBool("TELEGRAM_POLL_COMMANDS", true),
	}
}

func loadMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:        getEnvAsBool("MQTT_ENABLED", false),
		Broker:         getEnv("MQTT_BROKER", "localhost"),
		Port:           getEnvAsInt("MQTT_PORT", 1883),
		ClientID:       getEnv("MQTT_CLIENT_ID", "flood-monitor"),
		Username:       getEnv("MQTT_USERNAME", ""),
		Password:       getEnv("MQTT_PASSWORD", ""),
		ReadingTopic:   getEnv("MQTT_READING_TOPIC", "flood/+/readings"),
		AlertTopic:     getEnv("MQTT_ALERT_TOPIC", "flood/alerts"),
		QoS:            byte(getEnvAsInt("MQTT_QOS", 1)),
		RetainMessages: getEnvAsBool("MQTT_RETAIN", false),
		KeepAlive:      getEnvAsDuration("MQTT_KEEP_ALIVE", "60s"),
		ConnectTimeout: getEnvAsDuration("MQTT_CONNECT_TIMEOUT", "10s"),
		AutoReconnect:  getEnvAsBool("MQTT_AUTO_RECONNECT", true),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
		StatsTTL: getEnvAsDuration("REDIS_STATS_TTL", "30s"),
	}
}

func loadSecurityConfig() SecurityConfig {
	origins := getEnv("CORS_ALLOWED_ORIGINS", "*")
	methods := getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")

	return SecurityConfig{
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSAllowedOrigins: strings.Split(origins, ","),
		CORSAllowedMethods: strings.Split(methods, ","),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 600),
		EnableRateLimit:    getEnvAsBool("ENABLE_RATE_LIMIT", false),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:     logger.ParseLevel(getEnv("LOG_LEVEL", "info")),
		Mode:      logger.ParseMode(getEnv("LOG_MODE", "normal")),
		FilePath:  getEnv("LOG_FILE_PATH", ""),
		UseColors: getEnvAsBool("LOG_USE_COLORS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// DSN returns the connection string for the configured driver.
func (d *DatabaseConfig) DSN() string {
	if d.Driver == DriverPostgres {
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host,
			d.Port,
			d.User,
			d.Password,
			d.Database,
			d.SSLMode,
		)
	}
	return d.Path + "?_journal_mode=WAL&_busy_timeout=5000"
}

func (m *MQTTConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", m.Broker, m.Port)
}

// Location resolves the timezone used for human-readable alert timestamps.
func (c *Config) Location() *time.Location {
	if c.Alert.Timezone == "" || c.Alert.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Alert.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Policy converts the alert section into the policy parameters.
func (a AlertConfig) Policy() models.AlertConfig {
	return models.AlertConfig{
		Threshold:     a.Threshold,
		CriticalLevel: a.CriticalLevel,
		WatchLevel:    a.WatchLevel,
		Cooldown:      a.Cooldown,
		SendTimeout:   a.SendTimeout,
	}
}

func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errors = append(errors, "DB_PATH cannot be empty")
		}
	case DriverPostgres:
		if c.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD cannot be empty")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
	default:
		errors = append(errors, fmt.Sprintf("DB_DRIVER must be %q or %q", DriverSQLite, DriverPostgres))
	}

	if c.Alert.Threshold < 0 || c.Alert.Threshold > 100 {
		errors = append(errors, "ALERT_THRESHOLD must be between 0 and 100")
	}

	if c.Alert.CriticalLevel < c.Alert.Threshold {
		errors = append(errors, "ALERT_CRITICAL_LEVEL cannot be below ALERT_THRESHOLD")
	}

	if c.Alert.Cooldown < 0 {
		errors = append(errors, "ALERT_COOLDOWN cannot be negative")
	}

	if c.Telegram.Enabled && c.Telegram.ChatID == "" {
		errors = append(errors, "TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	if c.Telegram.BackoffBase <= 0 || c.Telegram.BackoffMax < c.Telegram.BackoffBase {
		errors = append(errors, "TELEGRAM_BACKOFF_MAX must be >= TELEGRAM_BACKOFF_BASE > 0")
	}

	if c.MQTT.Enabled && (c.MQTT.Port < 1 || c.MQTT.Port > 65535) {
		errors = append(errors, "MQTT_PORT must be between 1 and 65535")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (c *Config) Print() {
	fmt.Println("╔══════════════════════════════════════════════════════════╗")
	fmt.Println("║           Flood Monitor - Configuration                  ║")
	fmt.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Printf("Environment:     %s\n", c.Server.Environment)
	fmt.Printf("Server:          %s:%d\n", c.Server.Host, c.Server.Port)
	if c.Database.Driver == DriverPostgres {
		fmt.Printf("Database:        postgres %s:%d/%s\n", c.Database.Host, c.Database.Port, c.Database.Database)
	} else {
		fmt.Printf("Database:        sqlite %s\n", c.Database.Path)
	}
	fmt.Printf("Alert:           >= %d%% (critical %d%%), cooldown %v\n", c.Alert.Threshold, c.Alert.CriticalLevel, c.Alert.Cooldown)
	fmt.Printf("Telegram:        enabled=%v chat=%s\n", c.Telegram.Enabled, c.Telegram.ChatID)
	if c.MQTT.Enabled {
		fmt.Printf("MQTT Broker:     %s (%s)\n", c.MQTT.BrokerURL(), c.MQTT.ReadingTopic)
	}
	if c.Redis.Addr != "" {
		fmt.Printf("Redis:           %s (stats ttl %v)\n", c.Redis.Addr, c.Redis.StatsTTL)
	}
	fmt.Println("──────────────────────────────────────────────────────────")
}

// internal/logger/logger.go

package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

type Mode int

const (
	MINIMAL Mode = iota
	NORMAL
	FULL
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR, FATAL:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger keeps the printf-style API and renders through slog handlers:
// tint on the console and a plain text handler for the optional log file.
type Logger struct {
	level     Level
	mode      Mode
	mu        sync.Mutex
	console   slog.Handler
	file      slog.Handler
	logFile   *os.File
	useColors bool
	out       io.Writer
	exit      func(int)
}

type Config struct {
	Level       Level
	Mode        Mode
	LogFilePath string
	UseColors   bool
	// Output defaults to stdout.
	Output io.Writer
}

func New(cfg Config) (*Logger, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	logger := &Logger{
		level:     cfg.Level,
		mode:      cfg.Mode,
		useColors: cfg.UseColors,
		out:       out,
		exit:      os.Exit,
	}

	if cfg.LogFilePath != "" {
		if err := logger.setupLogFile(cfg.LogFilePath); err != nil {
			return nil, fmt.Errorf("failed to setup log file: %w", err)
		}
	}

	logger.buildHandlers()
	return logger, nil
}

func (l *Logger) setupLogFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	l.logFile = file
	return nil
}

// buildHandlers must be called with mu held or before the logger is shared.
func (l *Logger) buildHandlers() {
	addSource := l.mode == FULL
	dropTime := func(groups []string, a slog.Attr) slog.Attr {
		if l.mode == MINIMAL && a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.Attr{}
		}
		return a
	}

	l.console = tint.NewHandler(l.out, &tint.Options{
		Level:       slog.LevelDebug,
		AddSource:   addSource,
		TimeFormat:  "2006-01-02 15:04:05",
		NoColor:     !l.useColors,
		ReplaceAttr: dropTime,
	})

	if l.logFile != nil {
		l.file = slog.NewTextHandler(l.logFile, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: addSource,
		})
	}
}

func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	message := fmt.Sprintf(format, args...)
	if level == FATAL {
		message = "FATAL: " + message
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), level.slogLevel(), message, pcs[0])

	ctx := context.Background()
	if l.console != nil {
		_ = l.console.Handle(ctx, record)
	}
	if l.file != nil {
		_ = l.file.Handle(ctx, record.Clone())
	}

	if level == FATAL {
		l.exit(1)
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) SetMode(mode Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = mode
	l.buildHandlers()
}

func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return DEBUG
	case "info", "INFO":
		return INFO
	case "warn", "WARN", "warning", "WARNING":
		return WARN
	case "error", "ERROR":
		return ERROR
	case "fatal", "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func ParseMode(s string) Mode {
	switch s {
	case "minimal", "MINIMAL":
		return MINIMAL
	case "normal", "NORMAL":
		return NORMAL
	case "full", "FULL":
		return FULL
	default:
		return NORMAL
	}
}

// Discard returns a logger that drops everything; used by tests and tools.
func Discard() *Logger {
	l, _ := New(Config{Level: FATAL + 1, Mode: MINIMAL, Output: io.Discard})
	return l
}

var defaultLogger *Logger

func init() {
	defaultLogger, _ = New(Config{
		Level:     INFO,
		Mode:      NORMAL,
		UseColors: true,
	})
}

func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

func Fatal(format string, args ...interface{}) {
	defaultLogger.Fatal(format, args...)
}

func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
}

func SetMode(mode Mode) {
	defaultLogger.SetMode(mode)
}

func Close() error {
	return defaultLogger.Close()
}

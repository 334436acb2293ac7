package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/metrics"
	"FloodMonitorAPI/internal/models"
)

type ReadingLookup interface {
	Query(ctx context.Context, q models.ReadingQuery) ([]models.Reading, error)
}

type StatsProvider interface {
	GetStats(ctx context.Context, deviceID string, hours float64) (models.StatsResult, error)
}

// Handler builds replies to operator chat commands.
type Handler struct {
	readings ReadingLookup
	stats    StatsProvider
	alert    models.AlertConfig
	log      *logger.Logger
}

func NewHandler(readings ReadingLookup, stats StatsProvider, alert models.AlertConfig, log *logger.Logger) *Handler {
	return &Handler{
		readings: readings,
		stats:    stats,
		alert:    alert,
		log:      log,
	}
}

// Handle returns the reply for text and false when the text is not a command.
func (h *Handler) Handle(ctx context.Context, text string) (string, bool) {
	command, args := parseCommand(text)

	switch command {
	case "status":
		metrics.BotCommands.WithLabelValues(command).Inc()
		return h.status(ctx), true
	case "stats":
		metrics.BotCommands.WithLabelValues(command).Inc()
		return h.statistics(ctx, args), true
	case "help":
		metrics.BotCommands.WithLabelValues(command).Inc()
		return h.help(), true
	default:
		return "", false
	}
}

// parseCommand accepts "/stats 6", "stats 6" and "/stats@FloodBot 6".
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}

	command := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), fields[1:]
}

func (h *Handler) status(ctx context.Context) string {
	rows, err := h.readings.Query(ctx, models.ReadingQuery{Limit: 1})
	if err != nil {
		h.log.Error("Status lookup failed: %v", err)
		return "❌ Failed to fetch status"
	}
	if len(rows) == 0 {
		return "📭 No data yet."
	}

	row := rows[0]
	sensor := "N/A"
	if row.SensorStatus != nil {
		sensor = *row.SensorStatus
	}
	verdict := "✅ Normal"
	if row.LevelPercent >= h.alert.Threshold {
		verdict = "🚨 *ALERT ACTIVE*"
	}

	return fmt.Sprintf(`%s *Current Status*

📱 Device: %s
💧 Water Level: %d%%
📏 Ultrasonic: %s cm
🕐 Time: %s UTC
🔧 Sensor: %s

%s`, h.statusEmoji(row.LevelPercent), row.DeviceID, row.LevelPercent,
		strconv.FormatFloat(row.UltrasonicCM, 'f', -1, 64), row.TimestampISO, sensor, verdict)
}

func (h *Handler) statusEmoji(level int) string {
	switch {
	case level >= h.alert.Threshold:
		return "🔴"
	case level >= h.alert.WatchLevel:
		return "🟡"
	default:
		return "🟢"
	}
}

func (h *Handler) statistics(ctx context.Context, args []string) string {
	hours := models.DefaultStatsHours
	if len(args) > 0 {
		if parsed, err := strconv.Atoi(args[0]); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	s, err := h.stats.GetStats(ctx, "", float64(hours))
	if err != nil {
		h.log.Error("Stats lookup failed: %v", err)
		return "❌ Failed to fetch statistics"
	}
	if s.Count == 0 {
		return fmt.Sprintf("📭 No readings in the last %d hours.", hours)
	}

	return fmt.Sprintf(`📈 *Statistics (%d hours)*

📊 Samples: %d
🌊 Current: %d%%
📊 Average: %.1f%%
📈 Maximum: %d%%
📉 Minimum: %d%%`, hours, s.Count, s.Current, s.Mean, s.Max, s.Min)
}

func (h *Handler) help() string {
	return fmt.Sprintf(`🤖 *Flood Detection Bot*

/status - Current status
/stats [hours] - Statistics (default %d hours)
/help - This help

🚨 Automatic alerts are active at %d%% and above`, models.DefaultStatsHours, h.alert.Threshold)
}

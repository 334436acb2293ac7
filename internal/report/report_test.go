package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FloodMonitorAPI/internal/models"
)

func TestWriteProducesPDF(t *testing.T) {
	status := "OK"
	var buf bytes.Buffer

	err := Write(&buf, Data{
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Hours:       24,
		Threshold:   85,
		Stats:       models.StatsResult{Count: 2, Current: 90, Mean: 80, Max: 90, Min: 70, Std: 14.14},
		Readings: []models.Reading{
			{DeviceID: "sensor-1", TimestampISO: "2024-05-01T11:59:00", LevelPercent: 90, UltrasonicCM: 12.5, SensorStatus: &status},
			{DeviceID: "sensor-1", TimestampISO: "2024-05-01T11:58:00", LevelPercent: 70, UltrasonicCM: -1},
		},
		Alerts: []models.AlertEvent{
			{DeviceID: "sensor-1", LevelPercent: 90, Severity: models.SeverityWarning, Delivered: true, CreatedAt: time.Now()},
		},
	})

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWriteEmptyWindow(t *testing.T) {
	var buf bytes.Buffer

	err := Write(&buf, Data{GeneratedAt: time.Now(), Hours: 0.5, Threshold: 85})

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "24", formatHours(24))
	assert.Equal(t, "0.50", formatHours(0.5))
}

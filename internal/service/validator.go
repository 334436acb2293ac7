package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"FloodMonitorAPI/internal/models"
)

const isoLayout = "2006-01-02T15:04:05"

// ParsePayload decodes a raw ingestion body into a key-value map.
func ParsePayload(payload []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, &models.ValidationError{Message: "invalid json"}
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &models.ValidationError{Message: "invalid json: expected an object"}
	}
	return obj, nil
}

// ValidatePayload normalizes a decoded payload into a Reading. now supplies the
// default timestamp when the device did not send one.
func ValidatePayload(raw map[string]interface{}, now time.Time) (*models.Reading, error) {
	if raw == nil {
		return nil, &models.ValidationError{Message: "invalid json: expected an object"}
	}

	reading := &models.Reading{
		DeviceID:     models.UnknownDeviceID,
		UltrasonicCM: -1,
	}

	if id, ok := raw["device_id"].(string); ok && strings.TrimSpace(id) != "" {
		reading.DeviceID = id
	}

	reading.Timestamp = now.Unix()
	if v, ok := present(raw, "timestamp_ms"); ok {
		if ts, ok := msToSeconds(v); ok {
			reading.Timestamp = ts
		}
	}
	reading.TimestampISO = time.Unix(reading.Timestamp, 0).UTC().Format(isoLayout)

	if v, ok := present(raw, "ultrasonic_cm"); ok {
		if cm, ok := toFloat(v); ok {
			reading.UltrasonicCM = cm
		}
	}

	// final_level_percent wins over level_percent whenever it is present.
	level := -1
	levelField := "level_percent"
	if v, ok := present(raw, "final_level_percent"); ok {
		levelField = "final_level_percent"
		parsed, ok := toInt(v)
		if !ok {
			return nil, &models.ValidationError{Field: levelField, Message: "not an integer"}
		}
		level = parsed
	} else if v, ok := present(raw, "level_percent"); ok {
		parsed, ok := toInt(v)
		if !ok {
			return nil, &models.ValidationError{Field: levelField, Message: "not an integer"}
		}
		level = parsed
	}

	if level < 0 || level > 100 {
		return nil, &models.ValidationError{Field: "level_percent", Message: "must be between 0 and 100"}
	}
	reading.LevelPercent = level

	if v, ok := present(raw, "water_level_percent"); ok {
		if parsed, ok := toInt(v); ok {
			reading.WaterLevelPercent = &parsed
		}
	}
	if v, ok := present(raw, "final_level_percent"); ok {
		if parsed, ok := toInt(v); ok {
			reading.FinalLevelPercent = &parsed
		}
	}
	if status, ok := raw["sensor_status"].(string); ok {
		reading.SensorStatus = &status
	}

	return reading, nil
}

// present treats an explicit JSON null the same as a missing key.
func present(raw map[string]interface{}, key string) (interface{}, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func msToSeconds(v interface{}) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		if ms, err := n.Int64(); err == nil {
			return ms / 1000, true
		}
	}
	ms, ok := toFloat(v)
	if !ok || math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > math.MaxInt64 {
		return 0, false
	}
	return int64(math.Trunc(ms / 1000)), true
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toInt truncates toward zero. Values far outside the level range collapse to a
// sentinel that still fails the range check instead of overflowing.
func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return clampInt(float64(i)), true
		}
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return clampInt(f), true
	case float64:
		return clampInt(val), true
	case int:
		return val, true
	case int64:
		return clampInt(float64(val)), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(val))
		return i, err == nil
	default:
		return 0, false
	}
}

func clampInt(f float64) int {
	if math.IsNaN(f) {
		return -1
	}
	if f > 1e9 {
		return 1e9
	}
	if f < -1e9 {
		return -1e9
	}
	return int(f)
}

package analytics

import (
	"math"

	"FloodMonitorAPI/internal/models"
)

// Compute aggregates level_percent over readings ordered newest first.
// An empty input yields Count 0 and no other field is computed.
func Compute(readings []models.Reading) models.StatsResult {
	n := len(readings)
	if n == 0 {
		return models.StatsResult{}
	}

	result := models.StatsResult{
		Count:   n,
		Current: readings[0].LevelPercent,
		Max:     readings[0].LevelPercent,
		Min:     readings[0].LevelPercent,
	}

	var sum float64
	for _, r := range readings {
		level := r.LevelPercent
		sum += float64(level)
		if level > result.Max {
			result.Max = level
		}
		if level < result.Min {
			result.Min = level
		}
	}
	result.Mean = sum / float64(n)
	result.Std = sampleStdDev(readings, result.Mean)

	return result
}

// sampleStdDev uses the N-1 denominator; a single sample has no spread.
func sampleStdDev(readings []models.Reading, mean float64) float64 {
	if len(readings) < 2 {
		return 0
	}

	var variance float64
	for _, r := range readings {
		diff := float64(r.LevelPercent) - mean
		variance += diff * diff
	}

	variance /= float64(len(readings) - 1)
	return math.Sqrt(variance)
}

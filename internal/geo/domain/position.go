package domain

import (
	"math"
	"time"
)

// AccuracyTier — какой шаг каскада дал координаты
type AccuracyTier string

const (
	TierNetwork     AccuracyTier = "network"
	TierGPSFast     AccuracyTier = "gps-fast"
	TierGPSFallback AccuracyTier = "gps-fallback"
)

func (t AccuracyTier) Valid() bool {
	switch t {
	case TierNetwork, TierGPSFast, TierGPSFallback:
		return true
	}
	return false
}

// PositionOptions — параметры одного запроса к платформе
type PositionOptions struct {
	HighAccuracy bool          `json:"high_accuracy"`
	Timeout      time.Duration `json:"timeout"`
	MaximumAge   time.Duration `json:"maximum_age"`
}

// Position — ответ платформы. Accuracy в метрах, 0 — неизвестна.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// GeolocationResult — итог каскада
type GeolocationResult struct {
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	Accuracy     float64      `json:"accuracy,omitempty"`
	AccuracyTier AccuracyTier `json:"accuracy_tier"`
}

// ValidateCoordinates — широта [-90, 90], долгота [-180, 180], без NaN/Inf
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

package domain

import "time"

// Stage — шаг каскада
type Stage struct {
	Name    string
	Options PositionOptions
	Tier    AccuracyTier
}

const (
	StageQuick    = "quick"
	StageGPS      = "gps"
	StageFallback = "fallback"
)

// DefaultStages — быстрый сетевой, точный GPS, долгий с широким окном кеша
func DefaultStages() []Stage {
	return []Stage{
		{
			Name:    StageQuick,
			Options: PositionOptions{HighAccuracy: false, Timeout: 5 * time.Second, MaximumAge: 10 * time.Minute},
			Tier:    TierNetwork,
		},
		{
			Name:    StageGPS,
			Options: PositionOptions{HighAccuracy: true, Timeout: 20 * time.Second, MaximumAge: 5 * time.Minute},
			Tier:    TierGPSFast,
		},
		{
			Name:    StageFallback,
			Options: PositionOptions{HighAccuracy: false, Timeout: 30 * time.Second, MaximumAge: 15 * time.Minute},
			Tier:    TierGPSFallback,
		},
	}
}

// MaxWait — верхняя граница длительности каскада
func MaxWait(stages []Stage) time.Duration {
	var total time.Duration
	for _, s := range stages {
		total += s.Options.Timeout
	}
	return total
}

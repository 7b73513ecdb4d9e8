package domain

import "time"

// Типы событий рынка
const (
	EventMarketChanged   = "market.changed"
	EventLanguageChanged = "market.language_changed"
	EventMarketDetected  = "market.detected"
)

// Event — событие, публикуемое в market_topic
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	DeviceID   string    `json:"device_id,omitempty"`
	Market     Market    `json:"market"`
	Language   Language  `json:"language"`
	AutoDetect bool      `json:"auto_detect"`
	Country    string    `json:"country,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

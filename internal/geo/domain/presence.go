package domain

import "time"

// Presence — "open to hang": пользователь поделился местом, пока не истечёт ExpiresAt
type Presence struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	Accuracy     float64      `json:"accuracy_m,omitempty"`
	AccuracyTier AccuracyTier `json:"accuracy_tier"`
	SharedAt     time.Time    `json:"shared_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

func (p Presence) Active(now time.Time) bool {
	return now.Before(p.ExpiresAt)
}

// Типы событий присутствия
const (
	EventPresenceShared = "presence.shared"
	EventPresenceClosed = "presence.closed"
)

// PresenceEvent — рассылается в presence_fanout и подключённым устройствам
type PresenceEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Presence  *Presence `json:"presence,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

package transport

import (
	"time"

	"una/internal/geo/domain"
)

type PresenceResponse struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Latitude     float64             `json:"latitude"`
	Longitude    float64             `json:"longitude"`
	Accuracy     float64             `json:"accuracy_m,omitempty"`
	AccuracyTier domain.AccuracyTier `json:"accuracy_tier"`
	SharedAt     time.Time           `json:"shared_at"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

func toPresenceResponse(p domain.Presence) PresenceResponse {
	return PresenceResponse{
		ID:           p.ID,
		UserID:       p.UserID,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		Accuracy:     p.Accuracy,
		AccuracyTier: p.AccuracyTier,
		SharedAt:     p.SharedAt,
		ExpiresAt:    p.ExpiresAt,
	}
}

// OpenResponse — ответ POST /presence/open
type OpenResponse struct {
	Presence PresenceResponse `json:"presence"`
	Reused   bool             `json:"reused"`
}

// LocationErrorResponse — неудачный каскад; Message на иврите
type LocationErrorResponse struct {
	Error    string           `json:"error"`
	Kind     domain.ErrorKind `json:"kind"`
	Message  string           `json:"message"`
	Attempts []string         `json:"attempts"`
}

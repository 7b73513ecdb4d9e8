package in

import (
	"context"

	"una/internal/geo/domain"
)

// OpenResult — Reused=true, если вернули свежую отметку без нового запроса координат
type OpenResult struct {
	Presence domain.Presence
	Reused   bool
}

type PresenceUseCase interface {
	OpenToHang(ctx context.Context, userID string) (OpenResult, error)
	CloseHang(ctx context.Context, userID string) error
	ListOpen(ctx context.Context) ([]domain.Presence, error)
}

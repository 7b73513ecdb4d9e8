package out

import (
	"context"
	"time"

	"una/internal/geo/domain"
)

type PresenceRepository interface {
	Save(ctx context.Context, p domain.Presence) error

	// LatestActive возвращает domain.ErrPresenceNotFound, если активной отметки нет
	LatestActive(ctx context.Context, userID string, now time.Time) (*domain.Presence, error)

	// Expire закрывает активные отметки пользователя, возвращает их число
	Expire(ctx context.Context, userID string, now time.Time) (int64, error)

	ListActive(ctx context.Context, now time.Time) ([]domain.Presence, error)
}

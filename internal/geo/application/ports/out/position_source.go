package out

import (
	"context"

	"una/internal/geo/domain"
)

// PositionSource — платформенный запрос координат. Ошибки платформы — *domain.PositionError.
type PositionSource interface {
	RequestPosition(ctx context.Context, opts domain.PositionOptions) (domain.Position, error)
}

// PositionSourceFunc позволяет использовать функцию как PositionSource
type PositionSourceFunc func(ctx context.Context, opts domain.PositionOptions) (domain.Position, error)

func (f PositionSourceFunc) RequestPosition(ctx context.Context, opts domain.PositionOptions) (domain.Position, error) {
	return f(ctx, opts)
}

// DeviceLocator выдаёт источник координат для устройств пользователя
type DeviceLocator interface {
	ForUser(userID string) PositionSource
}

package in

import (
	"context"

	out "una/internal/geo/application/ports/out"
	"una/internal/geo/domain"
)

// LocateUseCase — каскад геолокации. Ошибка всегда *domain.LocationError.
type LocateUseCase interface {
	CurrentLocation(ctx context.Context, src out.PositionSource) (*domain.GeolocationResult, error)
}

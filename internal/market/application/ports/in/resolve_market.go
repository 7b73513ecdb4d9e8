package in

import (
	"context"

	"una/internal/market/domain"
)

// ResolveMarketUseCase определяет рынок и язык сессии. Никогда не возвращает ошибку:
// в худшем случае — domain.DefaultPreference().
type ResolveMarketUseCase interface {
	Resolve(ctx context.Context, subject Subject) domain.Preference
}

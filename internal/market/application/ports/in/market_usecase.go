package in

import (
	"context"

	"una/internal/market/domain"
)

// MarketUseCase — все операции над предпочтением рынка
type MarketUseCase interface {
	ResolveMarketUseCase
	SetMarketUseCase
	SetLanguageUseCase

	// Peek — текущее предпочтение без сети и без записи
	Peek(ctx context.Context, subject Subject) domain.Preference
}

package in

import (
	"context"

	"una/internal/market/domain"
)

// SetMarketInput — ручной выбор рынка
type SetMarketInput struct {
	Subject Subject
	Market  domain.Market
}

// SetMarketUseCase — язык выводится из рынка, автодетекция отключается.
// Ошибка только для невалидного рынка; сбой хранилища ошибкой не считается.
type SetMarketUseCase interface {
	SetMarket(ctx context.Context, input SetMarketInput) (domain.Preference, error)
}

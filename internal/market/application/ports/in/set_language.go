package in

import (
	"context"

	"una/internal/market/domain"
)

// SetLanguageInput — ручной выбор языка
type SetLanguageInput struct {
	Subject  Subject
	Language domain.Language
	// Current — предпочтение сессии, если известно; иначе берётся из хранилища/кеша
	Current *domain.Preference
}

// SetLanguageUseCase меняет только язык; рынок и autoDetect остаются прежними
type SetLanguageUseCase interface {
	SetLanguage(ctx context.Context, input SetLanguageInput) (domain.Preference, error)
}

package out

import (
	"context"

	"una/internal/market/domain"
)

// PreferenceRepository — сохранённые предпочтения авторизованных пользователей
type PreferenceRepository interface {
	// Get возвращает domain.ErrPreferenceNotFound, если строки нет
	Get(ctx context.Context, userID string) (*domain.StoredPreference, error)

	// Upsert создаёт или перезаписывает строку по user_id
	Upsert(ctx context.Context, pref domain.StoredPreference) error
}

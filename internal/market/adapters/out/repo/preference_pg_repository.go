package repo

import (
	"context"
	"errors"
	"fmt"

	out "una/internal/market/application/ports/out"
	"una/internal/market/domain"
	db_conn "una/internal/shared/db"

	"github.com/jackc/pgx/v5"
)

type preferencePgRepository struct {
	pool db_conn.DBTX
}

// NewPreferencePgRepository. pool — *pgxpool.Pool в сервисе
func NewPreferencePgRepository(pool db_conn.DBTX) out.PreferenceRepository {
	return &preferencePgRepository{pool: pool}
}

func (r *preferencePgRepository) Get(ctx context.Context, userID string) (*domain.StoredPreference, error) {
	query := `
		SELECT user_id, market, language, auto_detect, updated_at
		FROM market_preferences
		WHERE user_id = $1
	`

	var (
		p                domain.StoredPreference
		market, language string
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&market,
		&language,
		&p.AutoDetect,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("query market preference: %w", err)
	}

	p.Market = domain.Market(market)
	p.Language = domain.Language(language)
	return &p, nil
}

func (r *preferencePgRepository) Upsert(ctx context.Context, p domain.StoredPreference) error {
	query := `
		INSERT INTO market_preferences (user_id, market, language, auto_detect, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		ON CONFLICT (user_id) DO UPDATE
		SET market = EXCLUDED.market,
			language = EXCLUDED.language,
			auto_detect = EXCLUDED.auto_detect,
			updated_at = EXCLUDED.updated_at
	`

	var updatedAt any
	if !p.UpdatedAt.IsZero() {
		updatedAt = p.UpdatedAt
	}

	if _, err := r.pool.Exec(ctx, query, p.UserID, string(p.Market), string(p.Language), p.AutoDetect, updatedAt); err != nil {
		return fmt.Errorf("upsert market preference: %w", err)
	}
	return nil
}

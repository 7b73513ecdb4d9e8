package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	out "una/internal/geo/application/ports/out"
	"una/internal/geo/domain"
	db_conn "una/internal/shared/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const presenceColumns = `id::text, user_id, latitude, longitude, accuracy_m, accuracy_tier, shared_at, expires_at`

type presencePgRepository struct {
	pool db_conn.DBTX
}

// NewPresencePgRepository. pool — *pgxpool.Pool в сервисе
func NewPresencePgRepository(pool db_conn.DBTX) out.PresenceRepository {
	return &presencePgRepository{pool: pool}
}

func (r *presencePgRepository) Save(ctx context.Context, p domain.Presence) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("presence id: %w", err)
	}

	var accuracy *float64
	if p.Accuracy > 0 {
		accuracy = &p.Accuracy
	}

	query := `
		INSERT INTO presence_shares (id, user_id, latitude, longitude, accuracy_m, accuracy_tier, shared_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		id,
		p.UserID,
		p.Latitude,
		p.Longitude,
		accuracy,
		string(p.AccuracyTier),
		p.SharedAt,
		p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert presence: %w", err)
	}
	return nil
}

func (r *presencePgRepository) LatestActive(ctx context.Context, userID string, now time.Time) (*domain.Presence, error) {
	query := `
		SELECT ` + presenceColumns + `
		FROM presence_shares
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY shared_at DESC
		LIMIT 1
	`

	p, err := scanPresence(r.pool.QueryRow(ctx, query, userID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPresenceNotFound
		}
		return nil, fmt.Errorf("query latest presence: %w", err)
	}
	return p, nil
}

func (r *presencePgRepository) Expire(ctx context.Context, userID string, now time.Time) (int64, error) {
	query := `
		UPDATE presence_shares
		SET expires_at = $2
		WHERE user_id = $1 AND expires_at > $2
	`

	result, err := r.pool.Exec(ctx, query, userID, now)
	if err != nil {
		return 0, fmt.Errorf("expire presence: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *presencePgRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Presence, error) {
	// одна, самая свежая, отметка на пользователя
	query := `
		SELECT DISTINCT ON (user_id) ` + presenceColumns + `
		FROM presence_shares
		WHERE expires_at > $1
		ORDER BY user_id, shared_at DESC
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("query active presence: %w", err)
	}
	defer rows.Close()

	var list []domain.Presence
	for rows.Next() {
		p, err := scanPresence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan presence: %w", err)
		}
		list = append(list, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presence: %w", err)
	}
	return list, nil
}

func scanPresence(row pgx.Row) (*domain.Presence, error) {
	var (
		p        domain.Presence
		accuracy *float64
		tier     string
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Latitude,
		&p.Longitude,
		&accuracy,
		&tier,
		&p.SharedAt,
		&p.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if accuracy != nil {
		p.Accuracy = *accuracy
	}
	p.AccuracyTier = domain.AccuracyTier(tier)
	return &p, nil
}

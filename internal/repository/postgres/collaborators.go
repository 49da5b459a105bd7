package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosterhq/huddle/internal/domain"
)

// ProfileRepo reads the identity subsystem's profiles table. The messaging
// core never writes to it.
type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error) {
	query := `SELECT id, display_name, avatar_url, role FROM profiles WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make(map[uuid.UUID]domain.Profile, len(ids))
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.Role); err != nil {
			return nil, err
		}
		profiles[p.ID] = p
	}
	return profiles, rows.Err()
}

func (r *ProfileRepo) Search(ctx context.Context, query string) ([]domain.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, display_name, avatar_url, role FROM profiles
		 WHERE display_name ILIKE '%' || $1 || '%' ORDER BY display_name LIMIT 20`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.Role); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// AlertRepo reads the alert subsystem's message_recipients table. Only the
// unacknowledged count is consumed, for the combined badge.
type AlertRepo struct {
	pool *pgxpool.Pool
}

func NewAlertRepo(pool *pgxpool.Pool) *AlertRepo {
	return &AlertRepo{pool: pool}
}

func (r *AlertRepo) UnacknowledgedCount(ctx context.Context, profileID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM message_recipients WHERE profile_id = $1 AND acknowledged = FALSE`,
		profileID).Scan(&count)
	return count, err
}

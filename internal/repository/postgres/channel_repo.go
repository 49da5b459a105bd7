package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosterhq/huddle/internal/domain"
	"github.com/rosterhq/huddle/internal/repository"
)

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

const channelColumns = `id, name, description, channel_type, avatar_url, team_id, season_id, created_by, created_at, dm_pair_key`

const channelColumnsC = `c.id, c.name, c.description, c.channel_type, c.avatar_url, c.team_id, c.season_id, c.created_by, c.created_at, c.dm_pair_key`

func scanChannel(row pgx.Row) (*domain.Channel, error) {
	var ch domain.Channel
	err := row.Scan(
		&ch.ID, &ch.Name, &ch.Description, &ch.Type, &ch.AvatarURL,
		&ch.TeamID, &ch.SeasonID, &ch.CreatedBy, &ch.CreatedAt, &ch.DMPairKey,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChannelRepo) CreateWithMembers(ctx context.Context, ch *domain.Channel, members []domain.Membership) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO channels (id, name, description, channel_type, avatar_url, team_id, season_id, created_by, created_at, dm_pair_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ch.ID, ch.Name, ch.Description, ch.Type, ch.AvatarURL,
		ch.TeamID, ch.SeasonID, ch.CreatedBy, ch.CreatedAt, ch.DMPairKey,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicatePair
		}
		return err
	}

	for i := range members {
		m := &members[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO channel_members (channel_id, user_id, display_name, member_role, can_post, can_moderate, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ChannelID, m.UserID, m.DisplayName, m.Role, m.CanPost, m.CanModerate, m.JoinedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	return scanChannel(r.pool.QueryRow(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE id = $1`, id))
}

func (r *ChannelRepo) FindDirect(ctx context.Context, userA, userB, seasonID uuid.UUID) (*domain.Channel, error) {
	// Exact active-set match: overlap alone is not enough because a group_dm
	// can share both members with the pair being resolved.
	query := `
		SELECT ` + channelColumnsC + `
		FROM channels c
		WHERE c.channel_type = 'dm' AND c.season_id = $3
		  AND (SELECT COUNT(*) FROM channel_members cm
		       WHERE cm.channel_id = c.id AND cm.left_at IS NULL) = 2
		  AND (SELECT COUNT(*) FROM channel_members cm
		       WHERE cm.channel_id = c.id AND cm.left_at IS NULL
		         AND cm.user_id IN ($1, $2)) = 2
		LIMIT 1`
	return scanChannel(r.pool.QueryRow(ctx, query, userA, userB, seasonID))
}

func (r *ChannelRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Channel, error) {
	query := `
		SELECT ` + channelColumnsC + `
		FROM channels c
		JOIN channel_members cm ON cm.channel_id = c.id
		WHERE cm.user_id = $1 AND cm.left_at IS NULL
		ORDER BY c.created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Description, &ch.Type, &ch.AvatarURL,
			&ch.TeamID, &ch.SeasonID, &ch.CreatedBy, &ch.CreatedAt, &ch.DMPairKey); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *ChannelRepo) UpsertMember(ctx context.Context, m *domain.Membership) error {
	// Rejoin reuses the original row: left_at clears, the read cursor and
	// join timestamp survive.
	query := `
		INSERT INTO channel_members (channel_id, user_id, display_name, member_role, can_post, can_moderate, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (channel_id, user_id) DO UPDATE
		SET left_at = NULL,
		    display_name = EXCLUDED.display_name,
		    member_role = EXCLUDED.member_role,
		    can_post = EXCLUDED.can_post,
		    can_moderate = EXCLUDED.can_moderate`
	_, err := r.pool.Exec(ctx, query,
		m.ChannelID, m.UserID, m.DisplayName, m.Role, m.CanPost, m.CanModerate, m.JoinedAt)
	return err
}

func (r *ChannelRepo) MarkLeft(ctx context.Context, channelID, userID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE channel_members SET left_at = $3 WHERE channel_id = $1 AND user_id = $2 AND left_at IS NULL`,
		channelID, userID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ChannelRepo) GetMember(ctx context.Context, channelID, userID uuid.UUID) (*domain.Membership, error) {
	query := `SELECT channel_id, user_id, display_name, member_role, can_post, can_moderate, last_read_at, left_at, joined_at
		FROM channel_members WHERE channel_id = $1 AND user_id = $2`
	var m domain.Membership
	err := r.pool.QueryRow(ctx, query, channelID, userID).Scan(
		&m.ChannelID, &m.UserID, &m.DisplayName, &m.Role, &m.CanPost, &m.CanModerate,
		&m.LastReadAt, &m.LeftAt, &m.JoinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ChannelRepo) ListMembers(ctx context.Context, channelID uuid.UUID, includeLeft bool) ([]domain.Membership, error) {
	query := `SELECT channel_id, user_id, display_name, member_role, can_post, can_moderate, last_read_at, left_at, joined_at
		FROM channel_members WHERE channel_id = $1`
	if !includeLeft {
		query += ` AND left_at IS NULL`
	}
	query += ` ORDER BY joined_at`

	rows, err := r.pool.Query(ctx, query, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.ChannelID, &m.UserID, &m.DisplayName, &m.Role, &m.CanPost, &m.CanModerate,
			&m.LastReadAt, &m.LeftAt, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *ChannelRepo) SetCapabilities(ctx context.Context, channelID, userID uuid.UUID, canPost, canModerate bool) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE channel_members SET can_post = $3, can_moderate = $4
		 WHERE channel_id = $1 AND user_id = $2 AND left_at IS NULL`,
		channelID, userID, canPost, canModerate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

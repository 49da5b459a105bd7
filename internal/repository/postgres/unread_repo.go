package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosterhq/huddle/internal/domain"
)

type UnreadRepo struct {
	pool *pgxpool.Pool
}

func NewUnreadRepo(pool *pgxpool.Pool) *UnreadRepo {
	return &UnreadRepo{pool: pool}
}

func (r *UnreadRepo) ChannelUnread(ctx context.Context, channelID, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages m
		JOIN channel_members cm ON cm.channel_id = m.channel_id
		WHERE cm.channel_id = $1 AND cm.user_id = $2 AND cm.left_at IS NULL
		  AND m.is_deleted = FALSE
		  AND m.created_at > COALESCE(cm.last_read_at, 'epoch'::timestamptz)`
	var count int
	err := r.pool.QueryRow(ctx, query, channelID, userID).Scan(&count)
	return count, err
}

// UnreadByChannel is a single grouped query over every active membership of
// the user. One round trip no matter how many channels they belong to.
func (r *UnreadRepo) UnreadByChannel(ctx context.Context, userID uuid.UUID) ([]domain.ChannelUnread, error) {
	query := `
		SELECT cm.channel_id,
			COUNT(m.id) FILTER (WHERE m.is_deleted = FALSE
				AND m.created_at > COALESCE(cm.last_read_at, 'epoch'::timestamptz))
		FROM channel_members cm
		LEFT JOIN messages m ON m.channel_id = cm.channel_id
		WHERE cm.user_id = $1 AND cm.left_at IS NULL
		GROUP BY cm.channel_id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []domain.ChannelUnread
	for rows.Next() {
		var cu domain.ChannelUnread
		if err := rows.Scan(&cu.ChannelID, &cu.Count); err != nil {
			return nil, err
		}
		counts = append(counts, cu)
	}
	return counts, rows.Err()
}

// MarkRead is a no-op when the stored cursor is already at or past the given
// timestamp. Devices deliver reads out of order; the cursor only moves
// forward.
func (r *UnreadRepo) MarkRead(ctx context.Context, channelID, userID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE channel_members SET last_read_at = $3
		WHERE channel_id = $1 AND user_id = $2
		  AND (last_read_at IS NULL OR last_read_at < $3)`,
		channelID, userID, at)
	return err
}

package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosterhq/huddle/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, channel_id, sender_id, content, message_type, is_deleted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ChannelID, msg.SenderID, msg.Content, msg.Type, msg.IsDeleted, msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT m.id, m.channel_id, m.sender_id, m.content, m.message_type, m.is_deleted, m.created_at,
			COALESCE(cm.display_name, '') AS sender_display_name
		FROM messages m
		LEFT JOIN channel_members cm ON cm.channel_id = m.channel_id AND cm.user_id = m.sender_id
		WHERE m.id = $1`
	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ChannelID, &msg.SenderID, &msg.Content, &msg.Type,
		&msg.IsDeleted, &msg.CreatedAt, &msg.SenderDisplayName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) ListRecent(ctx context.Context, channelID uuid.UUID, before *uuid.UUID, limit int, includeDeleted bool) ([]domain.Message, error) {
	query := `
		SELECT m.id, m.channel_id, m.sender_id, m.content, m.message_type, m.is_deleted, m.created_at,
			COALESCE(cm.display_name, '') AS sender_display_name
		FROM messages m
		LEFT JOIN channel_members cm ON cm.channel_id = m.channel_id AND cm.user_id = m.sender_id
		WHERE m.channel_id = $1`
	args := []any{channelID, limit}

	if !includeDeleted {
		query += ` AND m.is_deleted = FALSE`
	}
	if before != nil {
		// Tuple comparison keeps pagination stable when created_at ties.
		query += ` AND (m.created_at, m.id) < (SELECT created_at, id FROM messages WHERE id = $3)`
		args = append(args, *before)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.ChannelID, &msg.SenderID, &msg.Content, &msg.Type,
			&msg.IsDeleted, &msg.CreatedAt, &msg.SenderDisplayName,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE messages SET is_deleted = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

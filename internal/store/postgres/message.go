package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/beacon/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	var m domain.Message

	err := r.pool.QueryRow(ctx,
		`SELECT id, conversation_id, user_id, parent_id, content, type, created_at, edited_at, deleted_at
		 FROM messages WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.ConversationID, &m.UserID, &m.ParentID, &m.Content, &m.Type, &m.CreatedAt, &m.EditedAt, &m.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("messageRepo.GetMessage: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("messageRepo.GetMessage: %w", err)
	}

	return &m, nil
}

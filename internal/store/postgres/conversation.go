package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/beacon/internal/domain"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

// NewConversationRepo creates a new ConversationRepo.
func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) GetConversation(ctx context.Context, id int64) (*domain.Conversation, error) {
	var c domain.Conversation
	var name *string

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, type, created_at, updated_at, last_message_at
		 FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.ID, &name, &c.Type, &c.CreatedAt, &c.UpdatedAt, &c.LastMessageAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversationRepo.GetConversation: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.GetConversation: %w", err)
	}

	c.Name = derefStr(name)

	return &c, nil
}

func (r *ConversationRepo) GetParticipant(ctx context.Context, conversationID, userID int64) (*domain.Participant, error) {
	var p domain.Participant

	err := r.pool.QueryRow(ctx,
		`SELECT conversation_id, user_id, role, joined_at, left_at, last_read_at, last_read_message_id, updated_at
		 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID,
	).Scan(&p.ConversationID, &p.UserID, &p.Role, &p.JoinedAt, &p.LeftAt, &p.LastReadAt, &p.LastReadMessageID, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversationRepo.GetParticipant: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.GetParticipant: %w", err)
	}

	return &p, nil
}

func (r *ConversationRepo) ListActiveParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM conversation_participants
		 WHERE conversation_id = $1 AND left_at IS NULL
		 ORDER BY user_id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.ListActiveParticipantIDs: %w", err)
	}

	return collectIDs(rows, "conversationRepo.ListActiveParticipantIDs")
}

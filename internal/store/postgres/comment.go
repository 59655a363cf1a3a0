package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/beacon/internal/domain"
)

type CommentRepo struct {
	pool *pgxpool.Pool
}

// NewCommentRepo creates a new CommentRepo.
func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

func (r *CommentRepo) GetComment(ctx context.Context, id int64) (*domain.TaskComment, error) {
	var c domain.TaskComment

	err := r.pool.QueryRow(ctx,
		`SELECT id, task_id, user_id, parent_id, content, created_at, edited_at, deleted_at
		 FROM task_comments WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.TaskID, &c.UserID, &c.ParentID, &c.Content, &c.CreatedAt, &c.EditedAt, &c.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("commentRepo.GetComment: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("commentRepo.GetComment: %w", err)
	}

	return &c, nil
}

func (r *CommentRepo) HasReaction(ctx context.Context, commentID, userID int64, emoji string) (bool, error) {
	var exists bool

	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM task_comment_reactions
		   WHERE task_comment_id = $1 AND user_id = $2 AND emoji = $3
		 )`,
		commentID, userID, emoji,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("commentRepo.HasReaction: %w", err)
	}

	return exists, nil
}

func (r *CommentRepo) CountReactions(ctx context.Context, commentID int64, emoji string) (int, error) {
	var n int

	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM task_comment_reactions
		 WHERE task_comment_id = $1 AND emoji = $2`,
		commentID, emoji,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("commentRepo.CountReactions: %w", err)
	}

	return n, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/beacon/internal/domain"
)

type AttachmentRepo struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepo creates a new AttachmentRepo.
func NewAttachmentRepo(pool *pgxpool.Pool) *AttachmentRepo {
	return &AttachmentRepo{pool: pool}
}

func (r *AttachmentRepo) GetAttachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	var a domain.Attachment

	err := r.pool.QueryRow(ctx,
		`SELECT id, task_id, user_id, file_name, mime_type, size, created_at, deleted_at
		 FROM task_attachments WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.TaskID, &a.UserID, &a.FileName, &a.MimeType, &a.Size, &a.CreatedAt, &a.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("attachmentRepo.GetAttachment: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("attachmentRepo.GetAttachment: %w", err)
	}

	return &a, nil
}

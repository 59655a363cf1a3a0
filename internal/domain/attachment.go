package domain

import (
	"context"
	"time"
)

type Attachment struct {
	ID        int64
	TaskID    int64
	UserID    int64
	FileName  string
	MimeType  string
	Size      int64
	CreatedAt time.Time
	DeletedAt *time.Time
}

type AttachmentReader interface {
	GetAttachment(ctx context.Context, id int64) (*Attachment, error)
}

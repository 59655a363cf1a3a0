package domain

import (
	"context"
	"time"
)

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
)

type Project struct {
	ID          int64
	OwnerID     int64
	Name        string
	Description string
	Status      ProjectStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time // soft delete
}

// Trashed reports whether the project was soft-deleted.
func (p *Project) Trashed() bool { return p.DeletedAt != nil }

type ProjectMember struct {
	ProjectID int64
	UserID    int64
	Role      string // "admin", "member", "viewer"
	IsActive  bool
	JoinedAt  time.Time
	UpdatedAt time.Time
}

// ProjectReader reads committed project state. GetProject includes
// soft-deleted rows so deletions can still be encoded.
type ProjectReader interface {
	GetProject(ctx context.Context, id int64) (*Project, error)
	GetMember(ctx context.Context, projectID, userID int64) (*ProjectMember, error)
	ListActiveMemberIDs(ctx context.Context, projectID int64) ([]int64, error)
}

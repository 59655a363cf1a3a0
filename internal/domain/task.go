package domain

import (
	"context"
	"time"
)

type TaskList struct {
	ID        int64
	ProjectID int64
	Name      string
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

type Task struct {
	ID          int64
	ProjectID   int64
	ListID      int64
	Title       string
	Description string
	Position    int
	Priority    string // "low", "medium", "high", "urgent"
	Completed   bool
	DueDate     *time.Time
	AssigneeID  *int64
	LabelIDs    []int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

func (t *Task) Trashed() bool { return t.DeletedAt != nil }

type Label struct {
	ID        int64
	ProjectID int64
	Name      string
	Color     string
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// TaskReader reads committed board state, soft-deleted rows included.
type TaskReader interface {
	GetTask(ctx context.Context, id int64) (*Task, error)
	GetList(ctx context.Context, id int64) (*TaskList, error)
	GetLabel(ctx context.Context, id int64) (*Label, error)
}

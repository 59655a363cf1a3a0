package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/beacon/internal/domain"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo creates a new TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	var t domain.Task
	var description *string

	err := r.pool.QueryRow(ctx,
		`SELECT t.id, t.project_id, t.task_list_id, t.title, t.description, t.position,
		        t.priority, t.completed, t.due_date, t.assignee_id,
		        ARRAY(SELECT lt.label_id FROM label_task lt WHERE lt.task_id = t.id ORDER BY lt.label_id),
		        t.created_at, t.updated_at, t.deleted_at
		 FROM tasks t WHERE t.id = $1`,
		id,
	).Scan(
		&t.ID, &t.ProjectID, &t.ListID, &t.Title, &description, &t.Position,
		&t.Priority, &t.Completed, &t.DueDate, &t.AssigneeID,
		&t.LabelIDs,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetTask: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetTask: %w", err)
	}

	t.Description = derefStr(description)

	return &t, nil
}

func (r *TaskRepo) GetList(ctx context.Context, id int64) (*domain.TaskList, error) {
	var l domain.TaskList

	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, name, position, created_at, updated_at, deleted_at
		 FROM task_lists WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.ProjectID, &l.Name, &l.Position, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetList: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetList: %w", err)
	}

	return &l, nil
}

func (r *TaskRepo) GetLabel(ctx context.Context, id int64) (*domain.Label, error) {
	var l domain.Label

	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, name, color, updated_at, deleted_at
		 FROM labels WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.ProjectID, &l.Name, &l.Color, &l.UpdatedAt, &l.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetLabel: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetLabel: %w", err)
	}

	return &l, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/beacon/internal/domain"
)

type ProjectRepo struct {
	pool *pgxpool.Pool
}

// NewProjectRepo creates a new ProjectRepo.
func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

func (r *ProjectRepo) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	var description *string

	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, description, status, created_at, updated_at, deleted_at
		 FROM projects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &description, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("projectRepo.GetProject: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("projectRepo.GetProject: %w", err)
	}

	p.Description = derefStr(description)

	return &p, nil
}

func (r *ProjectRepo) GetMember(ctx context.Context, projectID, userID int64) (*domain.ProjectMember, error) {
	var m domain.ProjectMember

	err := r.pool.QueryRow(ctx,
		`SELECT project_id, user_id, role, is_active, created_at, updated_at
		 FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	).Scan(&m.ProjectID, &m.UserID, &m.Role, &m.IsActive, &m.JoinedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("projectRepo.GetMember: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("projectRepo.GetMember: %w", err)
	}

	return &m, nil
}

func (r *ProjectRepo) ListActiveMemberIDs(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM project_members
		 WHERE project_id = $1 AND is_active
		 ORDER BY user_id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("projectRepo.ListActiveMemberIDs: %w", err)
	}

	return collectIDs(rows, "projectRepo.ListActiveMemberIDs")
}

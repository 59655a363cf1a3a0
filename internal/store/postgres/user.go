package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/beacon/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	var avatarURL *string

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, avatar_url, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &avatarURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("userRepo.GetUser: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetUser: %w", err)
	}

	u.AvatarURL = derefStr(avatarURL)

	return &u, nil
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// collectIDs drains a single-column bigint result.
func collectIDs(rows pgx.Rows, caller string) ([]int64, error) {
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}
	return ids, nil
}

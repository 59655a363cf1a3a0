package domain

import (
	"context"
	"time"
)

type User struct {
	ID        int64
	Name      string
	Email     string
	AvatarURL string // empty when the user has no uploaded avatar
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserReader interface {
	GetUser(ctx context.Context, id int64) (*User, error)
}

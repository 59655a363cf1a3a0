package domain

import (
	"context"
	"slices"
	"time"
)

type TaskComment struct {
	ID        int64
	TaskID    int64
	UserID    int64
	ParentID  *int64
	Content   string
	CreatedAt time.Time
	EditedAt  *time.Time
	DeletedAt *time.Time
}

func (c *TaskComment) Trashed() bool { return c.DeletedAt != nil }

type ReactionAction string

const (
	ReactionAdded   ReactionAction = "added"
	ReactionRemoved ReactionAction = "removed"
)

// Reactions maps an emoji to the ids of users who reacted with it, in the
// order they reacted. The zero value is ready to use.
type Reactions map[string][]int64

// Toggle adds the user's reaction when absent and removes it when present.
func (r *Reactions) Toggle(userID int64, emoji string) ReactionAction {
	if *r == nil {
		*r = make(Reactions)
	}
	users := (*r)[emoji]
	if i := slices.Index(users, userID); i >= 0 {
		users = slices.Delete(users, i, i+1)
		if len(users) == 0 {
			delete(*r, emoji)
		} else {
			(*r)[emoji] = users
		}
		return ReactionRemoved
	}
	(*r)[emoji] = append(users, userID)
	return ReactionAdded
}

// Apply sets the reaction state explicitly, as reported by a committed event.
func (r *Reactions) Apply(userID int64, emoji string, action ReactionAction) {
	if r.Has(userID, emoji) == (action == ReactionAdded) {
		return
	}
	r.Toggle(userID, emoji)
}

func (r Reactions) Has(userID int64, emoji string) bool {
	return slices.Contains(r[emoji], userID)
}

func (r Reactions) Count(emoji string) int { return len(r[emoji]) }

// CommentReader reads committed task comments, soft-deleted rows included.
type CommentReader interface {
	GetComment(ctx context.Context, id int64) (*TaskComment, error)
	HasReaction(ctx context.Context, commentID, userID int64, emoji string) (bool, error)
	CountReactions(ctx context.Context, commentID int64, emoji string) (int, error)
}

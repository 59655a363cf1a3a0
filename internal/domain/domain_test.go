package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gosuda/beacon/internal/domain"
)

// ---------------------------------------------------------------------------
// Reactions.Toggle
// ---------------------------------------------------------------------------

func TestReactions_Toggle(t *testing.T) {
	t.Parallel()

	t.Run("same user same emoji twice adds then removes", func(t *testing.T) {
		t.Parallel()

		var r domain.Reactions
		assert.Equal(t, domain.ReactionAdded, r.Toggle(7, "👍"))
		assert.True(t, r.Has(7, "👍"))
		assert.Equal(t, 1, r.Count("👍"))

		assert.Equal(t, domain.ReactionRemoved, r.Toggle(7, "👍"))
		assert.False(t, r.Has(7, "👍"))
		assert.Zero(t, r.Count("👍"))
		assert.NotContains(t, r, "👍", "empty emoji buckets are dropped")
	})

	t.Run("different users accumulate", func(t *testing.T) {
		t.Parallel()

		var r domain.Reactions
		r.Toggle(1, "🎉")
		r.Toggle(2, "🎉")
		assert.Equal(t, 2, r.Count("🎉"))
		assert.Equal(t, []int64{1, 2}, r["🎉"])

		r.Toggle(1, "🎉")
		assert.Equal(t, []int64{2}, r["🎉"])
	})

	t.Run("different emoji are independent", func(t *testing.T) {
		t.Parallel()

		var r domain.Reactions
		r.Toggle(1, "🎉")
		r.Toggle(1, "👀")
		assert.True(t, r.Has(1, "🎉"))
		assert.True(t, r.Has(1, "👀"))
	})
}

func TestReactions_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		initial domain.Reactions
		action  domain.ReactionAction
		want    bool
	}{
		{name: "add when absent", initial: nil, action: domain.ReactionAdded, want: true},
		{name: "add when present is a no-op", initial: domain.Reactions{"👍": {7}}, action: domain.ReactionAdded, want: true},
		{name: "remove when present", initial: domain.Reactions{"👍": {7}}, action: domain.ReactionRemoved, want: false},
		{name: "remove when absent is a no-op", initial: domain.Reactions{}, action: domain.ReactionRemoved, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := tt.initial
			r.Apply(7, "👍", tt.action)
			r.Apply(7, "👍", tt.action)
			assert.Equal(t, tt.want, r.Has(7, "👍"))
			if tt.want {
				assert.Equal(t, 1, r.Count("👍"))
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Soft-delete and membership predicates
// ---------------------------------------------------------------------------

func TestTrashed(t *testing.T) {
	t.Parallel()

	now := time.Now()

	assert.False(t, (&domain.Project{}).Trashed())
	assert.True(t, (&domain.Project{DeletedAt: &now}).Trashed())
	assert.False(t, (&domain.Task{}).Trashed())
	assert.True(t, (&domain.Task{DeletedAt: &now}).Trashed())
	assert.False(t, (&domain.Message{}).Trashed())
	assert.True(t, (&domain.Message{DeletedAt: &now}).Trashed())
	assert.False(t, (&domain.TaskComment{}).Trashed())
	assert.True(t, (&domain.TaskComment{DeletedAt: &now}).Trashed())
}

func TestParticipant_Active(t *testing.T) {
	t.Parallel()

	now := time.Now()

	assert.True(t, (&domain.Participant{}).Active())
	assert.False(t, (&domain.Participant{LeftAt: &now}).Active())
}

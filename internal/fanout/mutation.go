package fanout

import "github.com/gosuda/beacon/internal/event"

// Actor identifies who caused a mutation. SocketID is the actor's own
// connection, excluded from delivery; it may be empty.
type Actor struct {
	UserID   int64
	SocketID string
}

// Scope carries the ids needed to compute target channels. Only the fields
// relevant to the mutation's kind are read.
type Scope struct {
	ProjectID      int64
	TaskID         int64
	ConversationID int64
	OwnerID        int64
	MemberIDs      []int64
	ParticipantIDs []int64
	AffectedUserID int64
}

// Mutation is a committed change ready to be broadcast. Source must be the
// event snapshot type matching Kind.
type Mutation struct {
	Kind   event.Kind
	Actor  Actor
	Source any
	Scope  Scope
}

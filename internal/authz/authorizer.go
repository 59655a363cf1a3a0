package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/domain"
)

// Authorizer decides whether a user may subscribe to a private channel.
// It is a pure predicate over committed state; it never writes.
type Authorizer struct {
	projects      domain.ProjectReader
	tasks         domain.TaskReader
	conversations domain.ConversationReader
}

// New returns an Authorizer backed by the given readers.
func New(projects domain.ProjectReader, tasks domain.TaskReader, conversations domain.ConversationReader) *Authorizer {
	return &Authorizer{
		projects:      projects,
		tasks:         tasks,
		conversations: conversations,
	}
}

// Authorize reports whether userID may subscribe to ch. Missing records
// yield (false, nil); other lookup failures are returned so the caller can
// log them, and the caller must treat any non-true result as a refusal.
func (a *Authorizer) Authorize(ctx context.Context, userID int64, ch channel.Channel) (bool, error) {
	if userID <= 0 || !ch.Valid() {
		return false, nil
	}

	switch ch.Kind() {
	case channel.KindUserProjects, channel.KindUserConversations:
		return ch.UserID() == userID, nil

	case channel.KindProject:
		return a.projectAccess(ctx, userID, ch.ProjectID())

	case channel.KindTaskComments, channel.KindTaskAttachments:
		ok, err := a.projectAccess(ctx, userID, ch.ProjectID())
		if err != nil || !ok {
			return false, err
		}
		return a.taskInProject(ctx, ch.ProjectID(), ch.TaskID())

	case channel.KindConversation:
		return a.conversationAccess(ctx, userID, ch.ConversationID())

	default:
		return false, nil
	}
}

// projectAccess is true for the owner and for active members of a project
// that has not been deleted.
func (a *Authorizer) projectAccess(ctx context.Context, userID, projectID int64) (bool, error) {
	project, err := a.projects.GetProject(ctx, projectID)
	if err != nil {
		return notFoundIsFalse("projectAccess: project", err)
	}
	if project.Trashed() {
		return false, nil
	}
	if project.OwnerID == userID {
		return true, nil
	}

	member, err := a.projects.GetMember(ctx, projectID, userID)
	if err != nil {
		return notFoundIsFalse("projectAccess: member", err)
	}
	return member.IsActive, nil
}

func (a *Authorizer) taskInProject(ctx context.Context, projectID, taskID int64) (bool, error) {
	task, err := a.tasks.GetTask(ctx, taskID)
	if err != nil {
		return notFoundIsFalse("taskInProject", err)
	}
	return task.ProjectID == projectID && !task.Trashed(), nil
}

func (a *Authorizer) conversationAccess(ctx context.Context, userID, conversationID int64) (bool, error) {
	participant, err := a.conversations.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		return notFoundIsFalse("conversationAccess", err)
	}
	return participant.Active(), nil
}

func notFoundIsFalse(op string, err error) (bool, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("authz.Authorizer.%s: %w", op, err)
}

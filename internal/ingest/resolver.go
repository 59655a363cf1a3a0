// Package ingest turns a committed-mutation notice from the host application
// into a fan-out mutation by loading the committed state it refers to.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosuda/beacon/internal/domain"
	"github.com/gosuda/beacon/internal/event"
	"github.com/gosuda/beacon/internal/fanout"
)

var (
	ErrUnknownEvent   = errors.New("ingest: unknown event")   //nolint:gochecknoglobals // sentinel error
	ErrInvalidRequest = errors.New("ingest: invalid request") //nolint:gochecknoglobals // sentinel error
)

// Request is a mutation notice. SubjectID names the entity the event is
// about:
//
//	message.*                    message id
//	message.read                 conversation id (reader is AffectedUserID or ActorID)
//	conversation.updated         conversation id
//	participant.*                conversation id (participant is AffectedUserID)
//	project.updated              project id
//	project.member_*             project id (member is AffectedUserID)
//	task/list/label.updated      task, list or label id
//	comment.created/updated/deleted, comment.reaction   comment id
//	attachment.*                 attachment id
type Request struct {
	Event          string
	SubjectID      int64
	ActorID        int64
	SocketID       string
	AffectedUserID int64
	Emoji          string
	Action         string
}

// Readers is the committed state the resolver loads from.
type Readers struct {
	Users         domain.UserReader
	Projects      domain.ProjectReader
	Tasks         domain.TaskReader
	Conversations domain.ConversationReader
	Messages      domain.MessageReader
	Comments      domain.CommentReader
	Attachments   domain.AttachmentReader
}

type Resolver struct {
	r   Readers
	now func() time.Time
}

// NewResolver returns a Resolver reading committed state through r.
func NewResolver(r Readers) *Resolver {
	return &Resolver{r: r, now: time.Now}
}

// WithClock replaces the time source used for reaction and detached-member
// timestamps.
func (res *Resolver) WithClock(now func() time.Time) *Resolver {
	res.now = now
	return res
}

func (res *Resolver) Resolve(ctx context.Context, req Request) (fanout.Mutation, error) {
	kind, ok := event.ParseKind(req.Event)
	if !ok || kind == event.KindTyping {
		return fanout.Mutation{}, fmt.Errorf("ingest.Resolver.Resolve: %w: %q", ErrUnknownEvent, req.Event)
	}
	if req.SubjectID <= 0 {
		return fanout.Mutation{}, fmt.Errorf("ingest.Resolver.Resolve: %w: subject_id is required", ErrInvalidRequest)
	}

	m := fanout.Mutation{
		Kind:  kind,
		Actor: fanout.Actor{UserID: req.ActorID, SocketID: req.SocketID},
	}

	var err error
	switch kind {
	case event.KindMessageSent, event.KindMessageEdited, event.KindMessageDeleted:
		err = res.message(ctx, req, &m)
	case event.KindMessageRead:
		err = res.read(ctx, req, &m)
	case event.KindConversationUpdated:
		err = res.conversation(ctx, req, &m)
	case event.KindParticipantAdded, event.KindParticipantRemoved, event.KindParticipantRoleChanged:
		err = res.participant(ctx, req, &m)
	case event.KindProjectUpdated:
		err = res.project(ctx, req, &m)
	case event.KindProjectMemberAdded, event.KindProjectMemberRemoved:
		err = res.member(ctx, req, &m)
	case event.KindTaskUpdated:
		err = res.task(ctx, req, &m)
	case event.KindListUpdated:
		err = res.list(ctx, req, &m)
	case event.KindLabelUpdated:
		err = res.label(ctx, req, &m)
	case event.KindCommentCreated, event.KindCommentUpdated, event.KindCommentDeleted:
		err = res.comment(ctx, req, &m)
	case event.KindCommentReaction:
		err = res.reaction(ctx, req, &m)
	case event.KindAttachmentCreated, event.KindAttachmentDeleted:
		err = res.attachment(ctx, req, &m)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEvent, req.Event)
	}
	if err != nil {
		return fanout.Mutation{}, fmt.Errorf("ingest.Resolver.Resolve %s: %w", req.Event, err)
	}
	return m, nil
}

func (res *Resolver) message(ctx context.Context, req Request, m *fanout.Mutation) error {
	msg, err := res.r.Messages.GetMessage(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	snap := event.MessageSnapshot{Message: msg, ActorID: req.ActorID}
	m.Scope.ConversationID = msg.ConversationID

	if m.Kind == event.KindMessageSent {
		// A new message is always authored by its sender.
		if snap.ActorID == 0 {
			snap.ActorID = msg.UserID
			m.Actor.UserID = msg.UserID
		}
		if snap.Sender, err = res.r.Users.GetUser(ctx, msg.UserID); err != nil {
			return err
		}
		if msg.ParentID != nil {
			snap.Parent, snap.ParentSender, err = res.parentMessage(ctx, *msg.ParentID)
			if err != nil {
				return err
			}
		}
		if m.Scope.ParticipantIDs, err = res.r.Conversations.ListActiveParticipantIDs(ctx, msg.ConversationID); err != nil {
			return err
		}
	}

	m.Source = snap
	return nil
}

// parentMessage loads a reply target. A hard-deleted parent or author yields
// nil so the preview is flagged as deleted instead of failing the event.
func (res *Resolver) parentMessage(ctx context.Context, id int64) (*domain.Message, *domain.User, error) {
	parent, err := res.r.Messages.GetMessage(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	author, err := res.optionalUser(ctx, parent.UserID)
	if err != nil {
		return nil, nil, err
	}
	return parent, author, nil
}

func (res *Resolver) optionalUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := res.r.Users.GetUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func (res *Resolver) read(ctx context.Context, req Request, m *fanout.Mutation) error {
	userID := affected(req)
	p, err := res.r.Conversations.GetParticipant(ctx, req.SubjectID, userID)
	if err != nil {
		return err
	}
	if p.LastReadMessageID == nil || p.LastReadAt == nil {
		return fmt.Errorf("%w: participant has no read state", ErrInvalidRequest)
	}

	m.Scope.ConversationID = req.SubjectID
	m.Source = event.ReadReceipt{
		ConversationID: req.SubjectID,
		UserID:         userID,
		MessageID:      *p.LastReadMessageID,
		ReadAt:         *p.LastReadAt,
		ActorID:        req.ActorID,
	}
	return nil
}

func (res *Resolver) conversation(ctx context.Context, req Request, m *fanout.Mutation) error {
	c, err := res.r.Conversations.GetConversation(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	m.Scope.ConversationID = c.ID
	m.Source = event.ConversationSnapshot{Conversation: c, ActorID: req.ActorID}
	return nil
}

func (res *Resolver) participant(ctx context.Context, req Request, m *fanout.Mutation) error {
	if req.AffectedUserID <= 0 {
		return fmt.Errorf("%w: affected_user_id is required", ErrInvalidRequest)
	}
	p, err := res.r.Conversations.GetParticipant(ctx, req.SubjectID, req.AffectedUserID)
	if err != nil {
		return err
	}
	snap := event.ParticipantSnapshot{Participant: p, ActorID: req.ActorID}
	if m.Kind == event.KindParticipantAdded {
		if snap.User, err = res.r.Users.GetUser(ctx, p.UserID); err != nil {
			return err
		}
	}

	m.Scope.ConversationID = req.SubjectID
	m.Scope.AffectedUserID = req.AffectedUserID
	m.Source = snap
	return nil
}

func (res *Resolver) project(ctx context.Context, req Request, m *fanout.Mutation) error {
	p, err := res.r.Projects.GetProject(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	members, err := res.r.Projects.ListActiveMemberIDs(ctx, p.ID)
	if err != nil {
		return err
	}

	m.Scope.ProjectID = p.ID
	m.Scope.OwnerID = p.OwnerID
	m.Scope.MemberIDs = members
	m.Source = event.ProjectSnapshot{Project: p, Action: action(req), ActorID: req.ActorID}
	return nil
}

func (res *Resolver) member(ctx context.Context, req Request, m *fanout.Mutation) error {
	if req.AffectedUserID <= 0 {
		return fmt.Errorf("%w: affected_user_id is required", ErrInvalidRequest)
	}
	snap := event.MemberSnapshot{ActorID: req.ActorID}

	member, err := res.r.Projects.GetMember(ctx, req.SubjectID, req.AffectedUserID)
	switch {
	case errors.Is(err, domain.ErrNotFound) && m.Kind == event.KindProjectMemberRemoved:
		// Detached pivot rows are gone by the time the notice arrives.
		member = &domain.ProjectMember{ProjectID: req.SubjectID, UserID: req.AffectedUserID, UpdatedAt: res.now().UTC()}
	case err != nil:
		return err
	}
	snap.Member = member

	if m.Kind == event.KindProjectMemberAdded {
		if snap.User, err = res.r.Users.GetUser(ctx, req.AffectedUserID); err != nil {
			return err
		}
	}

	m.Scope.ProjectID = req.SubjectID
	m.Scope.AffectedUserID = req.AffectedUserID
	m.Source = snap
	return nil
}

func (res *Resolver) task(ctx context.Context, req Request, m *fanout.Mutation) error {
	t, err := res.r.Tasks.GetTask(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	snap := event.TaskSnapshot{Task: t, Action: action(req), ActorID: req.ActorID}
	if t.AssigneeID != nil {
		if snap.Assignee, err = res.optionalUser(ctx, *t.AssigneeID); err != nil {
			return err
		}
	}

	m.Scope.ProjectID = t.ProjectID
	m.Source = snap
	return nil
}

func (res *Resolver) list(ctx context.Context, req Request, m *fanout.Mutation) error {
	l, err := res.r.Tasks.GetList(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	m.Scope.ProjectID = l.ProjectID
	m.Source = event.ListSnapshot{List: l, Action: action(req), ActorID: req.ActorID}
	return nil
}

func (res *Resolver) label(ctx context.Context, req Request, m *fanout.Mutation) error {
	l, err := res.r.Tasks.GetLabel(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	m.Scope.ProjectID = l.ProjectID
	m.Source = event.LabelSnapshot{Label: l, Action: action(req), ActorID: req.ActorID}
	return nil
}

func (res *Resolver) comment(ctx context.Context, req Request, m *fanout.Mutation) error {
	c, err := res.r.Comments.GetComment(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	t, err := res.r.Tasks.GetTask(ctx, c.TaskID)
	if err != nil {
		return err
	}
	snap := event.CommentSnapshot{Comment: c, ProjectID: t.ProjectID, ActorID: req.ActorID}

	if m.Kind == event.KindCommentCreated {
		if snap.Author, err = res.r.Users.GetUser(ctx, c.UserID); err != nil {
			return err
		}
		if c.ParentID != nil {
			parent, pErr := res.r.Comments.GetComment(ctx, *c.ParentID)
			switch {
			case errors.Is(pErr, domain.ErrNotFound):
			case pErr != nil:
				return pErr
			default:
				snap.Parent = parent
				if snap.ParentAuthor, err = res.optionalUser(ctx, parent.UserID); err != nil {
					return err
				}
			}
		}
	}

	m.Scope.ProjectID = t.ProjectID
	m.Scope.TaskID = t.ID
	m.Source = snap
	return nil
}

// reaction derives added/removed from the committed state rather than the
// request, so a retried toggle notice reports what actually happened.
func (res *Resolver) reaction(ctx context.Context, req Request, m *fanout.Mutation) error {
	if req.Emoji == "" {
		return fmt.Errorf("%w: emoji is required", ErrInvalidRequest)
	}
	c, err := res.r.Comments.GetComment(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	t, err := res.r.Tasks.GetTask(ctx, c.TaskID)
	if err != nil {
		return err
	}

	userID := affected(req)
	has, err := res.r.Comments.HasReaction(ctx, c.ID, userID, req.Emoji)
	if err != nil {
		return err
	}
	count, err := res.r.Comments.CountReactions(ctx, c.ID, req.Emoji)
	if err != nil {
		return err
	}

	act := domain.ReactionRemoved
	if has {
		act = domain.ReactionAdded
	}

	m.Scope.ProjectID = t.ProjectID
	m.Scope.TaskID = t.ID
	m.Source = event.ReactionSnapshot{
		CommentID: c.ID,
		TaskID:    c.TaskID,
		UserID:    userID,
		Emoji:     req.Emoji,
		Action:    act,
		Count:     count,
		At:        res.now().UTC(),
		ActorID:   req.ActorID,
	}
	return nil
}

func (res *Resolver) attachment(ctx context.Context, req Request, m *fanout.Mutation) error {
	a, err := res.r.Attachments.GetAttachment(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	t, err := res.r.Tasks.GetTask(ctx, a.TaskID)
	if err != nil {
		return err
	}
	snap := event.AttachmentSnapshot{Attachment: a, ActorID: req.ActorID}
	if m.Kind == event.KindAttachmentCreated {
		if snap.Uploader, err = res.r.Users.GetUser(ctx, a.UserID); err != nil {
			return err
		}
	}

	m.Scope.ProjectID = t.ProjectID
	m.Scope.TaskID = t.ID
	m.Source = snap
	return nil
}

func affected(req Request) int64 {
	if req.AffectedUserID > 0 {
		return req.AffectedUserID
	}
	return req.ActorID
}

func action(req Request) event.Action {
	if req.Action == "" {
		return event.ActionUpdated
	}
	return event.Action(req.Action)
}

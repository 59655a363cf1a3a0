package event

import (
	"fmt"
	"unicode/utf8"

	"github.com/gosuda/beacon/internal/domain"
)

// previewRunes caps reply previews so payloads stay small.
const previewRunes = 100

func source[T any](src any) (T, error) {
	s, ok := src.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: got %T, want %T", ErrSourceMismatch, src, zero)
	}
	return s, nil
}

func incomplete(field string) error {
	return fmt.Errorf("%w: %s is required", ErrIncompleteSource, field)
}

func userRef(u *domain.User) UserRef {
	ref := UserRef{ID: u.ID, Name: u.Name}
	if u.AvatarURL != "" {
		avatar := u.AvatarURL
		ref.Avatar = &avatar
	}
	return ref
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

// preview builds a reply preview from the parent's state at encode time. A
// trashed parent never exposes its content or author.
func preview(id int64, content string, trashed bool, author *domain.User) *ParentPreview {
	p := &ParentPreview{ID: id}
	if trashed {
		p.IsDeleted = true
		return p
	}
	c := truncate(content, previewRunes)
	p.Content = &c
	if author != nil {
		name := author.Name
		p.UserName = &name
	}
	return p
}

func checkAction(a Action, allowed ...Action) error {
	for _, ok := range allowed {
		if a == ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidAction, a)
}

// ---------------------------------------------------------------------------
// Conversations
// ---------------------------------------------------------------------------

func messageSource(src any) (MessageSnapshot, error) {
	s, err := source[MessageSnapshot](src)
	if err != nil {
		return s, err
	}
	if s.Message == nil {
		return s, incomplete("message")
	}
	return s, nil
}

func buildMessageSent(src any) (any, error) {
	s, err := messageSource(src)
	if err != nil {
		return nil, err
	}
	if s.Sender == nil {
		return nil, incomplete("sender")
	}

	p := MessagePayload{
		ID:             s.Message.ID,
		ConversationID: s.Message.ConversationID,
		Content:        s.Message.Content,
		Type:           string(s.Message.Type),
		Sender:         userRef(s.Sender),
		CreatedAt:      s.Message.CreatedAt,
		ActorID:        s.ActorID,
	}
	if s.Message.ParentID != nil {
		if s.Parent == nil {
			p.Parent = &ParentPreview{ID: *s.Message.ParentID, IsDeleted: true}
		} else {
			p.Parent = preview(s.Parent.ID, s.Parent.Content, s.Parent.Trashed(), s.ParentSender)
		}
	}
	return p, nil
}

func buildMessageEdited(src any) (any, error) {
	s, err := messageSource(src)
	if err != nil {
		return nil, err
	}
	if s.Message.EditedAt == nil {
		return nil, incomplete("message.edited_at")
	}
	return MessageEditedPayload{
		ID:             s.Message.ID,
		ConversationID: s.Message.ConversationID,
		Content:        s.Message.Content,
		EditedAt:       *s.Message.EditedAt,
		ActorID:        s.ActorID,
	}, nil
}

func buildMessageDeleted(src any) (any, error) {
	s, err := messageSource(src)
	if err != nil {
		return nil, err
	}
	if s.Message.DeletedAt == nil {
		return nil, incomplete("message.deleted_at")
	}
	return MessageDeletedPayload{
		ID:             s.Message.ID,
		ConversationID: s.Message.ConversationID,
		DeletedAt:      *s.Message.DeletedAt,
		ActorID:        s.ActorID,
	}, nil
}

func buildMessageRead(src any) (any, error) {
	s, err := source[ReadReceipt](src)
	if err != nil {
		return nil, err
	}
	if s.UserID <= 0 || s.ConversationID <= 0 {
		return nil, incomplete("read receipt ids")
	}
	return MessageReadPayload(s), nil
}

func buildConversationUpdated(src any) (any, error) {
	s, err := source[ConversationSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.Conversation == nil {
		return nil, incomplete("conversation")
	}
	return ConversationPayload{
		ID:        s.Conversation.ID,
		Name:      s.Conversation.Name,
		Type:      string(s.Conversation.Type),
		UpdatedAt: s.Conversation.UpdatedAt,
		ActorID:   s.ActorID,
	}, nil
}

func participantSource(src any) (ParticipantSnapshot, error) {
	s, err := source[ParticipantSnapshot](src)
	if err != nil {
		return s, err
	}
	if s.Participant == nil {
		return s, incomplete("participant")
	}
	return s, nil
}

func buildParticipantAdded(src any) (any, error) {
	s, err := participantSource(src)
	if err != nil {
		return nil, err
	}
	if s.User == nil {
		return nil, incomplete("user")
	}
	return ParticipantAddedPayload{
		ConversationID: s.Participant.ConversationID,
		User:           userRef(s.User),
		Role:           s.Participant.Role,
		JoinedAt:       s.Participant.JoinedAt,
		ActorID:        s.ActorID,
	}, nil
}

func buildParticipantRemoved(src any) (any, error) {
	s, err := participantSource(src)
	if err != nil {
		return nil, err
	}
	if s.Participant.LeftAt == nil {
		return nil, incomplete("participant.left_at")
	}
	return ParticipantRemovedPayload{
		ConversationID: s.Participant.ConversationID,
		UserID:         s.Participant.UserID,
		LeftAt:         *s.Participant.LeftAt,
		ActorID:        s.ActorID,
	}, nil
}

func buildParticipantRoleChanged(src any) (any, error) {
	s, err := participantSource(src)
	if err != nil {
		return nil, err
	}
	return ParticipantRolePayload{
		ConversationID: s.Participant.ConversationID,
		UserID:         s.Participant.UserID,
		Role:           s.Participant.Role,
		UpdatedAt:      s.Participant.UpdatedAt,
		ActorID:        s.ActorID,
	}, nil
}

func buildTyping(src any) (any, error) {
	s, err := source[TypingSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.User == nil {
		return nil, incomplete("user")
	}
	return TypingPayload{
		ConversationID: s.ConversationID,
		User:           userRef(s.User),
		Typing:         s.Typing,
		At:             s.At,
		ActorID:        s.User.ID,
	}, nil
}

// ---------------------------------------------------------------------------
// Projects and boards
// ---------------------------------------------------------------------------

func buildProjectUpdated(src any) (any, error) {
	s, err := source[ProjectSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.Project == nil {
		return nil, incomplete("project")
	}
	if err := checkAction(s.Action, ActionCreated, ActionUpdated, ActionArchived, ActionUnarchived, ActionDeleted); err != nil {
		return nil, err
	}

	updatedAt := s.Project.UpdatedAt
	if s.Action == ActionDeleted && s.Project.DeletedAt != nil {
		updatedAt = *s.Project.DeletedAt
	}
	return ProjectPayload{
		ID:        s.Project.ID,
		Name:      s.Project.Name,
		Status:    string(s.Project.Status),
		OwnerID:   s.Project.OwnerID,
		Action:    s.Action,
		UpdatedAt: updatedAt,
		ActorID:   s.ActorID,
	}, nil
}

func buildMemberAdded(src any) (any, error) {
	s, err := source[MemberSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.Member == nil || s.User == nil {
		return nil, incomplete("member and user")
	}
	return MemberAddedPayload{
		ProjectID: s.Member.ProjectID,
		User:      userRef(s.User),
		Role:      s.Member.Role,
		UpdatedAt: s.Member.UpdatedAt,
		ActorID:   s.ActorID,
	}, nil
}

func buildMemberRemoved(src any) (any, error) {
	s, err := source[MemberSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.Member == nil {
		return nil, incomplete("member")
	}
	return MemberRemovedPayload{
		ProjectID: s.Member.ProjectID,
		UserID:    s.Member.UserID,
		UpdatedAt: s.Member.UpdatedAt,
		ActorID:   s.ActorID,
	}, nil
}

func buildTaskUpdated(src any) (any, error) {
	s, err := source[TaskSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.Task == nil {
		return nil, incomplete("task")
	}
	if err := checkAction(s.Action, ActionCreated, ActionUpdated, ActionMoved, ActionDeleted); err != nil {
		return nil, err
	}

	p := TaskPayload{
		ID:        s.Task.ID,
		ProjectID: s.Task.ProjectID,
		ListID:    s.Task.ListID,
		Title:     s.Task.Title,
		Position:  s.Task.Position,
		Priority:  s.Task.Priority,
		Completed: s.Task.Completed,
		DueDate:   s.Task.DueDate,
		LabelIDs:  s.Task.LabelIDs,
		Action:    s.Action,
		UpdatedAt: s.Task.UpdatedAt,
		ActorID:   s.ActorID,
	}
	if p.LabelIDs == nil {
		p.LabelIDs = []int64{}
	}
	if s.Assignee != nil {
		ref := userRef(s.Assignee)
		p.Assignee = &ref
	}
	if s.Action == ActionDeleted && s.Task.DeletedAt != nil {
		p.UpdatedAt = *s.Task.DeletedAt
	}
	return p, nil
}

func buildListUpdated(src any) (any, error) {
	s, err := source[ListSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.List == nil {
		return nil, incomplete("list")
	}
	if err := checkAction(s.Action, ActionCreated, ActionUpdated, ActionMoved, ActionDeleted); err != nil {
		return nil, err
	}
	updatedAt := s.List.UpdatedAt
	if s.Action == ActionDeleted && s.List.DeletedAt != nil {
		updatedAt = *s.List.DeletedAt
	}
	return ListPayload{
		ID:        s.List.ID,
		ProjectID: s.List.ProjectID,
		Name:      s.List.Name,
		Position:  s.List.Position,
		Action:    s.Action,
		UpdatedAt: updatedAt,
		ActorID:   s.ActorID,
	}, nil
}

func buildLabelUpdated(src any) (any, error) {
	s, err := source[LabelSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.Label == nil {
		return nil, incomplete("label")
	}
	if err := checkAction(s.Action, ActionCreated, ActionUpdated, ActionDeleted); err != nil {
		return nil, err
	}
	updatedAt := s.Label.UpdatedAt
	if s.Action == ActionDeleted && s.Label.DeletedAt != nil {
		updatedAt = *s.Label.DeletedAt
	}
	return LabelPayload{
		ID:        s.Label.ID,
		ProjectID: s.Label.ProjectID,
		Name:      s.Label.Name,
		Color:     s.Label.Color,
		Action:    s.Action,
		UpdatedAt: updatedAt,
		ActorID:   s.ActorID,
	}, nil
}

// ---------------------------------------------------------------------------
// Task detail: comments, reactions, attachments
// ---------------------------------------------------------------------------

func commentSource(src any) (CommentSnapshot, error) {
	s, err := source[CommentSnapshot](src)
	if err != nil {
		return s, err
	}
	if s.Comment == nil {
		return s, incomplete("comment")
	}
	return s, nil
}

func buildCommentCreated(src any) (any, error) {
	s, err := commentSource(src)
	if err != nil {
		return nil, err
	}
	if s.Author == nil {
		return nil, incomplete("author")
	}

	p := CommentPayload{
		ID:        s.Comment.ID,
		TaskID:    s.Comment.TaskID,
		ProjectID: s.ProjectID,
		Content:   s.Comment.Content,
		Author:    userRef(s.Author),
		CreatedAt: s.Comment.CreatedAt,
		ActorID:   s.ActorID,
	}
	if s.Comment.ParentID != nil {
		if s.Parent == nil {
			p.Parent = &ParentPreview{ID: *s.Comment.ParentID, IsDeleted: true}
		} else {
			p.Parent = preview(s.Parent.ID, s.Parent.Content, s.Parent.Trashed(), s.ParentAuthor)
		}
	}
	return p, nil
}

func buildCommentUpdated(src any) (any, error) {
	s, err := commentSource(src)
	if err != nil {
		return nil, err
	}
	if s.Comment.EditedAt == nil {
		return nil, incomplete("comment.edited_at")
	}
	return CommentEditedPayload{
		ID:       s.Comment.ID,
		TaskID:   s.Comment.TaskID,
		Content:  s.Comment.Content,
		EditedAt: *s.Comment.EditedAt,
		ActorID:  s.ActorID,
	}, nil
}

func buildCommentDeleted(src any) (any, error) {
	s, err := commentSource(src)
	if err != nil {
		return nil, err
	}
	if s.Comment.DeletedAt == nil {
		return nil, incomplete("comment.deleted_at")
	}
	return CommentDeletedPayload{
		ID:        s.Comment.ID,
		TaskID:    s.Comment.TaskID,
		DeletedAt: *s.Comment.DeletedAt,
		ActorID:   s.ActorID,
	}, nil
}

func buildCommentReaction(src any) (any, error) {
	s, err := source[ReactionSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.Action != domain.ReactionAdded && s.Action != domain.ReactionRemoved {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, s.Action)
	}
	if s.Emoji == "" {
		return nil, incomplete("emoji")
	}
	return ReactionPayload{
		CommentID: s.CommentID,
		TaskID:    s.TaskID,
		UserID:    s.UserID,
		Emoji:     s.Emoji,
		Action:    string(s.Action),
		Count:     s.Count,
		UpdatedAt: s.At,
		ActorID:   s.ActorID,
	}, nil
}

func buildAttachmentCreated(src any) (any, error) {
	s, err := source[AttachmentSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.Attachment == nil || s.Uploader == nil {
		return nil, incomplete("attachment and uploader")
	}
	return AttachmentPayload{
		ID:        s.Attachment.ID,
		TaskID:    s.Attachment.TaskID,
		FileName:  s.Attachment.FileName,
		MimeType:  s.Attachment.MimeType,
		Size:      s.Attachment.Size,
		Uploader:  userRef(s.Uploader),
		CreatedAt: s.Attachment.CreatedAt,
		ActorID:   s.ActorID,
	}, nil
}

func buildAttachmentDeleted(src any) (any, error) {
	s, err := source[AttachmentSnapshot](src)
	if err != nil {
		return nil, err
	}
	if s.Attachment == nil {
		return nil, incomplete("attachment")
	}
	if s.Attachment.DeletedAt == nil {
		return nil, incomplete("attachment.deleted_at")
	}
	return AttachmentDeletedPayload{
		ID:        s.Attachment.ID,
		TaskID:    s.Attachment.TaskID,
		DeletedAt: *s.Attachment.DeletedAt,
		ActorID:   s.ActorID,
	}, nil
}

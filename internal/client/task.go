package client

import (
	"maps"
	"sync"
	"time"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/event"
)

type Comment struct {
	ID        int64
	Content   string
	Author    event.UserRef
	Parent    *event.ParentPreview
	CreatedAt time.Time
	EditedAt  *time.Time
	Reactions map[string]int
}

type Attachment struct {
	ID        int64
	FileName  string
	MimeType  string
	Size      int64
	Uploader  event.UserRef
	CreatedAt time.Time
}

// TaskDetailView reconciles the comments and attachments of one open task.
// It is subscribed to both task sub-channels.
type TaskDetailView struct {
	mu          sync.RWMutex
	projectID   int64
	taskID      int64
	comments    *Collection[int64, Comment]
	attachments *Collection[int64, Attachment]
}

// NewTaskDetailView returns an empty view of one task. It handles events
// from both task channels; see Channels.
func NewTaskDetailView(projectID, taskID int64) *TaskDetailView {
	return &TaskDetailView{
		projectID:   projectID,
		taskID:      taskID,
		comments:    NewCollection[int64, Comment](),
		attachments: NewCollection[int64, Attachment](),
	}
}

func (v *TaskDetailView) Channels() []channel.Channel {
	return []channel.Channel{
		channel.TaskComments(v.projectID, v.taskID),
		channel.TaskAttachments(v.projectID, v.taskID),
	}
}

func (v *TaskDetailView) Seed(comments []Comment, attachments []Attachment) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range comments {
		v.comments.Append(c.ID, c)
	}
	for _, a := range attachments {
		v.attachments.Append(a.ID, a)
	}
}

func (v *TaskDetailView) Handle(e Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e.Name {
	case "comment.created":
		if p, ok := decode[event.CommentPayload](e); ok {
			v.comments.Append(p.ID, Comment{
				ID: p.ID, Content: p.Content, Author: p.Author, Parent: p.Parent, CreatedAt: p.CreatedAt,
			})
		}

	case "comment.updated":
		if p, ok := decode[event.CommentEditedPayload](e); ok {
			v.comments.Patch(p.ID, func(c *Comment) {
				c.Content = p.Content
				c.EditedAt = &p.EditedAt
			})
		}

	case "comment.deleted":
		if p, ok := decode[event.CommentDeletedPayload](e); ok {
			v.comments.Remove(p.ID)
		}

	case "comment.reaction":
		if p, ok := decode[event.ReactionPayload](e); ok {
			v.comments.Patch(p.CommentID, func(c *Comment) {
				reactions := maps.Clone(c.Reactions)
				if reactions == nil {
					reactions = make(map[string]int)
				}
				if p.Count > 0 {
					reactions[p.Emoji] = p.Count
				} else {
					delete(reactions, p.Emoji)
				}
				c.Reactions = reactions
			})
		}

	case "attachment.created":
		if p, ok := decode[event.AttachmentPayload](e); ok {
			v.attachments.Append(p.ID, Attachment{
				ID: p.ID, FileName: p.FileName, MimeType: p.MimeType, Size: p.Size,
				Uploader: p.Uploader, CreatedAt: p.CreatedAt,
			})
		}

	case "attachment.deleted":
		if p, ok := decode[event.AttachmentDeletedPayload](e); ok {
			v.attachments.Remove(p.ID)
		}
	}
}

func (v *TaskDetailView) Comments() []Comment {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.comments.Values()
}

func (v *TaskDetailView) Attachments() []Attachment {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.attachments.Values()
}

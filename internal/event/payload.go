package event

import "time"

// Payloads are the only shapes that leave the server. Each carries actor_id
// and one timestamp so clients can suppress echoes and duplicates.

type UserRef struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar"`
}

// ParentPreview summarises a reply target as it was at encode time.
type ParentPreview struct {
	ID        int64   `json:"id"`
	Content   *string `json:"content"`
	UserName  *string `json:"user_name"`
	IsDeleted bool    `json:"is_deleted"`
}

type MessagePayload struct {
	ID             int64          `json:"id"`
	ConversationID int64          `json:"conversation_id"`
	Content        string         `json:"content"`
	Type           string         `json:"type"`
	Sender         UserRef        `json:"sender"`
	Parent         *ParentPreview `json:"parent"`
	CreatedAt      time.Time      `json:"created_at"`
	ActorID        int64          `json:"actor_id"`
}

type MessageEditedPayload struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Content        string    `json:"content"`
	EditedAt       time.Time `json:"edited_at"`
	ActorID        int64     `json:"actor_id"`
}

type MessageDeletedPayload struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	DeletedAt      time.Time `json:"deleted_at"`
	ActorID        int64     `json:"actor_id"`
}

type MessageReadPayload struct {
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	MessageID      int64     `json:"message_id"`
	ReadAt         time.Time `json:"read_at"`
	ActorID        int64     `json:"actor_id"`
}

type ConversationPayload struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	UpdatedAt time.Time `json:"updated_at"`
	ActorID   int64     `json:"actor_id"`
}

type ParticipantAddedPayload struct {
	ConversationID int64     `json:"conversation_id"`
	User           UserRef   `json:"user"`
	Role           string    `json:"role"`
	JoinedAt       time.Time `json:"joined_at"`
	ActorID        int64     `json:"actor_id"`
}

type ParticipantRemovedPayload struct {
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	LeftAt         time.Time `json:"left_at"`
	ActorID        int64     `json:"actor_id"`
}

type ParticipantRolePayload struct {
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	Role           string    `json:"role"`
	UpdatedAt      time.Time `json:"updated_at"`
	ActorID        int64     `json:"actor_id"`
}

type ProjectPayload struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	OwnerID   int64     `json:"owner_id"`
	Action    Action    `json:"action"`
	UpdatedAt time.Time `json:"updated_at"`
	ActorID   int64     `json:"actor_id"`
}

type MemberAddedPayload struct {
	ProjectID int64     `json:"project_id"`
	User      UserRef   `json:"user"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
	ActorID   int64     `json:"actor_id"`
}

type MemberRemovedPayload struct {
	ProjectID int64     `json:"project_id"`
	UserID    int64     `json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`
	ActorID   int64     `json:"actor_id"`
}

type TaskPayload struct {
	ID        int64      `json:"id"`
	ProjectID int64      `json:"project_id"`
	ListID    int64      `json:"list_id"`
	Title     string     `json:"title"`
	Position  int        `json:"position"`
	Priority  string     `json:"priority"`
	Completed bool       `json:"completed"`
	DueDate   *time.Time `json:"due_date"`
	Assignee  *UserRef   `json:"assignee"`
	LabelIDs  []int64    `json:"label_ids"`
	Action    Action     `json:"action"`
	UpdatedAt time.Time  `json:"updated_at"`
	ActorID   int64      `json:"actor_id"`
}

type ListPayload struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	Action    Action    `json:"action"`
	UpdatedAt time.Time `json:"updated_at"`
	ActorID   int64     `json:"actor_id"`
}

type LabelPayload struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Action    Action    `json:"action"`
	UpdatedAt time.Time `json:"updated_at"`
	ActorID   int64     `json:"actor_id"`
}

type CommentPayload struct {
	ID        int64          `json:"id"`
	TaskID    int64          `json:"task_id"`
	ProjectID int64          `json:"project_id"`
	Content   string         `json:"content"`
	Author    UserRef        `json:"author"`
	Parent    *ParentPreview `json:"parent"`
	CreatedAt time.Time      `json:"created_at"`
	ActorID   int64          `json:"actor_id"`
}

type CommentEditedPayload struct {
	ID       int64     `json:"id"`
	TaskID   int64     `json:"task_id"`
	Content  string    `json:"content"`
	EditedAt time.Time `json:"edited_at"`
	ActorID  int64     `json:"actor_id"`
}

type CommentDeletedPayload struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	DeletedAt time.Time `json:"deleted_at"`
	ActorID   int64     `json:"actor_id"`
}

type ReactionPayload struct {
	CommentID int64     `json:"comment_id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Emoji     string    `json:"emoji"`
	Action    string    `json:"action"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
	ActorID   int64     `json:"actor_id"`
}

type AttachmentPayload struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Uploader  UserRef   `json:"uploader"`
	CreatedAt time.Time `json:"created_at"`
	ActorID   int64     `json:"actor_id"`
}

type AttachmentDeletedPayload struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	DeletedAt time.Time `json:"deleted_at"`
	ActorID   int64     `json:"actor_id"`
}

type TypingPayload struct {
	ConversationID int64     `json:"conversation_id"`
	User           UserRef   `json:"user"`
	Typing         bool      `json:"typing"`
	At             time.Time `json:"at"`
	ActorID        int64     `json:"actor_id"`
}

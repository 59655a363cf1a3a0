package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gosuda/beacon/internal/domain"
)

type memberKey struct{ scope, user int64 }

// State is a seedable in-process implementation of every domain reader.
// Returned rows are copies; mutate through the Put methods.
type State struct {
	mu            sync.RWMutex
	users         map[int64]domain.User
	projects      map[int64]domain.Project
	members       map[memberKey]domain.ProjectMember
	tasks         map[int64]domain.Task
	lists         map[int64]domain.TaskList
	labels        map[int64]domain.Label
	conversations map[int64]domain.Conversation
	participants  map[memberKey]domain.Participant
	messages      map[int64]domain.Message
	comments      map[int64]domain.TaskComment
	reactions     map[int64]domain.Reactions
	attachments   map[int64]domain.Attachment
}

var (
	_ domain.UserReader         = (*State)(nil)
	_ domain.ProjectReader      = (*State)(nil)
	_ domain.TaskReader         = (*State)(nil)
	_ domain.ConversationReader = (*State)(nil)
	_ domain.MessageReader      = (*State)(nil)
	_ domain.CommentReader      = (*State)(nil)
	_ domain.AttachmentReader   = (*State)(nil)
)

// NewState returns an empty State.
func NewState() *State {
	return &State{
		users:         make(map[int64]domain.User),
		projects:      make(map[int64]domain.Project),
		members:       make(map[memberKey]domain.ProjectMember),
		tasks:         make(map[int64]domain.Task),
		lists:         make(map[int64]domain.TaskList),
		labels:        make(map[int64]domain.Label),
		conversations: make(map[int64]domain.Conversation),
		participants:  make(map[memberKey]domain.Participant),
		messages:      make(map[int64]domain.Message),
		comments:      make(map[int64]domain.TaskComment),
		reactions:     make(map[int64]domain.Reactions),
		attachments:   make(map[int64]domain.Attachment),
	}
}

func get[K comparable, V any](mu *sync.RWMutex, m map[K]V, k K, caller string) (*V, error) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := m[k]
	if !ok {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	return &v, nil
}

func put[K comparable, V any](mu *sync.RWMutex, m map[K]V, k K, v V) {
	mu.Lock()
	m[k] = v
	mu.Unlock()
}

func (s *State) PutUser(u domain.User)                 { put(&s.mu, s.users, u.ID, u) }
func (s *State) PutProject(p domain.Project)           { put(&s.mu, s.projects, p.ID, p) }
func (s *State) PutTask(t domain.Task)                 { put(&s.mu, s.tasks, t.ID, t) }
func (s *State) PutList(l domain.TaskList)             { put(&s.mu, s.lists, l.ID, l) }
func (s *State) PutLabel(l domain.Label)               { put(&s.mu, s.labels, l.ID, l) }
func (s *State) PutConversation(c domain.Conversation) { put(&s.mu, s.conversations, c.ID, c) }
func (s *State) PutMessage(m domain.Message)           { put(&s.mu, s.messages, m.ID, m) }
func (s *State) PutComment(c domain.TaskComment)       { put(&s.mu, s.comments, c.ID, c) }
func (s *State) PutAttachment(a domain.Attachment)     { put(&s.mu, s.attachments, a.ID, a) }

func (s *State) PutMember(m domain.ProjectMember) {
	put(&s.mu, s.members, memberKey{m.ProjectID, m.UserID}, m)
}

func (s *State) PutParticipant(p domain.Participant) {
	put(&s.mu, s.participants, memberKey{p.ConversationID, p.UserID}, p)
}

// ToggleReaction flips userID's emoji reaction on a comment and reports the
// resulting action.
func (s *State) ToggleReaction(commentID, userID int64, emoji string) domain.ReactionAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.reactions[commentID]
	act := r.Toggle(userID, emoji)
	s.reactions[commentID] = r
	return act
}

func (s *State) GetUser(_ context.Context, id int64) (*domain.User, error) {
	return get(&s.mu, s.users, id, "memory.State.GetUser")
}

func (s *State) GetProject(_ context.Context, id int64) (*domain.Project, error) {
	return get(&s.mu, s.projects, id, "memory.State.GetProject")
}

func (s *State) GetMember(_ context.Context, projectID, userID int64) (*domain.ProjectMember, error) {
	return get(&s.mu, s.members, memberKey{projectID, userID}, "memory.State.GetMember")
}

func (s *State) ListActiveMemberIDs(_ context.Context, projectID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for k, m := range s.members {
		if k.scope == projectID && m.IsActive {
			ids = append(ids, k.user)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *State) GetTask(_ context.Context, id int64) (*domain.Task, error) {
	t, err := get(&s.mu, s.tasks, id, "memory.State.GetTask")
	if err != nil {
		return nil, err
	}
	t.LabelIDs = slices.Clone(t.LabelIDs)
	return t, nil
}

func (s *State) GetList(_ context.Context, id int64) (*domain.TaskList, error) {
	return get(&s.mu, s.lists, id, "memory.State.GetList")
}

func (s *State) GetLabel(_ context.Context, id int64) (*domain.Label, error) {
	return get(&s.mu, s.labels, id, "memory.State.GetLabel")
}

func (s *State) GetConversation(_ context.Context, id int64) (*domain.Conversation, error) {
	return get(&s.mu, s.conversations, id, "memory.State.GetConversation")
}

func (s *State) GetParticipant(_ context.Context, conversationID, userID int64) (*domain.Participant, error) {
	return get(&s.mu, s.participants, memberKey{conversationID, userID}, "memory.State.GetParticipant")
}

func (s *State) ListActiveParticipantIDs(_ context.Context, conversationID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for k, p := range s.participants {
		if k.scope == conversationID && p.Active() {
			ids = append(ids, k.user)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *State) GetMessage(_ context.Context, id int64) (*domain.Message, error) {
	return get(&s.mu, s.messages, id, "memory.State.GetMessage")
}

func (s *State) GetComment(_ context.Context, id int64) (*domain.TaskComment, error) {
	return get(&s.mu, s.comments, id, "memory.State.GetComment")
}

func (s *State) HasReaction(_ context.Context, commentID, userID int64, emoji string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reactions[commentID].Has(userID, emoji), nil
}

func (s *State) CountReactions(_ context.Context, commentID int64, emoji string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reactions[commentID].Count(emoji), nil
}

func (s *State) GetAttachment(_ context.Context, id int64) (*domain.Attachment, error) {
	return get(&s.mu, s.attachments, id, "memory.State.GetAttachment")
}

package client

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/gosuda/beacon/internal/channel"
	"github.com/gosuda/beacon/internal/event"
)

type Task struct {
	ID        int64
	ListID    int64
	Title     string
	Position  int
	Priority  string
	Completed bool
	DueDate   *time.Time
	Assignee  *event.UserRef
	LabelIDs  []int64
}

type List struct {
	ID       int64
	Name     string
	Position int
}

type Label struct {
	ID    int64
	Name  string
	Color string
}

// BoardView reconciles the kanban board of one project.
type BoardView struct {
	mu        sync.RWMutex
	projectID int64
	name      string
	status    string
	deleted   bool
	lists     *Collection[int64, List]
	tasks     *Collection[int64, Task]
	labels    *Collection[int64, Label]
	members   map[int64]string
}

// NewBoardView returns an empty board for projectID; Seed it from the
// initial HTTP fetch before subscribing.
func NewBoardView(projectID int64) *BoardView {
	return &BoardView{
		projectID: projectID,
		lists:     NewCollection[int64, List](),
		tasks:     NewCollection[int64, Task](),
		labels:    NewCollection[int64, Label](),
		members:   make(map[int64]string),
	}
}

func (v *BoardView) Channel() channel.Channel { return channel.Project(v.projectID) }

func (v *BoardView) Seed(lists []List, tasks []Task, labels []Label) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, l := range lists {
		v.lists.Append(l.ID, l)
	}
	for _, t := range tasks {
		v.tasks.Append(t.ID, t)
	}
	for _, l := range labels {
		v.labels.Append(l.ID, l)
	}
}

// upsert applies a created/updated/moved/deleted action to c.
func upsert[V any](c *Collection[int64, V], id int64, action event.Action, v V) {
	if action == event.ActionDeleted {
		c.Remove(id)
		return
	}
	if !c.Patch(id, func(cur *V) { *cur = v }) {
		c.Append(id, v)
	}
}

func (v *BoardView) Handle(e Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e.Name {
	case "task.updated":
		if p, ok := decode[event.TaskPayload](e); ok {
			upsert(v.tasks, p.ID, p.Action, Task{
				ID: p.ID, ListID: p.ListID, Title: p.Title, Position: p.Position,
				Priority: p.Priority, Completed: p.Completed, DueDate: p.DueDate,
				Assignee: p.Assignee, LabelIDs: p.LabelIDs,
			})
		}

	case "list.updated":
		if p, ok := decode[event.ListPayload](e); ok {
			upsert(v.lists, p.ID, p.Action, List{ID: p.ID, Name: p.Name, Position: p.Position})
			if p.Action == event.ActionDeleted {
				for _, t := range v.tasks.Values() {
					if t.ListID == p.ID {
						v.tasks.Remove(t.ID)
					}
				}
			}
		}

	case "label.updated":
		if p, ok := decode[event.LabelPayload](e); ok {
			upsert(v.labels, p.ID, p.Action, Label{ID: p.ID, Name: p.Name, Color: p.Color})
		}

	case "project.updated":
		if p, ok := decode[event.ProjectPayload](e); ok {
			v.name = p.Name
			v.status = p.Status
			v.deleted = p.Action == event.ActionDeleted
		}

	case "project.member_added":
		if p, ok := decode[event.MemberAddedPayload](e); ok {
			v.members[p.User.ID] = p.Role
		}

	case "project.member_removed":
		if p, ok := decode[event.MemberRemovedPayload](e); ok {
			delete(v.members, p.UserID)
		}
	}
}

// Project returns the project name and status, and whether it was deleted.
func (v *BoardView) Project() (name, status string, deleted bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.name, v.status, v.deleted
}

// Lists returns the lists in board order. Equal positions keep arrival order.
func (v *BoardView) Lists() []List {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := v.lists.Values()
	slices.SortStableFunc(out, func(a, b List) int { return cmp.Compare(a.Position, b.Position) })
	return out
}

func (v *BoardView) Labels() []Label {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.labels.Values()
}

// Tasks returns the tasks of one list in board order. Equal positions keep
// arrival order.
func (v *BoardView) Tasks(listID int64) []Task {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var out []Task
	for _, t := range v.tasks.Values() {
		if t.ListID == listID {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b Task) int { return cmp.Compare(a.Position, b.Position) })
	return out
}

func (v *BoardView) MemberRole(userID int64) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	role, ok := v.members[userID]
	return role, ok
}

type ProjectSummary struct {
	ID      int64
	Name    string
	Status  string
	OwnerID int64
	Role    string
}

// ProjectListView reconciles the project list of one user.
type ProjectListView struct {
	mu     sync.RWMutex
	userID int64
	items  *Collection[int64, ProjectSummary]
}

// NewProjectListView returns the project list of userID.
func NewProjectListView(userID int64) *ProjectListView {
	return &ProjectListView{userID: userID, items: NewCollection[int64, ProjectSummary]()}
}

func (v *ProjectListView) Channel() channel.Channel { return channel.UserProjects(v.userID) }

func (v *ProjectListView) Seed(items []ProjectSummary) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, it := range items {
		v.items.Append(it.ID, it)
	}
}

func (v *ProjectListView) Handle(e Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e.Name {
	case "project.updated":
		p, ok := decode[event.ProjectPayload](e)
		if !ok {
			return
		}
		if p.Action == event.ActionDeleted {
			v.items.Remove(p.ID)
			return
		}
		patch := func(s *ProjectSummary) {
			s.Name = p.Name
			s.Status = p.Status
			s.OwnerID = p.OwnerID
		}
		if !v.items.Patch(p.ID, patch) {
			v.items.Prepend(p.ID, ProjectSummary{ID: p.ID})
			v.items.Patch(p.ID, patch)
		}

	case "project.member_added":
		if p, ok := decode[event.MemberAddedPayload](e); ok && p.User.ID == v.userID {
			if !v.items.Patch(p.ProjectID, func(s *ProjectSummary) { s.Role = p.Role }) {
				v.items.Prepend(p.ProjectID, ProjectSummary{ID: p.ProjectID, Role: p.Role})
			}
		}

	case "project.member_removed":
		if p, ok := decode[event.MemberRemovedPayload](e); ok && p.UserID == v.userID {
			v.items.Remove(p.ProjectID)
		}
	}
}

func (v *ProjectListView) Projects() []ProjectSummary {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.items.Values()
}

// Package client holds the in-memory presentation state a UI keeps between
// server round trips: the last-fetched task list, optimistic edits from the
// weight slider, and the parent/child tree rebuilt from flat rows.
package client

import (
	"sort"

	"libra/models"
)

// TaskList is the list backing one view (personal tasks or a team's
// tasks). Mutations are optimistic: they apply immediately and the server
// call happens after, so the UI never waits on a round trip to reorder.
type TaskList struct {
	tasks []models.Task
}

// NewTaskList copies the fetched rows and sorts them for display.
func NewTaskList(tasks []models.Task) *TaskList {
	l := &TaskList{tasks: append([]models.Task(nil), tasks...)}
	l.sortByWeight()
	return l
}

// Tasks returns the current display order.
func (l *TaskList) Tasks() []models.Task {
	return append([]models.Task(nil), l.tasks...)
}

// Len returns the number of tasks held.
func (l *TaskList) Len() int {
	return len(l.tasks)
}

// SetWeight applies a non-final slider movement: the in-memory weight
// changes but the list is not re-sorted and no server call is implied.
func (l *TaskList) SetWeight(id string, weight int) bool {
	for i := range l.tasks {
		if l.tasks[i].ID == id {
			l.tasks[i].Weight = weight
			return true
		}
	}
	return false
}

// CommitWeight applies a slider release or numeric-entry confirmation:
// the weight is set and siblings re-sort descending. The caller follows up
// with the update-weight server call.
func (l *TaskList) CommitWeight(id string, weight int) bool {
	if !l.SetWeight(id, weight) {
		return false
	}
	l.sortByWeight()
	return true
}

// Add appends a task created through the server (on its success callback,
// without a re-fetch) and re-sorts.
func (l *TaskList) Add(task models.Task) {
	l.tasks = append(l.tasks, task)
	l.sortByWeight()
}

// Remove drops a task and its direct children immediately on delete
// confirmation, mirroring the server's one-level cascade.
func (l *TaskList) Remove(id string) {
	kept := l.tasks[:0]
	for _, task := range l.tasks {
		if task.ID == id {
			continue
		}
		if task.ParentID != nil && *task.ParentID == id {
			continue
		}
		kept = append(kept, task)
	}
	l.tasks = kept
}

// Merge replaces local state with a fresh server read (last write wins)
// and re-sorts. Called on each event or refresh tick.
func (l *TaskList) Merge(fresh []models.Task) {
	l.tasks = append(l.tasks[:0:0], fresh...)
	l.sortByWeight()
}

// sortByWeight orders descending by weight. The sort is stable so equal
// weights keep their prior relative order.
func (l *TaskList) sortByWeight() {
	sort.SliceStable(l.tasks, func(i, j int) bool {
		return l.tasks[i].Weight > l.tasks[j].Weight
	})
}

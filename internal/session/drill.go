package session

import (
	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/queue"
)

// entry is the kind-independent view of whatever a controller hands out.
type entry struct {
	id       string
	prompt   string
	answer   string
	category string
	group    string
	note     string
}

// controller is the subset of queue.Controller a session drives.
type controller[T queue.Drillable] interface {
	Current() (T, bool)
	MoveToNext(id string, correct bool) bool
	HasMore() bool
	Progress() queue.Progress
	Statistics() queue.Statistics
}

type drill interface {
	current() (entry, bool)
	MoveToNext(id string, correct bool) bool
	HasMore() bool
	Progress() queue.Progress
	Statistics() queue.Statistics
}

type adapter[T queue.Drillable] struct {
	controller[T]
	view func(T) entry
}

func (a adapter[T]) current() (entry, bool) {
	item, ok := a.Current()
	if !ok {
		return entry{}, false
	}
	return a.view(item), true
}

func itemEntry(i domain.Item) entry {
	return entry{
		id:       i.ID,
		prompt:   i.Prompt,
		answer:   i.Answer,
		category: i.Category,
		group:    i.Group,
		note:     i.Note,
	}
}

func exerciseEntry(e domain.ExerciseItem) entry {
	return entry{
		id:       e.ItemID(),
		prompt:   e.Prompt,
		answer:   e.Answer,
		category: e.Type,
		group:    e.ExerciseID,
		note:     e.Title,
	}
}

package queue

import (
	"log/slog"
	"sync"
	"time"
)

// Options select the lap policy and tune the builders.
type Options struct {
	// Name labels log records.
	Name string
	// Cycling controllers rebuild the queue when a lap ends; bounded ones stop.
	Cycling bool
	// Grouped uses the GroupedBuilder instead of the FlatBuilder.
	Grouped bool
	// Window overrides the flat recency window.
	Window int
	// GroupWindow, Lookahead and Bias configure the GroupedBuilder. A zero
	// Bias selects the domain default; NoBias disables the preference.
	GroupWindow int
	Lookahead   int
	Bias        float64
	// RecentCapacity bounds the recently seen ring; zero uses the flat window.
	RecentCapacity int

	Rand   Rand
	Now    func() time.Time
	Logger *slog.Logger
}

// Progress is the learner-facing position.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Statistics is what a caller persists after a session.
type Statistics struct {
	Completed   []string     `json:"completed"`
	Incorrect   IncorrectMap `json:"incorrect"`
	Lap         int          `json:"lap"`
	Index       int          `json:"index"`
	QueueLength int          `json:"queue_length"`
	PoolSize    int          `json:"pool_size"`
}

// Controller drives one drill domain: it builds a queue from a pool, hands
// out the current item and advances on completion. All methods are safe for
// concurrent use, but calls are expected to be serialized by one caller.
type Controller[T Drillable] struct {
	mu sync.Mutex

	opts        Options
	pool        []T
	cur         cursor[T]
	incorrect   IncorrectMap
	lap         int
	initialized bool

	// onAnswer runs under mu after the trackers are updated and before the
	// lap rollover. firstCompletion is true the first time id is answered
	// correctly since the last rebuild of the completed set.
	onAnswer func(item T, correct, firstCompletion bool)
}

// New returns a controller using opts.
func New[T Drillable](opts Options) *Controller[T] {
	if opts.Rand == nil {
		opts.Rand = DefaultRand()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller[T]{opts: opts, incorrect: IncorrectMap{}}
}

// Initialize builds a fresh queue over items and positions the cursor at
// startIndex. items is not modified and incorrect is copied.
func (c *Controller[T]) Initialize(items []T, incorrect IncorrectMap, startIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initLocked(items, incorrect, startIndex)
}

func (c *Controller[T]) initLocked(items []T, incorrect IncorrectMap, startIndex int) {
	c.pool = append([]T(nil), items...)
	c.incorrect = incorrect.Clone()
	capacity := c.opts.RecentCapacity
	if capacity <= 0 {
		capacity = c.window()
	}
	c.cur = cursor[T]{}
	c.cur = newCursor(c.build(c.pool), startIndex, capacity)
	c.lap = 1
	c.initialized = true
	if c.opts.Cycling && c.cur.exhausted() {
		c.rolloverLocked()
	}
}

func (c *Controller[T]) window() int {
	return RecencyWindow(len(c.pool), c.opts.Window)
}

func (c *Controller[T]) build(pool []T) []T {
	if c.opts.Grouped {
		return GroupedBuilder[T]{
			Window:    c.opts.GroupWindow,
			Lookahead: c.opts.Lookahead,
			Bias:      c.opts.Bias,
			Rand:      c.opts.Rand,
		}.Build(pool, c.incorrect)
	}
	var recent []string
	if c.cur.recent != nil {
		recent = c.cur.recent.Items()
	}
	return FlatBuilder[T]{Window: c.window(), Rand: c.opts.Rand}.Build(pool, recent)
}

// Current returns the item under the cursor. ok is false when nothing is
// left to show.
func (c *Controller[T]) Current() (item T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.current()
}

// MoveToNext records the answer for id and advances. id must be the id of
// the current item; anything else is ignored and reported as false.
func (c *Controller[T]) MoveToNext(id string, correct bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.cur.current()
	if !ok || item.ItemID() != id {
		c.opts.Logger.Debug("ignoring completion for item that is not current",
			"queue", c.opts.Name, "item", id, "index", c.cur.index)
		return false
	}

	first := false
	if correct {
		c.incorrect.Clear(id)
		first = c.cur.markCompleted(id)
	} else {
		c.incorrect.Mark(id, c.opts.Now())
	}
	c.cur.recent.Push(id)
	c.cur.index++

	if c.onAnswer != nil {
		c.onAnswer(item, correct, first)
	}
	if c.opts.Cycling && c.cur.exhausted() {
		c.rolloverLocked()
	}
	return true
}

// rolloverLocked starts the next lap: a remedial lap over the incorrect
// items when there are any, the full pool otherwise.
func (c *Controller[T]) rolloverLocked() {
	pool := c.pool
	remedial := false
	if len(c.incorrect) > 0 {
		var focus []T
		for _, item := range c.pool {
			if c.incorrect.Has(item.ItemID()) {
				focus = append(focus, item)
			}
		}
		if len(focus) > 0 {
			pool, remedial = focus, true
		}
	}
	if len(pool) == 0 {
		return
	}
	c.cur.rewind(c.build(pool))
	c.lap++
	c.opts.Logger.Debug("queue rebuilt",
		"queue", c.opts.Name, "lap", c.lap, "size", len(c.cur.items), "remedial", remedial)
}

// HasMore reports whether Current will return an item.
func (c *Controller[T]) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized && !c.cur.exhausted()
}

// Progress reports the cursor position. Cycling controllers count against
// the full pool so remedial laps do not shrink the denominator.
func (c *Controller[T]) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

func (c *Controller[T]) progressLocked() Progress {
	total := len(c.cur.items)
	if c.opts.Cycling {
		total = len(c.pool)
	}
	return Progress{
		Current: min(c.cur.index+1, len(c.cur.items)),
		Total:   total,
	}
}

// Incorrect returns a copy of the incorrect map.
func (c *Controller[T]) Incorrect() IncorrectMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.incorrect.Clone()
}

// Statistics returns the state a caller persists.
func (c *Controller[T]) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Statistics{
		Completed:   c.cur.completedIDs(),
		Incorrect:   c.incorrect.Clone(),
		Lap:         c.lap,
		Index:       c.cur.index,
		QueueLength: len(c.cur.items),
		PoolSize:    len(c.pool),
	}
}

// Reset returns the controller to its pre-Initialize state.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller[T]) resetLocked() {
	c.pool = nil
	c.cur = cursor[T]{}
	c.incorrect = IncorrectMap{}
	c.lap = 0
	c.initialized = false
}

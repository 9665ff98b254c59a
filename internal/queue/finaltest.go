package queue

import "maps"

// CategoryProgress counts distinct items answered correctly in a category
// against the category size of the unfiltered collection.
type CategoryProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// FinalTest is a bounded, grouped controller with per-category progress and
// a review mode over the items still answered wrong after a full pass.
type FinalTest[T Drillable] struct {
	*Controller[T]

	category func(T) string
	filter   string
	all      []T

	seen          map[string]struct{}
	everCompleted map[string]struct{}
	progress      map[string]CategoryProgress
	firstPass     bool
	review        bool
}

func newFinalTest[T Drillable](category func(T) string, opts Options) *FinalTest[T] {
	if category == nil {
		category = func(item T) string { return item.GroupKey() }
	}
	f := &FinalTest[T]{
		Controller:    New[T](opts),
		category:      category,
		seen:          make(map[string]struct{}),
		everCompleted: make(map[string]struct{}),
		progress:      make(map[string]CategoryProgress),
	}
	f.Controller.onAnswer = f.recordAnswer
	return f
}

// Initialize starts a new first pass over items. Category totals are taken
// from items as given, before the active category filter is applied.
func (f *FinalTest[T]) Initialize(items []T, incorrect IncorrectMap, startIndex int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.all = append([]T(nil), items...)
	f.progress = make(map[string]CategoryProgress)
	for _, item := range f.all {
		p := f.progress[f.category(item)]
		p.Total++
		f.progress[f.category(item)] = p
	}
	f.everCompleted = make(map[string]struct{})
	f.firstPass = false
	f.review = false
	f.startPassLocked(f.filtered(f.all), incorrect, startIndex)
}

func (f *FinalTest[T]) startPassLocked(pool []T, incorrect IncorrectMap, startIndex int) {
	f.initLocked(pool, incorrect, startIndex)
	f.seen = make(map[string]struct{})
}

func (f *FinalTest[T]) filtered(items []T) []T {
	if f.filter == "" {
		return items
	}
	var out []T
	for _, item := range items {
		if f.category(item) == f.filter {
			out = append(out, item)
		}
	}
	return out
}

// recordAnswer runs under the controller lock.
func (f *FinalTest[T]) recordAnswer(item T, correct, _ bool) {
	id := item.ItemID()
	f.seen[id] = struct{}{}
	if correct {
		if _, done := f.everCompleted[id]; !done {
			f.everCompleted[id] = struct{}{}
			cat := f.category(item)
			if p, ok := f.progress[cat]; ok {
				p.Completed = min(p.Completed+1, p.Total)
				f.progress[cat] = p
			}
		}
	}
	if !f.review && len(f.seen) >= len(f.cur.items) {
		f.firstPass = true
	}
}

// SwitchCategory rebuilds the queue restricted to category ("" for all) and
// starts a new pass. A nil incorrect keeps the current map. Category totals
// are left alone.
func (f *FinalTest[T]) SwitchCategory(items []T, category string, incorrect IncorrectMap) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if items == nil {
		items = f.all
	}
	if incorrect == nil {
		incorrect = f.incorrect
	}
	f.filter = category
	f.review = false
	f.firstPass = false
	f.startPassLocked(f.filtered(items), incorrect, 0)
}

// Category returns the active category filter.
func (f *FinalTest[T]) Category() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

// ShouldShowReviewMode reports whether a review of mistakes can be offered:
// the first pass is done, the current pass has been worked through and some
// items are still wrong.
func (f *FinalTest[T]) ShouldShowReviewMode() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.firstPass && !f.review && len(f.incorrect) > 0 && f.cur.exhausted()
}

// StartReviewMode replaces the queue with a flat shuffle of the items whose
// ids are incorrect, drawn from source or, when none is given, from the
// collection passed to Initialize. It reports false and changes nothing when
// there is nothing to review.
func (f *FinalTest[T]) StartReviewMode(source ...T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.incorrect) == 0 {
		return false
	}
	if len(source) == 0 {
		source = f.all
	}
	var pool []T
	for _, item := range source {
		if f.incorrect.Has(item.ItemID()) {
			pool = append(pool, item)
		}
	}
	if len(pool) == 0 {
		return false
	}

	window := RecencyWindow(len(pool), f.opts.Window)
	items := FlatBuilder[T]{Window: window, Rand: f.opts.Rand}.Build(pool, nil)
	f.cur = newCursor(items, 0, window)
	f.seen = make(map[string]struct{})
	f.review = true
	f.opts.Logger.Debug("review mode started", "queue", f.opts.Name, "size", len(items))
	return true
}

// ExitReviewMode goes back to a normal pass over original (or the
// Initialize collection when nil) filtered by category, keeping the current
// incorrect map.
func (f *FinalTest[T]) ExitReviewMode(original []T, category string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if original == nil {
		original = f.all
	}
	f.filter = category
	f.review = false
	f.startPassLocked(f.filtered(original), f.incorrect, 0)
}

// IsReviewMode reports whether the review queue is active.
func (f *FinalTest[T]) IsReviewMode() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.review
}

// ReviewComplete reports whether the review queue has been worked through.
func (f *FinalTest[T]) ReviewComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.review && f.cur.exhausted()
}

// CompletedFirstPass reports whether every item of the pass has been seen.
func (f *FinalTest[T]) CompletedFirstPass() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.firstPass
}

// AllCategoriesCompleted reports a finished first pass with no mistakes left.
func (f *FinalTest[T]) AllCategoriesCompleted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.firstPass && len(f.incorrect) == 0
}

// CategoryProgress returns a copy of the per-category counters.
func (f *FinalTest[T]) CategoryProgress() map[string]CategoryProgress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.progress)
}

// Reset clears the queue and every tracker.
func (f *FinalTest[T]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
	f.all = nil
	f.filter = ""
	f.seen = make(map[string]struct{})
	f.everCompleted = make(map[string]struct{})
	f.progress = make(map[string]CategoryProgress)
	f.firstPass = false
	f.review = false
}

package queue

// Drillable is anything the scheduler can order. The scheduler never looks at
// an item beyond its id and group key.
type Drillable interface {
	ItemID() string
	GroupKey() string
}

// RecencyWindow returns the minimum distance enforced between two
// occurrences of the same id. A positive configured value wins; otherwise
// the window is a quarter of the pool with a floor of three.
func RecencyWindow(poolSize, configured int) int {
	if configured > 0 {
		return configured
	}
	return max(3, poolSize/4)
}

// FlatBuilder orders a single pool so that no id is drawn while it is still
// inside the trailing recency window.
type FlatBuilder[T Drillable] struct {
	// Window is the recency window; zero means RecencyWindow(len(pool), 0).
	Window int
	Rand   Rand
}

// Build returns a permutation of pool. recent seeds the rolling window with
// ids drawn just before this lap, oldest first, so a lap boundary does not
// produce an immediate repeat.
func (b FlatBuilder[T]) Build(pool []T, recent []string) []T {
	if len(pool) == 0 {
		return nil
	}
	rnd := b.Rand
	if rnd == nil {
		rnd = DefaultRand()
	}
	window := b.Window
	if window <= 0 {
		window = RecencyWindow(len(pool), 0)
	}

	used := NewRing(window)
	for _, id := range recent {
		used.Push(id)
	}

	remaining := shuffled(pool, rnd)
	out := make([]T, 0, len(pool))
	for len(remaining) > 0 {
		idx := -1
		for i, item := range remaining {
			if !used.Contains(item.ItemID()) {
				idx = i
				break
			}
		}
		if idx < 0 {
			// Everything left is recent: allow the repeat rather than stall.
			used.Clear()
			idx = 0
		}
		picked := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		out = append(out, picked)
		used.Push(picked.ItemID())
	}
	return out
}

// GroupedBuilder round-robins across group keys so that items of one group
// do not cluster. When the window blocks every group that still has items,
// only the newest pick stays blocked rather than the whole window being
// cleared, so a different group is taken whenever one is left.
type GroupedBuilder[T Drillable] struct {
	// Window is how many recent group keys are blocked; zero means
	// min(3, groupCount).
	Window int
	// Lookahead is how deep into a group's sub-queue an incorrect item makes
	// the group preferred; zero means 3.
	Lookahead int
	// Bias is the per-step probability of honoring the incorrect-item
	// preference. 1 makes it absolute, zero or less disables it.
	Bias float64
	Rand Rand
}

type subQueue[T Drillable] struct {
	key   string
	items []T
	pos   int
}

func (s *subQueue[T]) exhausted() bool { return s.pos >= len(s.items) }

func (s *subQueue[T]) hasIncorrectWithin(n int, incorrect IncorrectMap) bool {
	end := min(s.pos+n, len(s.items))
	for _, item := range s.items[s.pos:end] {
		if incorrect.Has(item.ItemID()) {
			return true
		}
	}
	return false
}

// Build returns every item of pool exactly once, interleaving groups.
func (b GroupedBuilder[T]) Build(pool []T, incorrect IncorrectMap) []T {
	if len(pool) == 0 {
		return nil
	}
	rnd := b.Rand
	if rnd == nil {
		rnd = DefaultRand()
	}
	lookahead := b.Lookahead
	if lookahead <= 0 {
		lookahead = 3
	}

	var groups []*subQueue[T]
	byKey := make(map[string]*subQueue[T])
	for _, item := range pool {
		key := item.GroupKey()
		g, ok := byKey[key]
		if !ok {
			g = &subQueue[T]{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, item)
	}
	for _, g := range groups {
		g.items = shuffled(g.items, rnd)
	}

	window := b.Window
	if window <= 0 {
		window = min(3, len(groups))
	}
	recentGroups := NewRing(window)

	eligible := func() []*subQueue[T] {
		var out []*subQueue[T]
		for _, g := range groups {
			if !g.exhausted() && !recentGroups.Contains(g.key) {
				out = append(out, g)
			}
		}
		return out
	}

	out := make([]T, 0, len(pool))
	for len(out) < len(pool) {
		candidates := eligible()
		if len(candidates) == 0 {
			// Only the newest pick stays blocked so another group still wins
			// when one is left.
			recentGroups.KeepLast(1)
			candidates = eligible()
		}
		if len(candidates) == 0 {
			recentGroups.Clear()
			candidates = eligible()
		}

		g := b.choose(candidates, incorrect, lookahead, rnd)
		out = append(out, g.items[g.pos])
		g.pos++
		recentGroups.Push(g.key)
	}
	return out
}

func (b GroupedBuilder[T]) choose(candidates []*subQueue[T], incorrect IncorrectMap, lookahead int, rnd Rand) *subQueue[T] {
	if len(incorrect) > 0 && b.Bias > 0 {
		var preferred []*subQueue[T]
		for _, g := range candidates {
			if g.hasIncorrectWithin(lookahead, incorrect) {
				preferred = append(preferred, g)
			}
		}
		if len(preferred) > 0 && (b.Bias >= 1 || rnd.Float64() < b.Bias) {
			return preferred[rnd.Intn(len(preferred))]
		}
	}
	return candidates[rnd.Intn(len(candidates))]
}

package queue

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(seed int64) Options {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return Options{Rand: NewRand(seed), Now: func() time.Time { return fixed }}
}

func answerCurrent[T Drillable](t *testing.T, c *Controller[T], correct func(id string) bool) string {
	t.Helper()
	item, ok := c.Current()
	require.True(t, ok, "expected a current item")
	require.True(t, c.MoveToNext(item.ItemID(), correct(item.ItemID())))
	return item.ItemID()
}

func TestCyclingRemedialLap(t *testing.T) {
	c := NewVocabulary[testItem](testOptions(11))
	c.Initialize(items("a", "b", "c"), nil, 0)

	wrongOnA := func(id string) bool { return id != "a" }
	for i := 0; i < 3; i++ {
		answerCurrent(t, c, wrongOnA)
	}

	stats := c.Statistics()
	assert.Equal(t, 2, stats.Lap)
	assert.Equal(t, 1, stats.QueueLength)
	item, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "a", item.ItemID())
	assert.Equal(t, Progress{Current: 1, Total: 3}, c.Progress())

	require.True(t, c.MoveToNext("a", true))
	assert.Empty(t, c.Incorrect())

	stats = c.Statistics()
	assert.Equal(t, 3, stats.Lap)
	assert.Equal(t, 3, stats.QueueLength)
	assert.Equal(t, []string{"a", "b", "c"}, stats.Completed)
}

func TestCyclingNeverStalls(t *testing.T) {
	pool := groupedItems(1, 7)
	c := NewConjunctions[testItem](testOptions(3))
	c.Initialize(pool, nil, 0)

	n := 0
	for i := 0; i < 10*len(pool); i++ {
		n++
		answerCurrent(t, c, func(string) bool { return n%3 != 0 })
		assert.True(t, c.HasMore())
	}
}

func TestCyclingNoImmediateRepeat(t *testing.T) {
	pool := make([]testItem, 24)
	for i := range pool {
		pool[i] = testItem{id: fmt.Sprintf("w%02d", i)}
	}
	window := RecencyWindow(len(pool), 0)

	c := NewImperfectum[testItem](testOptions(99))
	c.Initialize(pool, nil, 0)

	var seq []string
	for i := 0; i < 5*len(pool); i++ {
		seq = append(seq, answerCurrent(t, c, func(string) bool { return true }))
	}

	last := map[string]int{}
	for pos, id := range seq {
		if prev, ok := last[id]; ok {
			assert.Greater(t, pos-prev, window, "%s repeated at %d and %d", id, prev, pos)
		}
		last[id] = pos
	}
}

func TestIncorrectConvergence(t *testing.T) {
	c := NewTestExercise[testItem](testOptions(1))
	pool := items("a", "b", "c", "d", "e")
	c.Initialize(pool, nil, 0)

	item, _ := c.Current()
	id := item.ItemID()
	require.True(t, c.MoveToNext(id, false))
	assert.Equal(t, 1, c.Incorrect()[id].Count)

	// Wrong answers accumulate through repeated initializations.
	for i := 0; i < 3; i++ {
		c.Initialize([]testItem{item}, c.Incorrect(), 0)
		require.True(t, c.MoveToNext(id, false))
	}
	rec := c.Incorrect()[id]
	assert.Equal(t, 4, rec.Count)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), rec.LastAttempt)

	c.Initialize([]testItem{item}, c.Incorrect(), 0)
	require.True(t, c.MoveToNext(id, true))
	assert.False(t, c.Incorrect().Has(id))
}

func TestMismatchedCompletionIsIgnored(t *testing.T) {
	c := NewVocabulary[testItem](testOptions(5))
	c.Initialize(items("a", "b", "c", "d"), IncorrectMap{"b": {Count: 2}}, 0)

	before := c.Statistics()
	current, _ := c.Current()

	assert.False(t, c.MoveToNext("nonexistent-id", true))

	after := c.Statistics()
	assert.Equal(t, before, after)
	again, _ := c.Current()
	assert.Equal(t, current, again)
}

func TestEmptyPool(t *testing.T) {
	cycling := NewVocabulary[testItem](testOptions(1))
	cycling.Initialize(nil, nil, 0)
	_, ok := cycling.Current()
	assert.False(t, ok)
	assert.False(t, cycling.HasMore())
	assert.False(t, cycling.MoveToNext("a", true))
	assert.Equal(t, Progress{}, cycling.Progress())

	bounded := NewTestExercise[testItem](testOptions(1))
	bounded.Initialize([]testItem{}, nil, 0)
	assert.False(t, bounded.HasMore())
}

func TestBoundedStopsAtEnd(t *testing.T) {
	c := NewTestExercise[testItem](testOptions(8))
	c.Initialize(groupedItems(2, 2), nil, 0)

	for i := 0; i < 4; i++ {
		assert.True(t, c.HasMore())
		answerCurrent(t, c, func(string) bool { return false })
	}
	assert.False(t, c.HasMore())
	_, ok := c.Current()
	assert.False(t, ok)
	assert.Equal(t, Progress{Current: 4, Total: 4}, c.Progress())
	assert.Len(t, c.Incorrect(), 4)
}

func TestStartIndexAndReset(t *testing.T) {
	c := NewPerfectTense[testItem](testOptions(2))
	c.Initialize(items("a", "b", "c", "d"), nil, 2)
	assert.Equal(t, Progress{Current: 3, Total: 4}, c.Progress())

	// A start past the end of a cycling queue begins the next lap.
	c.Initialize(items("a", "b"), nil, 10)
	assert.True(t, c.HasMore())
	assert.Equal(t, 0, c.Statistics().Index)
	assert.Equal(t, 2, c.Statistics().Lap)

	c.Reset()
	assert.False(t, c.HasMore())
	_, ok := c.Current()
	assert.False(t, ok)
	assert.Zero(t, c.Statistics().Lap)
}

func TestInitializeDoesNotAliasInputs(t *testing.T) {
	pool := items("a", "b", "c")
	incorrect := IncorrectMap{"a": {Count: 1}}
	c := NewVocabulary[testItem](testOptions(4))
	c.Initialize(pool, incorrect, 0)

	item, _ := c.Current()
	c.MoveToNext(item.ItemID(), item.ItemID() != "a")

	assert.Equal(t, []string{"a", "b", "c"}, ids(pool))
	assert.Equal(t, IncorrectMap{"a": {Count: 1}}, incorrect)
}

func TestStatisticsCompletedSorted(t *testing.T) {
	c := NewVocabulary[testItem](testOptions(6))
	c.Initialize(items("c", "a", "b"), nil, 0)
	for i := 0; i < 3; i++ {
		answerCurrent(t, c, func(string) bool { return true })
	}
	got := c.Statistics().Completed
	assert.True(t, sort.StringsAreSorted(got))
	assert.Len(t, got, 3)
}

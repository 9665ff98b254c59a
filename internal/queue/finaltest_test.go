package queue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoCategories() []testItem {
	var out []testItem
	for _, cat := range []string{"animals", "food"} {
		for i := 0; i < 5; i++ {
			out = append(out, testItem{id: fmt.Sprintf("%s-%d", cat, i), group: cat})
		}
	}
	return out
}

func drainFinalTest(t *testing.T, f *FinalTest[testItem], correct func(id string) bool) []string {
	t.Helper()
	var seen []string
	for f.HasMore() {
		item, ok := f.Current()
		require.True(t, ok)
		require.True(t, f.MoveToNext(item.ItemID(), correct(item.ItemID())))
		seen = append(seen, item.ItemID())
	}
	return seen
}

func TestFinalTestAllCorrect(t *testing.T) {
	f := NewFinalTest[testItem](nil, testOptions(21))
	f.Initialize(twoCategories(), nil, 0)

	assert.False(t, f.CompletedFirstPass())
	seen := drainFinalTest(t, f, func(string) bool { return true })
	assert.Len(t, seen, 10)

	assert.True(t, f.CompletedFirstPass())
	assert.True(t, f.AllCategoriesCompleted())
	assert.False(t, f.ShouldShowReviewMode())
	assert.Equal(t, map[string]CategoryProgress{
		"animals": {Completed: 5, Total: 5},
		"food":    {Completed: 5, Total: 5},
	}, f.CategoryProgress())
}

func TestFinalTestCategoriesInterleave(t *testing.T) {
	f := NewFinalTest[testItem](nil, testOptions(4))
	f.Initialize(twoCategories(), nil, 0)
	seen := drainFinalTest(t, f, func(string) bool { return true })
	for i := 1; i < len(seen); i++ {
		assert.NotEqual(t, seen[i][:4], seen[i-1][:4], "adjacent items share a category: %v", seen)
	}
}

func TestFinalTestTotalsStableAcrossCategorySwitch(t *testing.T) {
	f := NewFinalTest[testItem](nil, testOptions(9))
	all := twoCategories()
	f.Initialize(all, nil, 0)
	before := f.CategoryProgress()

	f.SwitchCategory(all, "food", nil)
	assert.Equal(t, "food", f.Category())
	for cat, p := range f.CategoryProgress() {
		assert.Equal(t, before[cat].Total, p.Total, cat)
	}

	seen := drainFinalTest(t, f, func(string) bool { return true })
	assert.Len(t, seen, 5)
	for _, id := range seen {
		assert.Contains(t, id, "food")
	}

	f.SwitchCategory(all, "", nil)
	progress := f.CategoryProgress()
	assert.Equal(t, CategoryProgress{Completed: 5, Total: 5}, progress["food"])
	assert.Equal(t, CategoryProgress{Completed: 0, Total: 5}, progress["animals"])
}

func TestFinalTestReviewMode(t *testing.T) {
	f := NewFinalTest[testItem](nil, testOptions(13))
	all := twoCategories()
	f.Initialize(all, nil, 0)

	wrong := map[string]bool{"animals-1": true, "food-3": true}
	drainFinalTest(t, f, func(id string) bool { return !wrong[id] })

	require.True(t, f.CompletedFirstPass())
	assert.False(t, f.AllCategoriesCompleted())
	assert.True(t, f.ShouldShowReviewMode())

	require.True(t, f.StartReviewMode())
	assert.True(t, f.IsReviewMode())
	assert.False(t, f.ShouldShowReviewMode())
	assert.Equal(t, Progress{Current: 1, Total: 2}, f.Progress())

	reviewed := drainFinalTest(t, f, func(string) bool { return true })
	assert.ElementsMatch(t, []string{"animals-1", "food-3"}, reviewed)
	assert.True(t, f.ReviewComplete())
	assert.Empty(t, f.Incorrect())
	assert.True(t, f.AllCategoriesCompleted())

	progress := f.CategoryProgress()
	assert.Equal(t, 5, progress["animals"].Completed)
	assert.Equal(t, 5, progress["food"].Completed)

	f.ExitReviewMode(nil, "")
	assert.False(t, f.IsReviewMode())
	assert.True(t, f.HasMore())
	assert.Equal(t, 10, f.Statistics().QueueLength)
	assert.True(t, f.CompletedFirstPass())
}

func TestFinalTestCategoryCountedOnce(t *testing.T) {
	f := NewFinalTest[testItem](nil, testOptions(17))
	all := twoCategories()
	f.Initialize(all, nil, 0)
	drainFinalTest(t, f, func(id string) bool { return id != "food-0" })

	// Answer food-0 correctly in review, then run a fresh pass: the
	// counter must not exceed one increment per item.
	require.True(t, f.StartReviewMode())
	drainFinalTest(t, f, func(string) bool { return true })
	f.ExitReviewMode(all, "")
	drainFinalTest(t, f, func(string) bool { return true })

	assert.Equal(t, CategoryProgress{Completed: 5, Total: 5}, f.CategoryProgress()["food"])
}

func TestFinalTestStartReviewWithoutMistakes(t *testing.T) {
	f := NewFinalTest[testItem](nil, testOptions(2))
	f.Initialize(twoCategories(), nil, 0)
	before := f.Statistics()

	assert.False(t, f.StartReviewMode())
	assert.False(t, f.IsReviewMode())
	assert.Equal(t, before, f.Statistics())
}

func TestFinalTestExitReviewKeepsIncorrect(t *testing.T) {
	f := NewFinalTest[testItem](nil, testOptions(31))
	all := twoCategories()
	f.Initialize(all, IncorrectMap{"food-2": {Count: 3}}, 0)

	require.True(t, f.StartReviewMode(all...))
	assert.Equal(t, 1, f.Statistics().QueueLength)

	f.ExitReviewMode(all, "animals")
	assert.Equal(t, "animals", f.Category())
	assert.Equal(t, 3, f.Incorrect()["food-2"].Count)
	assert.Equal(t, 5, f.Statistics().QueueLength)
}

func TestFinalTestReviewOfferedAfterEachPass(t *testing.T) {
	f := NewFinalTest[testItem](nil, testOptions(37))
	all := twoCategories()
	f.Initialize(all, nil, 0)
	drainFinalTest(t, f, func(id string) bool { return id != "animals-2" })
	require.True(t, f.ShouldShowReviewMode())

	require.True(t, f.StartReviewMode())
	f.ExitReviewMode(nil, "")
	assert.True(t, f.CompletedFirstPass())
	assert.False(t, f.ShouldShowReviewMode(), "new pass not yet worked through")

	drainFinalTest(t, f, func(id string) bool { return id != "animals-2" })
	assert.True(t, f.ShouldShowReviewMode())
}

func TestFinalTestReset(t *testing.T) {
	f := NewFinalTest[testItem](nil, testOptions(3))
	f.Initialize(twoCategories(), nil, 0)
	drainFinalTest(t, f, func(string) bool { return true })

	f.Reset()
	assert.False(t, f.HasMore())
	assert.False(t, f.CompletedFirstPass())
	assert.Empty(t, f.CategoryProgress())
	assert.False(t, f.StartReviewMode())
}

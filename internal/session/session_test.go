package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/dutchdrill/internal/content"
	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/queue"
)

type savedProgress struct {
	incorrect queue.IncorrectMap
	completed []string
}

type memoryStore struct {
	mu    sync.Mutex
	saved map[string]savedProgress
	saves int
	fail  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: make(map[string]savedProgress)}
}

func storeKey(learner string, kind domain.Kind) string { return learner + "/" + string(kind) }

func (m *memoryStore) LoadIncorrect(_ context.Context, learner string, kind domain.Kind) (queue.IncorrectMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[storeKey(learner, kind)].incorrect.Clone(), nil
}

func (m *memoryStore) SaveProgress(_ context.Context, learner string, kind domain.Kind, incorrect queue.IncorrectMap, completed []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.saves++
	m.saved[storeKey(learner, kind)] = savedProgress{incorrect: incorrect.Clone(), completed: completed}
	return nil
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testLibrary() *content.Library {
	lib := content.NewLibrary()
	for i := 0; i < 6; i++ {
		lib.Add(domain.Item{
			ID:       fmt.Sprintf("v%d", i),
			Kind:     domain.KindVocabulary,
			Prompt:   fmt.Sprintf("woord %d", i),
			Answer:   fmt.Sprintf("word %d", i),
			Category: "algemeen",
		})
	}
	for _, cat := range []string{"dieren", "eten"} {
		for i := 0; i < 3; i++ {
			lib.Add(domain.Item{
				ID:       fmt.Sprintf("%s-%d", cat, i),
				Kind:     domain.KindFinalTest,
				Prompt:   fmt.Sprintf("%s nl %d", cat, i),
				Answer:   fmt.Sprintf("%s en %d", cat, i),
				Category: cat,
			})
		}
	}
	lib.Exercises = []domain.Exercise{
		{ID: "plural", Type: "plurals", Questions: []domain.Question{{Prompt: "het boek", Answer: "de boeken"}, {Prompt: "de kat", Answer: "de katten"}}},
		{ID: "article", Type: "articles", Questions: []domain.Question{{Prompt: "huis", Answer: "het"}}},
	}
	return lib
}

func newTestManager(store Store) *Manager {
	return NewManager(testLibrary(), store, Options{
		Seed: 7,
		Now:  func() time.Time { return fixedNow },
	})
}

func finalItemsByID(lib *content.Library) map[string]domain.Item {
	out := make(map[string]domain.Item)
	for _, item := range lib.Items(domain.KindFinalTest) {
		out[item.ID] = item
	}
	return out
}

func TestCheckAnswer(t *testing.T) {
	testCases := []struct {
		response string
		expected string
		want     bool
	}{
		{"the dog", "the dog", true},
		{"  The   Dog ", "the dog", true},
		{"hound", "dog / hound", true},
		{"hond", "de hond; hond", true},
		{"cat", "dog/hound", false},
		{"", "dog", false},
		{"   ", "dog", false},
	}
	for _, tc := range testCases {
		t.Run(tc.response+"|"+tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.want, CheckAnswer(tc.response, tc.expected))
		})
	}
	assert.Equal(t, []string{"dog", "hound"}, Alternatives("dog / hound;"))
}

func TestOpenInitializesEveryKind(t *testing.T) {
	m := newTestManager(nil)
	s, err := m.Open(context.Background(), "anna")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Len())

	for _, kind := range []domain.Kind{domain.KindVocabulary, domain.KindFinalTest, domain.KindTestExercise} {
		card, ok, err := s.Card(kind)
		require.NoError(t, err)
		assert.True(t, ok, kind)
		assert.NotEmpty(t, card.ItemID, kind)
		assert.Equal(t, kind, card.Kind)
	}

	// Kinds without content are valid but empty.
	_, ok, err := s.Card(domain.KindImperfectum)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Card(domain.Kind("grammar"))
	assert.True(t, errors.Is(err, ErrUnknownKind))

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestSubmitChecksAndAdvances(t *testing.T) {
	m := newTestManager(nil)
	s, err := m.Open(context.Background(), "anna")
	require.NoError(t, err)

	card, ok, err := s.Card(domain.KindVocabulary)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, queue.Progress{Current: 1, Total: 6}, card.Progress)

	var answer string
	fmt.Sscanf(card.ItemID, "v%s", &answer)
	res, err := s.Submit(domain.KindVocabulary, card.ItemID, "WORD "+answer)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.True(t, res.Correct)
	assert.Equal(t, "word "+answer, res.Expected)
	assert.Equal(t, queue.Progress{Current: 2, Total: 6}, res.Progress)
	assert.False(t, res.Done, "vocabulary cycles")

	next, _, err := s.Card(domain.KindVocabulary)
	require.NoError(t, err)
	res, err = s.Submit(domain.KindVocabulary, next.ItemID, "wrong")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.False(t, res.Correct)

	stats, err := s.Statistics(domain.KindVocabulary)
	require.NoError(t, err)
	assert.Equal(t, []string{card.ItemID}, stats.Completed)
	assert.Equal(t, []string{next.ItemID}, stats.Incorrect.IDs())
	assert.Equal(t, fixedNow, stats.Incorrect[next.ItemID].LastAttempt)

	attempts := s.Attempts()
	require.Len(t, attempts, 2)
	assert.Equal(t, "anna", attempts[0].Learner)
	assert.True(t, attempts[0].Correct)
	assert.False(t, attempts[1].Correct)
}

func TestSubmitForStaleItemIsIgnored(t *testing.T) {
	m := newTestManager(nil)
	s, err := m.Open(context.Background(), "anna")
	require.NoError(t, err)

	before, err := s.Statistics(domain.KindVocabulary)
	require.NoError(t, err)

	res, err := s.Submit(domain.KindVocabulary, "not-current", "anything")
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	res, err = s.Record(domain.KindVocabulary, "not-current", true)
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	after, err := s.Statistics(domain.KindVocabulary)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, s.Attempts())
}

func TestFinalTestDirectionHeldUntilAnswered(t *testing.T) {
	byID := finalItemsByID(testLibrary())
	seen := map[Direction]bool{}

	for seed := int64(1); seed <= 5; seed++ {
		m := NewManager(testLibrary(), nil, Options{Seed: seed, Now: func() time.Time { return fixedNow }})
		s, err := m.Open(context.Background(), "anna")
		require.NoError(t, err)

		for i := 0; i < len(byID); i++ {
			card, ok, err := s.Card(domain.KindFinalTest)
			require.NoError(t, err)
			require.True(t, ok)

			again, _, err := s.Card(domain.KindFinalTest)
			require.NoError(t, err)
			assert.Equal(t, card, again, "repeated reads show the same card")

			item := byID[card.ItemID]
			expected := item.Answer
			if card.Direction == DirectionReverse {
				assert.Equal(t, item.Answer, card.Prompt)
				expected = item.Prompt
			} else {
				assert.Equal(t, DirectionTranslate, card.Direction)
				assert.Equal(t, item.Prompt, card.Prompt)
			}
			seen[card.Direction] = true

			res, err := s.Submit(domain.KindFinalTest, card.ItemID, expected)
			require.NoError(t, err)
			assert.True(t, res.Correct)
		}

		ov := s.Overview()
		assert.True(t, ov.FirstPass)
		assert.True(t, ov.AllCompleted)
		assert.Equal(t, queue.CategoryProgress{Completed: 3, Total: 3}, ov.Progress["dieren"])
		assert.Equal(t, queue.CategoryProgress{Completed: 3, Total: 3}, ov.Progress["eten"])
	}
	assert.Len(t, seen, 2, "both directions are drawn")
}

func TestFinalTestReviewFlow(t *testing.T) {
	m := newTestManager(nil)
	s, err := m.Open(context.Background(), "anna")
	require.NoError(t, err)

	assert.False(t, s.StartReview(), "nothing to review yet")

	var res Result
	for {
		card, ok, err := s.Card(domain.KindFinalTest)
		require.NoError(t, err)
		if !ok {
			break
		}
		res, err = s.Record(domain.KindFinalTest, card.ItemID, card.Category != "eten")
		require.NoError(t, err)
		require.True(t, res.Accepted)
	}
	assert.True(t, res.Done)
	assert.True(t, res.ReviewAvailable)

	ov := s.Overview()
	assert.True(t, ov.FirstPass)
	assert.True(t, ov.ReviewAvailable)
	assert.Len(t, ov.Incorrect, 3)
	assert.Equal(t, []string{"dieren", "eten"}, ov.Categories)

	require.True(t, s.StartReview())
	for {
		card, ok, err := s.Card(domain.KindFinalTest)
		require.NoError(t, err)
		if !ok {
			break
		}
		assert.True(t, card.Review)
		assert.Equal(t, "eten", card.Category)
		_, err = s.Record(domain.KindFinalTest, card.ItemID, true)
		require.NoError(t, err)
	}

	ov = s.Overview()
	assert.True(t, ov.Review)
	assert.True(t, ov.ReviewComplete)
	assert.True(t, ov.AllCompleted)
	assert.Equal(t, queue.CategoryProgress{Completed: 3, Total: 3}, ov.Progress["eten"])

	s.ExitReview()
	ov = s.Overview()
	assert.False(t, ov.Review)
	assert.True(t, ov.FirstPass)
}

func TestFinalTestSwitchCategory(t *testing.T) {
	m := newTestManager(nil)
	s, err := m.Open(context.Background(), "anna")
	require.NoError(t, err)

	err = s.SwitchCategory("sport")
	assert.True(t, errors.Is(err, ErrUnknownCategory))

	require.NoError(t, s.SwitchCategory("dieren"))
	for i := 0; i < 3; i++ {
		card, ok, err := s.Card(domain.KindFinalTest)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "dieren", card.Category)
		_, err = s.Record(domain.KindFinalTest, card.ItemID, true)
		require.NoError(t, err)
	}
	_, ok, err := s.Card(domain.KindFinalTest)
	require.NoError(t, err)
	assert.False(t, ok)

	ov := s.Overview()
	assert.Equal(t, "dieren", ov.Category)
	assert.Equal(t, 3, ov.Progress["eten"].Total, "totals cover every category")

	require.NoError(t, s.SwitchCategory(""))
	progress, err := s.Progress(domain.KindFinalTest)
	require.NoError(t, err)
	assert.Equal(t, 6, progress.Total)
}

func TestFlushAndClose(t *testing.T) {
	store := newMemoryStore()
	m := newTestManager(store)
	ctx := context.Background()
	s, err := m.Open(ctx, "anna")
	require.NoError(t, err)

	require.NoError(t, m.Flush(ctx))
	assert.Zero(t, store.saves, "nothing answered, nothing saved")

	card, _, err := s.Card(domain.KindVocabulary)
	require.NoError(t, err)
	_, err = s.Record(domain.KindVocabulary, card.ItemID, false)
	require.NoError(t, err)

	require.NoError(t, m.Flush(ctx))
	assert.Equal(t, 1, store.saves)
	saved := store.saved[storeKey("anna", domain.KindVocabulary)]
	assert.Equal(t, []string{card.ItemID}, saved.incorrect.IDs())

	require.NoError(t, m.Flush(ctx))
	assert.Equal(t, 1, store.saves, "clean sessions are skipped")

	// A new session resumes with the stored incorrect items.
	s2, err := m.Open(ctx, "anna")
	require.NoError(t, err)
	stats, err := s2.Statistics(domain.KindVocabulary)
	require.NoError(t, err)
	assert.True(t, stats.Incorrect.Has(card.ItemID))

	card2, _, err := s2.Card(domain.KindVocabulary)
	require.NoError(t, err)
	_, err = s2.Record(domain.KindVocabulary, card2.ItemID, true)
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx, s2.ID))
	assert.Equal(t, 2, store.saves, "close flushes")

	_, err = m.Get(s2.ID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, errors.Is(m.Close(ctx, s2.ID), ErrSessionNotFound))
}

func TestFlushKeepsDirtyOnFailure(t *testing.T) {
	store := newMemoryStore()
	m := newTestManager(store)
	ctx := context.Background()
	s, err := m.Open(ctx, "anna")
	require.NoError(t, err)

	card, _, err := s.Card(domain.KindVocabulary)
	require.NoError(t, err)
	_, err = s.Record(domain.KindVocabulary, card.ItemID, true)
	require.NoError(t, err)

	store.fail = errors.New("disk full")
	assert.Error(t, m.Flush(ctx))

	store.fail = nil
	require.NoError(t, m.Flush(ctx))
	assert.Equal(t, 1, store.saves)
}

func TestExpire(t *testing.T) {
	now := fixedNow
	m := NewManager(testLibrary(), nil, Options{Seed: 1, Now: func() time.Time { return now }})
	ctx := context.Background()
	_, err := m.Open(ctx, "anna")
	require.NoError(t, err)

	assert.Zero(t, m.Expire(ctx, time.Hour))
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, m.Expire(ctx, time.Hour))
	assert.Zero(t, m.Len())
}

func TestSetLibraryAffectsNewSessions(t *testing.T) {
	m := newTestManager(nil)
	ctx := context.Background()
	old, err := m.Open(ctx, "anna")
	require.NoError(t, err)

	lib := content.NewLibrary()
	lib.Add(domain.Item{ID: "x", Kind: domain.KindImperfectum, Prompt: "liep", Answer: "walked", Category: "sterk"})
	m.SetLibrary(lib)

	fresh, err := m.Open(ctx, "anna")
	require.NoError(t, err)
	_, ok, err := fresh.Card(domain.KindImperfectum)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = old.Card(domain.KindImperfectum)
	require.NoError(t, err)
	assert.False(t, ok, "open sessions keep their content")
}

package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/dutchdrill/internal/domain"
)

func TestEmbedded(t *testing.T) {
	lib, err := Embedded()
	require.NoError(t, err)

	for _, kind := range []domain.Kind{
		domain.KindVocabulary,
		domain.KindPerfectTense,
		domain.KindImperfectum,
		domain.KindConjunctions,
		domain.KindFinalTest,
	} {
		items := lib.Items(kind)
		assert.NotEmpty(t, items, kind)
		ids := map[string]bool{}
		for _, item := range items {
			assert.Equal(t, kind, item.Kind)
			assert.False(t, ids[item.ID], "duplicate id %s in %s", item.ID, kind)
			ids[item.ID] = true
		}
	}

	assert.Equal(t, []string{"dieren", "eten", "wonen"}, lib.Categories(domain.KindFinalTest))
	require.NotEmpty(t, lib.Exercises)
	assert.Len(t, lib.ExerciseItems()[:5], 5)
	assert.Equal(t, "dictee-1#1", lib.ExerciseItems()[0].ItemID())
}

func TestLibraryAddReplacesSameID(t *testing.T) {
	lib := NewLibrary()
	lib.Add(domain.Item{ID: "x", Kind: domain.KindVocabulary, Prompt: "oud"})
	lib.Add(domain.Item{ID: "y", Kind: domain.KindVocabulary, Prompt: "ander"})
	lib.Add(domain.Item{ID: "x", Kind: domain.KindVocabulary, Prompt: "nieuw"})

	items := lib.Items(domain.KindVocabulary)
	require.Len(t, items, 2)
	assert.Equal(t, "nieuw", items[0].Prompt)
	assert.Empty(t, lib.Items(domain.KindFinalTest))
}

func TestLoadExercisesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ex.yaml")
	doc := "exercises:\n  - id: a\n    type: plurals\n    questions:\n      - prompt: het boek\n        answer: de boeken\n"
	require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))

	exercises, err := LoadExercisesFile(p)
	require.NoError(t, err)
	require.Len(t, exercises, 1)
	assert.Equal(t, "de boeken", exercises[0].Questions[0].Answer)

	require.NoError(t, os.WriteFile(p, []byte("exercises:\n  - title: kapot\n"), 0o644))
	_, err = LoadExercisesFile(p)
	assert.Error(t, err)
}

func TestKindForFile(t *testing.T) {
	assert.Equal(t, domain.KindPerfectTense, KindForFile("decks/Perfect-Tense.md"))
	assert.Equal(t, domain.KindFinalTest, KindForFile("final-test.md"))
	assert.Equal(t, domain.KindVocabulary, KindForFile("week3.md"))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "week1.md"), []byte("ID: kat\nQ: de kat\nA: the cat\n---\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "conjunctions.md"), []byte("Q: omdat\nA: because\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("Q: ignored\nA: ignored\n"), 0o644))

	lib := NewLibrary()
	lib.Add(domain.Item{ID: "kat", Kind: domain.KindVocabulary, Prompt: "oud", Answer: "old"})

	added, errs := lib.LoadDir(dir)
	assert.Empty(t, errs)
	assert.Equal(t, 2, added)

	vocab := lib.Items(domain.KindVocabulary)
	require.Len(t, vocab, 1)
	assert.Equal(t, "de kat", vocab[0].Prompt, "directory decks override items with the same id")
	assert.Len(t, lib.Items(domain.KindConjunctions), 1)

	_, errs = lib.LoadDir(filepath.Join(dir, "missing"))
	assert.NotEmpty(t, errs)
}

package domain

import (
	"fmt"
	"time"
)

// Kind names a drill domain. Every item belongs to exactly one.
type Kind string

const (
	KindVocabulary   Kind = "vocabulary"
	KindPerfectTense Kind = "perfect-tense"
	KindImperfectum  Kind = "imperfectum"
	KindConjunctions Kind = "conjunctions"
	KindFinalTest    Kind = "final-test"
	KindTestExercise Kind = "test-exercise"
)

// Kinds lists every drill domain in menu order.
var Kinds = []Kind{
	KindVocabulary,
	KindPerfectTense,
	KindImperfectum,
	KindConjunctions,
	KindFinalTest,
	KindTestExercise,
}

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown drill kind %q", s)
}

// Item is a single prompt/answer entry from a deck.
type Item struct {
	ID       string
	Kind     Kind
	Prompt   string
	Answer   string
	Category string
	// Group is an optional sub-category inside Category.
	Group string
	// Note carries a translation or usage hint.
	Note string
}

// ItemID returns the stable id.
func (i Item) ItemID() string { return i.ID }

// GroupKey is the category, refined by the sub-category when one is set.
func (i Item) GroupKey() string {
	if i.Group == "" {
		return i.Category
	}
	return i.Category + "/" + i.Group
}

// CategoryOf returns the item's top-level category.
func CategoryOf(i Item) string { return i.Category }

// Question is one prompt inside an exercise.
type Question struct {
	Prompt string `koanf:"prompt"`
	Answer string `koanf:"answer"`
}

// Exercise is a structured test exercise that expands into one drill item
// per question.
type Exercise struct {
	ID        string     `koanf:"id"`
	Type      string     `koanf:"type"`
	Title     string     `koanf:"title"`
	Questions []Question `koanf:"questions"`
}

// ExerciseItem is a single question instance of an exercise.
type ExerciseItem struct {
	ExerciseID string
	Type       string
	Title      string
	Index      int
	Question
}

// ItemID returns "<exercise id>#<question number>".
func (e ExerciseItem) ItemID() string { return fmt.Sprintf("%s#%d", e.ExerciseID, e.Index+1) }

// GroupKey is the exercise type so that one type does not cluster.
func (e ExerciseItem) GroupKey() string { return e.Type }

// Expand returns one item per question.
func (e Exercise) Expand() []ExerciseItem {
	out := make([]ExerciseItem, 0, len(e.Questions))
	for i, q := range e.Questions {
		out = append(out, ExerciseItem{
			ExerciseID: e.ID,
			Type:       e.Type,
			Title:      e.Title,
			Index:      i,
			Question:   q,
		})
	}
	return out
}

// ExpandAll flattens a set of exercises.
func ExpandAll(exercises []Exercise) []ExerciseItem {
	var out []ExerciseItem
	for _, e := range exercises {
		out = append(out, e.Expand()...)
	}
	return out
}

// Attempt records one answer given by a learner.
type Attempt struct {
	Learner   string
	Kind      Kind
	ItemID    string
	Correct   bool
	Timestamp time.Time
}

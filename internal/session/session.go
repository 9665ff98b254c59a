package session

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/queue"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownKind     = errors.New("unknown drill kind")
	ErrUnknownCategory = errors.New("unknown category")
)

// Direction says which side of a final-test item is shown.
type Direction string

const (
	// DirectionTranslate shows the Dutch prompt and expects the answer.
	DirectionTranslate Direction = "translate"
	// DirectionReverse shows the answer and expects the Dutch prompt.
	DirectionReverse Direction = "reverse"
)

// Card is the question currently shown for a kind.
type Card struct {
	ItemID    string         `json:"item_id"`
	Kind      domain.Kind    `json:"kind"`
	Prompt    string         `json:"prompt"`
	Category  string         `json:"category,omitempty"`
	Group     string         `json:"group,omitempty"`
	Note      string         `json:"note,omitempty"`
	Direction Direction      `json:"direction,omitempty"`
	Review    bool           `json:"review,omitempty"`
	Progress  queue.Progress `json:"progress"`
}

// Result is the outcome of one submitted answer.
type Result struct {
	// Accepted is false when the answer was for an item that is not current.
	Accepted bool           `json:"accepted"`
	Correct  bool           `json:"correct"`
	Expected string         `json:"expected,omitempty"`
	Progress queue.Progress `json:"progress"`
	Done     bool           `json:"done"`
	// ReviewAvailable is set on the final test once the first pass is over
	// and some items are still wrong.
	ReviewAvailable bool `json:"review_available,omitempty"`
}

// FinalTestOverview summarizes the final test for a menu screen.
type FinalTestOverview struct {
	Category        string                            `json:"category"`
	Categories      []string                          `json:"categories"`
	Progress        map[string]queue.CategoryProgress `json:"progress"`
	FirstPass       bool                              `json:"first_pass"`
	Review          bool                              `json:"review"`
	ReviewAvailable bool                              `json:"review_available"`
	ReviewComplete  bool                              `json:"review_complete"`
	AllCompleted    bool                              `json:"all_completed"`
	Incorrect       []string                          `json:"incorrect"`
}

// Session is one learner's set of drills, one controller per kind.
type Session struct {
	ID      string
	Learner string
	Created time.Time

	mu         sync.Mutex
	drills     map[domain.Kind]drill
	final      *queue.FinalTest[domain.Item]
	categories []string
	directions map[string]Direction
	dirty      map[domain.Kind]int
	attempts   []domain.Attempt
	rnd        queue.Rand
	now        func() time.Time
	logger     *slog.Logger
	lastActive time.Time
}

func (s *Session) drill(kind domain.Kind) (drill, error) {
	d, ok := s.drills[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return d, nil
}

// Card returns the current question for kind. ok is false once a bounded
// drill has run out.
func (s *Session) Card(kind domain.Kind) (card Card, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.now()

	d, err := s.drill(kind)
	if err != nil {
		return Card{}, false, err
	}
	e, ok := d.current()
	if !ok {
		return Card{Kind: kind, Progress: d.Progress()}, false, nil
	}

	card = Card{
		ItemID:   e.id,
		Kind:     kind,
		Prompt:   e.prompt,
		Category: e.category,
		Group:    e.group,
		Note:     e.note,
		Progress: d.Progress(),
	}
	if kind == domain.KindFinalTest {
		card.Direction = s.directionLocked(e.id)
		if card.Direction == DirectionReverse {
			card.Prompt = e.answer
			card.Note = ""
		}
		card.Review = s.final.IsReviewMode()
	}
	return card, true, nil
}

// directionLocked draws a direction the first time id is shown and keeps it
// until the item is answered.
func (s *Session) directionLocked(id string) Direction {
	if dir, ok := s.directions[id]; ok {
		return dir
	}
	dir := DirectionTranslate
	if s.rnd.Intn(2) == 1 {
		dir = DirectionReverse
	}
	s.directions[id] = dir
	return dir
}

// Submit checks response against the current item of kind and advances.
func (s *Session) Submit(kind domain.Kind, itemID, response string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.drill(kind)
	if err != nil {
		return Result{}, err
	}
	e, ok := d.current()
	if !ok || e.id != itemID {
		return s.resultLocked(kind, d, Result{}), nil
	}

	expected := e.answer
	if kind == domain.KindFinalTest && s.directionLocked(e.id) == DirectionReverse {
		expected = e.prompt
	}
	correct := CheckAnswer(response, expected)
	return s.answerLocked(kind, d, itemID, correct, expected), nil
}

// Record advances kind with a verdict decided by the caller.
func (s *Session) Record(kind domain.Kind, itemID string, correct bool) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.drill(kind)
	if err != nil {
		return Result{}, err
	}
	e, ok := d.current()
	if !ok || e.id != itemID {
		return s.resultLocked(kind, d, Result{}), nil
	}
	return s.answerLocked(kind, d, itemID, correct, e.answer), nil
}

func (s *Session) answerLocked(kind domain.Kind, d drill, itemID string, correct bool, expected string) Result {
	s.lastActive = s.now()
	if !d.MoveToNext(itemID, correct) {
		return s.resultLocked(kind, d, Result{})
	}
	delete(s.directions, itemID)
	s.dirty[kind]++
	s.attempts = append(s.attempts, domain.Attempt{
		Learner:   s.Learner,
		Kind:      kind,
		ItemID:    itemID,
		Correct:   correct,
		Timestamp: s.lastActive,
	})
	s.logger.Debug("answer recorded", "session", s.ID, "kind", kind, "item", itemID, "correct", correct)

	return s.resultLocked(kind, d, Result{Accepted: true, Correct: correct, Expected: expected})
}

func (s *Session) resultLocked(kind domain.Kind, d drill, r Result) Result {
	r.Progress = d.Progress()
	r.Done = !d.HasMore()
	if kind == domain.KindFinalTest {
		r.ReviewAvailable = s.final.ShouldShowReviewMode()
	}
	return r
}

// Progress returns the position in kind's queue.
func (s *Session) Progress(kind domain.Kind) (queue.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.drill(kind)
	if err != nil {
		return queue.Progress{}, err
	}
	return d.Progress(), nil
}

// Statistics returns kind's controller statistics.
func (s *Session) Statistics(kind domain.Kind) (queue.Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.drill(kind)
	if err != nil {
		return queue.Statistics{}, err
	}
	return d.Statistics(), nil
}

// Attempts returns every answer accepted in this session, oldest first.
func (s *Session) Attempts() []domain.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.attempts)
}

// StartReview switches the final test into review mode over the items still
// answered wrong. It reports false when there is nothing to review.
func (s *Session) StartReview() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.final.StartReviewMode() {
		return false
	}
	clear(s.directions)
	s.dirty[domain.KindFinalTest]++
	return true
}

// ExitReview leaves review mode and restarts the active category.
func (s *Session) ExitReview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.final.ExitReviewMode(nil, s.final.Category())
	clear(s.directions)
}

// SwitchCategory restricts the final test to category; "" means all.
func (s *Session) SwitchCategory(category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category != "" && !slices.Contains(s.categories, category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	s.final.SwitchCategory(nil, category, nil)
	clear(s.directions)
	return nil
}

// Overview summarizes final-test progress.
func (s *Session) Overview() FinalTestOverview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FinalTestOverview{
		Category:        s.final.Category(),
		Categories:      slices.Clone(s.categories),
		Progress:        s.final.CategoryProgress(),
		FirstPass:       s.final.CompletedFirstPass(),
		Review:          s.final.IsReviewMode(),
		ReviewAvailable: s.final.ShouldShowReviewMode(),
		ReviewComplete:  s.final.ReviewComplete(),
		AllCompleted:    s.final.AllCategoriesCompleted(),
		Incorrect:       s.final.Incorrect().IDs(),
	}
}

// pending is a snapshot of unsaved progress for one kind.
type pending struct {
	kind  domain.Kind
	gen   int
	stats queue.Statistics
}

// dirtyKinds snapshots the kinds with unsaved answers.
func (s *Session) dirtyKinds() []pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pending, 0, len(s.dirty))
	for kind, gen := range s.dirty {
		out = append(out, pending{kind: kind, gen: gen, stats: s.drills[kind].Statistics()})
	}
	return out
}

// markClean clears the dirty flag unless kind changed after the snapshot.
func (s *Session) markClean(p pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty[p.kind] == p.gen {
		delete(s.dirty, p.kind)
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

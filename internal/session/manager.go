package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/dutchdrill/internal/content"
	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/queue"
)

// Store persists learner progress. *storage.DB implements it.
type Store interface {
	LoadIncorrect(ctx context.Context, learner string, kind domain.Kind) (queue.IncorrectMap, error)
	SaveProgress(ctx context.Context, learner string, kind domain.Kind, incorrect queue.IncorrectMap, completed []string) error
}

// QueueOptions tune every controller a manager creates. Zero values keep
// the queue defaults; Bias set to queue.NoBias disables the incorrect-item
// preference of the test exercises.
type QueueOptions struct {
	Window      int
	GroupWindow int
	Lookahead   int
	Bias        float64
	Recent      int
}

type Options struct {
	Queue QueueOptions
	// Seed fixes the random source of new sessions; zero seeds from the clock.
	Seed   int64
	Now    func() time.Time
	Logger *slog.Logger
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	lib    *content.Library
	store  Store
	opts   Options
	logger *slog.Logger
}

// NewManager returns a manager drawing items from lib. store may be nil, in
// which case progress lives only as long as the session.
func NewManager(lib *content.Library, store Store, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		lib:      lib,
		store:    store,
		opts:     opts,
		logger:   opts.Logger,
	}
}

func (m *Manager) queueOptions(rnd queue.Rand) queue.Options {
	q := m.opts.Queue
	return queue.Options{
		Window:         q.Window,
		GroupWindow:    q.GroupWindow,
		Lookahead:      q.Lookahead,
		Bias:           q.Bias,
		RecentCapacity: q.Recent,
		Rand:           rnd,
		Now:            m.opts.Now,
		Logger:         m.logger,
	}
}

func (m *Manager) loadIncorrect(ctx context.Context, learner string, kind domain.Kind) (queue.IncorrectMap, error) {
	if m.store == nil {
		return queue.IncorrectMap{}, nil
	}
	incorrect, err := m.store.LoadIncorrect(ctx, learner, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress for %s: %w", kind, err)
	}
	return incorrect, nil
}

// SetLibrary replaces the content used by sessions opened from now on.
func (m *Manager) SetLibrary(lib *content.Library) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lib = lib
}

func (m *Manager) library() *content.Library {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lib
}

// Open starts a session for learner with every drill initialized from the
// library and the learner's stored incorrect items.
func (m *Manager) Open(ctx context.Context, learner string) (*Session, error) {
	var rnd queue.Rand
	if m.opts.Seed != 0 {
		rnd = queue.NewRand(m.opts.Seed)
	} else {
		rnd = queue.DefaultRand()
	}
	now := m.opts.Now()
	lib := m.library()

	s := &Session{
		ID:         uuid.NewString(),
		Learner:    learner,
		Created:    now,
		drills:     make(map[domain.Kind]drill),
		directions: make(map[string]Direction),
		dirty:      make(map[domain.Kind]int),
		rnd:        rnd,
		now:        m.opts.Now,
		logger:     m.logger,
		lastActive: now,
	}

	cycling := []struct {
		kind domain.Kind
		build func(queue.Options) *queue.Controller[domain.Item]
	}{
		{domain.KindVocabulary, queue.NewVocabulary[domain.Item]},
		{domain.KindPerfectTense, queue.NewPerfectTense[domain.Item]},
		{domain.KindImperfectum, queue.NewImperfectum[domain.Item]},
		{domain.KindConjunctions, queue.NewConjunctions[domain.Item]},
	}
	for _, d := range cycling {
		incorrect, err := m.loadIncorrect(ctx, learner, d.kind)
		if err != nil {
			return nil, err
		}
		c := d.build(m.queueOptions(rnd))
		c.Initialize(lib.Items(d.kind), incorrect, 0)
		s.drills[d.kind] = adapter[domain.Item]{controller: c, view: itemEntry}
	}

	incorrect, err := m.loadIncorrect(ctx, learner, domain.KindTestExercise)
	if err != nil {
		return nil, err
	}
	exercises := queue.NewTestExercise[domain.ExerciseItem](m.queueOptions(rnd))
	exercises.Initialize(lib.ExerciseItems(), incorrect, 0)
	s.drills[domain.KindTestExercise] = adapter[domain.ExerciseItem]{controller: exercises, view: exerciseEntry}

	incorrect, err = m.loadIncorrect(ctx, learner, domain.KindFinalTest)
	if err != nil {
		return nil, err
	}
	finalOpts := m.queueOptions(rnd)
	finalOpts.Bias = 1
	s.final = queue.NewFinalTest[domain.Item](domain.CategoryOf, finalOpts)
	s.final.Initialize(lib.Items(domain.KindFinalTest), incorrect, 0)
	s.categories = lib.Categories(domain.KindFinalTest)
	s.drills[domain.KindFinalTest] = adapter[domain.Item]{controller: s.final, view: itemEntry}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("session opened", "session", s.ID, "learner", learner)
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close flushes and forgets the session with id.
func (m *Manager) Close(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := m.flushSession(ctx, s); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	m.logger.Info("session closed", "session", id)
	return nil
}

// Flush saves the unsaved progress of every session.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	var errs []error
	for _, s := range sessions {
		if err := m.flushSession(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) flushSession(ctx context.Context, s *Session) error {
	if m.store == nil {
		return nil
	}
	var errs []error
	for _, p := range s.dirtyKinds() {
		if err := m.store.SaveProgress(ctx, s.Learner, p.kind, p.stats.Incorrect, p.stats.Completed); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
			continue
		}
		s.markClean(p)
		m.logger.Debug("progress saved", "session", s.ID, "kind", p.kind,
			"incorrect", len(p.stats.Incorrect), "completed", len(p.stats.Completed))
	}
	return errors.Join(errs...)
}

// Expire flushes and drops sessions idle for longer than ttl.
func (m *Manager) Expire(ctx context.Context, ttl time.Duration) int {
	cutoff := m.opts.Now().Add(-ttl)
	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	var closed int
	for _, id := range stale {
		if err := m.Close(ctx, id); err != nil {
			m.logger.Warn("failed to expire session", "session", id, "error", err)
			continue
		}
		closed++
	}
	return closed
}

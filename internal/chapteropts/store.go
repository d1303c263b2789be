// Package chapteropts keeps the filter and sort configuration of chapter
// collections. Each collection key owns one configuration, changed only
// through actions and persisted on every change.
package chapteropts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bunchhieng/chapterlist/internal/model"
)

// Backend persists configurations by collection key.
type Backend interface {
	// LoadOptions returns model.ErrNotFound when nothing is stored under key.
	LoadOptions(ctx context.Context, key string) (*model.ChapterListOptions, error)

	// SaveOptions stores opts under key, replacing any previous value.
	SaveOptions(ctx context.Context, key string, opts model.ChapterListOptions) error
}

// Dispatch applies an action to the configuration it was obtained for and
// returns the new configuration.
type Dispatch func(Action) (model.ChapterListOptions, error)

// Store serves chapter list configurations keyed by collection.
type Store struct {
	backend Backend
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	subs    map[string]map[int]func(model.ChapterListOptions)
	nextSub int

	// pending holds committed configurations not yet delivered to
	// subscribers; draining marks keys with a goroutine delivering them.
	pending  map[string][]model.ChapterListOptions
	draining map[string]bool
}

type entry struct {
	opts model.ChapterListOptions
	// detached entries live in memory only after the backend failed once
	detached bool
}

// NewStore creates a Store on top of backend. A nil logger disables logging.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		logger:  logger,
		entries:  make(map[string]*entry),
		subs:     make(map[string]map[int]func(model.ChapterListOptions)),
		pending:  make(map[string][]model.ChapterListOptions),
		draining: make(map[string]bool),
	}
}

// Use returns the current configuration for key together with a dispatch
// function bound to key.
func (s *Store) Use(ctx context.Context, key string) (model.ChapterListOptions, Dispatch) {
	opts := s.Get(ctx, key)
	return opts, func(a Action) (model.ChapterListOptions, error) {
		return s.Dispatch(ctx, key, a)
	}
}

// Get returns the configuration for key. A key seen for the first time is
// initialized with the defaults, which are saved right away.
func (s *Store) Get(ctx context.Context, key string) model.ChapterListOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entryLocked(ctx, key).opts
}

// Dispatch reduces action into the configuration for key, persists the
// result and notifies subscribers. On model.ErrInvalidAction nothing changes.
func (s *Store) Dispatch(ctx context.Context, key string, action Action) (model.ChapterListOptions, error) {
	return s.DispatchFunc(ctx, key, func(model.ChapterListOptions) Action { return action })
}

// DispatchFunc is Dispatch with the action built from the configuration it
// will be applied to. fn runs with the store locked and must not use the Store.
func (s *Store) DispatchFunc(ctx context.Context, key string, fn func(current model.ChapterListOptions) Action) (model.ChapterListOptions, error) {
	s.mu.Lock()
	e := s.entryLocked(ctx, key)
	action := fn(e.opts)
	next, err := Reduce(e.opts, action)
	if err != nil {
		current := e.opts
		s.mu.Unlock()
		return current, err
	}
	s.logger.Debug("Dispatch chapter options action",
		zap.String("key", key),
		zap.String("action", fmt.Sprintf("%T", action)))
	s.commitLocked(ctx, key, e, next)
	drain := s.enqueueLocked(key, next)
	s.mu.Unlock()

	if drain {
		s.drain(key)
	}
	return next, nil
}

// Set replaces the configuration for key.
func (s *Store) Set(ctx context.Context, key string, opts model.ChapterListOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	e := s.entryLocked(ctx, key)
	s.commitLocked(ctx, key, e, opts)
	drain := s.enqueueLocked(key, opts)
	s.mu.Unlock()

	if drain {
		s.drain(key)
	}
	return nil
}

// Reset clears every filter dimension of key by dispatching one Filter action
// per dimension.
func (s *Store) Reset(ctx context.Context, key string) (model.ChapterListOptions, error) {
	var opts model.ChapterListOptions
	for _, ft := range []FilterType{FilterUnread, FilterDownloaded, FilterBookmarked} {
		var err error
		opts, err = s.Dispatch(ctx, key, Filter{Type: ft, Value: model.TriUnset})
		if err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// Forget drops the cached configuration of key so that the next access
// reloads it from the backend. Subscriptions are kept.
func (s *Store) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Subscribe registers fn to receive every new configuration of key. The
// returned function cancels the subscription.
//
// Configurations of one key reach subscribers one at a time in the order
// they were committed. A change made while another goroutine is notifying
// is delivered by that goroutine after the earlier ones, so the call that
// made it may return first.
func (s *Store) Subscribe(key string, fn func(model.ChapterListOptions)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]func(model.ChapterListOptions))
	}
	s.subs[key][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[key], id)
		if len(s.subs[key]) == 0 {
			delete(s.subs, key)
		}
	}
}

func (s *Store) entryLocked(ctx context.Context, key string) *entry {
	if e, ok := s.entries[key]; ok {
		return e
	}

	e := &entry{opts: model.DefaultChapterListOptions()}
	s.entries[key] = e

	stored, err := s.backend.LoadOptions(ctx, key)
	switch {
	case err == nil:
		if verr := stored.Validate(); verr != nil {
			s.logger.Warn("Discarding stored chapter options",
				zap.String("key", key), zap.Error(verr))
			s.save(ctx, key, e)
			return e
		}
		e.opts = *stored
	case errors.Is(err, model.ErrNotFound):
		s.save(ctx, key, e)
	default:
		s.logger.Warn("Chapter options storage unavailable, using defaults for this session",
			zap.String("key", key), zap.Error(err))
		e.detached = true
	}
	return e
}

func (s *Store) commitLocked(ctx context.Context, key string, e *entry, opts model.ChapterListOptions) {
	e.opts = opts
	s.save(ctx, key, e)
}

func (s *Store) save(ctx context.Context, key string, e *entry) {
	if e.detached {
		return
	}
	if err := s.backend.SaveOptions(ctx, key, e.opts); err != nil {
		s.logger.Warn("Saving chapter options failed, keeping them in memory for this session",
			zap.String("key", key), zap.Error(err))
		e.detached = true
	}
}

// enqueueLocked queues opts for the subscribers of key and reports whether
// the caller has to deliver the queue.
func (s *Store) enqueueLocked(key string, opts model.ChapterListOptions) bool {
	if len(s.subs[key]) == 0 && !s.draining[key] {
		return false
	}
	s.pending[key] = append(s.pending[key], opts)
	if s.draining[key] {
		return false
	}
	s.draining[key] = true
	return true
}

// drain delivers queued configurations of key until none are left.
func (s *Store) drain(key string) {
	for {
		s.mu.Lock()
		queue := s.pending[key]
		if len(queue) == 0 {
			delete(s.pending, key)
			delete(s.draining, key)
			s.mu.Unlock()
			return
		}
		s.pending[key] = nil
		subs := s.subscribersLocked(key)
		s.mu.Unlock()

		for _, opts := range queue {
			notify(subs, opts)
		}
	}
}

func (s *Store) subscribersLocked(key string) []func(model.ChapterListOptions) {
	subs := make([]func(model.ChapterListOptions), 0, len(s.subs[key]))
	for _, fn := range s.subs[key] {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(model.ChapterListOptions), opts model.ChapterListOptions) {
	for _, fn := range subs {
		fn(opts)
	}
}

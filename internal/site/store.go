package site

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultIdleTTL       = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

// Factory creates the controller for a new session.
type Factory func() *Controller

type storeEntry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Store keeps one controller per session and evicts idle sessions.
type Store struct {
	factory  Factory
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[string]*storeEntry

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithIdleTTL sets how long an untouched session is kept.
func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithSweepInterval sets how often the janitor runs.
func WithSweepInterval(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLogger sets the janitor logger.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore builds a store that creates controllers with factory.
func NewStore(factory Factory, opts ...StoreOption) *Store {
	s := &Store{
		factory:  factory,
		ttl:      defaultIdleTTL,
		interval: defaultSweepInterval,
		now:      time.Now,
		logger:   zap.NewNop(),
		entries:  map[string]*storeEntry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the controller for id, creating it on first access.
func (s *Store) Get(id string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[id]; ok {
		e.lastSeen = now
		return e.ctrl
	}
	e := &storeEntry{ctrl: s.factory(), lastSeen: now}
	s.entries[id] = e
	return e.ctrl
}

// Peek returns the controller for id without registering a new one. Unknown
// sessions get a fresh controller that is discarded after use, so read-only
// visitors never occupy the store.
func (s *Store) Peek(id string) *Controller {
	s.mu.Lock()
	if e, ok := s.entries[id]; ok {
		e.lastSeen = s.now()
		s.mu.Unlock()
		return e.ctrl
	}
	s.mu.Unlock()
	return s.factory()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts sessions idle longer than the TTL. Sessions with a submission
// in flight are kept.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for id, e := range s.entries {
		if e.lastSeen.After(cutoff) || e.ctrl.Status() == StatusSending {
			continue
		}
		delete(s.entries, id)
		evicted++
	}
	return evicted
}

// Start runs the janitor until ctx is done or Stop is called.
func (s *Store) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.janitor(ctx, s.stopCh, s.doneCh)
}

// Stop halts the janitor and waits for it to exit.
func (s *Store) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.runMu.Unlock()

	close(stopCh)
	<-doneCh
}

func (s *Store) janitor(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

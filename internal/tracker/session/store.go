package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"application-tracker/internal/common/logger"
)

type entry struct {
	view     *View
	lastSeen time.Time
}

// Store keeps one View per visitor in memory. Views idle for longer than the
// configured timeout are removed by Sweep.
type Store struct {
	mu          sync.Mutex
	views       map[string]*entry
	idleTimeout time.Duration
	logger      logger.Logger
	now         func() time.Time

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewStore(idleTimeout time.Duration, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{
		views:       make(map[string]*entry),
		idleTimeout: idleTimeout,
		logger:      log,
		now:         time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Acquire returns the view for id, creating a fresh one under a new id when
// id is empty or unknown.
func (s *Store) Acquire(id string) (string, *View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.views[id]; ok && id != "" {
		e.lastSeen = s.now()
		return id, e.view
	}

	id = uuid.NewString()
	view := NewView()
	s.views[id] = &entry{view: view, lastSeen: s.now()}
	return id, view
}

// Lookup returns the view for id without creating one.
func (s *Store) Lookup(id string) (*View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.views[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.view, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Sweep drops views idle for longer than the timeout and reports how many
// were removed. Their in-flight searches are abandoned.
func (s *Store) Sweep() int {
	s.mu.Lock()
	cutoff := s.now().Add(-s.idleTimeout)
	var expired []*View
	for id, e := range s.views {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.view)
			delete(s.views, id)
		}
	}
	s.mu.Unlock()

	for _, v := range expired {
		v.Reset()
	}
	return len(expired)
}

// Start sweeps every interval until ctx is done or Stop is called. Only the
// first call starts the loop; a non-positive interval leaves sweeping off.
func (s *Store) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Warn("Session sweep disabled", map[string]interface{}{
			"interval": interval.String(),
		})
		return
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug("Expired idle sessions", map[string]interface{}{
						"expired":   n,
						"remaining": s.Len(),
					})
				}
			}
		}
	}()
}

// Stop ends the sweep loop started by Start and waits for it to exit.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.done
		}
	})
}

// Package session caches authenticated platform sessions keyed by credential
// pair. It owns the riskiest concurrency in the gateway: the platform rotates
// access and refresh credentials independently and asynchronously, and the
// store must keep every live session reachable from exactly one current key
// while requests race the rotation notifications.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/squarewire/squarewire/internal/metrics"
	"github.com/squarewire/squarewire/internal/platform"
)

// entry maps one credential pair to one live session. key tracks the
// entry's current position in the table and is only read or written under
// the store mutex.
type entry struct {
	key     Pair
	session platform.Session
	done    chan struct{}
}

// Store maps credential pairs to live platform sessions. At most one live
// session exists per distinct pair; concurrent first acquires for the same
// pair collapse into a single login.
type Store struct {
	auth   platform.Authenticator
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[Pair]*entry

	group singleflight.Group
}

// NewStore creates a session store backed by the given authenticator.
func NewStore(auth platform.Authenticator, logger zerolog.Logger) *Store {
	return &Store{
		auth:    auth,
		logger:  logger,
		entries: make(map[Pair]*entry),
	}
}

// Acquire returns the live session for pair, logging in on first use.
// An existing entry is returned unchanged; no new login is issued. Login
// failures are propagated and nothing is cached for the pair.
func (s *Store) Acquire(ctx context.Context, pair Pair) (platform.Session, error) {
	s.mu.Lock()
	if e, ok := s.entries[pair]; ok {
		s.mu.Unlock()
		return e.session, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(pair.key(), func() (any, error) {
		// A rotation or a concurrent Acquire may have inserted the entry
		// between the fast path and here.
		s.mu.Lock()
		if e, ok := s.entries[pair]; ok {
			s.mu.Unlock()
			return e.session, nil
		}
		s.mu.Unlock()

		sess, err := s.auth.Login(ctx, pair.Access, pair.Refresh)
		if err != nil {
			metrics.LoginFailures.Inc()
			return nil, err
		}
		metrics.Logins.WithLabelValues(loginMode(pair)).Inc()

		e := &entry{key: pair, session: sess, done: make(chan struct{})}
		s.mu.Lock()
		if cur, ok := s.entries[pair]; ok {
			// An access rotation re-keyed a live session onto this pair
			// while the login was in flight. That session stays; the fresh
			// one is surplus and must not shadow it.
			s.mu.Unlock()
			sess.Close()
			return cur.session, nil
		}
		s.entries[pair] = e
		s.mu.Unlock()
		metrics.ActiveSessions.Inc()

		go s.watch(e)
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(platform.Session), nil
}

// Lookup returns the live session for pair without logging in.
func (s *Store) Lookup(pair Pair) (platform.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[pair]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Invalidate evicts the entry owning sess, wherever its key has rotated to.
// Called when the platform reports an authentication failure through the
// handle; the next Acquire for the credential issues a fresh login.
func (s *Store) Invalidate(sess platform.Session) {
	s.mu.Lock()
	var victim *entry
	for _, e := range s.entries {
		if e.session == sess {
			victim = e
			break
		}
	}
	if victim != nil {
		delete(s.entries, victim.key)
	}
	s.mu.Unlock()

	if victim != nil {
		close(victim.done)
		victim.session.Close()
		metrics.ActiveSessions.Dec()
		metrics.SessionEvictions.Inc()
		s.logger.Info().Msg("session evicted after auth failure")
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close evicts every entry and stops the rotation watchers.
func (s *Store) Close() {
	s.mu.Lock()
	victims := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		victims = append(victims, e)
	}
	s.entries = make(map[Pair]*entry)
	s.mu.Unlock()

	for _, e := range victims {
		close(e.done)
		e.session.Close()
		metrics.ActiveSessions.Dec()
	}
}

// watch consumes both rotation channels of one session for the life of its
// entry. Access rotations re-key the entry; refresh rotations leave the key
// untouched because the session handle already carries the new value, so a
// client presenting the old access credential still finds the live handle.
func (s *Store) watch(e *entry) {
	for {
		select {
		case newAccess, ok := <-e.session.AccessRotations():
			if !ok {
				return
			}
			s.rekey(e, newAccess)
		case _, ok := <-e.session.RefreshRotations():
			if !ok {
				return
			}
			metrics.TokenRotations.WithLabelValues("refresh").Inc()
		case <-e.done:
			return
		}
	}
}

// rekey atomically moves e from its pre-rotation key to
// {newAccess, same refresh}. The old key is removed in the same critical
// section, so no session is ever reachable from two keys.
func (s *Store) rekey(e *entry, newAccess string) {
	s.mu.Lock()
	cur, ok := s.entries[e.key]
	if !ok || cur != e {
		// Entry was evicted while the notification was in flight.
		s.mu.Unlock()
		return
	}
	delete(s.entries, e.key)
	old := e.key
	e.key = Pair{Access: newAccess, Refresh: old.Refresh}
	// A colliding entry under the rotated key is stale: the platform just
	// vouched for this session under that credential. Displace it.
	displaced := s.entries[e.key]
	s.entries[e.key] = e
	s.mu.Unlock()

	if displaced != nil {
		close(displaced.done)
		displaced.session.Close()
		metrics.ActiveSessions.Dec()
		metrics.SessionEvictions.Inc()
	}
	metrics.TokenRotations.WithLabelValues("access").Inc()
	s.logger.Debug().Msg("session re-keyed after access rotation")
}

func loginMode(pair Pair) string {
	if pair.HasRefresh() {
		return "refresh"
	}
	return "access"
}

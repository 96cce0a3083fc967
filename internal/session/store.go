package session

import (
	"context"
	"sync"
	"time"
)

type Options struct {
	RecentTurns int
	Summarizer  Summarizer
	IdleTTL     time.Duration
	Now         func() time.Time
}

// Store maps session ids to conversation memories. Lock serializes the
// turns of one session; different sessions never wait on each other.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Memory
	locks    map[string]*keyLock
	opts     Options
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewStore(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		sessions: make(map[string]*Memory),
		locks:    make(map[string]*keyLock),
		opts:     opts,
	}
}

// GetOrCreate returns the memory registered for id, creating an empty one
// when none exists. The boolean reports whether a memory was created.
func (s *Store) GetOrCreate(id string) (*Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if memory, ok := s.sessions[id]; ok {
		memory.touch()
		return memory, false
	}
	memory := newMemory(s.opts.RecentTurns, s.opts.Summarizer, s.opts.Now)
	s.sessions[id] = memory
	return memory, true
}

func (s *Store) Lookup(id string) (*Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	memory, ok := s.sessions[id]
	return memory, ok
}

// Close drops the memory for id. Closing an unknown id is a no-op.
func (s *Store) Close(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Lock acquires the per-session lock for id and returns its release
// function. Calling the release function more than once is safe.
func (s *Store) Lock(id string) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &keyLock{}
		s.locks[id] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()
			s.mu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(s.locks, id)
			}
			s.mu.Unlock()
		})
	}
}

// Sweep drops sessions idle for longer than the configured TTL and returns
// their ids. Sessions with a turn in flight are kept.
func (s *Store) Sweep(now time.Time) []string {
	if s.opts.IdleTTL <= 0 {
		return nil
	}
	cutoff := now.Add(-s.opts.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []string
	for id, memory := range s.sessions {
		if _, busy := s.locks[id]; busy {
			continue
		}
		if memory.LastActive().Before(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, onSweep func(expired []string)) {
	if s.opts.IdleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired := s.Sweep(s.opts.Now())
			if len(expired) > 0 && onSweep != nil {
				onSweep(expired)
			}
		}
	}
}

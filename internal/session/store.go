// Package session keeps one in-memory calendar per browser session.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"daycal/internal/clock"
	appLog "daycal/internal/log"
	"daycal/internal/state"
)

// Factory builds the initial state of a new session.
type Factory func() *state.Calendar

// Session is one browser session. All access to its calendar goes through
// Do, which serializes handlers the way a UI event queue would.
type Session struct {
	ID string

	mu       sync.Mutex
	cal      *state.Calendar
	lastSeen atomic.Int64 // unix nanos
}

// Do runs fn with exclusive access to the session's calendar.
func (s *Session) Do(fn func(c *state.Calendar)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cal)
}

// LastSeen is the time of the most recent lookup.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(t time.Time) {
	s.lastSeen.Store(t.UnixNano())
}

// Store maps session ids to sessions.
type Store struct {
	newState Factory
	clock    clock.Clock
	limit    int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store. newState is called once per new session.
// limit caps the number of live sessions; zero or less means unbounded.
func NewStore(newState Factory, clk clock.Clock, limit int) *Store {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Store{
		newState: newState,
		clock:    clk,
		limit:    limit,
		sessions: make(map[string]*Session),
	}
}

// Get looks up an existing session and refreshes its idle timer.
func (st *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.touch(st.clock.Now())
	}
	return s, ok
}

// Create starts a new session with a random id.
func (st *Store) Create() *Session {
	s := &Session{
		ID:  uuid.NewString(),
		cal: st.newState(),
	}
	s.touch(st.clock.Now())

	st.mu.Lock()
	evicted := ""
	if st.limit > 0 && len(st.sessions) >= st.limit {
		evicted = st.evictOldestLocked()
	}
	st.sessions[s.ID] = s
	n := len(st.sessions)
	st.mu.Unlock()

	if evicted != "" {
		appLog.Debug("session evicted", "id", evicted, "limit", st.limit)
	}
	appLog.Debug("session created", "id", s.ID, "active", n)
	return s
}

// evictOldestLocked drops the least recently seen session. st.mu must be held.
func (st *Store) evictOldestLocked() string {
	var (
		oldest string
		seen   int64
	)
	for id, s := range st.sessions {
		if t := s.lastSeen.Load(); oldest == "" || t < seen {
			oldest, seen = id, t
		}
	}
	if oldest != "" {
		delete(st.sessions, oldest)
	}
	return oldest
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// unknown (for example after it expired). created reports the latter.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := st.Get(id); ok {
		return s, false
	}
	return st.Create(), true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions not seen for longer than idle and returns how many
// were removed.
func (st *Store) Sweep(idle time.Duration) int {
	cutoff := st.clock.Now().Add(-idle)

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper schedules Sweep with a cron spec (e.g. "@every 5m" or
// "*/10 * * * *"). The caller must Stop the returned scheduler.
func (st *Store) StartSweeper(spec string, idle time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := st.Sweep(idle); n > 0 {
			appLog.Info("expired idle sessions", "removed", n, "active", st.Len())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("session: invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("session sweeper started", "schedule", spec, "idle", idle.String())
	return c, nil
}

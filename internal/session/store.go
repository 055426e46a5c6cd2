// Package session implements the per-conversation state store for mealmind.
// Sessions expire after a period of inactivity, checked lazily on access and
// swept periodically in the background.
package session

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"mealmind/internal/logger"
	"mealmind/internal/testutils"
	"mealmind/pkg/mealtypes"
)

const (
	// DefaultTimeout is how long a session survives without being accessed.
	DefaultTimeout = time.Hour
	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = 5 * time.Minute
	// MaxHistory caps the conversation history per session; oldest entries
	// are evicted first.
	MaxHistory = 50
)

// entry pairs a session with its own mutex so turns on different sessions
// never block each other. The store-level mutex only guards the map itself.
type entry struct {
	mu   sync.Mutex
	sess *mealtypes.Session
}

// Store holds all live sessions. Access to a single session id is serialized;
// no cross-session locking is held while a turn runs.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	timeout    time.Duration
	sweepEvery time.Duration
	now        func() time.Time
	testMode   mealtypes.TestModeProvider

	logger   *log.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout overrides the inactivity timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithSweepInterval overrides how often expired sessions are swept.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) { s.sweepEvery = d }
}

// WithClock injects the time source, used by expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTestMode injects the test-mode provider for deterministic session ids.
func WithTestMode(p mealtypes.TestModeProvider) Option {
	return func(s *Store) { s.testMode = p }
}

// NewStore creates a session store and starts its background sweep.
// Call Close to stop the sweep.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:   make(map[string]*entry),
		timeout:    DefaultTimeout,
		sweepEvery: DefaultSweepInterval,
		now:        time.Now,
		logger:     logger.NewStyledLogger("SessionStore"),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop()
	return s
}

// Close stops the background sweep. Sessions remain readable.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Create allocates a new session in the initial state with an empty profile
// draft and returns a copy of it.
func (s *Store) Create() *mealtypes.Session {
	now := s.now()
	sess := &mealtypes.Session{
		ID:           testutils.GenerateUUID(s.testMode),
		State:        mealtypes.StateInitial,
		Profile:      mealtypes.NewProfileDraft(),
		Satisfaction: mealtypes.Satisfaction{Level: mealtypes.SatisfactionUnknown},
		History:      []mealtypes.Message{},
		CreatedAt:    now,
		LastAccessed: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &entry{sess: sess}
	s.mu.Unlock()

	s.logger.Debug("Session created", "session", sess.ID)
	return cloneSession(sess)
}

// Get returns a copy of the session, refreshing its last-accessed time.
// Returns ErrSessionNotFound if the id is unknown or the session expired;
// expired sessions are evicted.
func (s *Store) Get(id string) (*mealtypes.Session, error) {
	e, err := s.liveEntry(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.LastAccessed = s.now()
	return cloneSession(e.sess), nil
}

// WithSession runs fn while holding the session's lock, serializing
// read-modify-write cycles on the same id. The session's last-accessed time
// is refreshed whether or not fn returns an error. fn may block on external
// calls; only this session is held for the duration.
func (s *Store) WithSession(id string, fn func(*mealtypes.Session) error) error {
	e, err := s.liveEntry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.LastAccessed = s.now()
	err = fn(e.sess)
	e.sess.LastAccessed = s.now()
	return err
}

// SetState transitions the session to the given state.
func (s *Store) SetState(id string, state mealtypes.ConversationState) error {
	return s.WithSession(id, func(sess *mealtypes.Session) error {
		s.logger.Debug("State updated", "session", id, "state", string(state))
		sess.State = state
		return nil
	})
}

// AppendHistory appends a message to the session history, trimming to the
// most recent MaxHistory entries.
func (s *Store) AppendHistory(id, role, content string) error {
	return s.WithSession(id, func(sess *mealtypes.Session) error {
		sess.History = append(sess.History, mealtypes.Message{
			Role:      role,
			Content:   content,
			Timestamp: s.now(),
		})
		if len(sess.History) > MaxHistory {
			sess.History = sess.History[len(sess.History)-MaxHistory:]
		}
		return nil
	})
}

// Clear removes the session if present.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	s.logger.Debug("Session cleared", "session", id)
	return true
}

// Count returns the number of stored sessions, expired entries included
// until the next sweep.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stats summarizes the store's current occupancy.
type Stats struct {
	Total   int           `json:"total_sessions"`
	Active  int           `json:"active_sessions"`
	Recent  int           `json:"recent_sessions"`
	Timeout time.Duration `json:"session_timeout"`
}

// Stats reports total, unexpired, and recently touched (last 10 minutes)
// session counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	st := Stats{Total: len(s.sessions), Timeout: s.timeout}
	for _, e := range s.sessions {
		e.mu.Lock()
		last := e.sess.LastAccessed
		e.mu.Unlock()
		if now.Sub(last) <= s.timeout {
			st.Active++
			if now.Sub(last) < 10*time.Minute {
				st.Recent++
			}
		}
	}
	return st
}

// liveEntry looks up the entry for id, evicting and reporting not-found if it
// has expired.
func (s *Store) liveEntry(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, mealtypes.ErrSessionNotFound
	}

	e.mu.Lock()
	expired := s.now().Sub(e.sess.LastAccessed) > s.timeout
	e.mu.Unlock()

	if expired {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		s.logger.Debug("Session expired", "session", id)
		return nil, mealtypes.ErrSessionNotFound
	}
	return e, nil
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes all expired sessions. It is called periodically in the
// background and exposed for tests.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		expired := now.Sub(e.sess.LastAccessed) > s.timeout
		e.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("Swept expired sessions", "removed", removed)
	}
	return removed
}

func cloneSession(sess *mealtypes.Session) *mealtypes.Session {
	out := *sess
	out.History = make([]mealtypes.Message, len(sess.History))
	copy(out.History, sess.History)
	out.Profile.Conditions = make([]mealtypes.MedicalCondition, len(sess.Profile.Conditions))
	copy(out.Profile.Conditions, sess.Profile.Conditions)
	if sess.Satisfaction.WantsNew != nil {
		v := *sess.Satisfaction.WantsNew
		out.Satisfaction.WantsNew = &v
	}
	return &out
}

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"podstudio/internal/domain"
	"podstudio/internal/infra"
)

// Session is one design flow owned by a user. State access is serialized by
// mu; busy marks a running pipeline step so overlapping steps are rejected
// instead of racing on the artifact.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	mu    sync.Mutex
	state State
	busy  string
}

// View reads the state under the lock.
func (s *Session) View() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// Update applies fn to the state under the lock. It fails with
// domain.ErrSessionBusy while a step is running, so selections cannot change
// underneath it.
func (s *Session) Update(fn func(*State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy != "" {
		return s.state.Snapshot(), fmt.Errorf("%w: %s in progress", domain.ErrSessionBusy, s.busy)
	}
	if err := fn(&s.state); err != nil {
		return s.state.Snapshot(), err
	}
	return s.state.Snapshot(), nil
}

// Begin marks op as running and returns a snapshot to work from. The returned
// finish func must be called exactly once; it clears the busy mark and, when
// apply is non-nil, writes the step's result into the state in the same
// critical section.
func (s *Session) Begin(op string) (State, func(apply func(*State)), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy != "" {
		return State{}, nil, fmt.Errorf("%w: %s in progress", domain.ErrSessionBusy, s.busy)
	}
	s.busy = op
	var once sync.Once
	finish := func(apply func(*State)) {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if apply != nil {
				apply(&s.state)
			}
			s.busy = ""
		})
	}
	return s.state.Snapshot(), finish, nil
}

// Busy returns the running step name, or "".
func (s *Session) Busy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Store keeps sessions in memory with a sliding inactivity TTL. Nothing is persisted.
type Store struct {
	cache  *cache.Cache
	ttl    time.Duration
	logger *infra.Logger
	now    func() time.Time
}

func NewStore(ttl time.Duration, logger *infra.Logger) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	s := &Store{
		cache:  cache.New(ttl, ttl/2),
		ttl:    ttl,
		logger: infra.LoggerOrDiscard(logger),
		now:    time.Now,
	}
	s.cache.OnEvicted(func(id string, _ any) {
		s.logger.Debug().Str("session_id", id).Msg("session: evicted")
	})
	return s
}

// Create starts an empty flow for userID.
func (s *Store) Create(userID string) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}
	s.cache.SetDefault(sess.ID, sess)
	return sess
}

// Get returns the session and refreshes its TTL. Sessions of other users are
// reported as not found.
func (s *Store) Get(userID, id string) (*Session, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	sess, ok := v.(*Session)
	if !ok || sess.UserID != userID {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	s.cache.SetDefault(id, sess)
	return sess, nil
}

// Delete discards the session.
func (s *Store) Delete(userID, id string) error {
	if _, err := s.Get(userID, id); err != nil {
		return err
	}
	s.cache.Delete(id)
	return nil
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

package holder

import (
	"Painter/lib/sl"
	"Painter/storage"
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Session is an alias for storage.Session
type Session = storage.Session

type userLock struct {
	mu   sync.Mutex
	refs int
}

type generation struct {
	cancel    context.CancelFunc
	cancelled bool
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SessionManager wraps the session store with per-user serialization,
// the registry of running generations and the generation rate limit.
type SessionManager struct {
	storage   storage.SessionStore
	log       *slog.Logger
	perMinute int

	mu       sync.Mutex
	locks    map[int64]*userLock
	running  map[int64]*generation
	limiters map[int64]*userLimiter
}

// NewSessionManager creates a manager; perMinute <= 0 disables the rate limit
func NewSessionManager(store storage.SessionStore, perMinute int, log *slog.Logger) *SessionManager {
	return &SessionManager{
		storage:   store,
		log:       log.With(sl.Module("sessions")),
		perMinute: perMinute,
		locks:     make(map[int64]*userLock),
		running:   make(map[int64]*generation),
		limiters:  make(map[int64]*userLimiter),
	}
}

// Lock serializes session updates of one user; call the returned func to unlock
func (sm *SessionManager) Lock(userId int64) func() {
	sm.mu.Lock()
	l, ok := sm.locks[userId]
	if !ok {
		l = &userLock{}
		sm.locks[userId] = l
	}
	l.refs++
	sm.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		sm.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(sm.locks, userId)
		}
		sm.mu.Unlock()
	}
}

// Get returns the user session, or a default one if the store fails
func (sm *SessionManager) Get(userId int64) *Session {
	s, err := sm.storage.Get(userId)
	if err != nil {
		sm.log.With(sl.User(userId)).Error("getting session", sl.Err(err))
		return storage.NewSession(userId)
	}
	return s
}

func (sm *SessionManager) Reset(userId int64) *Session {
	s, err := sm.storage.Reset(userId)
	if err != nil {
		sm.log.With(sl.User(userId)).Error("resetting session", sl.Err(err))
		return storage.NewSession(userId)
	}
	return s
}

// Set applies the values atomically; nil means the update was not stored
func (sm *SessionManager) Set(userId int64, values map[storage.Field]string) *Session {
	s, err := sm.storage.SetFields(userId, values)
	if err != nil {
		sm.log.With(sl.User(userId)).Error("updating session", sl.Err(err))
		return nil
	}
	return s
}

// StartGeneration registers a running generation for the user. It returns
// false when one is already running.
func (sm *SessionManager) StartGeneration(parent context.Context, userId int64) (context.Context, func(), bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.running[userId]; ok {
		return nil, nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	g := &generation{cancel: cancel}
	sm.running[userId] = g

	finish := func() {
		cancel()
		sm.mu.Lock()
		if sm.running[userId] == g {
			delete(sm.running, userId)
		}
		sm.mu.Unlock()
	}
	return ctx, finish, true
}

// CancelGeneration stops the running generation of the user, if any.
// The slot stays taken until the run calls its finish func.
func (sm *SessionManager) CancelGeneration(userId int64) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	g, ok := sm.running[userId]
	if !ok || g.cancelled {
		return false
	}
	g.cancel()
	g.cancelled = true
	return true
}

func (sm *SessionManager) Generating(userId int64) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	_, ok := sm.running[userId]
	return ok
}

// AllowGeneration consumes one token of the user's generation budget
func (sm *SessionManager) AllowGeneration(userId int64) bool {
	if sm.perMinute <= 0 {
		return true
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	ul, ok := sm.limiters[userId]
	if !ok {
		ul = &userLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(sm.perMinute)), sm.perMinute),
		}
		sm.limiters[userId] = ul
	}
	ul.lastSeen = time.Now()
	return ul.limiter.Allow()
}

// Sweep evicts sessions and limiters idle for longer than ttl
func (sm *SessionManager) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	olderThan := time.Now().Add(-ttl)

	removed, err := sm.storage.Evict(olderThan)
	if err != nil {
		sm.log.Error("evicting sessions", sl.Err(err))
	}

	sm.mu.Lock()
	for userId, ul := range sm.limiters {
		if ul.lastSeen.Before(olderThan) {
			delete(sm.limiters, userId)
		}
	}
	sm.mu.Unlock()

	if removed > 0 {
		sm.log.With(slog.Int("removed", removed)).Info("expired sessions evicted")
	}
	return removed
}

func (sm *SessionManager) Count() int {
	n, err := sm.storage.Count()
	if err != nil {
		sm.log.Error("counting sessions", sl.Err(err))
	}
	return n
}

func (sm *SessionManager) Close() error {
	return sm.storage.Close()
}

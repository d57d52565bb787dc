package biz

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/coursechat-io/coursechat/internal/coursechat/metrics"
	"github.com/coursechat-io/coursechat/pkg/infra/pool"
	"github.com/coursechat-io/coursechat/pkg/logger"
)

// exchange is one (user, assistant) turn pair.
type exchange struct {
	question string
	answer   string
}

// session is one in-memory conversation.
type session struct {
	exchanges  []exchange
	lastActive time.Time
}

// SessionManagerConfig holds the session settings.
type SessionManagerConfig struct {
	// MaxHistory is the number of exchanges kept per session.
	MaxHistory int
	// MaxSessions caps the number of concurrent sessions.
	MaxSessions int
	// IdleTimeout is how long an idle session survives.
	IdleTimeout time.Duration
}

// SessionManager holds bounded conversation history in memory.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	config   *SessionManagerConfig
	metrics  *metrics.Metrics
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a SessionManager instance.
func NewSessionManager(config *SessionManagerConfig) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*session),
		config:   config,
		metrics:  metrics.Get(),
		stop:     make(chan struct{}),
	}
}

// Create allocates a new session and returns its id. When the session
// cap is reached the oldest idle session is evicted first.
func (m *SessionManager) Create() string {
	id := ulid.Make().String()

	m.mu.Lock()
	if len(m.sessions) >= m.config.MaxSessions {
		m.evictOldestLocked()
	}
	m.sessions[id] = &session{lastActive: time.Now()}
	m.mu.Unlock()

	m.metrics.RecordSessionCreated()
	return id
}

// evictOldestLocked removes the least recently active session. Caller
// holds the write lock.
func (m *SessionManager) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, s := range m.sessions {
		if oldestID == "" || s.lastActive.Before(oldest) {
			oldestID = id
			oldest = s.lastActive
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
		m.metrics.RecordSessionsEvicted(1)
	}
}

// AddExchange appends one (question, answer) pair, truncating history to
// the configured maximum. Unknown session ids are created implicitly so
// a swept session does not lose the current conversation turn.
func (m *SessionManager) AddExchange(id, question, answer string) {
	if id == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		s = &session{}
		m.sessions[id] = s
	}
	s.exchanges = append(s.exchanges, exchange{question: question, answer: answer})
	if max := m.config.MaxHistory; max > 0 && len(s.exchanges) > max {
		s.exchanges = s.exchanges[len(s.exchanges)-max:]
	}
	s.lastActive = time.Now()
}

// History renders the session as "User: ...\nAssistant: ..." pairs. An
// unknown or empty session yields an empty string.
func (m *SessionManager) History(id string) string {
	if id == "" {
		return ""
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || len(s.exchanges) == 0 {
		return ""
	}

	parts := make([]string, 0, len(s.exchanges))
	for _, e := range s.exchanges {
		parts = append(parts, fmt.Sprintf("User: %s\nAssistant: %s", e.question, e.answer))
	}
	return strings.Join(parts, "\n")
}

// Clear empties a session's history but keeps the session alive.
func (m *SessionManager) Clear(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.exchanges = nil
		s.lastActive = time.Now()
	}
}

// Delete removes a session entirely.
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartSweeper evicts idle sessions periodically on the background pool.
func (m *SessionManager) StartSweeper(interval time.Duration) {
	loop := func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stop:
				return
			}
		}
	}
	if err := pool.SubmitToType(pool.BackgroundPool, loop); err != nil {
		logger.Warnw("background pool unavailable, running sweeper on goroutine",
			"error", err.Error(),
		)
		go loop()
	}
}

// sweep removes sessions idle longer than the configured timeout.
func (m *SessionManager) sweep() {
	cutoff := time.Now().Add(-m.config.IdleTimeout)

	m.mu.Lock()
	evicted := 0
	for id, s := range m.sessions {
		if s.lastActive.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	m.mu.Unlock()

	if evicted > 0 {
		m.metrics.RecordSessionsEvicted(evicted)
		logger.Infow("idle sessions evicted", "count", evicted)
	}
}

// Close stops the sweeper.
func (m *SessionManager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

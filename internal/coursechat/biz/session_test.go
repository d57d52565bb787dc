package biz

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(maxHistory, maxSessions int) *SessionManager {
	return NewSessionManager(&SessionManagerConfig{
		MaxHistory:  maxHistory,
		MaxSessions: maxSessions,
		IdleTimeout: time.Hour,
	})
}

func TestSessionManager_Create(t *testing.T) {
	m := newTestSessionManager(2, 10)

	id := m.Create()
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, m.Count())

	other := m.Create()
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, m.Count())
}

func TestSessionManager_HistoryFormat(t *testing.T) {
	m := newTestSessionManager(5, 10)
	id := m.Create()

	m.AddExchange(id, "What is Go?", "A programming language.")
	m.AddExchange(id, "Who made it?", "Google.")

	history := m.History(id)
	assert.Equal(t,
		"User: What is Go?\nAssistant: A programming language.\nUser: Who made it?\nAssistant: Google.",
		history)
}

func TestSessionManager_HistoryBounded(t *testing.T) {
	m := newTestSessionManager(2, 10)
	id := m.Create()

	for i := 0; i < 5; i++ {
		m.AddExchange(id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	history := m.History(id)
	assert.NotContains(t, history, "q2")
	assert.Contains(t, history, "q3")
	assert.Contains(t, history, "q4")
}

func TestSessionManager_UnknownSessionHistory(t *testing.T) {
	m := newTestSessionManager(2, 10)
	assert.Empty(t, m.History("missing"))
	assert.Empty(t, m.History(""))
}

func TestSessionManager_AddExchangeCreatesSession(t *testing.T) {
	m := newTestSessionManager(2, 10)

	m.AddExchange("revived", "q", "a")
	assert.Equal(t, 1, m.Count())
	assert.Contains(t, m.History("revived"), "User: q")
}

func TestSessionManager_ClearAndDelete(t *testing.T) {
	m := newTestSessionManager(2, 10)
	id := m.Create()
	m.AddExchange(id, "q", "a")

	m.Clear(id)
	assert.Empty(t, m.History(id))
	assert.Equal(t, 1, m.Count(), "clear keeps the session alive")

	m.Delete(id)
	assert.Equal(t, 0, m.Count())
}

func TestSessionManager_EvictsAtCap(t *testing.T) {
	m := newTestSessionManager(2, 3)

	first := m.Create()
	m.Create()
	m.Create()
	require.Equal(t, 3, m.Count())

	m.Create()
	assert.Equal(t, 3, m.Count())
	// The oldest session went first.
	assert.Empty(t, m.History(first))
}

func TestSessionManager_Sweep(t *testing.T) {
	m := NewSessionManager(&SessionManagerConfig{
		MaxHistory:  2,
		MaxSessions: 10,
		IdleTimeout: 10 * time.Millisecond,
	})
	id := m.Create()
	require.Equal(t, 1, m.Count())

	time.Sleep(20 * time.Millisecond)
	m.sweep()
	assert.Equal(t, 0, m.Count())
	assert.Empty(t, m.History(id))
}

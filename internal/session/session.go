// Package session keeps short rolling conversation histories keyed by
// session ID.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/courserag/internal/logging"
	"github.com/ziadkadry99/courserag/internal/metrics"
)

// IDPrefix starts every generated session ID.
const IDPrefix = "session_"

// DefaultMaxHistory is the number of exchanges kept per session.
const DefaultMaxHistory = 2

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role Role
	Text string
}

// Store persists session turns.
type Store interface {
	// Create registers an empty session. Creating an existing one is a no-op.
	Create(ctx context.Context, id string) error

	// Append adds turns to a session, creating it if needed, and then drops
	// all but the most recent keep turns.
	Append(ctx context.Context, id string, turns []Turn, keep int) error

	// Turns returns a session's turns oldest first. Unknown sessions have none.
	Turns(ctx context.Context, id string) ([]Turn, error)

	// Delete removes a session. Unknown sessions are ignored.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
}

// Manager owns session histories and serializes work on each session.
type Manager struct {
	store      Store
	maxHistory int
	logger     *zap.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a Manager. Each session keeps at most 2*maxHistory
// turns (maxHistory user/assistant exchanges). A negative maxHistory selects
// the default.
func NewManager(store Store, maxHistory int, logger *zap.Logger) *Manager {
	if maxHistory < 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		store:      store,
		maxHistory: maxHistory,
		logger:     logging.OrNop(logger).Named("session"),
		locks:      make(map[string]*sessionLock),
	}
}

// Create starts a new empty session and returns its ID.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := IDPrefix + uuid.NewString()
	if err := m.store.Create(ctx, id); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	m.refreshGauge(ctx)
	m.logger.Debug("session created", zap.String("session_id", id))
	return id, nil
}

// Append records one turn. Unknown IDs are created implicitly.
func (m *Manager) Append(ctx context.Context, id string, role Role, text string) error {
	if err := m.store.Append(ctx, id, []Turn{{Role: role, Text: text}}, m.window()); err != nil {
		return fmt.Errorf("appending to session %s: %w", id, err)
	}
	return nil
}

// AddExchange records a user question and the assistant's answer.
func (m *Manager) AddExchange(ctx context.Context, id, question, answer string) error {
	turns := []Turn{
		{Role: RoleUser, Text: question},
		{Role: RoleAssistant, Text: answer},
	}
	if err := m.store.Append(ctx, id, turns, m.window()); err != nil {
		return fmt.Errorf("appending to session %s: %w", id, err)
	}
	m.refreshGauge(ctx)
	return nil
}

// History returns the session's retained turns rendered as text, or "" when
// there are none.
func (m *Manager) History(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	turns, err := m.store.Turns(ctx, id)
	if err != nil {
		return "", fmt.Errorf("reading session %s: %w", id, err)
	}
	return FormatHistory(turns), nil
}

// Reset forgets a session. Resetting an unknown session is a no-op.
func (m *Manager) Reset(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("resetting session %s: %w", id, err)
	}
	m.refreshGauge(ctx)
	m.logger.Debug("session reset", zap.String("session_id", id))
	return nil
}

// Lock serializes work on one session and returns the matching unlock
// function. Different sessions never block each other.
func (m *Manager) Lock(id string) (unlock func()) {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

func (m *Manager) window() int {
	return 2 * m.maxHistory
}

func (m *Manager) refreshGauge(ctx context.Context) {
	if n, err := m.store.Count(ctx); err == nil {
		metrics.ActiveSessions.Set(float64(n))
	}
}

// FormatHistory renders turns oldest first as "User: ..." and
// "Assistant: ..." lines.
func FormatHistory(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		label := "User"
		if t.Role == RoleAssistant {
			label = "Assistant"
		}
		lines = append(lines, label+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}

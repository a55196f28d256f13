package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// DefaultProgressIncrement is the score awarded per newly covered concept.
const DefaultProgressIncrement = 5

// Manager owns the active session. All methods are safe for concurrent use.
// Mutations are no-ops until a session has been created or restored.
type Manager struct {
	mu      sync.RWMutex
	current *Session
	now     func() time.Time
	logger  *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager with no active session.
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateSession starts a new session, replacing any existing one, and
// returns its ID.
func (m *Manager) CreateSession(userID, skillLevel string) string {
	if skillLevel == "" {
		skillLevel = DefaultSkillLevel
	}
	now := m.now()
	s := &Session{
		ID:                 fmt.Sprintf("session_%s_%s", userID, now.Format("20060102150405")),
		UserID:             userID,
		SkillLevel:         skillLevel,
		ConceptsCovered:    []string{},
		ExercisesCompleted: []string{},
		CodeReviews:        []CodeReview{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	m.logger.Info("created session", zap.String("session_id", s.ID), zap.String("user_id", userID))
	return s.ID
}

// Restore makes a previously saved session the active one.
func (m *Manager) Restore(s Session) {
	c := s.Clone()
	m.mu.Lock()
	m.current = &c
	m.mu.Unlock()
	m.logger.Info("restored session", zap.String("session_id", s.ID))
}

// Active reports whether a session exists.
func (m *Manager) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}

// Context returns a snapshot of the active session. The zero Session is
// returned when none exists.
func (m *Manager) Context() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}
	}
	return m.current.Clone()
}

// ContextJSON serializes the active session for inclusion in prompts.
func (m *Manager) ContextJSON() string {
	if !m.Active() {
		return "{}"
	}
	data, err := json.MarshalIndent(m.Context(), "", "  ")
	if err != nil {
		m.logger.Warn("failed to serialize session context", zap.Error(err))
		return "{}"
	}
	return string(data)
}

// AppendConcept records a covered concept. It returns false if the concept
// was already present or no session is active.
func (m *Manager) AppendConcept(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.current.HasConcept(name) {
		return false
	}
	m.current.ConceptsCovered = append(m.current.ConceptsCovered, name)
	m.touch()
	return true
}

// AddProgress increases the progress score. Non-positive amounts are ignored so
// the score never decreases.
func (m *Manager) AddProgress(amount int) {
	if amount <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	m.current.ProgressScore += amount
	m.touch()
}

// AddExercise records a completed exercise.
func (m *Manager) AddExercise(query string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	m.current.ExercisesCompleted = append(m.current.ExercisesCompleted, query)
	m.touch()
}

// AddCodeReview records a code review.
func (m *Manager) AddCodeReview(review CodeReview) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	if review.Timestamp.IsZero() {
		review.Timestamp = m.now()
	}
	m.current.CodeReviews = append(m.current.CodeReviews, review)
	m.touch()
}

// touch must be called with mu held.
func (m *Manager) touch() {
	m.current.UpdatedAt = m.now()
}

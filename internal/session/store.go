package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// ErrNoSessions is returned by Latest when a user has no saved sessions.
var ErrNoSessions = errors.New("no saved sessions")

// Store handles persistence of sessions.
type Store struct {
	basePath string
}

// NewStore creates a new session store.
// dataDir is typically ~/.phoenix
func NewStore(dataDir string) *Store {
	return &Store{
		basePath: filepath.Join(dataDir, "sessions"),
	}
}

// UserHash generates a consistent hash for a user id.
// This is used to scope sessions to one learner.
func (s *Store) UserHash(userID string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(userID)))
	return hex.EncodeToString(hash[:])[:12] // Short hash is sufficient
}

// Save persists a session to disk.
func (s *Store) Save(session Session) error {
	if session.ID == "" {
		return fmt.Errorf("cannot save session without id")
	}
	if strings.ContainsAny(session.ID, `/\`) {
		return fmt.Errorf("invalid session id %q", session.ID)
	}

	dir := filepath.Join(s.basePath, s.UserHash(session.UserID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.json", session.ID))
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load retrieves a specific session.
func (s *Store) Load(id string, userID string) (Session, error) {
	filename := filepath.Join(s.basePath, s.UserHash(userID), fmt.Sprintf("%s.json", filepath.Base(id)))

	data, err := os.ReadFile(filename)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return session, nil
}

// List returns all sessions for a given user.
// Sessions are sorted by UpdatedAt (newest first).
func (s *Store) List(userID string) ([]SessionMeta, error) {
	dir := filepath.Join(s.basePath, s.UserHash(userID))

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []SessionMeta{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list session directory: %w", err)
	}

	var sessions []SessionMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue // Skip unreadable files
		}

		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue // Skip invalid files
		}

		sessions = append(sessions, SessionMeta{
			ID:            sess.ID,
			UserID:        sess.UserID,
			SkillLevel:    sess.SkillLevel,
			ProgressScore: sess.ProgressScore,
			Concepts:      len(sess.ConceptsCovered),
			CreatedAt:     sess.CreatedAt,
			UpdatedAt:     sess.UpdatedAt,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	return sessions, nil
}

// Latest loads the most recently updated session of a user.
func (s *Store) Latest(userID string) (Session, error) {
	metas, err := s.List(userID)
	if err != nil {
		return Session{}, err
	}
	if len(metas) == 0 {
		return Session{}, ErrNoSessions
	}
	return s.Load(metas[0].ID, userID)
}

package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	tmpDir := t.TempDir()

	store := NewStore(tmpDir)
	userID := "ada"

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sess := Session{
		ID:              "session_ada_20260301090000",
		UserID:          userID,
		SkillLevel:      "beginner",
		ConceptsCovered: []string{"loop", "recursion"},
		ProgressScore:   10,
		CodeReviews:     []CodeReview{{Query: "fix this error", Timestamp: created}},
		CreatedAt:       created,
		UpdatedAt:       created,
	}

	// Test Save
	require.NoError(t, store.Save(sess))

	// Verify file existence
	expectedPath := filepath.Join(tmpDir, "sessions", store.UserHash(userID), sess.ID+".json")
	_, err := os.Stat(expectedPath)
	require.NoError(t, err, "expected session file at %s", expectedPath)

	// Test Load
	loaded, err := store.Load(sess.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, []string{"loop", "recursion"}, loaded.ConceptsCovered)
	assert.Equal(t, 10, loaded.ProgressScore)
	require.Len(t, loaded.CodeReviews, 1)
	assert.True(t, created.Equal(loaded.CodeReviews[0].Timestamp))

	// Test List and Latest
	newer := sess.Clone()
	newer.ID = "session_ada_20260302090000"
	newer.UpdatedAt = created.Add(24 * time.Hour)
	require.NoError(t, store.Save(newer))

	list, err := store.List(userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, 2, list[0].Concepts)

	latest, err := store.Latest(userID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
}

func TestStoreScopesByUser(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(Session{ID: "session_a_1", UserID: "a"}))

	list, err := store.List("b")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = store.Latest("b")
	assert.ErrorIs(t, err, ErrNoSessions)

	_, err = store.Load("session_a_1", "b")
	assert.Error(t, err)
}

func TestStoreRejectsBadIDs(t *testing.T) {
	store := NewStore(t.TempDir())
	assert.Error(t, store.Save(Session{}))
	assert.Error(t, store.Save(Session{ID: "../escape", UserID: "a"}))
}

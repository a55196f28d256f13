package session

import (
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 10, 15, 14, 30, 5, 0, time.UTC)
	return func() time.Time { return t }
}

func TestCreateSession(t *testing.T) {
	m := NewManager(nil, WithClock(fixedClock()))
	assert.False(t, m.Active())
	assert.Equal(t, "{}", m.ContextJSON())

	id := m.CreateSession("ada", "")
	assert.Equal(t, "session_ada_20261015143005", id)

	ctx := m.Context()
	assert.Equal(t, id, ctx.ID)
	assert.Equal(t, "ada", ctx.UserID)
	assert.Equal(t, DefaultSkillLevel, ctx.SkillLevel)
	assert.Empty(t, ctx.ConceptsCovered)
	assert.Zero(t, ctx.ProgressScore)

	m.AppendConcept("loop")
	m.CreateSession("grace", "advanced")
	ctx = m.Context()
	assert.Equal(t, "grace", ctx.UserID)
	assert.Equal(t, "advanced", ctx.SkillLevel)
	assert.Empty(t, ctx.ConceptsCovered, "new session replaces the old one")
}

func TestAppendConceptIdempotent(t *testing.T) {
	for _, concept := range []string{"function", "loop", "context manager"} {
		t.Run(concept, func(t *testing.T) {
			m := NewManager(nil)
			m.CreateSession("u", "beginner")

			for i := 0; i < 4; i++ {
				if m.AppendConcept(concept) {
					m.AddProgress(DefaultProgressIncrement)
				}
			}

			ctx := m.Context()
			assert.Equal(t, []string{concept}, ctx.ConceptsCovered)
			assert.Equal(t, DefaultProgressIncrement, ctx.ProgressScore)
		})
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	m := NewManager(nil)
	m.CreateSession("u", "")
	m.AddProgress(5)
	m.AddProgress(-3)
	m.AddProgress(0)
	assert.Equal(t, 5, m.Context().ProgressScore)
}

func TestAppendOnlyRecords(t *testing.T) {
	clock := fixedClock()
	m := NewManager(nil, WithClock(clock))
	m.CreateSession("u", "")

	m.AddExercise("practice loops")
	m.AddExercise("practice loops")
	m.AddCodeReview(CodeReview{Query: "review this"})

	ctx := m.Context()
	assert.Equal(t, []string{"practice loops", "practice loops"}, ctx.ExercisesCompleted)
	require.Len(t, ctx.CodeReviews, 1)
	assert.Equal(t, "review this", ctx.CodeReviews[0].Query)
	assert.Equal(t, clock(), ctx.CodeReviews[0].Timestamp)
}

func TestMutationsWithoutSessionAreNoops(t *testing.T) {
	m := NewManager(nil)
	assert.False(t, m.AppendConcept("loop"))
	m.AddProgress(5)
	m.AddExercise("x")
	m.AddCodeReview(CodeReview{Query: "y"})
	assert.False(t, m.Active())
	assert.Equal(t, Session{}, m.Context())
}

func TestContextIsSnapshot(t *testing.T) {
	m := NewManager(nil)
	m.CreateSession("u", "")
	m.AppendConcept("class")

	snap := m.Context()
	snap.ConceptsCovered[0] = "mutated"
	snap.ConceptsCovered = append(snap.ConceptsCovered, "extra")

	assert.Equal(t, []string{"class"}, m.Context().ConceptsCovered)
}

func TestContextJSON(t *testing.T) {
	m := NewManager(nil, WithClock(fixedClock()))
	m.CreateSession("ada", "beginner")
	m.AppendConcept("recursion")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(m.ContextJSON()), &decoded))
	assert.Equal(t, "session_ada_20261015143005", decoded["session_id"])
	assert.Equal(t, "beginner", decoded["skill_level"])
	assert.Equal(t, []any{"recursion"}, decoded["concepts_covered"])
	assert.Equal(t, []any{}, decoded["exercises_completed"])
}

func TestRestore(t *testing.T) {
	m := NewManager(nil)
	saved := Session{ID: "session_u_1", UserID: "u", ConceptsCovered: []string{"loop"}, ProgressScore: 5}
	m.Restore(saved)

	assert.True(t, m.AppendConcept("class"))
	assert.Equal(t, []string{"loop", "class"}, m.Context().ConceptsCovered)
	assert.Equal(t, []string{"loop"}, saved.ConceptsCovered)
}

func TestManagerConcurrentUse(t *testing.T) {
	m := NewManager(nil)
	m.CreateSession("u", "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.AppendConcept("loop") {
				m.AddProgress(DefaultProgressIncrement)
			}
			_ = m.ContextJSON()
		}()
	}
	wg.Wait()

	ctx := m.Context()
	assert.Equal(t, []string{"loop"}, ctx.ConceptsCovered)
	assert.Equal(t, DefaultProgressIncrement, ctx.ProgressScore)
}

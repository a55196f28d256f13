package session

import "time"

// DefaultSkillLevel is used when a session is created without one.
const DefaultSkillLevel = "beginner"

// CodeReview records a query that was answered by a reviewing agent.
type CodeReview struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one learner's progress record.
type Session struct {
	ID                 string       `json:"session_id"`
	UserID             string       `json:"user_id"`
	SkillLevel         string       `json:"skill_level"`
	ConceptsCovered    []string     `json:"concepts_covered"`
	ProgressScore      int          `json:"progress_score"`
	ExercisesCompleted []string     `json:"exercises_completed"`
	CodeReviews        []CodeReview `json:"code_reviews"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	out.ConceptsCovered = append([]string{}, s.ConceptsCovered...)
	out.ExercisesCompleted = append([]string{}, s.ExercisesCompleted...)
	out.CodeReviews = append([]CodeReview{}, s.CodeReviews...)
	return out
}

// HasConcept reports whether name was already covered.
func (s Session) HasConcept(name string) bool {
	for _, c := range s.ConceptsCovered {
		if c == name {
			return true
		}
	}
	return false
}

// SessionMeta is a lightweight representation for listing.
type SessionMeta struct {
	ID            string    `json:"session_id"`
	UserID        string    `json:"user_id"`
	SkillLevel    string    `json:"skill_level"`
	ProgressScore int       `json:"progress_score"`
	Concepts      int       `json:"concepts"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

package agents

import (
	"errors"
	"fmt"
	"time"
)

// NoResponseText replaces an empty generation so callers never see blank content.
const NoResponseText = "Sorry, no response generated. Please try with more details."

// ErrEmptyResponse is returned by a Generator that produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// ErrNotRegistered marks a category that has no responder.
var ErrNotRegistered = errors.New("not registered")

// Result is the outcome of one responder call.
type Result struct {
	Agent    string
	Text     string
	Err      error
	Empty    bool
	Duration time.Duration
}

// Failed reports whether the call failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Display renders the result as user-facing text. Failures become
// "[<agent> ERROR] <message>" and missing responders "[<agent> not registered]".
func (r Result) Display() string {
	if errors.Is(r.Err, ErrNotRegistered) {
		return fmt.Sprintf("[%s not registered]", r.Agent)
	}
	if r.Err != nil {
		return fmt.Sprintf("[%s ERROR] %s", r.Agent, r.Err.Error())
	}
	if r.Empty {
		return NoResponseText
	}
	return r.Text
}

// Failure builds a failed result for agent.
func Failure(agent string, err error) Result {
	return Result{Agent: agent, Err: err}
}

// Package observability keeps the append-only record of routed queries and
// the durable sinks that mirror it.
package observability

import "time"

// Default excerpt lengths, in runes.
const (
	DefaultAgentExcerpt = 400
	DefaultFinalExcerpt = 800
)

// RecentLimit is the number of records returned by Report.
const RecentLimit = 10

// Limits controls how much of each response a record keeps.
type Limits struct {
	AgentExcerpt int
	FinalExcerpt int
}

// DefaultLimits returns the standard excerpt lengths.
func DefaultLimits() Limits {
	return Limits{AgentExcerpt: DefaultAgentExcerpt, FinalExcerpt: DefaultFinalExcerpt}
}

// AgentResponse is one agent's answer within a record, in dispatch order.
type AgentResponse struct {
	Agent    string `json:"agent"`
	Response string `json:"response"`
}

// Record is one logged interaction. Records are immutable once appended.
type Record struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Query          string          `json:"query"`
	AgentResponses []AgentResponse `json:"agent_responses"`
	FinalResponse  string          `json:"final_response"`
}

// Agents returns the agent names in dispatch order.
func (r Record) Agents() []string {
	out := make([]string, len(r.AgentResponses))
	for i, ar := range r.AgentResponses {
		out[i] = ar.Agent
	}
	return out
}

// Response returns the excerpt logged for agent.
func (r Record) Response(agent string) (string, bool) {
	for _, ar := range r.AgentResponses {
		if ar.Agent == agent {
			return ar.Response, true
		}
	}
	return "", false
}

func (r Record) clone() Record {
	out := r
	out.AgentResponses = append([]AgentResponse(nil), r.AgentResponses...)
	return out
}

// Report summarizes the log.
type Report struct {
	TotalInteractions int      `json:"total_interactions"`
	Recent            []Record `json:"recent"`
}

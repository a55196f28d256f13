package observability

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/phoenix/internal/engine"
)

// Sink receives every record after it is appended to the log.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// InteractionLog is the in-process, append-only interaction log.
type InteractionLog struct {
	mu      sync.RWMutex
	records []Record
	limits  Limits
	sinks   []Sink
	logger  *zap.Logger
	now     func() time.Time
}

// NewInteractionLog creates an empty log. Zero limits fall back to the defaults.
func NewInteractionLog(limits Limits, logger *zap.Logger, sinks ...Sink) *InteractionLog {
	if limits.AgentExcerpt <= 0 {
		limits.AgentExcerpt = DefaultAgentExcerpt
	}
	if limits.FinalExcerpt <= 0 {
		limits.FinalExcerpt = DefaultFinalExcerpt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InteractionLog{
		limits: limits,
		sinks:  sinks,
		logger: logger,
		now:    time.Now,
	}
}

// AddSink registers another sink.
func (l *InteractionLog) AddSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Limits returns the excerpt limits in effect.
func (l *InteractionLog) Limits() Limits {
	return l.limits
}

// Log appends one record with truncated excerpts and forwards it to the
// sinks. Sink failures are logged and never returned.
func (l *InteractionLog) Log(ctx context.Context, query string, responses []AgentResponse, final string) Record {
	rec := Record{
		ID:             uuid.NewString(),
		Timestamp:      l.now(),
		Query:          query,
		AgentResponses: make([]AgentResponse, len(responses)),
		FinalResponse:  engine.TruncateRunes(final, l.limits.FinalExcerpt),
	}
	for i, r := range responses {
		rec.AgentResponses[i] = AgentResponse{
			Agent:    r.Agent,
			Response: engine.TruncateRunes(r.Response, l.limits.AgentExcerpt),
		}
	}

	l.mu.Lock()
	l.records = append(l.records, rec)
	sinks := append([]Sink(nil), l.sinks...)
	l.mu.Unlock()

	l.logger.Info("interaction logged",
		zap.String("id", rec.ID),
		zap.String("query", query),
		zap.Strings("agents", rec.Agents()))

	for _, s := range sinks {
		if err := s.Write(ctx, rec.clone()); err != nil {
			l.logger.Warn("interaction sink failed", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	return rec.clone()
}

// Len returns the number of records.
func (l *InteractionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Records returns a copy of all records in insertion order.
func (l *InteractionLog) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	for i, r := range l.records {
		out[i] = r.clone()
	}
	return out
}

// Report returns the total count and the last RecentLimit records in
// insertion order.
func (l *InteractionLog) Report() Report {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := len(l.records) - RecentLimit
	if start < 0 {
		start = 0
	}
	recent := make([]Record, 0, len(l.records)-start)
	for _, r := range l.records[start:] {
		recent = append(recent, r.clone())
	}
	return Report{TotalInteractions: len(l.records), Recent: recent}
}

// UsageStats counts, per agent, the interactions in which it appears,
// including placeholder and failed responses.
func (l *InteractionLog) UsageStats() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]int)
	for _, r := range l.records {
		for _, ar := range r.AgentResponses {
			stats[ar.Agent]++
		}
	}
	return stats
}

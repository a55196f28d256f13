package observability

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ calls int }

func (f *failingSink) Write(ctx context.Context, rec Record) error {
	f.calls++
	return errors.New("disk full")
}

type memorySink struct{ records []Record }

func (m *memorySink) Write(ctx context.Context, rec Record) error {
	m.records = append(m.records, rec)
	return nil
}

func TestLogTruncates(t *testing.T) {
	l := NewInteractionLog(DefaultLimits(), nil)

	rec := l.Log(context.Background(), "explain recursion",
		[]AgentResponse{{Agent: "ConceptExplainer", Response: strings.Repeat("é", 1000)}},
		strings.Repeat("z", 2000))

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Timestamp.IsZero())
	resp, ok := rec.Response("ConceptExplainer")
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("é", DefaultAgentExcerpt), resp)
	assert.Len(t, rec.FinalResponse, DefaultFinalExcerpt)
}

func TestLogCustomLimits(t *testing.T) {
	l := NewInteractionLog(Limits{AgentExcerpt: 3, FinalExcerpt: 5}, nil)
	rec := l.Log(context.Background(), "q", []AgentResponse{{Agent: "A", Response: "abcdef"}}, "0123456789")
	assert.Equal(t, "abc", rec.AgentResponses[0].Response)
	assert.Equal(t, "01234", rec.FinalResponse)

	assert.Equal(t, DefaultLimits(), NewInteractionLog(Limits{}, nil).Limits())
}

func TestReportRoundTrip(t *testing.T) {
	for _, k := range []int{0, 1, 9, 10, 11, 25} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			l := NewInteractionLog(DefaultLimits(), nil)
			for i := 0; i < k; i++ {
				l.Log(context.Background(), fmt.Sprintf("q%d", i), nil, "final")
			}

			report := l.Report()
			assert.Equal(t, k, report.TotalInteractions)

			want := k
			if want > RecentLimit {
				want = RecentLimit
			}
			require.Len(t, report.Recent, want)
			for i, rec := range report.Recent {
				assert.Equal(t, fmt.Sprintf("q%d", k-want+i), rec.Query)
			}
		})
	}
}

func TestUsageStats(t *testing.T) {
	l := NewInteractionLog(DefaultLimits(), nil)
	ctx := context.Background()
	l.Log(ctx, "a", []AgentResponse{{Agent: "ConceptExplainer", Response: "x"}, {Agent: "Debugger", Response: "[Debugger ERROR] boom"}}, "f")
	l.Log(ctx, "b", []AgentResponse{{Agent: "CodeReviewer", Response: "[CodeReviewer not registered]"}}, "f")
	l.Log(ctx, "c", []AgentResponse{{Agent: "Debugger", Response: "y"}}, "f")

	assert.Equal(t, map[string]int{"ConceptExplainer": 1, "Debugger": 2, "CodeReviewer": 1}, l.UsageStats())
}

func TestRecordsAreImmutableCopies(t *testing.T) {
	l := NewInteractionLog(DefaultLimits(), nil)
	l.Log(context.Background(), "q", []AgentResponse{{Agent: "A", Response: "r"}}, "f")

	recs := l.Records()
	recs[0].AgentResponses[0].Response = "changed"
	recs[0].Query = "changed"

	again := l.Records()
	assert.Equal(t, "q", again[0].Query)
	assert.Equal(t, "r", again[0].AgentResponses[0].Response)
}

func TestSinkFailuresAreSwallowed(t *testing.T) {
	bad := &failingSink{}
	good := &memorySink{}
	l := NewInteractionLog(DefaultLimits(), nil, bad)
	l.AddSink(good)

	rec := l.Log(context.Background(), "q", nil, "f")

	assert.Equal(t, 1, bad.calls)
	require.Len(t, good.records, 1)
	assert.Equal(t, rec.ID, good.records[0].ID)
	assert.Equal(t, 1, l.Len())
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	sink, err := NewSQLiteSink(ctx, filepath.Join(t.TempDir(), "phoenix.db"))
	require.NoError(t, err)
	defer sink.Close()

	l := NewInteractionLog(DefaultLimits(), nil, sink)
	first := l.Log(ctx, "explain recursion", []AgentResponse{{Agent: "ConceptExplainer", Response: "A function calling itself."}}, "A function calling itself.")
	for i := 0; i < 3; i++ {
		l.Log(ctx, fmt.Sprintf("fix bug %d", i), []AgentResponse{
			{Agent: "Debugger", Response: "fixed"},
			{Agent: "CodeReviewer", Response: "reviewed"},
		}, "merged")
	}

	n, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := sink.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Query, got.Query)
	assert.Equal(t, first.AgentResponses, got.AgentResponses)
	assert.True(t, first.Timestamp.Equal(got.Timestamp))

	_, err = sink.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	recent, err := sink.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "fix bug 1", recent[0].Query)
	assert.Equal(t, "fix bug 2", recent[1].Query)
	assert.Equal(t, []string{"Debugger", "CodeReviewer"}, recent[1].Agents())

	stats, err := sink.UsageStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, l.UsageStats(), stats)
}

func TestSearchIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := NewSearchIndex("", nil)
	require.NoError(t, err)
	defer idx.Close()

	l := NewInteractionLog(DefaultLimits(), nil, idx)
	rec := l.Log(ctx, "explain recursion", []AgentResponse{{Agent: "ConceptExplainer", Response: "Recursion is when a function calls itself."}}, "Recursion is when a function calls itself.")
	l.Log(ctx, "write a loop", []AgentResponse{{Agent: "CodeGenerator", Response: "for i in range(3): print(i)"}}, "for loop")

	count, err := idx.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	hits, err := idx.Search(ctx, "recursion", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, rec.ID, hits[0].ID)
	assert.Equal(t, "explain recursion", hits[0].Query)
	assert.Equal(t, []string{"ConceptExplainer"}, hits[0].Agents)

	hits, err = idx.Search(ctx, "  ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchIndexOnDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "interactions.bleve")

	idx, err := NewSearchIndex(path, nil)
	require.NoError(t, err)
	require.NoError(t, idx.Write(ctx, Record{ID: "r1", Query: "decorator question", FinalResponse: "decorators wrap functions"}))
	require.NoError(t, idx.Close())

	idx, err = NewSearchIndex(path, nil)
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Search(ctx, "decorator", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "r1", hits[0].ID)
}

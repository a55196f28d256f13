package observability

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"
)

// SearchHit is one full-text match over past interactions.
type SearchHit struct {
	ID        string    `json:"id"`
	Score     float64   `json:"score"`
	Query     string    `json:"query"`
	Agents    []string  `json:"agents"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchIndex is a bleve full-text index of interaction records.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *zap.Logger
}

// NewSearchIndex opens or creates an index at path. An empty path creates
// an in-memory index. A corrupted index on disk is deleted and recreated.
func NewSearchIndex(path string, logger *zap.Logger) (*SearchIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index: %w", err)
		}
		return &SearchIndex{index: index, logger: logger}, nil
	}

	index, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index: %w", err)
		}
		logger.Info("search index created", zap.String("path", path))
	} else if err != nil {
		logger.Warn("search index appears corrupted, recreating", zap.String("path", path), zap.Error(err))
		if index != nil {
			index.Close()
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to remove corrupted search index: %w", err)
		}
		index, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to recreate search index: %w", err)
		}
	}

	return &SearchIndex{index: index, path: path, logger: logger}, nil
}

// buildIndexMapping creates the index mapping for interaction records.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	queryField := bleve.NewTextFieldMapping()
	queryField.Analyzer = standard.Name
	queryField.Store = true
	doc.AddFieldMappingsAt("query", queryField)

	agentsField := bleve.NewTextFieldMapping()
	agentsField.Analyzer = keyword.Name
	agentsField.Store = true
	doc.AddFieldMappingsAt("agents", agentsField)

	tsField := bleve.NewDateTimeFieldMapping()
	tsField.Store = true
	doc.AddFieldMappingsAt("timestamp", tsField)

	// Searchable only
	for _, name := range []string{"final_response", "responses"} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		f.Store = false
		doc.AddFieldMappingsAt(name, f)
	}

	indexMapping.DefaultMapping = doc
	return indexMapping
}

// Write implements Sink.
func (s *SearchIndex) Write(ctx context.Context, rec Record) error {
	texts := make([]string, len(rec.AgentResponses))
	for i, ar := range rec.AgentResponses {
		texts[i] = ar.Response
	}
	doc := map[string]interface{}{
		"query":          rec.Query,
		"agents":         rec.Agents(),
		"timestamp":      rec.Timestamp,
		"final_response": rec.FinalResponse,
		"responses":      strings.Join(texts, "\n"),
	}
	if err := s.index.Index(rec.ID, doc); err != nil {
		return fmt.Errorf("failed to index interaction %s: %w", rec.ID, err)
	}
	return nil
}

// Search runs a match query across query and response text, best first.
func (s *SearchIndex) Search(ctx context.Context, text string, limit int) ([]SearchHit, error) {
	if strings.TrimSpace(text) == "" {
		return []SearchHit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	q := bleve.NewDisjunctionQuery()
	for _, field := range []string{"query", "final_response", "responses"} {
		m := bleve.NewMatchQuery(text)
		m.SetField(field)
		q.AddQuery(m)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"query", "agents", "timestamp"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["query"].(string); ok {
			h.Query = v
		}
		switch v := hit.Fields["agents"].(type) {
		case string:
			h.Agents = []string{v}
		case []interface{}:
			for _, a := range v {
				if name, ok := a.(string); ok {
					h.Agents = append(h.Agents, name)
				}
			}
		}
		if v, ok := hit.Fields["timestamp"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				h.Timestamp = ts
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Count returns the number of indexed records.
func (s *SearchIndex) Count() (uint64, error) {
	return s.index.DocCount()
}

// Close closes the index.
func (s *SearchIndex) Close() error {
	return s.index.Close()
}

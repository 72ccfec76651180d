package conversation

import (
	"fmt"
	"log"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// SearchHit is a scored match from the conversation index.
type SearchHit struct {
	TurnID  int64
	Role    Role
	Content string
	Score   float64
}

// SearchIndex provides keyword search over conversation turns.
type SearchIndex struct {
	index bleve.Index
	path  string
}

// NewSearchIndex creates or opens the turn index. A corrupted index is
// deleted and recreated rather than failing startup.
func NewSearchIndex(indexPath string) (*SearchIndex, error) {
	index, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index: %w", err)
		}
	} else if err != nil {
		log.Printf("WARNING: Search index appears corrupted (error: %v), recreating...", err)

		if index != nil {
			index.Close()
		}
		if err := os.RemoveAll(indexPath); err != nil {
			log.Printf("WARNING: Failed to remove corrupted index directory: %v", err)
		}

		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to recreate search index: %w", err)
		}
	}

	return &SearchIndex{
		index: index,
		path:  indexPath,
	}, nil
}

// buildIndexMapping creates the index mapping for conversation turns.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	turnMapping := bleve.NewDocumentMapping()

	sessionField := bleve.NewTextFieldMapping()
	sessionField.Analyzer = keyword.Name
	sessionField.Store = true
	sessionField.Index = true
	turnMapping.AddFieldMappingsAt("session_id", sessionField)

	roleField := bleve.NewTextFieldMapping()
	roleField.Analyzer = keyword.Name
	roleField.Store = true
	roleField.Index = true
	turnMapping.AddFieldMappingsAt("role", roleField)

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true
	contentField.Index = true
	turnMapping.AddFieldMappingsAt("content", contentField)

	indexMapping.DefaultMapping = turnMapping
	return indexMapping
}

// docID builds the index document ID for a turn.
func docID(sessionID string, turnID int64) string {
	return fmt.Sprintf("%s-%d", sessionID, turnID)
}

// IndexTurn adds a turn to the index.
func (s *SearchIndex) IndexTurn(t Turn) error {
	doc := map[string]interface{}{
		"session_id": t.SessionID,
		"role":       string(t.Role),
		"content":    t.Content,
	}
	return s.index.Index(docID(t.SessionID, t.ID), doc)
}

// Search runs a match query over a session's turns and returns the top k
// hits by score.
func (s *SearchIndex) Search(sessionID, query string, k int) ([]SearchHit, error) {
	if k <= 0 {
		k = 10
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("content")

	sessionQuery := bleve.NewTermQuery(sessionID)
	sessionQuery.SetField("session_id")

	combinedQuery := bleve.NewConjunctionQuery(q, sessionQuery)

	searchRequest := bleve.NewSearchRequest(combinedQuery)
	searchRequest.Size = k
	searchRequest.Fields = []string{"role", "content"}

	searchResult, err := s.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("turn search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		h := SearchHit{Score: hit.Score}

		var turnID int64
		fmt.Sscanf(hit.ID, sessionID+"-%d", &turnID)
		h.TurnID = turnID

		if role, ok := hit.Fields["role"].(string); ok {
			h.Role = Role(role)
		}
		if content, ok := hit.Fields["content"].(string); ok {
			h.Content = content
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// DeleteSession removes every indexed turn of a session.
func (s *SearchIndex) DeleteSession(sessionID string) error {
	sessionQuery := bleve.NewTermQuery(sessionID)
	sessionQuery.SetField("session_id")

	// Page through matches and batch-delete; sessions are small enough that
	// one pass per page is fine.
	for {
		req := bleve.NewSearchRequest(sessionQuery)
		req.Size = 1000

		res, err := s.index.Search(req)
		if err != nil {
			return fmt.Errorf("failed to find session documents: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := s.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to delete session documents: %w", err)
		}
	}
}

// Close closes the index.
func (s *SearchIndex) Close() error {
	return s.index.Close()
}

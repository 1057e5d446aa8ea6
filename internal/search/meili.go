package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxArticles = "newsdesk_articles"

// Meili implements Searcher and indexing via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the article index.
// Returns a client in unhealthy state if the initial connection fails; the
// health loop keeps probing.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxArticles,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxArticles, err)
	}

	index := m.client.Index(idxArticles)
	filterable := []interface{}{"profile", "state", "type", "language"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxArticles, err)
	}
	searchable := []string{"headline", "slugline", "bodyText"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxArticles, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the article index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	sr := &meili.SearchRequest{
		Limit:                 limit,
		Offset:                int64(q.Offset),
		AttributesToHighlight: []string{"*"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	var filters []string
	if q.FilterProfile != "" {
		filters = append(filters, fmt.Sprintf("profile = %q", q.FilterProfile))
	}
	if q.FilterState != "" {
		filters = append(filters, fmt.Sprintf("state = %q", q.FilterState))
	}
	if len(filters) > 0 {
		sr.Filter = filters
	}

	resp, err := m.client.Index(idxArticles).Search(q.Text, sr)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		ID:       decodeString(hit, "id"),
		Headline: firstNonBlank(decodeFormattedString(hit, "headline"), decodeString(hit, "headline")),
		Slugline: decodeString(hit, "slugline"),
		Snippet:  firstNonBlank(decodeFormattedString(hit, "bodyText"), decodeString(hit, "bodyText")),
		Profile:  decodeString(hit, "profile"),
		State:    decodeString(hit, "state"),
		Type:     decodeString(hit, "type"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexArticle adds or updates an article in the search index.
func (m *Meili) IndexArticle(record ArticleRecord) error {
	_, err := m.client.Index(idxArticles).AddDocuments([]ArticleRecord{record}, nil)
	return err
}

// IndexArticles bulk-indexes articles.
func (m *Meili) IndexArticles(records []ArticleRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxArticles).AddDocuments(records, nil)
	return err
}

// DeleteArticle removes an article from the search index.
func (m *Meili) DeleteArticle(id string) error {
	_, err := m.client.Index(idxArticles).DeleteDocument(id, nil)
	return err
}

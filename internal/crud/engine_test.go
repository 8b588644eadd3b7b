package crud_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jonesrussell/north-cloud/metadata-search/internal/domain"
	"github.com/jonesrussell/north-cloud/metadata-search/internal/elasticsearch"
)

// memEngine keeps documents in insertion order per index. Search ignores
// the query, pages with from/size and answers with canned aggregations.
type memEngine struct {
	mu         sync.Mutex
	docs       map[string][]elasticsearch.Hit
	aggs       map[string]json.RawMessage
	dropWrites bool
	lastBody   map[string]any
}

func newMemEngine() *memEngine {
	return &memEngine{docs: map[string][]elasticsearch.Hit{}}
}

func (m *memEngine) put(index, id, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[index] = append(m.docs[index], elasticsearch.Hit{Index: index, ID: id, Source: json.RawMessage(source)})
}

func (m *memEngine) Search(_ context.Context, index string, body map[string]any) (*elasticsearch.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBody = body

	all := m.docs[index]
	from, _ := body["from"].(int)
	size, _ := body["size"].(int)
	start := min(from, len(all))
	end := min(start+size, len(all))

	res := &elasticsearch.SearchResult{Aggregations: m.aggs}
	res.Hits.Total.Value = int64(len(all))
	res.Hits.Hits = append([]elasticsearch.Hit{}, all[start:end]...)
	return res, nil
}

func (m *memEngine) Create(_ context.Context, index, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if m.dropWrites {
		return nil
	}
	m.put(index, id, string(raw))
	return nil
}

func (m *memEngine) Get(_ context.Context, index, id string) (*elasticsearch.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, hit := range m.docs[index] {
		if hit.ID == id {
			return &elasticsearch.Document{Index: index, ID: id, Found: true, Source: hit.Source}, nil
		}
	}
	return nil, domain.NotFoundError(index, id)
}

func rawAggs(body string) map[string]json.RawMessage {
	var out map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		panic(err)
	}
	return out
}

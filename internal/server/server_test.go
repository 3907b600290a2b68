package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/orgbridge/go-orgbridge/internal/datacloud"
	"github.com/orgbridge/go-orgbridge/internal/vecstore"
)

// fakeStore implements vecstore.Store in memory for handler tests.
type fakeStore struct {
	mu        sync.Mutex
	matches   []vecstore.Match
	searchErr error
	count     int
	countErr  error
	clearErr  error
	deleteErr error
	cleared   bool
	deleted   []string
	upserted  []vecstore.Document
}

func (f *fakeStore) Upsert(ctx context.Context, docs []vecstore.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, docs...)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, embedding []float32, topK int) ([]vecstore.Match, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if topK < len(f.matches) {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return f.count, f.countErr
}

func (f *fakeStore) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, fileName)
	return 3, nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = true
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeEmbedder returns a fixed query embedding.
type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vec != nil {
		return f.vec, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeChat answers every prompt the same way.
type fakeChat struct {
	answer string
	err    error
}

func (f *fakeChat) Complete(ctx context.Context, system, user string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.answer != "" {
		return f.answer, nil
	}
	return "a synthesized answer", nil
}

// fakeEventLog implements EventLog in memory.
type fakeEventLog struct {
	mu        sync.Mutex
	stored    []datacloud.StoredEvent
	inserted  [][]datacloud.Event
	insertErr error
	listErr   error
	filters   []datacloud.EventFilter
}

func (f *fakeEventLog) Insert(ctx context.Context, events []datacloud.Event) ([]datacloud.StoredEvent, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, events)
	out := make([]datacloud.StoredEvent, len(events))
	for i, ev := range events {
		out[i] = datacloud.StoredEvent{
			ID:           fmt.Sprintf("ev-%d", len(f.stored)+i+1),
			Action:       ev.ActionDeveloperName,
			EventType:    ev.EventType,
			EventPrompt:  ev.EventPrompt,
			SourceObject: ev.SourceObjectDeveloperName,
			PublishedAt:  ev.EventPublishDateTime,
			Payload:      ev.PayloadCurrentValue,
		}
	}
	f.stored = append(f.stored, out...)
	return out, nil
}

func (f *fakeEventLog) List(ctx context.Context, filter datacloud.EventFilter) ([]datacloud.StoredEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	// Newest first, like the real store.
	out := make([]datacloud.StoredEvent, 0, len(f.stored))
	for i := len(f.stored) - 1; i >= 0; i-- {
		ev := f.stored[i]
		if filter.Action != "" && ev.Action != filter.Action {
			continue
		}
		if filter.SourceObject != "" && ev.SourceObject != filter.SourceObject {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// newTestServer builds an HTTPServer over in-memory fakes. Callers may
// mutate the returned fakes before issuing requests.
func newTestServer(cfg Config) (*HTTPServer, *fakeStore, *fakeEventLog) {
	store := &fakeStore{}
	events := &fakeEventLog{}
	cfg.Quiet = true
	if cfg.StoreName == "" {
		cfg.StoreName = "duckdb"
	}
	s := NewHTTPServer(cfg, Deps{
		Store:    store,
		Embedder: &fakeEmbedder{},
		Chat:     &fakeChat{},
		Events:   events,
		Bus:      datacloud.NewEventBus(),
	})
	return s, store, events
}

func doRequest(t *testing.T, s *HTTPServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

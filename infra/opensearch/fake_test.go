package opensearch

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mstgnz/gocips/infra/config"
	"github.com/stretchr/testify/require"
)

type indexedDoc struct {
	index string
	path  string
	body  map[string]any
}

// fakeOpenSearch answers the few endpoints the client uses
type fakeOpenSearch struct {
	mu        sync.Mutex
	indices   map[string]bool
	docs      []indexedDoc
	searches  []map[string]any
	searchRes string
	failIndex bool
}

func newFakeOpenSearch(t *testing.T) (*fakeOpenSearch, *httptest.Server) {
	t.Helper()
	fake := &fakeOpenSearch{
		indices:   make(map[string]bool),
		searchRes: `{"hits":{"hits":[]}}`,
	}
	server := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(server.Close)
	return fake, server
}

func (f *fakeOpenSearch) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	index := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")[0]

	switch {
	case r.Method == http.MethodHead && index == "":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		if f.indices[index] {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case strings.Contains(r.URL.Path, "/_search"):
		var query map[string]any
		_ = json.NewDecoder(r.Body).Decode(&query)
		f.searches = append(f.searches, query)
		_, _ = io.WriteString(w, f.searchRes)
	case strings.Contains(r.URL.Path, "/_doc"):
		if f.failIndex {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"boom"}`)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.docs = append(f.docs, indexedDoc{index: index, path: r.URL.Path, body: body})
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case r.Method == http.MethodPut:
		f.indices[index] = true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	default:
		_, _ = io.WriteString(w, `{}`)
	}
}

func (f *fakeOpenSearch) documents() []indexedDoc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]indexedDoc(nil), f.docs...)
}

func newTestClient(t *testing.T, url string, enabled bool) *Client {
	t.Helper()
	client, err := NewClient(&config.AppConfig{
		OpenSearchURL: url,
		EnableLogging: enabled,
		Environment:   "test",
	})
	require.NoError(t, err)
	return client
}

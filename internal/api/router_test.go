package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hoanghai1803/citewatch/internal/ai"
	"github.com/hoanghai1803/citewatch/internal/pipeline"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	store := storage.NewStore(db)

	registry := ai.NewDefaultRouter(map[ai.Provider]ai.ProviderConfig{})
	runner := pipeline.NewRunner(store, registry, ai.NewSentimentAnalyzer(ai.ProviderConfig{}, ""), nil)

	srv := httptest.NewServer(NewRouter(Deps{
		Store:    store,
		Registry: registry,
		Runner:   runner,
		Location: time.UTC,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/models", "", http.StatusOK},
		{http.MethodPost, "/api/prompts", `{"prompt":"best tsdb","models":["openai:gpt-5-mini"],"schedule":"0 * * * *"}`, http.StatusCreated},
		{http.MethodGet, "/api/prompts", "", http.StatusOK},
		{http.MethodGet, "/api/prompts/1", "", http.StatusOK},
		{http.MethodGet, "/api/prompts/1/runs", "", http.StatusOK},
		{http.MethodPost, "/api/prompts", `{"prompt":"x","models":["openai:not-a-model"]}`, http.StatusBadRequest},
		{http.MethodPost, "/api/prompts/generate", `{}`, http.StatusServiceUnavailable},
		{http.MethodGet, "/api/responses", "", http.StatusOK},
		{http.MethodGet, "/api/responses/1", "", http.StatusNotFound},
		{http.MethodGet, "/api/search?q=postgres", "", http.StatusOK},
		{http.MethodGet, "/api/links", "", http.StatusOK},
		{http.MethodGet, "/api/sentiments", "", http.StatusOK},
		{http.MethodGet, "/api/trends", "", http.StatusOK},
		{http.MethodPost, "/api/tags", `{"name":"db"}`, http.StatusCreated},
		{http.MethodGet, "/api/competitors", "", http.StatusOK},
		{http.MethodOptions, "/api/prompts", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, bytes.NewBufferString(tt.body))
			if err != nil {
				t.Fatalf("building request: %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("got status %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

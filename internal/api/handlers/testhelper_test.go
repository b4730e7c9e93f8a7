package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/citewatch/internal/ai"
	"github.com/hoanghai1803/citewatch/internal/models"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

// newTestStore creates an in-memory SQLite store with migrations applied. It
// registers a cleanup function to close the database when the test completes.
func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	return storage.NewStore(db)
}

// newRequest builds a request with an optional JSON body and chi URL params
// given as name/value pairs.
func newRequest(method, target string, body any, params ...string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	r := httptest.NewRequest(method, target, &buf)

	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

// testRegistry accepts the models it lists.
type testRegistry struct{}

var testCatalog = []ai.ProviderModels{
	{Provider: ai.ProviderOpenAI, Models: []string{"gpt-5", "gpt-5-mini"}},
	{Provider: ai.ProviderXAI, Models: []string{"grok-3"}},
}

func (testRegistry) Catalog() []ai.ProviderModels { return testCatalog }

func (testRegistry) ValidateModel(modelID string) (ai.ModelID, error) {
	id, err := ai.ParseModelID(modelID)
	if err != nil {
		return ai.ModelID{}, err
	}
	for _, pm := range testCatalog {
		if pm.Provider != id.Provider {
			continue
		}
		for _, m := range pm.Models {
			if m == id.Model {
				return id, nil
			}
		}
	}
	return ai.ModelID{}, fmt.Errorf("%w: %s", ai.ErrUnknownModel, modelID)
}

// fakeResponder answers with a fixed OpenAI-shaped reply, or fails for
// models listed in fail.
type fakeResponder struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *fakeResponder) GetResponse(_ context.Context, prompt, modelID string, _ []json.RawMessage) (*ai.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, modelID)
	f.mu.Unlock()

	if f.fail[modelID] {
		return nil, fmt.Errorf("%w: %s unavailable", ai.ErrProviderRequestFailed, modelID)
	}
	text := "answer to " + prompt
	return &ai.Response{
		Content:       text,
		Raw:           ai.Raw{Provider: ai.ProviderOpenAI, Payload: openAIRaw(text)},
		URLs:          []string{"https://docs.example.com/a"},
		SearchQueries: []string{prompt},
	}, nil
}

type noSentiment struct{}

func (noSentiment) AnalyzeBrandSentiment(context.Context, []string, string) ([]ai.BrandMention, error) {
	return nil, nil
}

func openAIRaw(text string) json.RawMessage {
	payload, _ := json.Marshal(map[string]any{
		"object": "response",
		"output": []any{map[string]any{
			"type":    "message",
			"role":    "assistant",
			"content": []any{map[string]any{"type": "output_text", "text": text}},
		}},
	})
	return payload
}

func seedPrompt(t *testing.T, store *storage.Store, text string, modelIDs ...string) *models.Prompt {
	t.Helper()
	ctx := context.Background()
	id, err := store.CreatePrompt(ctx, &models.Prompt{Prompt: text, Models: modelIDs}, nil)
	if err != nil {
		t.Fatalf("seeding prompt: %v", err)
	}
	p, err := store.GetPrompt(ctx, id)
	if err != nil {
		t.Fatalf("loading prompt: %v", err)
	}
	return p
}

func seedResponse(t *testing.T, store *storage.Store, promptID int64, model, content string) int64 {
	t.Helper()
	id, err := store.SaveResponse(context.Background(), &models.NewResponse{
		PromptID:      promptID,
		Model:         model,
		Content:       content,
		Raw:           openAIRaw(content),
		Links:         []models.Link{{URL: "https://docs.example.com/a", Hostname: "docs.example.com"}},
		SearchQueries: []string{"example query"},
		Sentiments:    []models.BrandSentiment{{Brand: "TigerData", Sentiment: models.SentimentPositive}},
	})
	if err != nil {
		t.Fatalf("seeding response: %v", err)
	}
	return id
}

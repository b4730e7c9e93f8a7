package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

// fakeAPI serves a canned reply and captures the last request.
type fakeAPI struct {
	t        *testing.T
	path     string
	status   int
	reply    string
	gotBody  map[string]any
	gotHead  http.Header
	requests int
}

func (f *fakeAPI) start() *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != f.path {
			http.NotFound(w, r)
			return
		}
		f.requests++
		f.gotHead = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		f.gotBody = nil
		if err := json.Unmarshal(body, &f.gotBody); err != nil {
			f.t.Errorf("request body is not JSON: %v", err)
		}
		status := f.status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, f.reply)
	}))
	f.t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) ProviderConfig {
	return ProviderConfig{APIKey: "test-key", BaseURL: baseURL}
}

const openAIReply = `{
  "object": "response",
  "output": [
    {"type": "reasoning", "id": "rs_1", "summary": []},
    {"type": "web_search_call", "id": "ws_1", "status": "completed", "action": {"type": "search", "query": "best time series database"}},
    {"type": "message", "id": "msg_1", "role": "assistant", "content": [
      {"type": "output_text", "text": "TigerData is great.", "annotations": [
        {"type": "url_citation", "url": "https://www.tigerdata.com/?utm_source=chatgpt.com"},
        {"type": "url_citation", "url": "https://www.tigerdata.com/"}
      ]}
    ]}
  ]
}`

func TestOpenAIAdapter(t *testing.T) {
	api := &fakeAPI{t: t, path: "/responses", reply: openAIReply}
	srv := api.start()

	a := NewOpenAIAdapter(testConfig(srv.URL))
	prior := []json.RawMessage{json.RawMessage(`{"role":"user","content":"earlier"}`)}
	resp, err := a.GetResponse(context.Background(), "gpt-5-mini", "which database?", prior)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "TigerData is great." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if want := []string{"https://www.tigerdata.com/"}; !reflect.DeepEqual(resp.URLs, want) {
		t.Errorf("urls: got %v, want %v", resp.URLs, want)
	}
	if want := []string{"best time series database"}; !reflect.DeepEqual(resp.SearchQueries, want) {
		t.Errorf("queries: got %v, want %v", resp.SearchQueries, want)
	}
	if resp.Raw.Provider != ProviderOpenAI || !json.Valid(resp.Raw.Payload) {
		t.Errorf("unexpected raw %+v", resp.Raw)
	}

	if got := api.gotHead.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("unexpected Authorization header %q", got)
	}
	input, _ := api.gotBody["input"].([]any)
	if len(input) != 2 {
		t.Fatalf("expected prior plus prompt in input, got %v", api.gotBody["input"])
	}
	last, _ := input[1].(map[string]any)
	if last["content"] != "which database?" || last["role"] != "user" {
		t.Errorf("unexpected final input item %v", last)
	}
}

func TestOpenAIAdapterErrors(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		status  int
		reply   string
		key     string
		wantErr error
	}{
		{name: "unknown model", model: "gpt-2", reply: openAIReply, key: "k", wantErr: ErrUnknownModel},
		{name: "server error", model: "gpt-5", status: http.StatusInternalServerError, reply: `{"error":{"message":"boom"}}`, key: "k", wantErr: ErrProviderRequestFailed},
		{name: "not json", model: "gpt-5", reply: `<html>`, key: "k", wantErr: ErrProviderRequestFailed},
		{name: "missing key", model: "gpt-5", reply: openAIReply, wantErr: ErrProviderRequestFailed},
		{name: "no text", model: "gpt-5", reply: `{"object":"response","output":[{"type":"reasoning"}]}`, key: "k", wantErr: ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{t: t, path: "/responses", status: tt.status, reply: tt.reply}
			srv := api.start()

			a := NewOpenAIAdapter(ProviderConfig{APIKey: tt.key, BaseURL: srv.URL})
			_, err := a.GetResponse(context.Background(), tt.model, "q", nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOpenAIAdapterErrorMessage(t *testing.T) {
	api := &fakeAPI{t: t, path: "/responses", status: http.StatusTooManyRequests, reply: `{"error":{"message":"rate limited"}}`}
	srv := api.start()

	_, err := NewOpenAIAdapter(testConfig(srv.URL)).GetResponse(context.Background(), "gpt-5", "q", nil)
	if err == nil || !strings.Contains(err.Error(), "rate limited") || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status and message in error, got %v", err)
	}
}

const anthropicReply = `{
  "type": "message",
  "role": "assistant",
  "content": [
    {"type": "server_tool_use", "id": "srvtoolu_1", "name": "web_search", "input": {"query": "timescale vs influx"}},
    {"type": "web_search_tool_result", "tool_use_id": "srvtoolu_1", "content": []},
    {"type": "text", "text": "Timescale "},
    {"type": "text", "text": "wins.", "citations": [
      {"type": "web_search_result_location", "url": "https://docs.timescale.com/a"},
      {"type": "web_search_result_location", "url": "https://docs.timescale.com/a"}
    ]}
  ]
}`

func TestAnthropicAdapter(t *testing.T) {
	api := &fakeAPI{t: t, path: "/messages", reply: anthropicReply}
	srv := api.start()

	a := NewAnthropicAdapter(testConfig(srv.URL))
	resp, err := a.GetResponse(context.Background(), "claude-3-5-haiku-latest", "compare", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "Timescale wins." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if want := []string{"https://docs.timescale.com/a"}; !reflect.DeepEqual(resp.URLs, want) {
		t.Errorf("urls: got %v, want %v", resp.URLs, want)
	}
	if want := []string{"timescale vs influx"}; !reflect.DeepEqual(resp.SearchQueries, want) {
		t.Errorf("queries: got %v, want %v", resp.SearchQueries, want)
	}

	if got := api.gotHead.Get("x-api-key"); got != "test-key" {
		t.Errorf("unexpected x-api-key %q", got)
	}
	if got := api.gotHead.Get("anthropic-version"); got != anthropicVersion {
		t.Errorf("unexpected anthropic-version %q", got)
	}
	if got := api.gotBody["max_tokens"]; got != float64(8192) {
		t.Errorf("unexpected max_tokens %v", got)
	}

	if _, err := a.GetResponse(context.Background(), "claude-2", "compare", nil); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
}

func TestGoogleAdapter(t *testing.T) {
	var api *fakeAPI
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	redirect := srv.URL + "/vertexaisearch.cloud.google.com/grounding-api-redirect/abc"
	broken := srv.URL + "/vertexaisearch.cloud.google.com/grounding-api-redirect/gone"

	mux.HandleFunc("/vertexaisearch.cloud.google.com/grounding-api-redirect/abc", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://www.tigerdata.com/blog", http.StatusFound)
	})
	mux.HandleFunc("/vertexaisearch.cloud.google.com/grounding-api-redirect/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	reply := `{"candidates":[{"content":{"role":"model","parts":[{"text":"Use "},{"text":"TigerData."}]},
		"groundingMetadata":{"webSearchQueries":["postgres time series"],
		"groundingChunks":[{"web":{"uri":"` + redirect + `"}},{"web":{"uri":"` + broken + `"}},{"web":{"uri":"https://plain.example/x"}}]}}]}`

	api = &fakeAPI{t: t, path: "/models/gemini-2.5-flash:generateContent", reply: reply}
	mux.HandleFunc("/models/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != api.path {
			http.NotFound(w, r)
			return
		}
		api.gotHead = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &api.gotBody)
		io.WriteString(w, api.reply)
	})

	a := NewGoogleAdapter(testConfig(srv.URL))
	resp, err := a.GetResponse(context.Background(), "gemini-2.5-flash", "what should I use?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "Use TigerData." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	want := []string{"https://www.tigerdata.com/blog", broken, "https://plain.example/x"}
	if !reflect.DeepEqual(resp.URLs, want) {
		t.Errorf("urls: got %v, want %v", resp.URLs, want)
	}
	if want := []string{"postgres time series"}; !reflect.DeepEqual(resp.SearchQueries, want) {
		t.Errorf("queries: got %v, want %v", resp.SearchQueries, want)
	}
	if got := api.gotHead.Get("x-goog-api-key"); got != "test-key" {
		t.Errorf("unexpected x-goog-api-key %q", got)
	}
	if _, ok := api.gotBody["tools"]; !ok {
		t.Error("expected google_search tool in request")
	}
}

func TestGoogleAdapterAllowsEmptyText(t *testing.T) {
	api := &fakeAPI{t: t, path: "/models/gemini-2.5-pro:generateContent", reply: `{"candidates":[]}`}
	srv := api.start()

	resp, err := NewGoogleAdapter(testConfig(srv.URL)).GetResponse(context.Background(), "gemini-2.5-pro", "q", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "" || len(resp.URLs) != 0 || resp.SearchQueries == nil {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestPerplexityAdapter(t *testing.T) {
	api := &fakeAPI{t: t, path: "/chat/completions", reply: `{
		"choices":[{"message":{"role":"assistant","content":"Sonar says TigerData."}}],
		"search_results":[{"url":"https://a.example/1"},{"url":"https://b.example/2"}],
		"citations":["https://b.example/2","https://c.example/3"]}`}
	srv := api.start()

	resp, err := NewPerplexityAdapter(testConfig(srv.URL)).GetResponse(context.Background(), "sonar", "q", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"https://a.example/1", "https://b.example/2", "https://c.example/3"}
	if !reflect.DeepEqual(resp.URLs, want) {
		t.Errorf("urls: got %v, want %v", resp.URLs, want)
	}
	if resp.SearchQueries == nil || len(resp.SearchQueries) != 0 {
		t.Errorf("expected empty search queries, got %#v", resp.SearchQueries)
	}
	if got := api.gotHead.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("unexpected Authorization header %q", got)
	}
}

func TestPerplexityAdapterRequiresContent(t *testing.T) {
	api := &fakeAPI{t: t, path: "/chat/completions", reply: `{"choices":[{"message":{"content":""}}]}`}
	srv := api.start()

	_, err := NewPerplexityAdapter(testConfig(srv.URL)).GetResponse(context.Background(), "sonar-pro", "q", nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestXAIAdapter(t *testing.T) {
	api := &fakeAPI{t: t, path: "/chat/completions", reply: `{
		"choices":[{"message":{"role":"assistant","content":"Grok answer"}}],
		"citations":["https://x.example/1","https://x.example/1"]}`}
	srv := api.start()

	resp, err := NewXAIAdapter(testConfig(srv.URL)).GetResponse(context.Background(), "grok-3", "q", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"https://x.example/1"}; !reflect.DeepEqual(resp.URLs, want) {
		t.Errorf("urls: got %v, want %v", resp.URLs, want)
	}

	params, _ := api.gotBody["search_parameters"].(map[string]any)
	if params["mode"] != "auto" || params["return_citations"] != true {
		t.Errorf("unexpected search_parameters %v", api.gotBody["search_parameters"])
	}

	if _, err := NewXAIAdapter(testConfig(srv.URL)).GetResponse(context.Background(), "grok-1", "q", nil); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
}

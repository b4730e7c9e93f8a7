package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestParseModelID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    ModelID
		wantErr error
	}{
		{name: "openai", id: "openai:gpt-5-mini", want: ModelID{Provider: ProviderOpenAI, Model: "gpt-5-mini"}},
		{name: "splits on first colon", id: "xai:grok:beta", want: ModelID{Provider: ProviderXAI, Model: "grok:beta"}},
		{name: "no colon", id: "gpt-5", wantErr: ErrInvalidModelFormat},
		{name: "empty provider", id: ":gpt-5", wantErr: ErrInvalidModelFormat},
		{name: "empty model", id: "openai:", wantErr: ErrInvalidModelFormat},
		{name: "empty", id: "", wantErr: ErrInvalidModelFormat},
		{name: "unknown provider", id: "mistral:large", wantErr: ErrUnsupportedProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModelID(tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.String() != tt.id {
				t.Errorf("String() = %q, want %q", got.String(), tt.id)
			}
		})
	}
}

func TestRawFor(t *testing.T) {
	raw, err := RawFor("anthropic:claude-3-5-haiku-latest", json.RawMessage(`{"content":[]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Provider != ProviderAnthropic {
		t.Errorf("expected anthropic, got %q", raw.Provider)
	}

	if _, err := RawFor("bogus", nil); !errors.Is(err, ErrInvalidModelFormat) {
		t.Errorf("expected ErrInvalidModelFormat, got %v", err)
	}
}

// stubAdapter records calls and returns a canned response.
type stubAdapter struct {
	provider Provider
	models   []string
	calls    int
	prior    []json.RawMessage
}

func (s *stubAdapter) Provider() Provider { return s.provider }
func (s *stubAdapter) Models() []string   { return s.models }

func (s *stubAdapter) GetResponse(_ context.Context, model, prompt string, prior []json.RawMessage) (*Response, error) {
	s.calls++
	s.prior = prior
	return &Response{Content: string(s.provider) + "/" + model + ": " + prompt}, nil
}

func stubAdapters() []*stubAdapter {
	out := make([]*stubAdapter, 0, len(Providers))
	for _, p := range Providers {
		out = append(out, &stubAdapter{provider: p, models: []string{"m1", "m2"}})
	}
	return out
}

func asAdapters(stubs []*stubAdapter) []Adapter {
	out := make([]Adapter, len(stubs))
	for i, s := range stubs {
		out[i] = s
	}
	return out
}

func TestNewRouter(t *testing.T) {
	stubs := stubAdapters()

	t.Run("all providers", func(t *testing.T) {
		if _, err := NewRouter(asAdapters(stubs)...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing provider", func(t *testing.T) {
		if _, err := NewRouter(asAdapters(stubs[1:])...); err == nil {
			t.Fatal("expected error for missing adapter")
		}
	})

	t.Run("duplicate provider", func(t *testing.T) {
		adapters := append(asAdapters(stubs), stubs[0])
		if _, err := NewRouter(adapters...); err == nil {
			t.Fatal("expected error for duplicate adapter")
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		adapters := append(asAdapters(stubs), &stubAdapter{provider: "mistral"})
		if _, err := NewRouter(adapters...); !errors.Is(err, ErrUnsupportedProvider) {
			t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
		}
	})
}

func TestRouterGetResponse(t *testing.T) {
	stubs := stubAdapters()
	r, err := NewRouter(asAdapters(stubs)...)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	resp, err := r.GetResponse(context.Background(), "hello", "google:m2", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "google/m2: hello" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	for _, s := range stubs {
		want := 0
		if s.provider == ProviderGoogle {
			want = 1
		}
		if s.calls != want {
			t.Errorf("%s: expected %d calls, got %d", s.provider, want, s.calls)
		}
	}

	if _, err := r.GetResponse(context.Background(), "hello", "google", nil); !errors.Is(err, ErrInvalidModelFormat) {
		t.Errorf("expected ErrInvalidModelFormat, got %v", err)
	}
	if _, err := r.GetResponse(context.Background(), "hello", "bing:chat", nil); !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestRouterValidateModel(t *testing.T) {
	r, err := NewRouter(asAdapters(stubAdapters())...)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	if _, err := r.ValidateModel("openai:m1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := r.ValidateModel("openai:m3"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
}

func TestDefaultRouterCatalog(t *testing.T) {
	r := NewDefaultRouter(nil)
	catalog := r.Catalog()
	if len(catalog) != len(Providers) {
		t.Fatalf("expected %d providers, got %d", len(Providers), len(catalog))
	}

	for _, id := range DefaultModels {
		if _, err := r.ValidateModel(id); err != nil {
			t.Errorf("default model %q rejected: %v", id, err)
		}
	}
}

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Compile-time interface check.
var _ Adapter = (*GoogleAdapter)(nil)

const (
	defaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	groundingRedirect    = "vertexaisearch.cloud.google.com/grounding-api-redirect"
	maxRedirectLookups   = 8
)

var googleModels = []string{
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
}

// GoogleAdapter answers prompts through the Gemini generateContent API with
// Google Search grounding.
type GoogleAdapter struct {
	api *apiClient
	// resolver does not follow redirects so grounding links can be unwrapped
	// from their Location header.
	resolver *http.Client
}

// NewGoogleAdapter creates a GoogleAdapter.
func NewGoogleAdapter(cfg ProviderConfig) *GoogleAdapter {
	api := newAPIClient(ProviderGoogle, cfg, defaultGoogleBaseURL, func(key string) map[string]string {
		return map[string]string{"x-goog-api-key": key}
	})
	resolver := newHTTPClient(cfg.Timeout)
	resolver.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &GoogleAdapter{api: api, resolver: resolver}
}

type googleRequest struct {
	Contents []json.RawMessage `json:"contents"`
	Tools    []googleTool      `json:"tools"`
}

type googleTool struct {
	GoogleSearch struct{} `json:"google_search"`
}

type googleContent struct {
	Role  string       `json:"role"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleResponse struct {
	Candidates []struct {
		Content struct {
			Parts []googlePart `json:"parts"`
		} `json:"content"`
		GroundingMetadata struct {
			WebSearchQueries []string `json:"webSearchQueries"`
			GroundingChunks  []struct {
				Web struct {
					URI string `json:"uri"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

// Provider implements Adapter.
func (a *GoogleAdapter) Provider() Provider { return ProviderGoogle }

// Models implements Adapter.
func (a *GoogleAdapter) Models() []string { return googleModels }

// GetResponse implements Adapter. Gemini may answer with grounding only, so
// empty text is accepted.
func (a *GoogleAdapter) GetResponse(ctx context.Context, model, prompt string, prior []json.RawMessage) (*Response, error) {
	if !containsModel(googleModels, model) {
		return nil, fmt.Errorf("%w: google:%s", ErrUnknownModel, model)
	}

	contents := make([]json.RawMessage, 0, len(prior)+1)
	contents = append(contents, prior...)
	contents = append(contents, mustMarshal(googleContent{Role: "user", Parts: []googlePart{{Text: prompt}}}))

	logCall(ProviderGoogle, model)
	body, err := a.api.post(ctx, "/models/"+url.PathEscape(model)+":generateContent", googleRequest{
		Contents: contents,
		Tools:    []googleTool{{}},
	})
	if err != nil {
		return nil, err
	}

	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: google: decoding reply: %v", ErrProviderRequestFailed, err)
	}

	var (
		text    strings.Builder
		uris    []string
		queries []string
	)
	if len(resp.Candidates) > 0 {
		c := resp.Candidates[0]
		for _, p := range c.Content.Parts {
			text.WriteString(p.Text)
		}
		for _, chunk := range c.GroundingMetadata.GroundingChunks {
			if chunk.Web.URI != "" {
				uris = append(uris, chunk.Web.URI)
			}
		}
		queries = c.GroundingMetadata.WebSearchQueries
	}

	return &Response{
		Content:       text.String(),
		Raw:           Raw{Provider: ProviderGoogle, Payload: body},
		URLs:          dedupeURLs(a.resolveGroundingLinks(ctx, uris), nil),
		SearchQueries: nonNil(queries),
	}, nil
}

// resolveGroundingLinks swaps grounding redirect links for their targets.
// A link that cannot be resolved is kept as is.
func (a *GoogleAdapter) resolveGroundingLinks(ctx context.Context, uris []string) []string {
	resolved := make([]string, len(uris))
	copy(resolved, uris)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxRedirectLookups)

	for i, uri := range uris {
		if !strings.Contains(uri, groundingRedirect) {
			continue
		}
		g.Go(func() error {
			if target := a.redirectTarget(ctx, uri); target != "" {
				resolved[i] = target
			}
			return nil
		})
	}
	_ = g.Wait() // lookups never fail the batch

	return resolved
}

func (a *GoogleAdapter) redirectTarget(ctx context.Context, uri string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return ""
	}
	resp, err := a.resolver.Do(req)
	if err != nil {
		slog.Warn("failed to resolve grounding link", "uri", uri, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		return ""
	}
	return resp.Header.Get("Location")
}

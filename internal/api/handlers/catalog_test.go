package handlers

import (
	"net/http"
	"testing"

	"github.com/hoanghai1803/citewatch/internal/models"
)

func TestTagHandlers(t *testing.T) {
	store := newTestStore(t)

	w := serve(CreateTag(store), newRequest(http.MethodPost, "/api/tags", `{"name":"  Databases "}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got status %d; body: %s", w.Code, w.Body.String())
	}
	tag := decodeBody[models.Tag](t, w)
	if tag.Name != "databases" {
		t.Errorf("name = %q, want normalized %q", tag.Name, "databases")
	}

	w = serve(CreateTag(store), newRequest(http.MethodPost, "/api/tags", `{"name":"DATABASES"}`))
	if again := decodeBody[models.Tag](t, w); again.ID != tag.ID {
		t.Errorf("duplicate create returned id %d, want %d", again.ID, tag.ID)
	}

	w = serve(CreateTag(store), newRequest(http.MethodPost, "/api/tags", `{"name":""}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty name: got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = serve(RenameTag(store), newRequest(http.MethodPut, "/api/tags/1", `{"name":"storage"}`, "id", "1"))
	if got := decodeBody[models.Tag](t, w); got.Name != "storage" {
		t.Errorf("rename: got %q", got.Name)
	}

	w = serve(RenameTag(store), newRequest(http.MethodPut, "/api/tags/9", `{"name":"x"}`, "id", "9"))
	if w.Code != http.StatusNotFound {
		t.Errorf("rename missing: got status %d, want %d", w.Code, http.StatusNotFound)
	}

	w = serve(ListTags(store), newRequest(http.MethodGet, "/api/tags", nil))
	if got := decodeBody[[]models.Tag](t, w); len(got) != 1 {
		t.Errorf("list: got %d tags, want 1", len(got))
	}

	w = serve(DeleteTag(store), newRequest(http.MethodDelete, "/api/tags/1", nil, "id", "1"))
	if w.Code != http.StatusOK {
		t.Errorf("delete: got status %d", w.Code)
	}
	w = serve(DeleteTag(store), newRequest(http.MethodDelete, "/api/tags/1", nil, "id", "1"))
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: got status %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestCompetitorHandlers(t *testing.T) {
	store := newTestStore(t)

	w := serve(CreateCompetitor(store), newRequest(http.MethodPost, "/api/competitors",
		`{"name":"InfluxDB","url":"https://www.influxdata.com"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got status %d; body: %s", w.Code, w.Body.String())
	}
	c := decodeBody[models.Competitor](t, w)
	if c.Name != "InfluxDB" || c.URL != "https://www.influxdata.com" {
		t.Errorf("created %+v", c)
	}

	w = serve(CreateCompetitor(store), newRequest(http.MethodPost, "/api/competitors", `{"url":"https://x.io"}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing name: got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = serve(UpdateCompetitor(store), newRequest(http.MethodPut, "/api/competitors/1", `{"name":"ClickHouse"}`, "id", "1"))
	if got := decodeBody[models.Competitor](t, w); got.Name != "ClickHouse" || got.URL != "" {
		t.Errorf("update: got %+v", got)
	}

	w = serve(ListCompetitors(store), newRequest(http.MethodGet, "/api/competitors", nil))
	if got := decodeBody[[]models.Competitor](t, w); len(got) != 1 {
		t.Errorf("list: got %d, want 1", len(got))
	}

	w = serve(DeleteCompetitor(store), newRequest(http.MethodDelete, "/api/competitors/1", nil, "id", "1"))
	if w.Code != http.StatusOK {
		t.Errorf("delete: got status %d", w.Code)
	}
	w = serve(UpdateCompetitor(store), newRequest(http.MethodPut, "/api/competitors/1", `{"name":"x"}`, "id", "1"))
	if w.Code != http.StatusNotFound {
		t.Errorf("update deleted: got status %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestInsightHandlers(t *testing.T) {
	store := newTestStore(t)
	p := seedPrompt(t, store, "best tsdb", "openai:gpt-5")
	seedResponse(t, store, p.ID, "openai:gpt-5", "one")
	seedResponse(t, store, p.ID, "openai:gpt-5", "two")

	w := serve(GetLinks(store), newRequest(http.MethodGet, "/api/links", nil))
	links := decodeBody[struct {
		Recent    []models.Link          `json:"recent"`
		Hostnames []models.HostnameCount `json:"hostnames"`
	}](t, w)
	if len(links.Recent) != 2 {
		t.Errorf("recent: got %d, want 2", len(links.Recent))
	}
	if len(links.Hostnames) != 1 || links.Hostnames[0].Count != 2 {
		t.Errorf("hostnames = %+v", links.Hostnames)
	}

	w = serve(GetLinksByHostname(store), newRequest(http.MethodGet, "/api/links/docs.example.com", nil, "hostname", "docs.example.com"))
	if got := decodeBody[[]models.Link](t, w); len(got) != 2 {
		t.Errorf("by hostname: got %d, want 2", len(got))
	}

	w = serve(GetSentiments(store), newRequest(http.MethodGet, "/api/sentiments", nil))
	scores := decodeBody[[]models.BrandScore](t, w)
	if len(scores) != 1 || scores[0].Brand != "TigerData" || scores[0].Score != 2 {
		t.Errorf("scores = %+v", scores)
	}

	w = serve(GetTrends(store), newRequest(http.MethodGet, "/api/trends", nil))
	trends := decodeBody[map[string][]models.WeeklyCount](t, w)
	if len(trends["hostnames"]) != 1 || trends["hostnames"][0].Count != 2 {
		t.Errorf("hostname trends = %+v", trends["hostnames"])
	}
	if len(trends["brands"]) != 1 {
		t.Errorf("brand trends = %+v", trends["brands"])
	}
}

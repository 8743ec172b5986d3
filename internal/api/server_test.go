package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/launchpad/opportunity-radar/internal/auth"
	"github.com/launchpad/opportunity-radar/internal/dataset"
	"github.com/launchpad/opportunity-radar/internal/ingest"
	"github.com/launchpad/opportunity-radar/internal/models"
)

var testClock = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func seedServer(t *testing.T, opps []models.Opportunity) *Server {
	t.Helper()

	store := dataset.NewStore(filepath.Join(t.TempDir(), "opportunities.json"))
	if err := store.Write(opps, testClock.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	registry := &ingest.Registry{Sources: []ingest.SourceConfig{
		{ID: "devpost", Name: "Devpost", Strategy: "rss", URL: "https://devpost.com/feed"},
	}}
	pipeline := ingest.NewPipeline(registry, store)

	srv := NewServer(store, pipeline, auth.NewService())
	srv.Now = func() time.Time { return testClock }
	return srv
}

func seedOpportunities() []models.Opportunity {
	return []models.Opportunity{
		{
			ID:        "aaaa000011112222",
			Name:      "Climate Tech Grant",
			Type:      models.TypeGrant,
			Country:   "Global",
			Deadline:  "2026-09-01",
			Source:    "eic.ec.europa.eu",
			DateAdded: testClock.Add(-30 * 24 * time.Hour),
			Status:    "open",
			Tags:      []string{"climate"},
		},
		{
			ID:        "bbbb000011112222",
			Name:      "Robotics Hackathon",
			Type:      models.TypeHackathon,
			Country:   "United States",
			Deadline:  "2026-05-12",
			Source:    "devpost.com",
			DateAdded: testClock.Add(-24 * time.Hour),
			Status:    "open",
			Tags:      []string{"robotics", "virtual"},
		},
		{
			ID:        "cccc000011112222",
			Name:      "Expired Fellowship",
			Type:      models.TypeFellowship,
			Country:   "Global",
			Deadline:  "2026-01-01",
			Source:    "f6s.com",
			DateAdded: testClock.Add(-120 * 24 * time.Hour),
			Status:    "open",
		},
	}
}

func doRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	return rec
}

type listResponse struct {
	Total         int               `json:"total"`
	Opportunities []OpportunityView `json:"opportunities"`
}

func TestListOpportunities(t *testing.T) {
	srv := seedServer(t, seedOpportunities())

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/opportunities")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", cc)
	}

	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 {
		t.Fatalf("total = %d, want 3", resp.Total)
	}

	// Default order is newest first.
	if resp.Opportunities[0].ID != "bbbb000011112222" {
		t.Errorf("expected newest listing first, got %s", resp.Opportunities[0].ID)
	}

	statuses := map[string]string{}
	for _, v := range resp.Opportunities {
		statuses[v.ID] = v.DisplayStatus
	}
	if statuses["bbbb000011112222"] != "closing_soon" {
		t.Errorf("hackathon 2 days from deadline should be closing_soon, got %q", statuses["bbbb000011112222"])
	}
	if statuses["cccc000011112222"] != "closed" {
		t.Errorf("expired fellowship should be closed, got %q", statuses["cccc000011112222"])
	}
	if statuses["aaaa000011112222"] != "open" {
		t.Errorf("long-dated grant should be open, got %q", statuses["aaaa000011112222"])
	}
}

func TestListOpportunitiesFilters(t *testing.T) {
	srv := seedServer(t, seedOpportunities())

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"by type", "type=hackathon", []string{"bbbb000011112222"}},
		{"by display status", "status=closed", []string{"cccc000011112222"}},
		{"by country", "country=united%20states", []string{"bbbb000011112222"}},
		{"by source", "source=f6s.com", []string{"cccc000011112222"}},
		{"by tag", "tag=climate", []string{"aaaa000011112222"}},
		{"by text", "q=robotics", []string{"bbbb000011112222"}},
		{"no match", "type=grant&country=france", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodGet, "/api/v1/opportunities?"+tt.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var resp listResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if len(resp.Opportunities) != len(tt.wantIDs) {
				t.Fatalf("got %d results, want %d", len(resp.Opportunities), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if resp.Opportunities[i].ID != id {
					t.Errorf("result %d = %s, want %s", i, resp.Opportunities[i].ID, id)
				}
			}
		})
	}
}

func TestListOpportunitiesSortByDeadline(t *testing.T) {
	srv := seedServer(t, seedOpportunities())

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/opportunities?sort=deadline")
	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	want := []string{"cccc000011112222", "bbbb000011112222", "aaaa000011112222"}
	for i, id := range want {
		if resp.Opportunities[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, resp.Opportunities[i].ID, id)
		}
	}
}

func TestGetOpportunity(t *testing.T) {
	srv := seedServer(t, seedOpportunities())

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/opportunities/aaaa000011112222")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view OpportunityView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.Name != "Climate Tech Grant" || view.DisplayStatus != "open" {
		t.Errorf("unexpected view: %+v", view)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/opportunities/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing id: status = %d, want 404", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	srv := seedServer(t, seedOpportunities())

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats struct {
		Total    int            `json:"total"`
		ByType   map[string]int `json:"by_type"`
		ByStatus map[string]int `json:"by_status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByType["grant"] != 1 || stats.ByType["hackathon"] != 1 {
		t.Errorf("by_type = %v", stats.ByType)
	}
	if stats.ByStatus["closed"] != 1 {
		t.Errorf("by_status = %v", stats.ByStatus)
	}
}

func TestRefreshRequiresAuth(t *testing.T) {
	srv := seedServer(t, seedOpportunities())

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/refresh")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated refresh: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", rec.Code)
	}
}

func TestLoginRejectsBadSecret(t *testing.T) {
	t.Setenv("ADMIN_SECRET", "hunter2")
	srv := seedServer(t, seedOpportunities())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"secret":"wrong"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad secret: status = %d, want 401", rec.Code)
	}
}

package jooble

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearchJobsFiltersStalePostings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/key-123" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body searchRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Keywords != "go developer" || body.Location != "remote" || body.Page != 1 {
			t.Fatalf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte(`{"totalCount":3,"jobs":[
			{"title":"Fresh","company":"A","link":"https://j/1","snippet":"<b>Go</b>&nbsp;role","updated":"2026-03-09T10:00:00.0000000"},
			{"title":"Stale","company":"B","link":"https://j/2","updated":"2026-01-01T10:00:00"},
			{"title":"Undated","company":"C","link":"https://j/3"}
		]}`))
	}))
	defer server.Close()

	client := New(Config{APIKey: "key-123", BaseURL: server.URL + "/api/", RecencyDays: 3}, nil)
	client.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local) }

	result, err := client.SearchJobs(context.Background(), "go developer", "remote")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.TotalCount != 2 || len(result.Jobs) != 2 {
		t.Fatalf("expected two recent jobs, got %+v", result)
	}
	if result.Jobs[0].Snippet != "Go role" || result.Jobs[0].Source != "Jooble" {
		t.Fatalf("unexpected job %+v", result.Jobs[0])
	}
	if result.Jobs[1].Title != "Undated" {
		t.Fatalf("expected undated posting to be kept, got %+v", result.Jobs[1])
	}
}

func TestSearchJobsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer server.Close()

	client := New(Config{APIKey: "x", BaseURL: server.URL}, nil)
	if _, err := client.SearchJobs(context.Background(), "go", ""); err == nil {
		t.Fatal("expected status error")
	}
	if _, err := New(Config{}, nil).SearchJobs(context.Background(), "go", ""); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

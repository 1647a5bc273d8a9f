package remotive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearchSecondary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") != "golang" || r.URL.Query().Get("limit") != "2" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"jobs":[
			{"url":"https://r/1","title":"Go Dev","company_name":"A","publication_date":"2026-03-09T10:00:00"},
			{"url":"https://r/2","title":"Old","company_name":"B","publication_date":"2025-03-09T10:00:00"},
			{"url":"https://r/3","title":"Go SRE","company_name":"C","salary":"$100k","publication_date":"2026-03-10T01:00:00"},
			{"url":"https://r/4","title":"Over limit","company_name":"D","publication_date":"2026-03-10T01:00:00"}
		]}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Limit: 2, RecencyDays: 3}, nil)
	client.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local) }

	items, err := client.SearchSecondary(context.Background(), "golang", "berlin")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected limit of 2 recent jobs, got %+v", items)
	}
	if items[0].Salary != "Not specified" || items[0].Location != "Remote" || items[0].Source != "Remotive" {
		t.Fatalf("unexpected mapping %+v", items[0])
	}
	if items[1].Link != "https://r/3" {
		t.Fatalf("expected stale posting skipped, got %+v", items[1])
	}
}

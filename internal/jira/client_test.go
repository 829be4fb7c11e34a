package jira

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, "test-token", NewBoardCache(), zap.NewNop())
	return client, server
}

func TestSearchIssuesPagination(t *testing.T) {
	var requests int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.URL.Path != "/rest/api/latest/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))

		page := SearchResult{StartAt: startAt, MaxResults: 2, Total: 3}
		switch startAt {
		case 0:
			page.Issues = []Issue{{Key: "PRJ-1"}, {Key: "PRJ-2"}}
		default:
			page.Issues = []Issue{{Key: "PRJ-3"}}
		}
		json.NewEncoder(w).Encode(page)
	})

	client, _ := newTestClient(t, handler)

	issues, err := client.SearchIssues(`worklogAuthor = "alice"`, DefaultSearchFields)
	if err != nil {
		t.Fatalf("SearchIssues() error = %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("SearchIssues() returned %d issues, want 3", len(issues))
	}
	if issues[2].Key != "PRJ-3" {
		t.Errorf("last issue = %s, want PRJ-3", issues[2].Key)
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("server saw %d requests, want 2", got)
	}
}

func TestSearchIssuesAuthHeader(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(SearchResult{Total: 0})
	})
	client, _ := newTestClient(t, handler)

	if _, err := client.SearchIssues("x", DefaultSearchFields); err != nil {
		t.Fatalf("SearchIssues() error = %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer prefix applied", gotAuth)
	}
}

func TestIssueWorklogsInlineSkipsRoundTrips(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s: inline page already complete", r.URL.Path)
	})
	client, _ := newTestClient(t, handler)

	inline := &WorklogPage{
		Worklogs: []Worklog{{ID: "1"}, {ID: "2"}},
		Total:    2,
	}
	logs, err := client.IssueWorklogs("PRJ-1", inline)
	if err != nil {
		t.Fatalf("IssueWorklogs() error = %v", err)
	}
	if len(logs) != 2 {
		t.Errorf("IssueWorklogs() = %d entries, want 2", len(logs))
	}
}

func TestIssueWorklogsPaginatesRemainder(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/latest/issue/PRJ-1/worklog" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		page := WorklogPage{Total: 4}
		switch startAt {
		case 2:
			page.Worklogs = []Worklog{{ID: "3"}, {ID: "4"}}
		default:
			page.Worklogs = nil
		}
		json.NewEncoder(w).Encode(page)
	})
	client, _ := newTestClient(t, handler)

	inline := &WorklogPage{
		Worklogs: []Worklog{{ID: "1"}, {ID: "2"}},
		Total:    4,
	}
	logs, err := client.IssueWorklogs("PRJ-1", inline)
	if err != nil {
		t.Fatalf("IssueWorklogs() error = %v", err)
	}
	if len(logs) != 4 {
		t.Fatalf("IssueWorklogs() = %d entries, want 4", len(logs))
	}
	if logs[3].ID.String() != "4" {
		t.Errorf("last worklog id = %s, want 4", logs[3].ID)
	}
}

func TestBoardNamesPaginationAndDedup(t *testing.T) {
	total := 3
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/agile/1.0/board" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		page := BoardPage{Total: &total}
		if startAt == 0 {
			page.Values = []Board{{ID: 1, Name: "Platform"}, {ID: 2, Name: "Platform"}, {ID: 3, Name: " Mobile "}}
		}
		json.NewEncoder(w).Encode(page)
	})
	client, _ := newTestClient(t, handler)

	names := client.BoardNames("PRJ")
	want := []string{"Platform", "Mobile"}
	if len(names) != len(want) {
		t.Fatalf("BoardNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("BoardNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestBoardNamesCachesFailureAsEmpty(t *testing.T) {
	var requests int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, handler)

	first := client.BoardNames("PRJ")
	if len(first) != 0 {
		t.Errorf("BoardNames() after failure = %v, want empty", first)
	}
	sawFirst := atomic.LoadInt32(&requests)

	second := client.BoardNames("PRJ")
	if len(second) != 0 {
		t.Errorf("cached BoardNames() = %v, want empty", second)
	}
	if got := atomic.LoadInt32(&requests); got != sawFirst {
		t.Errorf("failure was retried: %d extra requests", got-sawFirst)
	}
}

func TestBoardCacheSingleFlight(t *testing.T) {
	var fetches int32
	cache := NewBoardCache()
	release := make(chan struct{})

	fetch := func() ([]string, error) {
		atomic.AddInt32(&fetches, 1)
		<-release
		return []string{"Platform"}, nil
	}

	var ready, wg sync.WaitGroup
	results := make([][]string, 8)
	for i := 0; i < 8; i++ {
		ready.Add(1)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ready.Done()
			results[i] = cache.Get("https://jira.local", "PRJ", fetch)
		}(i)
	}
	ready.Wait()
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("fetch ran %d times for concurrent callers, want 1", got)
	}
	for i, names := range results {
		if len(names) != 1 || names[0] != "Platform" {
			t.Errorf("caller %d got %v, want [Platform]", i, names)
		}
	}
	if !cache.Resolved("https://jira.local", "PRJ") {
		t.Error("entry not resolved after Get")
	}
}

func TestBoardCacheIsolatedPerHost(t *testing.T) {
	cache := NewBoardCache()
	cache.Get("https://a.local", "PRJ", func() ([]string, error) { return []string{"A"}, nil })
	cache.Get("https://b.local", "PRJ", func() ([]string, error) { return []string{"B"}, nil })

	if cache.Len() != 2 {
		t.Errorf("cache holds %d entries, want 2 per-host entries", cache.Len())
	}
}

func TestCreateWorklogADFFallback(t *testing.T) {
	// Plain hosts never send ADF; verify the request body is plain text.
	var gotBody CreateWorklogRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"id":"555"}`)
	})
	client, _ := newTestClient(t, handler)

	started := time.Date(2025, 7, 23, 10, 0, 0, 0, time.FixedZone("Asia/Tehran", 210*60))
	id, err := client.CreateWorklog("PRJ-1", started, 30, "did things")
	if err != nil {
		t.Fatalf("CreateWorklog() error = %v", err)
	}
	if id != "555" {
		t.Errorf("worklog id = %s, want 555", id)
	}
	if gotBody.TimeSpentSeconds != 60 {
		t.Errorf("timeSpentSeconds = %d, want raised to the 60s floor", gotBody.TimeSpentSeconds)
	}
	if comment, ok := gotBody.Comment.(string); !ok || comment != "did things" {
		t.Errorf("comment = %#v, want plain string", gotBody.Comment)
	}
}

func TestHostUsesADF(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://acme.atlassian.net", true},
		{"https://acme.jira.com", true},
		{"https://jira.internal.acme.org", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		if got := hostUsesADF(tt.url); got != tt.want {
			t.Errorf("hostUsesADF(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

package report

import (
	"strings"
	"testing"
)

func TestBuildQuarterlyReportShape(t *testing.T) {
	s := newTestService(mordadTracker(t))

	report, err := s.BuildQuarterlyReport("alice", 1404, mordadNow, NewMonthCache())
	if err != nil {
		t.Fatalf("BuildQuarterlyReport() error = %v", err)
	}
	if len(report.Seasons) != 4 {
		t.Fatalf("seasons = %d, want 4", len(report.Seasons))
	}

	wantNames := []string{"Spring", "Summer", "Autumn", "Winter"}
	month := 1
	for i, season := range report.Seasons {
		if season.Name != wantNames[i] {
			t.Errorf("season %d name = %s, want %s", i, season.Name, wantNames[i])
		}
		if len(season.Months) != 3 {
			t.Fatalf("season %s has %d months, want 3", season.Name, len(season.Months))
		}
		for _, summary := range season.Months {
			if summary.Month != month {
				t.Errorf("month grouping broken: got %d, want %d", summary.Month, month)
			}
			month++
		}
	}
}

func TestBuildQuarterlyReportTotals(t *testing.T) {
	s := newTestService(mordadTracker(t))

	report, err := s.BuildQuarterlyReport("alice", 1404, mordadNow, NewMonthCache())
	if err != nil {
		t.Fatalf("BuildQuarterlyReport() error = %v", err)
	}

	// The fake only has worklogs inside Mordad (month 5, second season).
	summer := report.Seasons[1]
	mordad := summer.Months[1]
	if mordad.MonthName != "Mordad" {
		t.Errorf("month 5 name = %s, want Mordad", mordad.MonthName)
	}
	if !mordad.OK {
		t.Fatalf("month 5 failed: %s", mordad.Reason)
	}
	// Quarter expectations are measured against the whole month's workdays,
	// not just the ones already in the past.
	if mordad.TotalHours != 19.5 || mordad.ExpectedHours != 126 {
		t.Errorf("month 5 totals = %g/%g, want 19.5/126", mordad.TotalHours, mordad.ExpectedHours)
	}
	if mordad.Delta != -106.5 {
		t.Errorf("month 5 delta = %g, want -106.5", mordad.Delta)
	}
	if summer.Delta != round2(summer.TotalHours-summer.ExpectedHours) {
		t.Errorf("season delta %g does not match totals %g-%g",
			summer.Delta, summer.TotalHours, summer.ExpectedHours)
	}
}

func TestBuildQuarterlyReportFailedMonthIsRecorded(t *testing.T) {
	tracker := mordadTracker(t)
	// Farvardin 1404 starts 2025-03-21; fail only that month's search.
	tracker.failJQL = "2025-03-21"
	s := newTestService(tracker)

	report, err := s.BuildQuarterlyReport("alice", 1404, mordadNow, NewMonthCache())
	if err != nil {
		t.Fatalf("a single failed month must not abort the quarter, got %v", err)
	}

	spring := report.Seasons[0]
	farvardin := spring.Months[0]
	if farvardin.OK {
		t.Fatal("failed month reported OK")
	}
	if farvardin.Reason == "" || !strings.Contains(farvardin.Reason, "search") {
		t.Errorf("failed month reason = %q, want the failure cause", farvardin.Reason)
	}
	if farvardin.TotalHours != 0 || farvardin.ExpectedHours != 0 {
		t.Errorf("failed month totals = %g/%g, want zeros", farvardin.TotalHours, farvardin.ExpectedHours)
	}
	if farvardin.MonthName != "Farvardin" {
		t.Errorf("failed month still needs its label, got %q", farvardin.MonthName)
	}

	for i, summary := range spring.Months[1:] {
		if !summary.OK {
			t.Errorf("sibling month %d failed too: %s", i+2, summary.Reason)
		}
	}
}

func TestMonthCacheAvoidsRefetch(t *testing.T) {
	tracker := mordadTracker(t)
	s := newTestService(tracker)
	cache := NewMonthCache()

	if _, err := s.BuildQuarterlyReport("alice", 1404, mordadNow, cache); err != nil {
		t.Fatalf("first rollup error = %v", err)
	}
	if cache.Len() != 12 {
		t.Errorf("cache holds %d months after a full year, want 12", cache.Len())
	}
	calls := len(tracker.searchCalls)

	if _, err := s.BuildQuarterlyReport("alice", 1404, mordadNow, cache); err != nil {
		t.Fatalf("second rollup error = %v", err)
	}
	if got := len(tracker.searchCalls); got != calls {
		t.Errorf("cached rollup still searched: %d extra calls", got-calls)
	}
}

func TestMonthCacheCachesFailures(t *testing.T) {
	tracker := mordadTracker(t)
	tracker.failJQL = "2025-03-21"
	s := newTestService(tracker)
	cache := NewMonthCache()

	if _, err := s.BuildQuarterlyReport("alice", 1404, mordadNow, cache); err != nil {
		t.Fatalf("first rollup error = %v", err)
	}
	calls := len(tracker.searchCalls)

	report, err := s.BuildQuarterlyReport("alice", 1404, mordadNow, cache)
	if err != nil {
		t.Fatalf("second rollup error = %v", err)
	}
	if got := len(tracker.searchCalls); got != calls {
		t.Error("failed month was refetched despite the cache")
	}
	if report.Seasons[0].Months[0].OK {
		t.Error("cached failure came back OK")
	}
}

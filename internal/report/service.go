package report

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mahdizarei0614/jira-worklogs/internal/jalaali"
	"github.com/mahdizarei0614/jira-worklogs/internal/jira"
	"github.com/mahdizarei0614/jira-worklogs/internal/state"
	"github.com/mahdizarei0614/jira-worklogs/pkg/dateutil"
)

// Service wires the tracker, the persisted month selection, and the
// aggregators into the two public report entry points.
type Service struct {
	tracker Tracker
	store   *state.Store
	logger  *zap.Logger
}

// NewService creates a report service. The store may be nil when no month
// selection should be persisted (ad hoc invocations, tests).
func NewService(tracker Tracker, store *state.Store, logger *zap.Logger) *Service {
	return &Service{
		tracker: tracker,
		store:   store,
		logger:  logger,
	}
}

// ScanOptions selects the scan target. Year and Month are raw user input and
// may use Persian or Arabic-Indic digits; empty values fall back to the
// persisted selection and finally to the current Jalaali month.
type ScanOptions struct {
	Identity string
	Year     string
	Month    string
}

// RangeOptions selects an ad hoc worklog range. End is exclusive at the
// millisecond boundary, matching the caller-facing contract; it is converted
// to an inclusive end of day internally.
type RangeOptions struct {
	Identity string
	Start    time.Time
	End      time.Time
}

// ComputeScan builds the full monthly report for the resolved target month
// plus the quarterly rollup of its year, both against one captured "now" so
// day classification cannot drift across sub-steps.
func (s *Service) ComputeScan(opts ScanOptions) (*ScanResult, error) {
	if opts.Identity == "" {
		return nil, &ConfigError{Field: "identity"}
	}

	now := jalaali.Now()
	year, month, err := s.resolveTargetMonth(opts, now)
	if err != nil {
		return nil, err
	}

	monthly, err := s.BuildMonthlyReport(opts.Identity, year, month, now, true)
	if err != nil {
		return nil, err
	}

	// The detail month was just fetched; seed the quarter cache with it so
	// the rollup never repeats its search.
	cache := NewMonthCache()
	cache.put(summarizeMonthly(monthly))

	quarter, err := s.BuildQuarterlyReport(opts.Identity, year, now, cache)
	if err != nil {
		return nil, err
	}

	return &ScanResult{
		Identity: opts.Identity,
		Monthly:  monthly,
		Quarter:  quarter,
	}, nil
}

// resolveTargetMonth turns the raw year/month input into a concrete Jalaali
// month. Explicit input wins and is remembered; otherwise the persisted
// selection applies; otherwise the current month. The remembered selection is
// refreshed on every resolution that produced an explicit target.
func (s *Service) resolveTargetMonth(opts ScanOptions, now time.Time) (int, int, error) {
	if opts.Year != "" || opts.Month != "" {
		if opts.Year == "" || opts.Month == "" {
			return 0, 0, &ConfigError{Field: "year/month (both required when either is given)"}
		}
		year, err := jalaali.ParseNumber(opts.Year)
		if err != nil {
			return 0, 0, &MonthRangeError{Cause: fmt.Errorf("bad year %q: %w", opts.Year, err)}
		}
		month, err := jalaali.ParseNumber(opts.Month)
		if err != nil {
			return 0, 0, &MonthRangeError{Year: year, Cause: fmt.Errorf("bad month %q: %w", opts.Month, err)}
		}
		if month < 1 || month > 12 {
			return 0, 0, &MonthRangeError{Year: year, Month: month, Cause: fmt.Errorf("month out of range")}
		}
		s.rememberSelection(year, month)
		return year, month, nil
	}

	if s.store != nil {
		if year, month, ok := s.store.SelectedMonth(); ok {
			return year, month, nil
		}
	}

	current := jalaali.ToJalaali(now)
	return current.Year, current.Month, nil
}

func (s *Service) rememberSelection(year, month int) {
	if s.store == nil {
		return
	}
	if err := s.store.SetSelectedMonth(year, month); err != nil {
		s.logger.Warn("Failed to persist month selection", zap.Error(err))
	}
}

// FetchWorklogsRange runs an ad hoc worklog query over an arbitrary instant
// range, independent of calendar-month alignment. Unlike the monthly build,
// a failed per-issue worklog fetch here only drops that issue's entries.
func (s *Service) FetchWorklogsRange(opts RangeOptions) (*RangeResult, error) {
	if opts.Identity == "" {
		return nil, &ConfigError{Field: "identity"}
	}
	if opts.Start.IsZero() || opts.End.IsZero() {
		return nil, &ConfigError{Field: "range start/end"}
	}

	start := dateutil.StartOfDayIn(opts.Start, jalaali.Tehran)
	end := dateutil.EndOfDayIn(opts.End.Add(-time.Millisecond), jalaali.Tehran)
	if end.Before(start) {
		// An inverted selection collapses to the start day.
		end = dateutil.EndOfDayIn(start, jalaali.Tehran)
	}

	jql := fmt.Sprintf(`worklogAuthor = "%s" AND worklogDate >= "%s" AND worklogDate <= "%s"`,
		opts.Identity, start.Format("2006-01-02"), end.Format("2006-01-02"))

	issues, err := s.tracker.SearchIssues(jql, jira.DefaultSearchFields)
	if err != nil {
		return nil, fmt.Errorf("worklog search failed: %w", err)
	}

	norm := newNormalizer(opts.Identity, start, end)
	var entries []WorklogEntry
	for _, issue := range issues {
		logs, err := s.tracker.IssueWorklogs(issue.Key, issue.Fields.Worklog)
		if err != nil {
			s.logger.Warn("Worklog fetch failed, issue skipped",
				zap.String("issue", issue.Key),
				zap.Error(err))
			continue
		}
		for _, w := range logs {
			if entry, ok := norm.add(issue, w); ok {
				entries = append(entries, entry)
			}
		}
	}
	sortEntries(entries)

	return &RangeResult{
		Identity:   opts.Identity,
		Start:      jalaali.ToJalaali(start),
		End:        jalaali.ToJalaali(end),
		Worklogs:   entries,
		TotalHours: sumHours(entries),
	}, nil
}

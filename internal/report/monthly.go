package report

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mahdizarei0614/jira-worklogs/internal/jalaali"
	"github.com/mahdizarei0614/jira-worklogs/internal/jira"
	"github.com/mahdizarei0614/jira-worklogs/pkg/dateutil"
)

// Tracker is the slice of the Jira client the aggregators consume.
type Tracker interface {
	SearchIssues(jql string, fields []string) ([]jira.Issue, error)
	IssueWorklogs(issueKey string, initial *jira.WorklogPage) ([]jira.Worklog, error)
	BoardNames(projectKey string) []string
}

// worklogFetchConcurrency bounds the per-issue worklog lookups of one run.
const worklogFetchConcurrency = 4

// BuildMonthlyReport aggregates the subject's worklogs for one Jalaali month.
// The primary search and worklog fetches are required and abort the report on
// failure; detail enrichment degrades to empty sections instead.
func (s *Service) BuildMonthlyReport(username string, year, month int, now time.Time, includeDetails bool) (*MonthlyReport, error) {
	if username == "" {
		return nil, &ConfigError{Field: "identity"}
	}

	start, end, err := jalaali.MonthRange(year, month)
	if err != nil {
		return nil, &MonthRangeError{Year: year, Month: month, Cause: err}
	}

	entries, err := s.fetchRangeEntries(username, start, end)
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{Year: year, Month: month}
	report.Days, report.TotalHours = s.buildDays(year, month, now, entries)

	workdays, pastWorkdays := 0, 0
	for _, day := range report.Days {
		if !day.IsWorkday {
			continue
		}
		workdays++
		if !day.IsFuture {
			pastWorkdays++
		}
	}
	report.ExpectedByNowHours = round2(ExpectedDailyHours * float64(pastWorkdays))
	report.ExpectedByEndMonthHours = round2(ExpectedDailyHours * float64(workdays))

	if includeDetails {
		sortEntries(entries)
		report.Worklogs = entries
		for _, day := range report.Days {
			if isDeficit(day) {
				report.DeficitDays = append(report.DeficitDays, day)
			}
		}
		report.DueIssues = s.dueIssues(username, start, end)
		report.AssignedIssues = s.assignedIssues(username)
	}

	s.logger.Info("Monthly report built",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("worklogs", len(entries)),
		zap.Float64("total_hours", report.TotalHours))

	return report, nil
}

// fetchRangeEntries runs the primary worklog search over an inclusive
// Gregorian instant range and normalizes the result. Per-issue worklog
// fetches run concurrently; normalization happens afterwards in issue order
// so dedup and output stay deterministic.
func (s *Service) fetchRangeEntries(username string, start, end time.Time) ([]WorklogEntry, error) {
	jql := fmt.Sprintf(`worklogAuthor = "%s" AND worklogDate >= "%s" AND worklogDate <= "%s"`,
		username, start.Format("2006-01-02"), end.Format("2006-01-02"))

	issues, err := s.tracker.SearchIssues(jql, jira.DefaultSearchFields)
	if err != nil {
		return nil, fmt.Errorf("worklog search failed: %w", err)
	}

	logsByIssue := make([][]jira.Worklog, len(issues))
	var group errgroup.Group
	group.SetLimit(worklogFetchConcurrency)
	for i := range issues {
		i := i
		group.Go(func() error {
			logs, err := s.tracker.IssueWorklogs(issues[i].Key, issues[i].Fields.Worklog)
			if err != nil {
				return fmt.Errorf("worklogs for %s: %w", issues[i].Key, err)
			}
			logsByIssue[i] = logs
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	norm := newNormalizer(username, start, end)
	var entries []WorklogEntry
	for i, issue := range issues {
		for _, w := range logsByIssue[i] {
			if entry, ok := norm.add(issue, w); ok {
				entries = append(entries, entry)
			}
		}
	}
	return entries, nil
}

// buildDays constructs one record per calendar day of the month, buckets the
// entries' seconds onto them, and classifies each day. Returns the day list
// and the month total.
func (s *Service) buildDays(year, month int, now time.Time, entries []WorklogEntry) ([]DayRecord, float64) {
	count, err := jalaali.DaysInMonth(year, month)
	if err != nil {
		return nil, 0
	}

	hoursByDay := make(map[int]float64)
	for _, e := range entries {
		if e.Date.Year == year && e.Date.Month == month {
			hoursByDay[e.Date.Day] += e.Hours
		}
	}

	holidays := jalaali.Holidays(year, month)
	nowYMD := dateutil.YMD(now, jalaali.Tehran)

	days := make([]DayRecord, 0, count)
	var total float64
	for d := 1; d <= count; d++ {
		date, err := jalaali.FromJalaali(year, month, d)
		if err != nil {
			continue
		}
		weekday := date.Weekday()
		day := DayRecord{
			Day:            d,
			Label:          date.Label(),
			GregorianLabel: date.GregorianYMD(),
			Weekday:        weekday,
			IsHoliday:      holidays[d],
			IsWeekendDay:   weekday == 4 || weekday == 5,
			IsFuture:       date.GregorianYMD() > nowYMD,
			Hours:          round2(hoursByDay[d]),
		}
		day.IsWorkday = !day.IsWeekendDay && !day.IsHoliday
		day.Classification = classifyDay(day)
		total += day.Hours
		days = append(days, day)
	}
	return days, round2(total)
}

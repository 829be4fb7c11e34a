package report

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mahdizarei0614/jira-worklogs/internal/jalaali"
)

// MonthCache memoizes detail-free month builds across quarterly runs so a
// scan covering overlapping quarters never refetches a month. Failed builds
// are cached too. Not safe for concurrent use; one cache serves one scan.
type MonthCache struct {
	entries map[string]MonthSummary
}

func NewMonthCache() *MonthCache {
	return &MonthCache{entries: make(map[string]MonthSummary)}
}

func monthCacheKey(year, month int) string {
	return fmt.Sprintf("%d-%d", year, month)
}

func (c *MonthCache) get(year, month int) (MonthSummary, bool) {
	summary, ok := c.entries[monthCacheKey(year, month)]
	return summary, ok
}

func (c *MonthCache) put(summary MonthSummary) {
	c.entries[monthCacheKey(summary.Year, summary.Month)] = summary
}

// Len reports the number of cached months.
func (c *MonthCache) Len() int {
	return len(c.entries)
}

// BuildQuarterlyReport rolls detail-free monthly builds up into the four
// fixed seasons of a Jalaali year. A month that fails to build becomes a
// zero-total entry carrying the failure reason; the other months still count.
func (s *Service) BuildQuarterlyReport(username string, year int, now time.Time, cache *MonthCache) (*QuarterlyReport, error) {
	if username == "" {
		return nil, &ConfigError{Field: "identity"}
	}
	if cache == nil {
		cache = NewMonthCache()
	}

	report := &QuarterlyReport{Year: year}
	for q := 0; q < 4; q++ {
		season := Season{Name: seasonNames[q]}
		for i := 0; i < 3; i++ {
			month := q*3 + i + 1
			summary := s.monthSummary(username, year, month, now, cache)
			season.Months = append(season.Months, summary)
			season.TotalHours += summary.TotalHours
			season.ExpectedHours += summary.ExpectedHours
		}
		season.TotalHours = round2(season.TotalHours)
		season.ExpectedHours = round2(season.ExpectedHours)
		season.Delta = round2(season.TotalHours - season.ExpectedHours)
		report.Seasons = append(report.Seasons, season)
	}
	return report, nil
}

func (s *Service) monthSummary(username string, year, month int, now time.Time, cache *MonthCache) MonthSummary {
	if summary, ok := cache.get(year, month); ok {
		return summary
	}

	var summary MonthSummary
	monthly, err := s.BuildMonthlyReport(username, year, month, now, false)
	if err != nil {
		s.logger.Warn("Month build failed inside quarterly rollup",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err))
		summary = MonthSummary{
			Year:      year,
			Month:     month,
			MonthName: jalaali.MonthName(month),
			Reason:    err.Error(),
		}
	} else {
		summary = summarizeMonthly(monthly)
	}

	cache.put(summary)
	return summary
}

// summarizeMonthly collapses a monthly report to its quarter-rollup view.
// Expected hours cover the whole month's workdays.
func summarizeMonthly(monthly *MonthlyReport) MonthSummary {
	return MonthSummary{
		Year:          monthly.Year,
		Month:         monthly.Month,
		MonthName:     jalaali.MonthName(monthly.Month),
		OK:            true,
		TotalHours:    monthly.TotalHours,
		ExpectedHours: monthly.ExpectedByEndMonthHours,
		Delta:         round2(monthly.TotalHours - monthly.ExpectedByEndMonthHours),
	}
}

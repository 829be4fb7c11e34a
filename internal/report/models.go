package report

import (
	"math"
	"time"

	"github.com/mahdizarei0614/jira-worklogs/internal/jalaali"
)

// Expected logged hours on a workday.
const ExpectedDailyHours = 6.0

// Color classifies a day in the monthly report.
type Color string

const (
	// ColorGray marks rest days, holidays, and days still in the future.
	ColorGray Color = "gray"
	// ColorRed marks a workday with nothing logged.
	ColorRed Color = "red"
	// ColorYellow marks a workday logged below or above the expectation.
	ColorYellow Color = "yellow"
	// ColorGreen marks a workday logged at exactly the expectation.
	ColorGreen Color = "green"
)

// WorklogEntry is one normalized time entry attributed to the report subject.
// Entries are immutable after the normalizer emits them.
type WorklogEntry struct {
	IssueKey  string
	Identity  string // dedup key, see worklogKey
	Date      jalaali.Date
	Started   time.Time
	Hours     float64
	Comment   string
	Summary   string
	Status    string
	IssueType string
	DueDate   string
}

// DayRecord is one calendar day of the reporting month.
type DayRecord struct {
	Day            int
	Label          string // Jalaali yyyy/mm/dd
	GregorianLabel string // yyyy-mm-dd
	Weekday        int    // 0=Sunday .. 6=Saturday
	IsHoliday      bool
	IsWeekendDay   bool
	IsFuture       bool
	IsWorkday      bool
	Hours          float64
	Classification Color
}

// IssueSummary is a denormalized issue row for the report detail sections.
type IssueSummary struct {
	Key            string
	Summary        string
	Status         string
	IssueType      string
	DueDate        string // Gregorian, as delivered
	DueDateJalaali string // same day on the Jalaali calendar, "" if unparseable
	Updated        time.Time
	Project        string
	BoardNames     []string
	Sprints        []string
	Time           TimeNumbers
}

// TimeNumbers is the derived time-tracking triple of an issue, in hours.
type TimeNumbers struct {
	OriginalHours  float64
	SpentHours     float64
	RemainingHours float64
}

// MonthlyReport is the full result of one monthly aggregation run.
type MonthlyReport struct {
	Year  int
	Month int

	Days     []DayRecord
	Worklogs []WorklogEntry

	TotalHours              float64
	ExpectedByNowHours      float64
	ExpectedByEndMonthHours float64

	DeficitDays    []DayRecord
	DueIssues      []IssueSummary
	AssignedIssues []IssueSummary
}

// MonthSummary is the detail-free view of a month used by quarterly rollups.
// A month whose build failed is recorded with OK=false and a reason instead
// of aborting the quarter.
type MonthSummary struct {
	Year      int
	Month     int
	MonthName string

	OK     bool
	Reason string

	TotalHours    float64
	ExpectedHours float64
	Delta         float64
}

// Season is one fixed 3-month group of the quarterly report.
type Season struct {
	Name   string
	Months []MonthSummary

	TotalHours    float64
	ExpectedHours float64
	Delta         float64
}

// QuarterlyReport covers all four seasons of a Jalaali year.
type QuarterlyReport struct {
	Year    int
	Seasons []Season
}

// RangeResult is the payload of an ad hoc date-range worklog query.
type RangeResult struct {
	Identity string
	Start    jalaali.Date
	End      jalaali.Date
	Worklogs []WorklogEntry

	TotalHours float64
}

// ScanResult pairs a monthly report with the quarterly rollup of its year.
type ScanResult struct {
	Identity string
	Monthly  *MonthlyReport
	Quarter  *QuarterlyReport
}

var seasonNames = []string{"Spring", "Summer", "Autumn", "Winter"}

// round2 rounds to 2 decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// classifyDay applies the color policy. Rest days, holidays, and future days
// are gray no matter what was logged; workdays are red at zero, green at
// exactly the expectation, yellow otherwise.
func classifyDay(day DayRecord) Color {
	if !day.IsWorkday || day.IsFuture {
		return ColorGray
	}
	if day.Hours == 0 {
		return ColorRed
	}
	if day.Hours == ExpectedDailyHours {
		return ColorGreen
	}
	return ColorYellow
}

// isDeficit reports whether a day counts against the subject: a non-future
// workday logged below the expectation.
func isDeficit(day DayRecord) bool {
	return day.IsWorkday && !day.IsFuture && day.Hours < ExpectedDailyHours
}

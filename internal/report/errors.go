package report

import "fmt"

// ConfigError signals missing base configuration or an unresolved identity.
// It is caller-fixable and never retried.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Field)
}

// MonthRangeError signals that the requested Jalaali year/month pair cannot
// be turned into a date range.
type MonthRangeError struct {
	Year  int
	Month int
	Cause error
}

func (e *MonthRangeError) Error() string {
	return fmt.Sprintf("invalid month range %d/%d: %v", e.Year, e.Month, e.Cause)
}

func (e *MonthRangeError) Unwrap() error {
	return e.Cause
}

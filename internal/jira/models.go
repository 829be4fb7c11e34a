package jira

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ID handles both string and number identifiers from the Jira API.
// Server deployments return worklog ids as numbers while cloud returns
// strings; both normalize to a string.
type ID string

// UnmarshalJSON implements json.Unmarshaler for ID.
func (f *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = ID(s)
		return nil
	}

	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = ID(strconv.FormatInt(n, 10))
		return nil
	}

	return fmt.Errorf("jira: ID cannot unmarshal %s", string(b))
}

// MarshalJSON implements json.Marshaler for ID.
func (f ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// String returns the string representation.
func (f ID) String() string {
	return string(f)
}

// timestampLayouts are the formats Jira may return for instants.
// The primary layout is 2024-05-22T17:06:54.875+0300 (no colon in the
// offset), which the standard RFC3339 parser rejects.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
}

// Timestamp parses Jira timestamps while keeping the raw wire string, which
// day truncation and dedup fingerprints operate on verbatim.
type Timestamp struct {
	time.Time
	Raw   string
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t.Raw = s

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			t.Valid = true
			return nil
		}
	}

	// An unparseable timestamp is not a transport error; downstream
	// filters reject the record instead.
	t.Valid = false
	return nil
}

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Raw)
}

// DayYMD returns the Gregorian day part (YYYY-MM-DD) of the raw timestamp,
// or "" when the raw value carries no date.
func (t Timestamp) DayYMD() string {
	if t.Raw == "" {
		return ""
	}
	return strings.SplitN(t.Raw, "T", 2)[0]
}

// Text handles worklog comments that arrive either as a plain string or as
// an Atlassian Document Format tree. ADF text nodes are flattened in order,
// hard breaks become newlines.
type Text string

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

func (n adfNode) flatten(sb *strings.Builder) {
	switch n.Type {
	case "text":
		sb.WriteString(n.Text)
	case "hardBreak":
		sb.WriteString("\n")
	}
	for _, child := range n.Content {
		child.flatten(sb)
	}
}

// UnmarshalJSON implements json.Unmarshaler for Text.
func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}

	var doc adfNode
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("jira: comment cannot unmarshal %s", string(b))
	}
	var sb strings.Builder
	doc.flatten(&sb)
	*t = Text(sb.String())
	return nil
}

func (t Text) String() string {
	return string(t)
}

// SearchResult is one page of the issue search endpoint.
type SearchResult struct {
	Issues     []Issue `json:"issues"`
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
}

// Issue is a raw issue record with the projected fields.
type Issue struct {
	ID     ID          `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields carries the field projection used by the report queries.
// The sprint custom fields are kept raw; their shape varies per deployment.
type IssueFields struct {
	Summary   string      `json:"summary"`
	Status    *NamedField `json:"status"`
	IssueType *NamedField `json:"issuetype"`
	DueDate   string      `json:"duedate"`
	Updated   Timestamp   `json:"updated"`
	Project   *ProjectRef `json:"project"`

	TimeTracking                  *TimeTracking `json:"timetracking"`
	TimeOriginalEstimate          *float64      `json:"timeoriginalestimate"`
	TimeEstimate                  *float64      `json:"timeestimate"`
	TimeSpent                     *float64      `json:"timespent"`
	AggregateTimeEstimate         *float64      `json:"aggregatetimeestimate"`
	AggregateTimeSpent            *float64      `json:"aggregatetimespent"`
	AggregateTimeOriginalEstimate *float64      `json:"aggregatetimeoriginalestimate"`

	CustomField10020 json.RawMessage `json:"customfield_10020"`
	CustomField10016 json.RawMessage `json:"customfield_10016"`
	CustomField10007 json.RawMessage `json:"customfield_10007"`
	Sprint           json.RawMessage `json:"sprint"`
	Sprints          json.RawMessage `json:"sprints"`

	Worklog *WorklogPage `json:"worklog"`
}

// NamedField is a field whose only interesting projection is its name.
type NamedField struct {
	Name string `json:"name"`
}

// ProjectRef identifies the project an issue belongs to.
type ProjectRef struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// TimeTracking is the structured time-tracking field.
type TimeTracking struct {
	OriginalEstimateSeconds  *float64 `json:"originalEstimateSeconds"`
	RemainingEstimateSeconds *float64 `json:"remainingEstimateSeconds"`
	TimeSpentSeconds         *float64 `json:"timeSpentSeconds"`
}

// WorklogPage is one page of an issue's worklog container, embedded in the
// search payload or returned by the per-issue worklog endpoint.
type WorklogPage struct {
	Worklogs   []Worklog `json:"worklogs"`
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
}

// Worklog is a raw time entry.
type Worklog struct {
	ID      ID        `json:"id"`
	Author  Author    `json:"author"`
	Started Timestamp `json:"started"`
	// timeSpentInSeconds is the legacy field name of old server builds.
	TimeSpentSeconds   *float64 `json:"timeSpentSeconds"`
	TimeSpentInSeconds *float64 `json:"timeSpentInSeconds"`
	TimeSpent          string   `json:"timeSpent"`
	Comment            Text     `json:"comment"`
}

// SpentSeconds resolves the logged duration, preferring the current field
// name over the legacy one.
func (w Worklog) SpentSeconds() float64 {
	if v := pickNumber(w.TimeSpentSeconds, w.TimeSpentInSeconds); v != nil {
		return *v
	}
	return 0
}

// Author identifies who logged a worklog.
type Author struct {
	AccountID    string `json:"accountId"`
	Name         string `json:"name"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
}

// Key returns the most stable available identity of the author.
func (a Author) Key() string {
	if a.AccountID != "" {
		return a.AccountID
	}
	if a.Name != "" {
		return a.Name
	}
	return a.EmailAddress
}

// Matches reports whether the author is the given user, by stable id first
// and by name/email fallback.
func (a Author) Matches(username string) bool {
	if username == "" {
		return false
	}
	return a.AccountID == username || a.Name == username || a.EmailAddress == username
}

// Myself is the authenticated user payload.
type Myself struct {
	Name         string `json:"name"`
	EmailAddress string `json:"emailAddress"`
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
}

// Username picks the identity the worklog author filter should use.
func (m Myself) Username() string {
	for _, candidate := range []string{m.Name, m.EmailAddress, m.AccountID, m.DisplayName} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// TimeFacts is the derived per-issue time tracking triple, in seconds.
type TimeFacts struct {
	OriginalSeconds  float64
	SpentSeconds     float64
	RemainingSeconds float64
}

func pickNumber(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// TimeFacts resolves the time-tracking triple for an issue. Each component
// falls through a priority list of source fields; a missing remaining or
// original value is derived from the other two before defaulting to zero.
func (i Issue) TimeFacts() TimeFacts {
	var tt TimeTracking
	if i.Fields.TimeTracking != nil {
		tt = *i.Fields.TimeTracking
	}

	original := pickNumber(tt.OriginalEstimateSeconds, i.Fields.TimeOriginalEstimate, i.Fields.AggregateTimeOriginalEstimate)
	spent := pickNumber(tt.TimeSpentSeconds, i.Fields.TimeSpent, i.Fields.AggregateTimeSpent)
	remaining := pickNumber(tt.RemainingEstimateSeconds, i.Fields.TimeEstimate, i.Fields.AggregateTimeEstimate)

	if remaining == nil && original != nil && spent != nil {
		derived := *original - *spent
		if derived < 0 {
			derived = 0
		}
		remaining = &derived
	}
	if original == nil && spent != nil && remaining != nil {
		derived := *spent + *remaining
		original = &derived
	}

	facts := TimeFacts{}
	if original != nil {
		facts.OriginalSeconds = *original
	}
	if spent != nil {
		facts.SpentSeconds = *spent
	}
	if remaining != nil {
		facts.RemainingSeconds = *remaining
	}
	return facts
}

var sprintNamePattern = regexp.MustCompile(`(?i)name=([^,\]]+)`)

// parseSprintName extracts a sprint name from one raw candidate value, which
// may be a plain name, a serialized Java toString ("...name=Sprint 5,...")
// or an object carrying a name field.
func parseSprintName(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return ""
		}
		if m := sprintNamePattern.FindStringSubmatch(trimmed); m != nil {
			return strings.TrimSpace(m[1])
		}
		return trimmed
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Name)
	}

	return ""
}

// SprintNames collects sprint names over the vendor custom-field priority
// list, deduplicating by name. Each candidate may hold a single value or an
// array of values.
func (i Issue) SprintNames() []string {
	candidates := []json.RawMessage{
		i.Fields.CustomField10020,
		i.Fields.CustomField10016,
		i.Fields.CustomField10007,
		i.Fields.Sprint,
		i.Fields.Sprints,
	}

	seen := make(map[string]bool)
	var names []string
	for _, candidate := range candidates {
		if len(candidate) == 0 || string(candidate) == "null" {
			continue
		}
		items := []json.RawMessage{candidate}
		var arr []json.RawMessage
		if err := json.Unmarshal(candidate, &arr); err == nil {
			items = arr
		}
		for _, item := range items {
			name := parseSprintName(item)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Board is one agile board record.
type Board struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// BoardPage is one page of the agile board listing. Total is absent on some
// deployments, which changes the pagination exhaustion rule.
type BoardPage struct {
	Values     []Board `json:"values"`
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      *int    `json:"total"`
	IsLast     bool    `json:"isLast"`
}

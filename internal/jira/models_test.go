package jira

import (
	"encoding/json"
	"testing"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"string id", `"10023"`, "10023", false},
		{"numeric id", `10023`, "10023", false},
		{"hex string id", `"664c9a087b21446730da802d"`, "664c9a087b21446730da802d", false},
		{"object", `{}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.input), &id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && id.String() != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, id, tt.want)
			}
		})
	}
}

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantDay   string
	}{
		{"jira offset format", `"2025-07-23T10:15:00.000+0330"`, true, "2025-07-23"},
		{"rfc3339", `"2025-07-23T10:15:00Z"`, true, "2025-07-23"},
		{"no millis", `"2025-07-23T10:15:00+0330"`, true, "2025-07-23"},
		{"date only", `"2025-07-23"`, true, "2025-07-23"},
		{"garbage keeps raw", `"not-a-date"`, false, "not-a-date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.input), &ts); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if ts.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", ts.Valid, tt.wantValid)
			}
			if got := ts.DayYMD(); got != tt.wantDay {
				t.Errorf("DayYMD() = %q, want %q", got, tt.wantDay)
			}
		})
	}
}

func TestTextUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain string", `"worked on API"`, "worked on API"},
		{
			"adf document",
			`{"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"text","text":"line one"},{"type":"hardBreak"},{"type":"text","text":"line two"}]}]}`,
			"line one\nline two",
		},
		{"empty adf", `{"type":"doc","version":1,"content":[{"type":"paragraph","content":[]}]}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var text Text
			if err := json.Unmarshal([]byte(tt.input), &text); err != nil {
				t.Fatalf("Unmarshal error = %v", err)
			}
			if text.String() != tt.want {
				t.Errorf("Text = %q, want %q", text, tt.want)
			}
		})
	}
}

func f64(v float64) *float64 { return &v }

func TestTimeFactsDerivation(t *testing.T) {
	tests := []struct {
		name   string
		fields IssueFields
		want   TimeFacts
	}{
		{
			name: "remaining derived from original minus spent",
			fields: IssueFields{
				TimeTracking: &TimeTracking{
					OriginalEstimateSeconds: f64(36000),
					TimeSpentSeconds:        f64(14400),
				},
			},
			want: TimeFacts{OriginalSeconds: 36000, SpentSeconds: 14400, RemainingSeconds: 21600},
		},
		{
			name: "original derived from spent plus remaining",
			fields: IssueFields{
				TimeSpent:    f64(14400),
				TimeEstimate: f64(21600),
			},
			want: TimeFacts{OriginalSeconds: 36000, SpentSeconds: 14400, RemainingSeconds: 21600},
		},
		{
			name: "derived remaining clamps at zero",
			fields: IssueFields{
				TimeOriginalEstimate: f64(3600),
				TimeSpent:            f64(7200),
			},
			want: TimeFacts{OriginalSeconds: 3600, SpentSeconds: 7200, RemainingSeconds: 0},
		},
		{
			name: "structured field wins over flat field",
			fields: IssueFields{
				TimeTracking: &TimeTracking{TimeSpentSeconds: f64(1800)},
				TimeSpent:    f64(9999),
				TimeEstimate: f64(1800),
			},
			want: TimeFacts{OriginalSeconds: 3600, SpentSeconds: 1800, RemainingSeconds: 1800},
		},
		{
			name:   "all missing defaults to zero",
			fields: IssueFields{},
			want:   TimeFacts{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Issue{Fields: tt.fields}.TimeFacts()
			if got != tt.want {
				t.Errorf("TimeFacts() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSprintNames(t *testing.T) {
	fields := IssueFields{
		CustomField10020: json.RawMessage(`["com.atlassian.greenhopper.service.sprint.Sprint@1f[id=42,rapidViewId=7,state=ACTIVE,name=Sprint 5,goal=]"]`),
		CustomField10016: json.RawMessage(`{"id":42,"name":"Sprint 5"}`),
		Sprint:           json.RawMessage(`{"name":"Hardening"}`),
		Sprints:          json.RawMessage(`null`),
	}

	got := Issue{Fields: fields}.SprintNames()
	want := []string{"Sprint 5", "Hardening"}
	if len(got) != len(want) {
		t.Fatalf("SprintNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SprintNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSprintNamesEmpty(t *testing.T) {
	if names := (Issue{}).SprintNames(); len(names) != 0 {
		t.Errorf("SprintNames() on empty issue = %v, want empty", names)
	}
}

func TestAuthorMatches(t *testing.T) {
	author := Author{AccountID: "acc-1", Name: "alice", EmailAddress: "alice@example.com"}

	tests := []struct {
		username string
		want     bool
	}{
		{"acc-1", true},
		{"alice", true},
		{"alice@example.com", true},
		{"bob", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := author.Matches(tt.username); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.username, got, tt.want)
		}
	}
}

func TestWorklogSpentSeconds(t *testing.T) {
	if got := (Worklog{TimeSpentSeconds: f64(7200)}).SpentSeconds(); got != 7200 {
		t.Errorf("SpentSeconds() = %v, want 7200", got)
	}
	if got := (Worklog{TimeSpentInSeconds: f64(3600)}).SpentSeconds(); got != 3600 {
		t.Errorf("legacy SpentSeconds() = %v, want 3600", got)
	}
	if got := (Worklog{}).SpentSeconds(); got != 0 {
		t.Errorf("missing SpentSeconds() = %v, want 0", got)
	}
}

func TestMyselfUsername(t *testing.T) {
	tests := []struct {
		me   Myself
		want string
	}{
		{Myself{Name: "alice", EmailAddress: "a@x.com"}, "alice"},
		{Myself{EmailAddress: "a@x.com"}, "a@x.com"},
		{Myself{AccountID: "acc-1"}, "acc-1"},
		{Myself{}, ""},
	}
	for _, tt := range tests {
		if got := tt.me.Username(); got != tt.want {
			t.Errorf("Username() = %q, want %q", got, tt.want)
		}
	}
}

package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/mahdizarei0614/jira-worklogs/internal/jalaali"
	"github.com/mahdizarei0614/jira-worklogs/internal/jira"
)

// normalizer flattens raw worklogs of one aggregation run into canonical
// entries, filtering by author and date range and collapsing duplicates.
// It is not safe for concurrent use; each run owns its own instance.
type normalizer struct {
	username string
	start    time.Time // inclusive
	end      time.Time // inclusive
	seen     map[string]bool
}

func newNormalizer(username string, start, end time.Time) *normalizer {
	return &normalizer{
		username: username,
		start:    start,
		end:      end,
		seen:     make(map[string]bool),
	}
}

// worklogKey is the dedup identity: the stable record id scoped by issue key
// when present, else a fingerprint of author, start instant, and duration.
// The fingerprint deliberately omits the comment text.
func worklogKey(issueKey string, w jira.Worklog) string {
	if id := w.ID.String(); id != "" {
		return fmt.Sprintf("id:%s#%s", issueKey, id)
	}
	return fmt.Sprintf("fp:%s|%s|%s|%g", issueKey, w.Author.Key(), w.Started.Raw, w.SpentSeconds())
}

// add normalizes one raw worklog against its parent issue. It returns the
// entry and true when the worklog passed every filter. Duplicates are marked
// seen before the date checks, so a rejected duplicate stays rejected on a
// second pass.
func (n *normalizer) add(issue jira.Issue, w jira.Worklog) (WorklogEntry, bool) {
	if !w.Author.Matches(n.username) {
		return WorklogEntry{}, false
	}

	key := worklogKey(issue.Key, w)
	if n.seen[key] {
		return WorklogEntry{}, false
	}
	n.seen[key] = true

	if !w.Started.Valid {
		return WorklogEntry{}, false
	}
	started := w.Started.Time.In(jalaali.Tehran)
	if started.Before(n.start) || started.After(n.end) {
		return WorklogEntry{}, false
	}

	entry := WorklogEntry{
		IssueKey: issue.Key,
		Identity: key,
		Date:     jalaali.ToJalaali(started),
		Started:  started,
		Hours:    round2(w.SpentSeconds() / 3600),
		Comment:  w.Comment.String(),
		Summary:  issue.Fields.Summary,
		DueDate:  issue.Fields.DueDate,
	}
	if issue.Fields.Status != nil {
		entry.Status = issue.Fields.Status.Name
	}
	if issue.Fields.IssueType != nil {
		entry.IssueType = issue.Fields.IssueType.Name
	}
	return entry, true
}

// sortEntries restores the deterministic report order: date ascending, then
// start instant ascending. Fetch completion order never leaks into reports.
func sortEntries(entries []WorklogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Date.Label() != b.Date.Label() {
			return a.Date.Label() < b.Date.Label()
		}
		return a.Started.Before(b.Started)
	})
}

// sumHours totals already-rounded entry hours and rounds the sum once more.
func sumHours(entries []WorklogEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Hours
	}
	return round2(total)
}

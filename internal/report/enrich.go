package report

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mahdizarei0614/jira-worklogs/internal/jalaali"
	"github.com/mahdizarei0614/jira-worklogs/internal/jira"
)

// dueIssues lists the subject's issues due inside the month. Enrichment is
// best-effort: a failed lookup logs and returns an empty section.
func (s *Service) dueIssues(username string, start, end time.Time) []IssueSummary {
	jql := fmt.Sprintf(`assignee = "%s" AND duedate >= "%s" AND duedate <= "%s" ORDER BY duedate ASC`,
		username, start.Format("2006-01-02"), end.Format("2006-01-02"))

	issues, err := s.tracker.SearchIssues(jql, jira.DetailSearchFields)
	if err != nil {
		s.logger.Warn("Due issue lookup failed, section left empty", zap.Error(err))
		return nil
	}
	return s.summarize(issues, false)
}

// assignedIssues lists everything currently assigned to the subject, newest
// update first, each annotated with its project's agile board names.
func (s *Service) assignedIssues(username string) []IssueSummary {
	jql := fmt.Sprintf(`assignee = "%s" ORDER BY updated DESC`, username)

	issues, err := s.tracker.SearchIssues(jql, jira.DetailSearchFields)
	if err != nil {
		s.logger.Warn("Assigned issue lookup failed, section left empty", zap.Error(err))
		return nil
	}
	return s.summarize(issues, true)
}

// ActiveSprintIssues lists the subject's issues sitting in open sprints.
func (s *Service) ActiveSprintIssues(username string) ([]IssueSummary, error) {
	if username == "" {
		return nil, &ConfigError{Field: "identity"}
	}
	jql := fmt.Sprintf(`assignee = "%s" AND sprint in openSprints() ORDER BY updated DESC`, username)

	issues, err := s.tracker.SearchIssues(jql, jira.DetailSearchFields)
	if err != nil {
		return nil, fmt.Errorf("active sprint search failed: %w", err)
	}
	return s.summarize(issues, true), nil
}

func (s *Service) summarize(issues []jira.Issue, withBoards bool) []IssueSummary {
	summaries := make([]IssueSummary, 0, len(issues))
	for _, issue := range issues {
		summary := IssueSummary{
			Key:            issue.Key,
			Summary:        issue.Fields.Summary,
			DueDate:        issue.Fields.DueDate,
			DueDateJalaali: dueDateJalaali(issue.Fields.DueDate),
			Sprints:        issue.SprintNames(),
		}
		if issue.Fields.Status != nil {
			summary.Status = issue.Fields.Status.Name
		}
		if issue.Fields.IssueType != nil {
			summary.IssueType = issue.Fields.IssueType.Name
		}
		if issue.Fields.Updated.Valid {
			summary.Updated = issue.Fields.Updated.Time
		}
		if issue.Fields.Project != nil {
			summary.Project = issue.Fields.Project.Key
			if withBoards {
				summary.BoardNames = s.tracker.BoardNames(issue.Fields.Project.Key)
			}
		}

		facts := issue.TimeFacts()
		summary.Time = TimeNumbers{
			OriginalHours:  round2(facts.OriginalSeconds / 3600),
			SpentHours:     round2(facts.SpentSeconds / 3600),
			RemainingHours: round2(facts.RemainingSeconds / 3600),
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// dueDateJalaali renders a Gregorian due date (YYYY-MM-DD) as its Jalaali
// day label. Missing or unparseable dates render empty.
func dueDateJalaali(due string) string {
	if due == "" {
		return ""
	}
	t, err := time.ParseInLocation("2006-01-02", due, jalaali.Tehran)
	if err != nil {
		return ""
	}
	return jalaali.Format(t)
}

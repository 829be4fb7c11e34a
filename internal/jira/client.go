package jira

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mahdizarei0614/jira-worklogs/pkg/dateutil"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultRetries  = 3
	searchPageSize  = 100
	worklogPageSize = 100
	boardPageSize   = 50
	minWorklogSecs  = 60
	apiPrefix       = "/rest/api/latest"
	agilePrefix     = "/rest/agile/1.0"
)

// DefaultSearchFields is the projection for worklog-bearing issue searches.
var DefaultSearchFields = []string{
	"key",
	"summary",
	"worklog",
	"duedate",
	"status",
	"issuetype",
	"timeoriginalestimate",
	"timeestimate",
	"timespent",
	"aggregatetimeestimate",
	"aggregatetimespent",
	"aggregatetimeoriginalestimate",
	"timetracking",
}

// DetailSearchFields extends the default projection with project, update
// time, and the sprint custom-field candidates.
var DetailSearchFields = append(append([]string{}, DefaultSearchFields...),
	"project",
	"updated",
	"customfield_10020",
	"customfield_10016",
	"customfield_10007",
	"sprint",
	"sprints",
)

var authSchemePattern = regexp.MustCompile(`(?i)^(Bearer|Basic)\s`)

// Client is a Jira REST API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
	boards     *BoardCache

	myself *Myself // cached authenticated user
}

// NewClient creates a new Jira API client. The base URL is trimmed of
// trailing slashes; the token may carry its own auth scheme prefix.
func NewClient(baseURL, token string, boards *BoardCache, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
		boards: boards,
	}
}

// BaseURL returns the configured Jira base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Myself returns the authenticated user (cached).
func (c *Client) Myself() (*Myself, error) {
	if c.myself != nil {
		return c.myself, nil
	}

	var me Myself
	if err := c.get(apiPrefix+"/myself", nil, &me); err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}
	c.myself = &me

	c.logger.Info("Current user identified",
		zap.String("name", me.Name),
		zap.String("account_id", me.AccountID))

	return &me, nil
}

// SearchIssues runs a JQL search with the given field projection, paging
// until the server-reported total is exhausted.
func (c *Client) SearchIssues(jql string, fields []string) ([]Issue, error) {
	var issues []Issue
	startAt := 0

	for {
		params := url.Values{}
		params.Set("jql", jql)
		params.Set("startAt", strconv.Itoa(startAt))
		params.Set("maxResults", strconv.Itoa(searchPageSize))
		params.Set("fields", strings.Join(fields, ","))

		var page SearchResult
		if err := c.get(apiPrefix+"/search", params, &page); err != nil {
			return nil, fmt.Errorf("failed to search issues: %w", err)
		}

		issues = append(issues, page.Issues...)

		total := page.Total
		if total == 0 {
			total = len(issues)
		}
		step := page.MaxResults
		if step <= 0 {
			step = searchPageSize
		}
		startAt += step
		if startAt >= total {
			break
		}
	}

	c.logger.Info("Issues found",
		zap.String("jql", jql),
		zap.Int("count", len(issues)))

	return issues, nil
}

// IssueWorklogs returns the full worklog list for an issue. The page already
// embedded in the issue payload is consumed first; further round-trips happen
// only when the declared total exceeds what was inlined.
func (c *Client) IssueWorklogs(issueKey string, initial *WorklogPage) ([]Worklog, error) {
	var collected []Worklog
	total := 0
	if initial != nil {
		collected = append(collected, initial.Worklogs...)
		total = initial.Total
	}
	if total <= len(collected) {
		return collected, nil
	}

	startAt := len(collected)
	for startAt < total {
		params := url.Values{}
		params.Set("startAt", strconv.Itoa(startAt))
		params.Set("maxResults", strconv.Itoa(worklogPageSize))

		var page WorklogPage
		path := fmt.Sprintf("%s/issue/%s/worklog", apiPrefix, url.PathEscape(issueKey))
		if err := c.get(path, params, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch worklogs for %s: %w", issueKey, err)
		}

		if len(page.Worklogs) == 0 {
			break
		}
		collected = append(collected, page.Worklogs...)
		startAt += len(page.Worklogs)
	}

	return collected, nil
}

// BoardNames returns the agile board names of a project through the shared
// cache. Lookup failures resolve to an empty list for the process lifetime.
func (c *Client) BoardNames(projectKey string) []string {
	if projectKey == "" {
		return nil
	}
	return c.boards.Get(c.baseURL, projectKey, func() ([]string, error) {
		return c.fetchBoardNames(projectKey)
	})
}

func (c *Client) fetchBoardNames(projectKey string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	startAt := 0

	for {
		params := url.Values{}
		params.Set("projectKeyOrId", projectKey)
		params.Set("startAt", strconv.Itoa(startAt))
		params.Set("maxResults", strconv.Itoa(boardPageSize))

		var page BoardPage
		if err := c.get(agilePrefix+"/board", params, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch boards for %s: %w", projectKey, err)
		}

		for _, board := range page.Values {
			name := strings.TrimSpace(board.Name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}

		startAt += len(page.Values)
		if len(page.Values) == 0 {
			break
		}
		if page.Total != nil && startAt >= *page.Total {
			break
		}
		if page.Total == nil && len(page.Values) < boardPageSize {
			break
		}
	}

	c.logger.Debug("Boards fetched for project",
		zap.String("project", projectKey),
		zap.Int("count", len(names)))

	return names, nil
}

// CreateWorklogRequest is the body of the worklog creation endpoint.
// Comment is either a plain string or an ADF document.
type CreateWorklogRequest struct {
	Started          string      `json:"started"`
	TimeSpentSeconds int         `json:"timeSpentSeconds"`
	Comment          interface{} `json:"comment,omitempty"`
}

type createWorklogResponse struct {
	ID        ID `json:"id"`
	WorklogID ID `json:"worklogId"`
}

// CreateWorklog posts a new worklog entry and returns its id. Cloud hosts
// get the comment as an ADF document first, falling back to plain text when
// the server rejects it. Durations shorter than a minute are raised to one.
func (c *Client) CreateWorklog(issueKey string, started time.Time, seconds int, comment string) (string, error) {
	if issueKey == "" {
		return "", fmt.Errorf("missing issue key")
	}
	if seconds < minWorklogSecs {
		seconds = minWorklogSecs
	}

	base := CreateWorklogRequest{
		Started:          dateutil.FormatISO8601(started),
		TimeSpentSeconds: seconds,
	}
	trimmed := strings.TrimSpace(comment)
	useADF := trimmed != "" && hostUsesADF(c.baseURL)

	primary := base
	if trimmed != "" {
		if useADF {
			primary.Comment = adfDocument(trimmed)
		} else {
			primary.Comment = trimmed
		}
	}

	path := fmt.Sprintf("%s/issue/%s/worklog", apiPrefix, url.PathEscape(issueKey))

	id, err := c.postWorklog(path, primary)
	if err != nil && useADF {
		c.logger.Warn("ADF worklog comment rejected, retrying as plain text",
			zap.String("issue", issueKey),
			zap.Error(err))
		fallback := base
		fallback.Comment = trimmed
		id, err = c.postWorklog(path, fallback)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create worklog for %s: %w", issueKey, err)
	}

	c.logger.Info("Worklog created",
		zap.String("issue", issueKey),
		zap.String("worklog_id", id),
		zap.Int("seconds", seconds))

	return id, nil
}

func (c *Client) postWorklog(path string, body CreateWorklogRequest) (string, error) {
	var resp createWorklogResponse
	if err := c.post(path, body, &resp); err != nil {
		return "", err
	}
	id := resp.ID.String()
	if id == "" {
		id = resp.WorklogID.String()
	}
	if id == "" {
		return "", fmt.Errorf("worklog create response missing id")
	}
	return id, nil
}

// hostUsesADF reports whether the host expects Atlassian Document Format
// comments (cloud deployments).
func hostUsesADF(baseURL string) bool {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.HasSuffix(host, ".atlassian.net") ||
		strings.HasSuffix(host, ".jira.com") ||
		strings.HasSuffix(host, ".jira-dev.com")
}

// adfDocument builds a single-paragraph ADF document, turning line breaks
// into hard breaks.
func adfDocument(text string) map[string]interface{} {
	lines := strings.Split(text, "\n")
	var content []map[string]interface{}
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed != "" {
			content = append(content, map[string]interface{}{"type": "text", "text": trimmed})
		}
		if i < len(lines)-1 {
			content = append(content, map[string]interface{}{"type": "hardBreak"})
		}
	}
	if len(content) == 0 {
		content = append(content, map[string]interface{}{"type": "text", "text": strings.TrimSpace(text)})
	}
	return map[string]interface{}{
		"type":    "doc",
		"version": 1,
		"content": []map[string]interface{}{
			{"type": "paragraph", "content": content},
		},
	}
}

func (c *Client) get(path string, params url.Values, result interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	return c.doRequest(http.MethodGet, endpoint, nil, result)
}

func (c *Client) post(path string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.doRequest(http.MethodPost, c.baseURL+path, payload, result)
}

// doRequest performs an HTTP request with retries and backoff.
func (c *Client) doRequest(method, endpoint string, body []byte, result interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= defaultRetries; attempt++ {
		err := c.doRequestOnce(method, endpoint, body, result)
		if err == nil {
			return nil
		}

		lastErr = err
		c.logger.Warn("Request failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", defaultRetries),
			zap.Error(err))

		if attempt < defaultRetries {
			time.Sleep(time.Second * time.Duration(attempt))
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", defaultRetries, lastErr)
}

func (c *Client) doRequestOnce(method, endpoint string, body []byte, result interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		if authSchemePattern.MatchString(c.token) {
			req.Header.Set("Authorization", c.token)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

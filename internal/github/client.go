// Package github provides a thin client for the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	gh "github.com/google/go-github/v83/github"
	"golang.org/x/oauth2"

	"github.com/askrepo/askrepo/internal/config"
)

// Issue is a flattened GitHub issue.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	Labels    []string  `json:"labels"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	URL       string    `json:"url"`
}

// PullRequest is a flattened GitHub pull request.
type PullRequest struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	State      string    `json:"state"`
	Author     string    `json:"author"`
	BaseBranch string    `json:"base_branch"`
	HeadBranch string    `json:"head_branch"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	URL        string    `json:"url"`
}

// Data aggregates everything fetched for one repository. A failed fetch
// leaves the corresponding slice empty rather than failing the whole load.
type Data struct {
	Owner        string        `json:"owner"`
	Repo         string        `json:"repo"`
	Issues       []Issue       `json:"issues"`
	PullRequests []PullRequest `json:"pull_requests"`
	FetchedAt    time.Time     `json:"fetched_at"`
}

// OpenIssues counts issues in the open state.
func (d *Data) OpenIssues() int {
	n := 0
	for _, i := range d.Issues {
		if i.State == "open" {
			n++
		}
	}
	return n
}

// TokenInfo describes the token used for API access.
type TokenInfo struct {
	Valid     bool      `json:"valid"`
	Username  string    `json:"username,omitempty"`
	Remaining int       `json:"remaining_requests,omitempty"`
	Reset     time.Time `json:"reset_time,omitempty"`
}

// DiffSummary summarizes the files changed by a pull request.
type DiffSummary struct {
	Number       int      `json:"number"`
	ChangedFiles []string `json:"changed_files"`
	Additions    int      `json:"additions"`
	Deletions    int      `json:"deletions"`
	RiskFiles    []string `json:"risk_files"`
}

// riskPatterns flag changed files that tend to affect builds or deploys.
var riskPatterns = []string{
	"requirements.txt", "package.json", "lock", "dockerfile",
	"deployment", "ci", "workflow", "go.mod",
}

// Client wraps the GitHub REST API. A zero token yields an unauthenticated
// client with reduced rate limits; nothing fails at construction.
type Client struct {
	rest *gh.Client
	cfg  config.GitHubConfig
}

// NewClient creates a GitHub client. The secondary-rate-limit waiter is
// installed regardless of authentication.
func NewClient(cfg config.GitHubConfig) (*Client, error) {
	waiter, err := github_ratelimit.NewRateLimitWaiter(nil,
		github_ratelimit.WithSingleSleepLimit(time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = &http.Client{
			Transport: &oauth2.Transport{Base: waiter, Source: ts},
		}
	} else {
		httpClient = &http.Client{Transport: waiter}
	}

	return &Client{rest: gh.NewClient(httpClient), cfg: cfg}, nil
}

// Authenticated reports whether a token was supplied.
func (c *Client) Authenticated() bool {
	return c.cfg.Token != ""
}

// ParseRepoURL extracts owner and repository name from a github.com URL.
func ParseRepoURL(url string) (owner, repo string, err error) {
	idx := strings.Index(url, "github.com/")
	if idx == -1 {
		return "", "", fmt.Errorf("not a github.com URL: %s", url)
	}
	parts := strings.Split(strings.Trim(url[idx+len("github.com/"):], "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot extract owner/repo from URL: %s", url)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// FetchIssues lists issues for a repository. Pull requests are excluded
// even though the issues API returns them. Bodies are truncated.
func (c *Client) FetchIssues(ctx context.Context, owner, repo, state string) ([]Issue, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       state,
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var issues []Issue
	for {
		page, resp, err := c.rest.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues: %w", err)
		}
		for _, is := range page {
			if is.IsPullRequest() {
				continue
			}
			issues = append(issues, Issue{
				Number:    is.GetNumber(),
				Title:     is.GetTitle(),
				Body:      truncate(is.GetBody(), c.cfg.BodyLimit),
				State:     is.GetState(),
				Author:    is.GetUser().GetLogin(),
				Labels:    labelNames(is.Labels),
				Comments:  is.GetComments(),
				CreatedAt: is.GetCreatedAt().Time,
				UpdatedAt: is.GetUpdatedAt().Time,
				URL:       is.GetHTMLURL(),
			})
			if len(issues) >= c.cfg.IssueLimit {
				return issues, nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}
	return issues, nil
}

// FetchPullRequests lists pull requests for a repository.
func (c *Client) FetchPullRequests(ctx context.Context, owner, repo, state string) ([]PullRequest, error) {
	opts := &gh.PullRequestListOptions{
		State:       state,
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var prs []PullRequest
	for {
		page, resp, err := c.rest.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}
		for _, pr := range page {
			prs = append(prs, PullRequest{
				Number:     pr.GetNumber(),
				Title:      pr.GetTitle(),
				Body:       truncate(pr.GetBody(), c.cfg.BodyLimit),
				State:      pr.GetState(),
				Author:     pr.GetUser().GetLogin(),
				BaseBranch: pr.GetBase().GetRef(),
				HeadBranch: pr.GetHead().GetRef(),
				CreatedAt:  pr.GetCreatedAt().Time,
				UpdatedAt:  pr.GetUpdatedAt().Time,
				URL:        pr.GetHTMLURL(),
			})
			if len(prs) >= c.cfg.IssueLimit {
				return prs, nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return prs, nil
}

// FetchData fetches open issues and pull requests for a repository URL.
// Partial failures are logged, not fatal: a failed half stays empty.
func (c *Client) FetchData(ctx context.Context, repoURL string) (*Data, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	data := &Data{Owner: owner, Repo: repo, FetchedAt: time.Now()}

	if issues, err := c.FetchIssues(ctx, owner, repo, "open"); err != nil {
		slog.Warn("failed to fetch issues", "repo", owner+"/"+repo, "error", err)
	} else {
		data.Issues = issues
	}

	if prs, err := c.FetchPullRequests(ctx, owner, repo, "open"); err != nil {
		slog.Warn("failed to fetch pull requests", "repo", owner+"/"+repo, "error", err)
	} else {
		data.PullRequests = prs
	}

	return data, nil
}

// PRDiffSummary summarizes the file changes of one pull request.
func (c *Client) PRDiffSummary(ctx context.Context, owner, repo string, number int) (*DiffSummary, error) {
	opts := &gh.ListOptions{PerPage: 100}
	summary := &DiffSummary{Number: number}

	for {
		files, resp, err := c.rest.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list PR files: %w", err)
		}
		for _, f := range files {
			name := f.GetFilename()
			summary.ChangedFiles = append(summary.ChangedFiles, name)
			summary.Additions += f.GetAdditions()
			summary.Deletions += f.GetDeletions()
			if isRiskFile(name) {
				summary.RiskFiles = append(summary.RiskFiles, name)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return summary, nil
}

// TokenInfo validates the configured token and reports rate limit headroom.
func (c *Client) TokenInfo(ctx context.Context) TokenInfo {
	if c.cfg.Token == "" {
		return TokenInfo{Valid: false}
	}

	user, _, err := c.rest.Users.Get(ctx, "")
	if err != nil {
		return TokenInfo{Valid: false}
	}

	info := TokenInfo{Valid: true, Username: user.GetLogin()}
	if limits, _, err := c.rest.RateLimit.Get(ctx); err == nil {
		core := limits.GetCore()
		info.Remaining = core.Remaining
		info.Reset = core.Reset.Time
	}
	return info
}

func labelNames(labels []*gh.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.GetName())
	}
	return names
}

func isRiskFile(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range riskPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

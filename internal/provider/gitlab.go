package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const gitlabDefaultBaseURL = "https://gitlab.com"

// GitLabClient adapts the GitLab REST API. Two quirks stay local to this
// adapter: commit listings arrive newest-first and are reversed before
// returning, and the diff endpoint carries no per-file counters, so
// normalization falls back to parsing the patch text.
type GitLabClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewGitLabClient(token, baseURL string, timeout time.Duration) *GitLabClient {
	if baseURL == "" {
		baseURL = gitlabDefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GitLabClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
	}
}

type gitlabUser struct {
	Username string `json:"username"`
}

type gitlabProject struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
	Description       string `json:"description"`
	DefaultBranch     string `json:"default_branch"`
	Namespace         struct {
		Path string `json:"path"`
	} `json:"namespace"`
}

type gitlabCommit struct {
	ID            string    `json:"id"`
	Message       string    `json:"message"`
	AuthorName    string    `json:"author_name"`
	AuthorEmail   string    `json:"author_email"`
	CommittedDate time.Time `json:"committed_date"`
}

type gitlabDiff struct {
	Diff        string `json:"diff"`
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
}

type gitlabHook struct {
	ID int64 `json:"id"`
}

func (c *GitLabClient) Authenticate(ctx context.Context) (string, error) {
	var user gitlabUser
	if err := c.doJSON(ctx, "authenticate", http.MethodGet, "/user", nil, &user); err != nil {
		return "", err
	}
	return user.Username, nil
}

func (c *GitLabClient) FetchRepositories(ctx context.Context) ([]RepoDescriptor, error) {
	var descriptors []RepoDescriptor

	for page := 1; ; page++ {
		path := fmt.Sprintf("/projects?owned=true&per_page=100&page=%d", page)
		var projects []gitlabProject
		if err := c.doJSON(ctx, "fetch repositories", http.MethodGet, path, nil, &projects); err != nil {
			return nil, err
		}
		if len(projects) == 0 {
			break
		}

		for _, p := range projects {
			branch := p.DefaultBranch
			if branch == "" {
				branch = "main"
			}
			descriptors = append(descriptors, RepoDescriptor{
				ProviderID:    p.ID,
				Owner:         p.Namespace.Path,
				Name:          p.Name,
				FullPath:      p.PathWithNamespace,
				URL:           p.WebURL,
				Description:   p.Description,
				DefaultBranch: branch,
			})
		}
	}

	return descriptors, nil
}

func (c *GitLabClient) FetchCommits(ctx context.Context, repo RepoDescriptor, branch string) ([]CommitDescriptor, error) {
	var commits []CommitDescriptor

	for page := 1; ; page++ {
		path := fmt.Sprintf("/projects/%d/repository/commits?ref_name=%s&with_stats=true&per_page=100&page=%d",
			repo.ProviderID, url.QueryEscape(branch), page)
		var pageCommits []gitlabCommit
		if err := c.doJSON(ctx, "fetch commits", http.MethodGet, path, nil, &pageCommits); err != nil {
			return nil, err
		}
		if len(pageCommits) == 0 {
			break
		}

		for _, gc := range pageCommits {
			commits = append(commits, CommitDescriptor{
				Sha:         gc.ID,
				Message:     gc.Message,
				AuthorName:  gc.AuthorName,
				AuthorEmail: gc.AuthorEmail,
				Date:        gc.CommittedDate,
			})
		}
	}

	// GitLab lists newest-first; callers expect oldest-first.
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}

	return commits, nil
}

func (c *GitLabClient) FetchCommitDiff(ctx context.Context, repo RepoDescriptor, sha string) ([]FileChange, error) {
	path := fmt.Sprintf("/projects/%d/repository/commits/%s/diff", repo.ProviderID, url.PathEscape(sha))
	var diffs []gitlabDiff
	if err := c.doJSON(ctx, "fetch commit diff", http.MethodGet, path, nil, &diffs); err != nil {
		return nil, err
	}

	changes := make([]FileChange, 0, len(diffs))
	for _, d := range diffs {
		changes = append(changes, Normalize(RawFileDiff{
			OldPath:     d.OldPath,
			NewPath:     d.NewPath,
			NewFile:     d.NewFile,
			RenamedFile: d.RenamedFile,
			DeletedFile: d.DeletedFile,
			Patch:       d.Diff,
		}))
	}

	return changes, nil
}

func (c *GitLabClient) CreateWebhook(ctx context.Context, repo RepoDescriptor, callbackURL, branchFilter string) (int64, error) {
	payload := map[string]interface{}{
		"url":                       callbackURL,
		"push_events":               true,
		"enable_ssl_verification":   true,
		"push_events_branch_filter": branchFilter,
	}

	var hook gitlabHook
	path := fmt.Sprintf("/projects/%d/hooks", repo.ProviderID)
	if err := c.doJSON(ctx, "create webhook", http.MethodPost, path, payload, &hook); err != nil {
		return 0, err
	}

	// GitLab carries no hook id header on deliveries, so attach the id as
	// a custom header once it is known.
	update := map[string]interface{}{
		"url": callbackURL,
		"custom_headers": []map[string]string{
			{"key": "X-Custom-Webhook-Id", "value": strconv.FormatInt(hook.ID, 10)},
		},
	}
	editPath := fmt.Sprintf("/projects/%d/hooks/%d", repo.ProviderID, hook.ID)
	if err := c.doJSON(ctx, "create webhook", http.MethodPut, editPath, update, &gitlabHook{}); err != nil {
		return 0, err
	}

	return hook.ID, nil
}

func (c *GitLabClient) UpdateWebhookStatus(ctx context.Context, repo RepoDescriptor, hookID int64, enabled bool) error {
	payload := map[string]interface{}{
		"push_events": enabled,
	}
	path := fmt.Sprintf("/projects/%d/hooks/%d", repo.ProviderID, hookID)
	return c.doJSON(ctx, "update webhook status", http.MethodPut, path, payload, &gitlabHook{})
}

// doJSON performs one API call and decodes the JSON response into out.
func (c *GitLabClient) doJSON(ctx context.Context, op, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &ProviderError{Service: ServiceGitLab, Op: op, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v4"+path, body)
	if err != nil {
		return &ProviderError{Service: ServiceGitLab, Op: op, Err: err}
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newProviderError(ServiceGitLab, op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return newProviderError(ServiceGitLab, op, resp.StatusCode,
			fmt.Errorf("GitLab API: %s", string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Service: ServiceGitLab, Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}

	return nil
}

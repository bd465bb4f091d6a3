package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// GitHubClient adapts the GitHub REST API to the provider capability
// surface. GitHub lists commits oldest-first and includes per-file
// additions/deletions in its commit diff, so no reordering or stat
// fallback is needed here.
type GitHubClient struct {
	gh *github.Client
}

// NewGitHubClient creates an authenticated client. baseURL selects a
// GitHub Enterprise instance; empty means github.com.
func NewGitHubClient(token, baseURL string) (*GitHubClient, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	gh := github.NewClient(tc)
	if baseURL != "" && !strings.Contains(baseURL, "github.com") {
		var err error
		gh, err = gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
	}

	return &GitHubClient{gh: gh}, nil
}

func (c *GitHubClient) Authenticate(ctx context.Context) (string, error) {
	user, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", c.wrap("authenticate", resp, err)
	}
	return user.GetLogin(), nil
}

func (c *GitHubClient) FetchRepositories(ctx context.Context) ([]RepoDescriptor, error) {
	opts := &github.RepositoryListByAuthenticatedUserOptions{
		Type:        "owner",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var descriptors []RepoDescriptor
	for {
		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, c.wrap("fetch repositories", resp, err)
		}

		for _, r := range repos {
			descriptors = append(descriptors, RepoDescriptor{
				ProviderID:    r.GetID(),
				Owner:         r.GetOwner().GetLogin(),
				Name:          r.GetName(),
				FullPath:      r.GetFullName(),
				URL:           r.GetHTMLURL(),
				Description:   r.GetDescription(),
				DefaultBranch: r.GetDefaultBranch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return descriptors, nil
}

func (c *GitHubClient) FetchCommits(ctx context.Context, repo RepoDescriptor, branch string) ([]CommitDescriptor, error) {
	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var commits []CommitDescriptor
	for {
		page, resp, err := c.gh.Repositories.ListCommits(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, c.wrap("fetch commits", resp, err)
		}

		for _, rc := range page {
			commits = append(commits, CommitDescriptor{
				Sha:         rc.GetSHA(),
				Message:     rc.GetCommit().GetMessage(),
				AuthorName:  rc.GetCommit().GetAuthor().GetName(),
				AuthorEmail: rc.GetCommit().GetAuthor().GetEmail(),
				Date:        rc.GetCommit().GetAuthor().GetDate().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return commits, nil
}

func (c *GitHubClient) FetchCommitDiff(ctx context.Context, repo RepoDescriptor, sha string) ([]FileChange, error) {
	commit, resp, err := c.gh.Repositories.GetCommit(ctx, repo.Owner, repo.Name, sha, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, c.wrap("fetch commit diff", resp, err)
	}

	changes := make([]FileChange, 0, len(commit.Files))
	for _, f := range commit.Files {
		changes = append(changes, Normalize(RawFileDiff{
			Sha:       f.GetSHA(),
			OldPath:   f.GetPreviousFilename(),
			NewPath:   f.GetFilename(),
			Status:    f.GetStatus(),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			HasStats:  true,
			Patch:     f.GetPatch(),
		}))
	}

	return changes, nil
}

func (c *GitHubClient) CreateWebhook(ctx context.Context, repo RepoDescriptor, callbackURL, branchFilter string) (int64, error) {
	hook := &github.Hook{
		Active: github.Bool(true),
		Events: []string{"push"},
		Config: &github.HookConfig{
			URL:         github.String(callbackURL),
			ContentType: github.String("json"),
		},
	}

	created, resp, err := c.gh.Repositories.CreateHook(ctx, repo.Owner, repo.Name, hook)
	if err != nil {
		return 0, c.wrap("create webhook", resp, err)
	}
	return created.GetID(), nil
}

func (c *GitHubClient) UpdateWebhookStatus(ctx context.Context, repo RepoDescriptor, hookID int64, enabled bool) error {
	hook := &github.Hook{Active: github.Bool(enabled)}
	_, resp, err := c.gh.Repositories.EditHook(ctx, repo.Owner, repo.Name, hookID, hook)
	if err != nil {
		return c.wrap("update webhook status", resp, err)
	}
	return nil
}

// wrap converts go-github failures into the single ProviderError surface.
func (c *GitHubClient) wrap(op string, resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return newProviderError(ServiceGitHub, op, 429, err)
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return newProviderError(ServiceGitHub, op, status, err)
}

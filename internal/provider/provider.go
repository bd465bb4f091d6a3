package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/commitlens/commitlens/internal/models"
)

// Supported hosting services.
const (
	ServiceGitHub = "github"
	ServiceGitLab = "gitlab"
)

// RepoDescriptor identifies one remote repository as the provider reports it.
type RepoDescriptor struct {
	ProviderID    int64  // remote numeric id (GitLab project id, GitHub repo id)
	Owner         string
	Name          string
	FullPath      string // namespace path, e.g. "group/subgroup/project"
	URL           string
	Description   string
	DefaultBranch string
}

// CommitDescriptor is one commit as listed by the provider, without its diff.
type CommitDescriptor struct {
	Sha         string
	Message     string
	AuthorName  string
	AuthorEmail string
	Date        time.Time
}

// Client is the capability surface each hosting provider implements.
// FetchCommits always returns commits oldest-first; adapters whose API
// lists newest-first reverse before returning, so callers never branch
// on provider order.
type Client interface {
	Authenticate(ctx context.Context) (string, error)
	FetchRepositories(ctx context.Context) ([]RepoDescriptor, error)
	FetchCommits(ctx context.Context, repo RepoDescriptor, branch string) ([]CommitDescriptor, error)
	FetchCommitDiff(ctx context.Context, repo RepoDescriptor, sha string) ([]FileChange, error)
	CreateWebhook(ctx context.Context, repo RepoDescriptor, callbackURL, branchFilter string) (int64, error)
	UpdateWebhookStatus(ctx context.Context, repo RepoDescriptor, hookID int64, enabled bool) error
}

// New returns the client variant for the token's service.
func New(token *models.GitToken, timeout time.Duration) (Client, error) {
	switch token.Service {
	case ServiceGitHub:
		return NewGitHubClient(token.Token, token.BaseURL)
	case ServiceGitLab:
		return NewGitLabClient(token.Token, token.BaseURL, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported git service: %s", token.Service)
	}
}

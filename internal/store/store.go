package store

import (
	"context"
	"fmt"

	"github.com/commitlens/commitlens/internal/models"
)

// PersistenceError marks a storage failure. It is fatal for the operation
// and aborts the owning repository's remaining work, but never the run.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store is the persistence surface the sync and webhook pipelines consume.
// Insert-or-fetch operations are atomic: concurrent discovery of the same
// remote repository or commit cannot create duplicates.
type Store interface {
	// Tokens
	CreateToken(ctx context.Context, token *models.GitToken) error
	GetToken(ctx context.Context, id uint) (*models.GitToken, error)
	ListTokens(ctx context.Context) ([]models.GitToken, error)
	ListActiveTokens(ctx context.Context) ([]models.GitToken, error)
	// SetTokenActive cascade-disables the token's repositories on deactivation.
	SetTokenActive(ctx context.Context, id uint, active bool) error
	DeleteToken(ctx context.Context, id uint) error
	MarkTokenFetched(ctx context.Context, id uint) error

	// Repositories
	GetRepository(ctx context.Context, id uint) (*models.Repository, error)
	FindRepository(ctx context.Context, tokenID uint, owner, name string) (*models.Repository, error)
	FindRepositoryByWebhookID(ctx context.Context, service string, hookID int64) (*models.Repository, error)
	UpsertRepository(ctx context.Context, repo *models.Repository) (*models.Repository, error)
	SetRepositoryWebhook(ctx context.Context, repoID uint, hookID int64) error
	SetRepositoryActive(ctx context.Context, repoID uint, active bool) error
	UpdateLastFetchedAt(ctx context.Context, repoID uint) error
	ListRepositories(ctx context.Context, tokenID uint) ([]models.Repository, error)

	// Commits
	ExistsCommit(ctx context.Context, repoID uint, sha string) (bool, error)
	ListCommits(ctx context.Context, repoID uint, page, pageSize int) ([]models.Commit, int64, error)
	// UpsertCommit writes the commit and its files atomically. An existing
	// (repository, sha) row is left untouched and its id returned.
	UpsertCommit(ctx context.Context, commit *models.Commit) (uint, bool, error)
}

package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/commitlens/commitlens/internal/analysis"
	"github.com/commitlens/commitlens/internal/config"
	"github.com/commitlens/commitlens/internal/models"
	"github.com/commitlens/commitlens/internal/provider"
	"github.com/commitlens/commitlens/internal/store"
	"github.com/commitlens/commitlens/pkg/logger"
)

// ClientFactory builds a provider client for a token. Indirection exists so
// tests can substitute fakes without a network.
type ClientFactory func(token *models.GitToken, timeout time.Duration) (provider.Client, error)

// Orchestrator drives full sync passes: it walks every active token,
// discovers repositories, and runs each new commit through the
// fetch-diff / analyze / persist pipeline. The same pipeline backs the
// webhook path via ProcessCommit.
type Orchestrator struct {
	store   store.Store
	engine  *analysis.Engine
	clients ClientFactory
	cfg     config.SyncConfig
}

func New(st store.Store, engine *analysis.Engine, clients ClientFactory, cfg config.SyncConfig) *Orchestrator {
	if clients == nil {
		clients = provider.New
	}
	return &Orchestrator{store: st, engine: engine, clients: clients, cfg: cfg}
}

// RepoReport summarizes one repository's slice of a pass.
type RepoReport struct {
	Owner   string   `json:"owner"`
	Name    string   `json:"name"`
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// TokenReport groups the repository reports produced under one token.
type TokenReport struct {
	TokenID uint         `json:"token_id"`
	Service string       `json:"service"`
	Error   string       `json:"error,omitempty"`
	Repos   []RepoReport `json:"repos"`
}

// PassReport is the outcome of a single SyncAll invocation.
type PassReport struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Tokens     []TokenReport `json:"tokens"`
}

func (r *PassReport) Created() int {
	n := 0
	for _, t := range r.Tokens {
		for _, repo := range t.Repos {
			n += repo.Created
		}
	}
	return n
}

func (r *PassReport) Failed() int {
	n := 0
	for _, t := range r.Tokens {
		for _, repo := range t.Repos {
			n += repo.Failed
		}
	}
	return n
}

// SyncAll runs one pass over every active token. Failures are isolated:
// a broken token, repository, or commit is recorded in the report and the
// pass moves on. The returned error covers only the inability to start a
// pass at all.
func (o *Orchestrator) SyncAll(ctx context.Context) (*PassReport, error) {
	report := &PassReport{ID: uuid.New().String(), StartedAt: time.Now()}

	tokens, err := o.store.ListActiveTokens(ctx)
	if err != nil {
		return nil, err
	}
	logger.Infof("[Sync] pass %s started: %d active tokens", report.ID, len(tokens))

	for i := range tokens {
		token := tokens[i]
		tr := o.syncToken(ctx, &token)
		report.Tokens = append(report.Tokens, tr)
		if err := o.store.MarkTokenFetched(ctx, token.ID); err != nil {
			logger.Errorf("[Sync] mark token %d fetched: %v", token.ID, err)
		}
	}

	report.FinishedAt = time.Now()
	logger.Infof("[Sync] pass %s finished in %s: %d commits stored, %d failures",
		report.ID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		report.Created(), report.Failed())
	return report, nil
}

func (o *Orchestrator) syncToken(ctx context.Context, token *models.GitToken) TokenReport {
	tr := TokenReport{TokenID: token.ID, Service: token.Service}

	client, err := o.clients(token, o.cfg.CallTimeout())
	if err != nil {
		tr.Error = err.Error()
		return tr
	}

	username, err := provider.Do(ctx, o.cfg.CallTimeout(), o.cfg.MaxRetries,
		func(ctx context.Context) (string, error) {
			return client.Authenticate(ctx)
		})
	if err != nil {
		logger.Errorf("[Sync] token %d authenticate: %v", token.ID, err)
		tr.Error = err.Error()
		return tr
	}

	repos, err := provider.Do(ctx, o.cfg.CallTimeout(), o.cfg.MaxRetries,
		func(ctx context.Context) ([]provider.RepoDescriptor, error) {
			return client.FetchRepositories(ctx)
		})
	if err != nil {
		logger.Errorf("[Sync] token %d list repositories: %v", token.ID, err)
		tr.Error = err.Error()
		return tr
	}
	logger.Infof("[Sync] token %d (%s/%s): %d repositories", token.ID, token.Service, username, len(repos))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for _, desc := range repos {
		desc := desc
		g.Go(func() error {
			rr := o.syncRepository(gctx, token, client, desc)
			mu.Lock()
			tr.Repos = append(tr.Repos, rr)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return tr
}

func (o *Orchestrator) syncRepository(ctx context.Context, token *models.GitToken, client provider.Client, desc provider.RepoDescriptor) RepoReport {
	rr := RepoReport{Owner: desc.Owner, Name: desc.Name}
	fail := func(op string, err error) {
		rr.Failed++
		rr.Errors = append(rr.Errors, fmt.Sprintf("%s: %v", op, err))
	}

	repo, err := o.store.FindRepository(ctx, token.ID, desc.Owner, desc.Name)
	if err != nil {
		fail("find repository", err)
		return rr
	}
	if repo != nil && !repo.IsActive {
		// Deactivated locally: leave it alone until re-enabled.
		rr.Skipped++
		return rr
	}
	if repo == nil {
		branch := desc.DefaultBranch
		if branch == "" {
			branch = "main"
		}
		repo, err = o.store.UpsertRepository(ctx, &models.Repository{
			GitTokenID:    token.ID,
			Name:          desc.Name,
			Owner:         desc.Owner,
			ProviderID:    desc.ProviderID,
			URL:           desc.URL,
			Description:   desc.Description,
			DefaultBranch: branch,
			IsActive:      true,
		})
		if err != nil {
			fail("register repository", err)
			return rr
		}
	}

	o.registerWebhook(ctx, client, token.Service, desc, repo, &rr)

	commits, err := provider.Do(ctx, o.cfg.CallTimeout(), o.cfg.MaxRetries,
		func(ctx context.Context) ([]provider.CommitDescriptor, error) {
			return client.FetchCommits(ctx, desc, repo.DefaultBranch)
		})
	if err != nil {
		fail("list commits", err)
		return rr
	}

	for _, cd := range commits {
		created, err := o.processCommit(ctx, client, repo, desc, cd)
		if err != nil {
			fail("commit "+shortSha(cd.Sha), err)
			var perr *store.PersistenceError
			if errors.As(err, &perr) {
				// Storage is unhealthy; retrying the rest of this
				// repository would fail the same way.
				logger.Errorf("[Sync] %s/%s: aborting after persistence failure: %v", desc.Owner, desc.Name, err)
				break
			}
			continue
		}
		if created {
			rr.Created++
		} else {
			rr.Skipped++
		}
	}

	if err := o.store.UpdateLastFetchedAt(ctx, repo.ID); err != nil {
		logger.Errorf("[Sync] %s/%s: update last fetched: %v", desc.Owner, desc.Name, err)
	}
	return rr
}

// registerWebhook installs a push webhook on first discovery. Failure is
// recorded but never blocks the rest of the repository's pass: polling
// still covers the commits a missing hook would have delivered.
func (o *Orchestrator) registerWebhook(ctx context.Context, client provider.Client, service string, desc provider.RepoDescriptor, repo *models.Repository, rr *RepoReport) {
	if repo.WebhookID != 0 || o.cfg.CallbackBaseURL == "" {
		return
	}
	callback := fmt.Sprintf("%s/api/webhooks/%s", o.cfg.CallbackBaseURL, service)

	hookID, err := provider.Do(ctx, o.cfg.CallTimeout(), o.cfg.MaxRetries,
		func(ctx context.Context) (int64, error) {
			return client.CreateWebhook(ctx, desc, callback, repo.DefaultBranch)
		})
	if err != nil {
		logger.Warnf("[Sync] %s/%s: create webhook: %v", desc.Owner, desc.Name, err)
		rr.Errors = append(rr.Errors, fmt.Sprintf("create webhook: %v", err))
		return
	}
	if err := o.store.SetRepositoryWebhook(ctx, repo.ID, hookID); err != nil {
		logger.Errorf("[Sync] %s/%s: record webhook id: %v", desc.Owner, desc.Name, err)
		rr.Errors = append(rr.Errors, fmt.Sprintf("record webhook: %v", err))
		return
	}
	repo.WebhookID = hookID
	logger.Infof("[Sync] %s/%s: webhook %d registered", desc.Owner, desc.Name, hookID)
}

// processCommit runs one commit through the shared pipeline: skip when
// already stored, fetch the diff, score it, persist commit and files.
func (o *Orchestrator) processCommit(ctx context.Context, client provider.Client, repo *models.Repository, desc provider.RepoDescriptor, cd provider.CommitDescriptor) (bool, error) {
	exists, err := o.store.ExistsCommit(ctx, repo.ID, cd.Sha)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	files, err := provider.Do(ctx, o.cfg.CallTimeout(), o.cfg.MaxRetries,
		func(ctx context.Context) ([]provider.FileChange, error) {
			return client.FetchCommitDiff(ctx, desc, cd.Sha)
		})
	if err != nil {
		return false, err
	}

	result, err := o.engine.Analyze(ctx, files, cd.Message)
	if err != nil {
		return false, err
	}

	commit := &models.Commit{
		RepositoryID:         repo.ID,
		Sha:                  cd.Sha,
		Message:              cd.Message,
		Author:               cd.AuthorName,
		Date:                 cd.Date,
		Additions:            result.Additions,
		Deletions:            result.Deletions,
		Total:                result.Total,
		NumberOfCommentLines: result.NumberOfCommentLines,
		ChangesQualityScore:  result.ChangesQualityScore,
		MessageQualityScore:  result.MessageQualityScore,
	}
	for _, af := range result.Files {
		commit.Files = append(commit.Files, models.CommitFile{
			Sha:              af.Sha,
			Filename:         af.Filename,
			Extension:        af.Extension(),
			Status:           af.Status,
			Additions:        af.Additions,
			Deletions:        af.Deletions,
			Total:            af.Total,
			QualityScore:     af.QualityScore,
			ModificationType: af.ModificationType,
		})
	}

	_, created, err := o.store.UpsertCommit(ctx, commit)
	if err != nil {
		return false, err
	}
	if created {
		logger.Infof("[Sync] %s/%s: stored commit %s (%d files)", desc.Owner, desc.Name, shortSha(cd.Sha), len(commit.Files))
	}
	return created, nil
}

// ProcessWebhookCommit runs the shared pipeline for one commit announced
// by a push webhook. The descriptor carries the sha, message, author, and
// date lifted from the push payload. Inactive repositories and tokens are
// skipped quietly; the hook may outlive a local deactivation.
func (o *Orchestrator) ProcessWebhookCommit(ctx context.Context, repositoryID uint, cd provider.CommitDescriptor) (bool, error) {
	repo, err := o.store.GetRepository(ctx, repositoryID)
	if err != nil {
		return false, err
	}
	if repo == nil || !repo.IsActive {
		return false, nil
	}
	token, err := o.store.GetToken(ctx, repo.GitTokenID)
	if err != nil {
		return false, err
	}
	if token == nil || !token.IsActive {
		return false, nil
	}

	client, err := o.clients(token, o.cfg.CallTimeout())
	if err != nil {
		return false, err
	}
	desc := provider.RepoDescriptor{
		ProviderID:    repo.ProviderID,
		Owner:         repo.Owner,
		Name:          repo.Name,
		FullPath:      repo.Owner + "/" + repo.Name,
		DefaultBranch: repo.DefaultBranch,
	}
	return o.processCommit(ctx, client, repo, desc, cd)
}

// SetRepositoryActive toggles ingestion for one repository and mirrors
// the state onto the remote hook when one is registered. The remote
// toggle is best-effort: if the provider call fails the local flag stays
// authoritative, since both sync and webhook paths skip inactive rows.
func (o *Orchestrator) SetRepositoryActive(ctx context.Context, repo *models.Repository, active bool) error {
	if err := o.store.SetRepositoryActive(ctx, repo.ID, active); err != nil {
		return err
	}
	if repo.WebhookID == 0 {
		return nil
	}

	token, err := o.store.GetToken(ctx, repo.GitTokenID)
	if err != nil || token == nil {
		logger.Warnf("[Sync] %s/%s: hook toggle skipped, token unavailable", repo.Owner, repo.Name)
		return nil
	}
	client, err := o.clients(token, o.cfg.CallTimeout())
	if err != nil {
		logger.Warnf("[Sync] %s/%s: hook toggle skipped: %v", repo.Owner, repo.Name, err)
		return nil
	}
	desc := provider.RepoDescriptor{
		ProviderID: repo.ProviderID,
		Owner:      repo.Owner,
		Name:       repo.Name,
		FullPath:   repo.Owner + "/" + repo.Name,
	}
	_, err = provider.Do(ctx, o.cfg.CallTimeout(), o.cfg.MaxRetries,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, client.UpdateWebhookStatus(ctx, desc, repo.WebhookID, active)
		})
	if err != nil {
		logger.Warnf("[Sync] %s/%s: update webhook %d status: %v", repo.Owner, repo.Name, repo.WebhookID, err)
	}
	return nil
}

func shortSha(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

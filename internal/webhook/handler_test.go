package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/commitlens/commitlens/internal/models"
	"github.com/commitlens/commitlens/internal/provider"
	"github.com/commitlens/commitlens/internal/taskqueue"
)

// fakeStore resolves repositories and tokens from fixed fixtures.
type fakeStore struct {
	repo  *models.Repository
	token *models.GitToken
}

func (f *fakeStore) CreateToken(ctx context.Context, t *models.GitToken) error { return nil }
func (f *fakeStore) GetToken(ctx context.Context, id uint) (*models.GitToken, error) {
	return f.token, nil
}
func (f *fakeStore) ListTokens(ctx context.Context) ([]models.GitToken, error)       { return nil, nil }
func (f *fakeStore) ListActiveTokens(ctx context.Context) ([]models.GitToken, error) { return nil, nil }
func (f *fakeStore) SetTokenActive(ctx context.Context, id uint, active bool) error  { return nil }
func (f *fakeStore) DeleteToken(ctx context.Context, id uint) error                  { return nil }
func (f *fakeStore) MarkTokenFetched(ctx context.Context, id uint) error             { return nil }
func (f *fakeStore) GetRepository(ctx context.Context, id uint) (*models.Repository, error) {
	return f.repo, nil
}
func (f *fakeStore) FindRepository(ctx context.Context, tokenID uint, owner, name string) (*models.Repository, error) {
	return nil, nil
}
func (f *fakeStore) FindRepositoryByWebhookID(ctx context.Context, service string, hookID int64) (*models.Repository, error) {
	if f.repo != nil && f.repo.WebhookID == hookID {
		return f.repo, nil
	}
	return nil, nil
}
func (f *fakeStore) UpsertRepository(ctx context.Context, repo *models.Repository) (*models.Repository, error) {
	return repo, nil
}
func (f *fakeStore) SetRepositoryWebhook(ctx context.Context, repoID uint, hookID int64) error {
	return nil
}
func (f *fakeStore) SetRepositoryActive(ctx context.Context, repoID uint, active bool) error {
	return nil
}
func (f *fakeStore) UpdateLastFetchedAt(ctx context.Context, repoID uint) error { return nil }
func (f *fakeStore) ListRepositories(ctx context.Context, tokenID uint) ([]models.Repository, error) {
	return nil, nil
}
func (f *fakeStore) ExistsCommit(ctx context.Context, repoID uint, sha string) (bool, error) {
	return false, nil
}
func (f *fakeStore) ListCommits(ctx context.Context, repoID uint, page, pageSize int) ([]models.Commit, int64, error) {
	return nil, 0, nil
}
func (f *fakeStore) UpsertCommit(ctx context.Context, commit *models.Commit) (uint, bool, error) {
	return 0, false, nil
}

// recordingQueue captures enqueued tasks.
type recordingQueue struct {
	tasks []*taskqueue.CommitTask
}

func (q *recordingQueue) Enqueue(task *taskqueue.CommitTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}
func (q *recordingQueue) IsAsync() bool { return false }
func (q *recordingQueue) Close() error  { return nil }

func fixtures() (*fakeStore, *recordingQueue, *Handler) {
	st := &fakeStore{
		repo: &models.Repository{
			GitTokenID:    1,
			Owner:         "acme",
			Name:          "widget",
			DefaultBranch: "main",
			WebhookID:     77,
			IsActive:      true,
		},
		token: &models.GitToken{Service: provider.ServiceGitHub, IsActive: true},
	}
	queue := &recordingQueue{}
	return st, queue, NewHandler(st, queue)
}

const githubPush = `{
	"ref": "refs/heads/main",
	"commits": [
		{"id": "abc123", "message": "fix race", "timestamp": "2024-03-01T10:00:00Z",
		 "author": {"name": "dev", "email": "dev@acme.io"}}
	]
}`

func TestHandleGitHubAcceptsPush(t *testing.T) {
	_, queue, h := fixtures()

	outcome, err := h.HandleGitHub(context.Background(), "push", 77, []byte(githubPush))
	if err != nil {
		t.Fatalf("HandleGitHub: %v", err)
	}
	if outcome.Status != StatusAccepted {
		t.Errorf("status = %q, expected accepted", outcome.Status)
	}
	if outcome.Enqueued != 1 || len(queue.tasks) != 1 {
		t.Fatalf("enqueued = %d (queue %d), expected 1", outcome.Enqueued, len(queue.tasks))
	}

	task := queue.tasks[0]
	if task.Sha != "abc123" || task.Message != "fix race" || task.Author != "dev" {
		t.Errorf("task fields not lifted from payload: %+v", task)
	}
	if task.Date.IsZero() {
		t.Error("timestamp should be parsed")
	}
}

func TestHandleGitHubBranchMismatchIgnored(t *testing.T) {
	_, queue, h := fixtures()

	payload := `{"ref": "refs/heads/feature-x", "commits": [{"id": "abc123"}]}`
	outcome, err := h.HandleGitHub(context.Background(), "push", 77, []byte(payload))
	if err != nil {
		t.Fatalf("HandleGitHub: %v", err)
	}
	if outcome.Status != StatusIgnored {
		t.Errorf("status = %q, expected ignored", outcome.Status)
	}
	if len(queue.tasks) != 0 {
		t.Error("branch mismatch must produce no writes")
	}
}

func TestHandleGitHubSoftIgnores(t *testing.T) {
	tests := []struct {
		name  string
		setup func(st *fakeStore)
		event string
		hook  int64
	}{
		{"unsupported event", func(st *fakeStore) {}, "pull_request", 77},
		{"unknown hook id", func(st *fakeStore) {}, "push", 999},
		{"inactive repository", func(st *fakeStore) { st.repo.IsActive = false }, "push", 77},
		{"inactive token", func(st *fakeStore) { st.token.IsActive = false }, "push", 77},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, queue, h := fixtures()
			tt.setup(st)

			outcome, err := h.HandleGitHub(context.Background(), tt.event, tt.hook, []byte(githubPush))
			if err != nil {
				t.Fatalf("expected soft-ignore, got error: %v", err)
			}
			if outcome.Status != StatusIgnored {
				t.Errorf("status = %q, expected ignored", outcome.Status)
			}
			if outcome.Reason == "" {
				t.Error("ignored outcome should carry a reason")
			}
			if len(queue.tasks) != 0 {
				t.Error("ignored event must enqueue nothing")
			}
		})
	}
}

func TestHandleGitHubMalformedPayload(t *testing.T) {
	_, _, h := fixtures()

	_, err := h.HandleGitHub(context.Background(), "push", 77, []byte("{not json"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestHandleGitLabAcceptsPushHook(t *testing.T) {
	st, queue, h := fixtures()
	st.token.Service = provider.ServiceGitLab

	payload := `{
		"object_kind": "push",
		"ref": "refs/heads/main",
		"commits": [{"id": "def456", "message": "add tests", "timestamp": "2024-03-02T09:00:00+02:00",
			"author": {"name": "dev"}}]
	}`
	outcome, err := h.HandleGitLab(context.Background(), "Push Hook", 77, []byte(payload))
	if err != nil {
		t.Fatalf("HandleGitLab: %v", err)
	}
	if outcome.Status != StatusAccepted || len(queue.tasks) != 1 {
		t.Fatalf("outcome = %+v with %d tasks, expected one accepted commit", outcome, len(queue.tasks))
	}
	if queue.tasks[0].Sha != "def456" {
		t.Errorf("sha = %q, expected def456", queue.tasks[0].Sha)
	}
}

func TestHandleGitLabUnsupportedEvent(t *testing.T) {
	_, queue, h := fixtures()

	outcome, err := h.HandleGitLab(context.Background(), "Merge Request Hook", 77, []byte(`{}`))
	if err != nil {
		t.Fatalf("HandleGitLab: %v", err)
	}
	if outcome.Status != StatusIgnored || len(queue.tasks) != 0 {
		t.Errorf("unsupported events must be soft-ignored, got %+v", outcome)
	}
}

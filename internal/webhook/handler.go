package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/commitlens/commitlens/internal/models"
	"github.com/commitlens/commitlens/internal/provider"
	"github.com/commitlens/commitlens/internal/store"
	"github.com/commitlens/commitlens/internal/taskqueue"
	"github.com/commitlens/commitlens/pkg/logger"
)

// Outcome statuses. Both map to HTTP 200 so providers never retry what we
// deliberately declined.
const (
	StatusAccepted = "accepted"
	StatusIgnored  = "ignored"
)

// Outcome is the coarse result surface returned to the provider. Internal
// error detail never travels through it.
type Outcome struct {
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Enqueued int    `json:"enqueued,omitempty"`
}

func ignored(reason string) *Outcome {
	return &Outcome{Status: StatusIgnored, Reason: reason}
}

// ValidationError marks a payload we could not make sense of. It maps to
// a 400 at the HTTP layer; deliberate soft-ignores never produce one.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid webhook payload: " + e.Reason
}

// Handler validates inbound push events and feeds accepted commits into
// the same pipeline the batch sync uses.
type Handler struct {
	store store.Store
	queue taskqueue.Queue
}

func NewHandler(st store.Store, queue taskqueue.Queue) *Handler {
	return &Handler{store: st, queue: queue}
}

// HandleGitHub processes one GitHub webhook delivery. event is the
// X-GitHub-Event header, hookID the X-GitHub-Hook-ID header.
func (h *Handler) HandleGitHub(ctx context.Context, event string, hookID int64, payload []byte) (*Outcome, error) {
	if event != "push" {
		return ignored(fmt.Sprintf("unsupported event type: %s", event)), nil
	}

	var push GitHubPushEvent
	if err := json.Unmarshal(payload, &push); err != nil {
		return nil, &ValidationError{Reason: "malformed push payload"}
	}

	repo, outcome, err := h.resolveRepository(ctx, provider.ServiceGitHub, hookID)
	if outcome != nil || err != nil {
		return outcome, err
	}
	return h.acceptPush(repo, push.Ref, push.Commits)
}

// HandleGitLab processes one GitLab webhook delivery. event is the
// X-Gitlab-Event header, hookID the X-Custom-Webhook-Id header.
func (h *Handler) HandleGitLab(ctx context.Context, event string, hookID int64, payload []byte) (*Outcome, error) {
	if event != "Push Hook" {
		return ignored(fmt.Sprintf("unsupported event type: %s", event)), nil
	}

	var push GitLabPushEvent
	if err := json.Unmarshal(payload, &push); err != nil {
		return nil, &ValidationError{Reason: "malformed push payload"}
	}
	if push.ObjectKind != "" && push.ObjectKind != "push" {
		return ignored(fmt.Sprintf("unsupported object kind: %s", push.ObjectKind)), nil
	}

	repo, outcome, err := h.resolveRepository(ctx, provider.ServiceGitLab, hookID)
	if outcome != nil || err != nil {
		return outcome, err
	}
	return h.acceptPush(repo, push.Ref, push.Commits)
}

// resolveRepository maps a hook id back to a tracked repository and checks
// that it and its owning token are still active. Misses are soft-ignored:
// the remote hook may outlive our interest in it.
func (h *Handler) resolveRepository(ctx context.Context, service string, hookID int64) (*models.Repository, *Outcome, error) {
	if hookID == 0 {
		return nil, ignored("missing hook id"), nil
	}
	repo, err := h.store.FindRepositoryByWebhookID(ctx, service, hookID)
	if err != nil {
		return nil, nil, err
	}
	if repo == nil {
		return nil, ignored("unknown hook id"), nil
	}
	if !repo.IsActive {
		return nil, ignored("repository is inactive"), nil
	}
	token, err := h.store.GetToken(ctx, repo.GitTokenID)
	if err != nil {
		return nil, nil, err
	}
	if token == nil || !token.IsActive {
		return nil, ignored("token is inactive"), nil
	}
	return repo, nil, nil
}

func (h *Handler) acceptPush(repo *models.Repository, ref string, commits []PushCommit) (*Outcome, error) {
	branch := strings.TrimPrefix(ref, "refs/heads/")
	if branch != repo.DefaultBranch {
		return ignored(fmt.Sprintf("branch %s is not tracked", branch)), nil
	}
	if len(commits) == 0 {
		return ignored("no commits in payload"), nil
	}

	enqueued := 0
	for _, c := range commits {
		if c.ID == "" {
			continue
		}
		task := &taskqueue.CommitTask{
			RepositoryID: repo.ID,
			Sha:          c.ID,
			Message:      c.Message,
			Author:       c.Author.Name,
			AuthorEmail:  c.Author.Email,
			Date:         parseTimestamp(c.Timestamp),
		}
		if err := h.queue.Enqueue(task); err != nil {
			logger.Errorf("[Webhook] enqueue commit %s: %v", c.ID, err)
			continue
		}
		enqueued++
	}
	logger.Infof("[Webhook] %s/%s: %d commit(s) enqueued from push", repo.Owner, repo.Name, enqueued)
	return &Outcome{Status: StatusAccepted, Enqueued: enqueued}, nil
}

func parseTimestamp(ts string) time.Time {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}

package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/commitlens/commitlens/internal/models"
	"github.com/commitlens/commitlens/internal/store"
	"github.com/commitlens/commitlens/internal/syncer"
	"github.com/commitlens/commitlens/pkg/response"
)

type RepositoryHandler struct {
	store        store.Store
	orchestrator *syncer.Orchestrator
}

func NewRepositoryHandler(st store.Store, o *syncer.Orchestrator) *RepositoryHandler {
	return &RepositoryHandler{store: st, orchestrator: o}
}

type RepositoryResponse struct {
	ID            uint   `json:"id"`
	GitTokenID    uint   `json:"git_token_id"`
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
	WebhookID     int64  `json:"webhook_id"`
	IsActive      bool   `json:"is_active"`
	LastFetchedAt string `json:"last_fetched_at,omitempty"`
}

func toRepositoryResponse(r *models.Repository) RepositoryResponse {
	resp := RepositoryResponse{
		ID:            r.ID,
		GitTokenID:    r.GitTokenID,
		Owner:         r.Owner,
		Name:          r.Name,
		URL:           r.URL,
		Description:   r.Description,
		DefaultBranch: r.DefaultBranch,
		WebhookID:     r.WebhookID,
		IsActive:      r.IsActive,
	}
	if r.LastFetchedAt != nil {
		resp.LastFetchedAt = r.LastFetchedAt.Format("2006-01-02 15:04:05")
	}
	return resp
}

// List returns tracked repositories, optionally filtered by token id.
func (h *RepositoryHandler) List(c *gin.Context) {
	var tokenID uint64
	if v := c.Query("token_id"); v != "" {
		var err error
		tokenID, err = strconv.ParseUint(v, 10, 32)
		if err != nil {
			response.BadRequest(c, "invalid token_id")
			return
		}
	}

	repos, err := h.store.ListRepositories(c.Request.Context(), uint(tokenID))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	items := make([]RepositoryResponse, len(repos))
	for i := range repos {
		items[i] = toRepositoryResponse(&repos[i])
	}
	response.Success(c, items)
}

// SetActive toggles commit ingestion for one repository. The registered
// provider hook is paused or resumed to match.
func (h *RepositoryHandler) SetActive(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "is_active is required")
		return
	}

	repo, err := h.store.GetRepository(c.Request.Context(), uint(id))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	if repo == nil {
		response.NotFound(c, "repository not found")
		return
	}

	if err := h.orchestrator.SetRepositoryActive(c.Request.Context(), repo, *req.IsActive); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"id": id, "is_active": *req.IsActive})
}

// ListCommits returns a page of stored commits with their file records,
// newest first.
func (h *RepositoryHandler) ListCommits(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	commits, total, err := h.store.ListCommits(c.Request.Context(), uint(id), page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"items":     commits,
	})
}

package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/commitlens/commitlens/internal/config"
	"github.com/commitlens/commitlens/internal/models"
	"github.com/commitlens/commitlens/internal/provider"
	"github.com/commitlens/commitlens/internal/store"
	"github.com/commitlens/commitlens/pkg/response"
)

type TokenHandler struct {
	store store.Store
	cfg   config.SyncConfig
}

func NewTokenHandler(st store.Store, cfg config.SyncConfig) *TokenHandler {
	return &TokenHandler{store: st, cfg: cfg}
}

type CreateTokenRequest struct {
	Token   string `json:"token" binding:"required"`
	Service string `json:"service" binding:"required"`
	BaseURL string `json:"base_url"`
}

type TokenResponse struct {
	ID            uint   `json:"id"`
	Service       string `json:"service"`
	Username      string `json:"username"`
	BaseURL       string `json:"base_url"`
	TokenMask     string `json:"token_mask"`
	IsActive      bool   `json:"is_active"`
	LastFetchedAt string `json:"last_fetched_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toTokenResponse(t *models.GitToken) TokenResponse {
	resp := TokenResponse{
		ID:        t.ID,
		Service:   t.Service,
		Username:  t.Username,
		BaseURL:   t.BaseURL,
		TokenMask: maskToken(t.Token),
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if t.LastFetchedAt != nil {
		resp.LastFetchedAt = t.LastFetchedAt.Format("2006-01-02 15:04:05")
	}
	return resp
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}

// Create registers a new git token. The credential is validated against
// the provider before anything is stored.
func (h *TokenHandler) Create(c *gin.Context) {
	var req CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token and service are required")
		return
	}
	if req.Service != provider.ServiceGitHub && req.Service != provider.ServiceGitLab {
		response.BadRequest(c, "service must be github or gitlab")
		return
	}

	token := &models.GitToken{
		Token:    req.Token,
		Service:  req.Service,
		BaseURL:  req.BaseURL,
		IsActive: true,
	}

	client, err := provider.New(token, h.cfg.CallTimeout())
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	username, err := provider.Do(c.Request.Context(), h.cfg.CallTimeout(), h.cfg.MaxRetries,
		func(ctx context.Context) (string, error) {
			return client.Authenticate(ctx)
		})
	if err != nil {
		response.Unauthorized(c, "credential validation failed")
		return
	}
	token.Username = username

	if err := h.store.CreateToken(c.Request.Context(), token); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Created(c, toTokenResponse(token))
}

func (h *TokenHandler) List(c *gin.Context) {
	tokens, err := h.store.ListTokens(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	items := make([]TokenResponse, len(tokens))
	for i := range tokens {
		items[i] = toTokenResponse(&tokens[i])
	}
	response.Success(c, items)
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetActive toggles a token. Deactivation cascade-disables the token's
// repositories.
func (h *TokenHandler) SetActive(c *gin.Context) {
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

	if err := h.store.SetTokenActive(c.Request.Context(), uint(id), *req.IsActive); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"id": id, "is_active": *req.IsActive})
}

func (h *TokenHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	if err := h.store.DeleteToken(c.Request.Context(), uint(id)); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"id": id})
}

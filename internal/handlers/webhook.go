package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/commitlens/commitlens/internal/webhook"
	"github.com/commitlens/commitlens/pkg/logger"
)

// WebhookHandler terminates provider webhook deliveries. Responses carry
// only the coarse outcome: providers retry on non-2xx, so deliberate
// rejections are always 200 ignored.
type WebhookHandler struct {
	handler *webhook.Handler
}

func NewWebhookHandler(h *webhook.Handler) *WebhookHandler {
	return &WebhookHandler{handler: h}
}

// HandleGitHub handles POST /api/webhooks/github
func (h *WebhookHandler) HandleGitHub(c *gin.Context) {
	event := c.GetHeader("X-GitHub-Event")
	hookID, _ := strconv.ParseInt(c.GetHeader("X-GitHub-Hook-ID"), 10, 64)

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "failed to read request body"})
		return
	}

	outcome, err := h.handler.HandleGitHub(c.Request.Context(), event, hookID, body)
	h.respond(c, outcome, err)
}

// HandleGitLab handles POST /api/webhooks/gitlab
func (h *WebhookHandler) HandleGitLab(c *gin.Context) {
	event := c.GetHeader("X-Gitlab-Event")
	hookID, _ := strconv.ParseInt(c.GetHeader("X-Custom-Webhook-Id"), 10, 64)

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "failed to read request body"})
		return
	}

	outcome, err := h.handler.HandleGitLab(c.Request.Context(), event, hookID, body)
	h.respond(c, outcome, err)
}

func (h *WebhookHandler) respond(c *gin.Context, outcome *webhook.Outcome, err error) {
	if err != nil {
		var verr *webhook.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": verr.Reason})
			return
		}
		logger.Errorf("[Webhook] processing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal error"})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

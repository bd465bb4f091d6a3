package handlers

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/commitlens/commitlens/internal/syncer"
	"github.com/commitlens/commitlens/pkg/logger"
	"github.com/commitlens/commitlens/pkg/response"
)

// SyncHandler exposes manual sync triggering. A pass runs in the
// background; only one can be in flight at a time, and the last finished
// report is kept for inspection.
type SyncHandler struct {
	orchestrator *syncer.Orchestrator

	mu         sync.Mutex
	running    bool
	lastReport *syncer.PassReport
}

func NewSyncHandler(o *syncer.Orchestrator) *SyncHandler {
	return &SyncHandler{orchestrator: o}
}

// Trigger handles POST /api/sync
func (h *SyncHandler) Trigger(c *gin.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		response.Error(c, response.NewConflict("a sync pass is already running"))
		return
	}
	h.running = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
		}()
		report, err := h.orchestrator.SyncAll(context.Background())
		if err != nil {
			logger.Errorf("[Sync] manual pass failed: %v", err)
			return
		}
		h.mu.Lock()
		h.lastReport = report
		h.mu.Unlock()
	}()

	response.Success(c, gin.H{"status": "started"})
}

// Status handles GET /api/sync
func (h *SyncHandler) Status(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	response.Success(c, gin.H{
		"running":     h.running,
		"last_report": h.lastReport,
	})
}

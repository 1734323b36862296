package admin

import (
	"strings"

	"github.com/khatmdev/quadramall-promo/internal/http/response"
	"github.com/khatmdev/quadramall-promo/internal/queue"
	"github.com/khatmdev/quadramall-promo/internal/service"

	"github.com/gin-gonic/gin"
)

// RunSweeperRequest 手动触发清理请求
type RunSweeperRequest struct {
	Pass string `json:"pass" binding:"required"`
}

// RunSweeper 手动触发清理：队列启用时入队，否则同步执行
func (h *Handler) RunSweeper(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req RunSweeperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	pass := strings.TrimSpace(req.Pass)
	if !service.IsSweepPass(pass) {
		respondError(c, response.CodeBadRequest, "error.sweep_pass_invalid", nil)
		return
	}

	if h.QueueClient.Enabled() {
		payload := queue.DiscountSweepPayload{Pass: pass, RequestedBy: adminID}
		if err := h.QueueClient.EnqueueDiscountSweep(payload); err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		requestLog(c).Infow("admin_sweeper_enqueued", "admin_id", adminID, "pass", pass)
		response.Success(c, gin.H{"pass": pass, "queued": true})
		return
	}

	report, err := h.SweeperService.Run(c.Request.Context(), pass)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_sweeper_run", "admin_id", adminID, "pass", pass, "skipped", report.Skipped)
	response.Success(c, gin.H{"pass": pass, "queued": false, "report": report})
}

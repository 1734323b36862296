package public

import (
	"github.com/khatmdev/quadramall-promo/internal/http/response"
	"github.com/khatmdev/quadramall-promo/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 结算请求，codes 为 store_id -> 优惠码
type CheckoutRequest struct {
	OrderID   string                 `json:"order_id"`
	Lines     []service.CheckoutLine `json:"lines" binding:"required"`
	Codes     map[uint]string        `json:"codes"`
	AutoApply *bool                  `json:"auto_apply"`
}

func (r CheckoutRequest) toService(userID uint) service.CheckoutRequest {
	autoApply := true
	if r.AutoApply != nil {
		autoApply = *r.AutoApply
	}
	return service.CheckoutRequest{
		UserID:    userID,
		OrderID:   r.OrderID,
		Lines:     r.Lines,
		Codes:     r.Codes,
		AutoApply: autoApply,
	}
}

// QuoteCheckout 结算预览（不预占、不核销）
func (h *Handler) QuoteCheckout(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	quote, err := h.CheckoutService.Quote(c.Request.Context(), req.toService(userID))
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, quote)
}

// ConfirmCheckout 确认结算：预占秒杀配额并核销优惠码
func (h *Handler) ConfirmCheckout(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	quote, err := h.CheckoutService.Confirm(c.Request.Context(), req.toService(userID))
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, quote)
}

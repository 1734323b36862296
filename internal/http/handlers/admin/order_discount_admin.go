package admin

import (
	"github.com/khatmdev/quadramall-promo/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RevertOrderDiscounts 订单取消后撤销其优惠码核销
func (h *Handler) RevertOrderDiscounts(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	orderID := c.Param("order_id")
	reverted, err := h.CheckoutService.RevertOrderDiscounts(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_order_discounts_reverted", "admin_id", adminID, "order_id", orderID, "reverted", reverted)
	response.Success(c, gin.H{"order_id": orderID, "reverted": reverted})
}

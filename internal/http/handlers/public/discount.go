package public

import (
	"time"

	"github.com/khatmdev/quadramall-promo/internal/http/response"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/service"

	"github.com/gin-gonic/gin"
)

// ValidateDiscountRequest 校验优惠码请求
type ValidateDiscountRequest struct {
	StoreID uint                   `json:"store_id"`
	Code    string                 `json:"code" binding:"required"`
	Lines   []service.CheckoutLine `json:"lines" binding:"required"`
}

// DiscountCandidatesRequest 查询候选优惠码请求
type DiscountCandidatesRequest struct {
	StoreID uint                   `json:"store_id"`
	Lines   []service.CheckoutLine `json:"lines" binding:"required"`
}

// DiscountCandidateView 候选优惠码响应
type DiscountCandidateView struct {
	DiscountID           uint         `json:"discount_id"`
	Code                 string       `json:"code"`
	Name                 string       `json:"name"`
	DiscountType         string       `json:"discount_type"`
	AutoApply            bool         `json:"auto_apply"`
	Priority             int          `json:"priority"`
	ApplicableSubtotal   models.Money `json:"applicable_subtotal"`
	ApplicableProductIDs []uint       `json:"applicable_product_ids"`
	EstimatedDiscount    models.Money `json:"estimated_discount"`
	EndDate              time.Time    `json:"end_date"`
}

func buildCandidateView(candidate service.DiscountCandidate) DiscountCandidateView {
	amount, _ := service.ApplyDiscountCode(candidate.ApplicableSubtotal, candidate.Code)
	return DiscountCandidateView{
		DiscountID:           candidate.Code.ID,
		Code:                 candidate.Code.Code,
		Name:                 candidate.Code.Name,
		DiscountType:         candidate.Code.DiscountType,
		AutoApply:            candidate.Code.AutoApply,
		Priority:             candidate.Code.Priority,
		ApplicableSubtotal:   candidate.ApplicableSubtotal,
		ApplicableProductIDs: candidate.ApplicableProductIDs,
		EstimatedDiscount:    amount,
		EndDate:              candidate.Code.EndDate.UTC(),
	}
}

// ValidateDiscount 校验用户输入的优惠码
func (h *Handler) ValidateDiscount(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	dctx, err := h.CheckoutService.PriceContext(c.Request.Context(), userID, req.StoreID, req.Lines)
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	candidate, err := h.DiscountService.Validate(c.Request.Context(), req.Code, dctx)
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	response.Success(c, buildCandidateView(*candidate))
}

// ListDiscountCandidates 列出订单可用的优惠码（手动码在前，自动码按优先级排序）
func (h *Handler) ListDiscountCandidates(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req DiscountCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	dctx, err := h.CheckoutService.PriceContext(c.Request.Context(), userID, req.StoreID, req.Lines)
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	candidates, err := h.DiscountService.Resolve(c.Request.Context(), dctx)
	if err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	views := make([]DiscountCandidateView, 0, len(candidates))
	for _, candidate := range candidates {
		views = append(views, buildCandidateView(candidate))
	}
	response.Success(c, views)
}

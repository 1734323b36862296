package admin

import (
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	handlershared "github.com/khatmdev/quadramall-promo/internal/http/handlers/shared"
	"github.com/khatmdev/quadramall-promo/internal/http/response"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DiscountCodeRequest 创建/更新优惠码请求
type DiscountCodeRequest struct {
	StoreID          uint            `json:"store_id" binding:"required"`
	Code             string          `json:"code" binding:"required"`
	Name             string          `json:"name"`
	DiscountType     string          `json:"discount_type" binding:"required"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	MinOrderAmount   models.Money    `json:"min_order_amount"`
	MaxDiscountValue models.Money    `json:"max_discount_value"`
	Quantity         int             `json:"quantity"`
	UsagePerCustomer int             `json:"usage_per_customer"`
	AppliesTo        string          `json:"applies_to"`
	ProductIDs       []uint          `json:"product_ids"`
	AutoApply        bool            `json:"auto_apply"`
	Priority         int             `json:"priority"`
	StartDate        string          `json:"start_date" binding:"required"`
	EndDate          string          `json:"end_date" binding:"required"`
	IsActive         *bool           `json:"is_active"`
}

func (r DiscountCodeRequest) toInput() (service.DiscountCodeInput, error) {
	start, err := parseTime(r.StartDate)
	if err != nil {
		return service.DiscountCodeInput{}, err
	}
	end, err := parseTime(r.EndDate)
	if err != nil {
		return service.DiscountCodeInput{}, err
	}
	appliesTo := r.AppliesTo
	if appliesTo == "" {
		appliesTo = constants.DiscountAppliesToShop
	}
	return service.DiscountCodeInput{
		StoreID:          r.StoreID,
		Code:             r.Code,
		Name:             r.Name,
		DiscountType:     r.DiscountType,
		DiscountValue:    r.DiscountValue,
		MinOrderAmount:   r.MinOrderAmount,
		MaxDiscountValue: r.MaxDiscountValue,
		Quantity:         r.Quantity,
		UsagePerCustomer: r.UsagePerCustomer,
		AppliesTo:        appliesTo,
		ProductIDs:       r.ProductIDs,
		AutoApply:        r.AutoApply,
		Priority:         r.Priority,
		StartDate:        start,
		EndDate:          end,
		IsActive:         r.IsActive,
	}, nil
}

// CreateDiscountCode 创建优惠码
func (h *Handler) CreateDiscountCode(c *gin.Context) {
	var req DiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	code, err := h.DiscountCodeAdminService.Create(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, code)
}

// UpdateDiscountCode 更新优惠码（used_count 不可修改）
func (h *Handler) UpdateDiscountCode(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req DiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	code, err := h.DiscountCodeAdminService.Update(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, code)
}

// DeleteDiscountCode 删除优惠码
func (h *Handler) DeleteDiscountCode(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.DiscountCodeAdminService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetDiscountCode 获取优惠码详情
func (h *Handler) GetDiscountCode(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	code, err := h.DiscountCodeAdminService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, code)
}

// ListDiscountCodes 优惠码列表
func (h *Handler) ListDiscountCodes(c *gin.Context) {
	page, pageSize := handlershared.NormalizePagination(
		handlershared.ParseIntQuery(c, "page"),
		handlershared.ParseIntQuery(c, "page_size"),
	)
	codes, total, err := h.DiscountCodeAdminService.List(c.Request.Context(), service.DiscountCodeListInput{
		StoreID:   handlershared.ParseUintQuery(c, "store_id"),
		Keyword:   c.Query("keyword"),
		ProductID: handlershared.ParseUintQuery(c, "product_id"),
		IsActive:  handlershared.ParseOptionalBoolQuery(c, "is_active"),
		AutoApply: handlershared.ParseOptionalBoolQuery(c, "auto_apply"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, codes, response.BuildPagination(page, pageSize, total))
}

// ListExpiringDiscountCodes 即将到期的优惠码，hours 默认取清理任务的提醒窗口
func (h *Handler) ListExpiringDiscountCodes(c *gin.Context) {
	hours := handlershared.ParseIntQuery(c, "hours")
	if hours <= 0 && h.Config != nil {
		hours = h.Config.Sweeper.ExpiringWindowHours
	}
	if hours <= 0 {
		hours = constants.DefaultExpiringWindowHours
	}
	codes, err := h.DiscountCodeAdminService.ListExpiring(c.Request.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, codes)
}

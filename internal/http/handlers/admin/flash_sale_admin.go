package admin

import (
	handlershared "github.com/khatmdev/quadramall-promo/internal/http/handlers/shared"
	"github.com/khatmdev/quadramall-promo/internal/http/response"
	"github.com/khatmdev/quadramall-promo/internal/service"

	"github.com/gin-gonic/gin"
)

// FlashSaleRequest 创建/更新秒杀请求
type FlashSaleRequest struct {
	ProductID          uint   `json:"product_id" binding:"required"`
	PercentageDiscount int    `json:"percentage_discount" binding:"required"`
	Capacity           int    `json:"capacity"`
	StartTime          string `json:"start_time" binding:"required"`
	EndTime            string `json:"end_time" binding:"required"`
}

// ReleaseFlashSaleRequest 归还配额请求
type ReleaseFlashSaleRequest struct {
	Units int `json:"units" binding:"required"`
}

func (r FlashSaleRequest) toInput() (service.FlashSaleInput, error) {
	start, err := parseTime(r.StartTime)
	if err != nil {
		return service.FlashSaleInput{}, err
	}
	end, err := parseTime(r.EndTime)
	if err != nil {
		return service.FlashSaleInput{}, err
	}
	return service.FlashSaleInput{
		ProductID:          r.ProductID,
		PercentageDiscount: r.PercentageDiscount,
		Capacity:           r.Capacity,
		StartTime:          start,
		EndTime:            end,
	}, nil
}

// CreateFlashSale 创建秒杀
func (h *Handler) CreateFlashSale(c *gin.Context) {
	var req FlashSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	sale, err := h.FlashSaleAdminService.Create(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, sale)
}

// UpdateFlashSale 更新秒杀（consumed 不可修改）
func (h *Handler) UpdateFlashSale(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req FlashSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	sale, err := h.FlashSaleAdminService.Update(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, sale)
}

// DeleteFlashSale 删除秒杀
func (h *Handler) DeleteFlashSale(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.FlashSaleAdminService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetFlashSale 获取秒杀详情
func (h *Handler) GetFlashSale(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	sale, err := h.FlashSaleAdminService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, sale)
}

// ListFlashSales 秒杀列表
func (h *Handler) ListFlashSales(c *gin.Context) {
	page, pageSize := handlershared.NormalizePagination(
		handlershared.ParseIntQuery(c, "page"),
		handlershared.ParseIntQuery(c, "page_size"),
	)
	onlyActive := handlershared.ParseOptionalBoolQuery(c, "only_active")
	sales, total, err := h.FlashSaleAdminService.List(c.Request.Context(), service.FlashSaleListInput{
		ProductID:  handlershared.ParseUintQuery(c, "product_id"),
		StoreID:    handlershared.ParseUintQuery(c, "store_id"),
		OnlyActive: onlyActive != nil && *onlyActive,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, sales, response.BuildPagination(page, pageSize, total))
}

// ReleaseFlashSale 归还秒杀配额（订单取消等场景由运营手动触发）
func (h *Handler) ReleaseFlashSale(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req ReleaseFlashSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	sale, err := h.FlashSaleAdminService.Release(c.Request.Context(), id, req.Units)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_flash_sale_released", "admin_id", adminID, "flash_sale_id", id, "units", req.Units)
	response.Success(c, sale)
}

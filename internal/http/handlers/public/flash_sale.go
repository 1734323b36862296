package public

import (
	"github.com/khatmdev/quadramall-promo/internal/constants"
	handlershared "github.com/khatmdev/quadramall-promo/internal/http/handlers/shared"
	"github.com/khatmdev/quadramall-promo/internal/http/response"
	"github.com/khatmdev/quadramall-promo/internal/i18n"

	"github.com/gin-gonic/gin"
)

const maxBatchProductIDs = 100

// BatchFlashSaleRequest 批量查询秒杀请求
type BatchFlashSaleRequest struct {
	ProductIDs []uint `json:"product_ids" binding:"required"`
}

// ReserveRequest 预占请求
type ReserveRequest struct {
	Units int `json:"units" binding:"required"`
}

// GetActiveFlashSale 查询商品当前生效的秒杀
func (h *Handler) GetActiveFlashSale(c *gin.Context) {
	productID, ok := handlershared.ParseUintParam(c, "product_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	view, err := h.FlashSaleService.ActiveView(c.Request.Context(), productID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, view)
}

// BatchActiveFlashSales 批量查询多个商品当前生效的秒杀
func (h *Handler) BatchActiveFlashSales(c *gin.Context) {
	var req BatchFlashSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if len(req.ProductIDs) == 0 || len(req.ProductIDs) > maxBatchProductIDs {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	views, err := h.FlashSaleService.ActiveViews(c.Request.Context(), req.ProductIDs)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, views)
}

// ReserveFlashSale 预占秒杀配额
func (h *Handler) ReserveFlashSale(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	saleID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if limit := h.reserveMaxUnits(); req.Units > limit {
		response.Error(c, response.CodeBadRequest, i18n.Sprintf(i18n.ResolveLocale(c), "error.reserve_units_exceeded", limit))
		return
	}
	if err := h.InventoryService.Reserve(c.Request.Context(), saleID, req.Units); err != nil {
		respondServiceError(c, err, "error.internal")
		return
	}
	requestLog(c).Infow("flash_sale_reserved_via_api", "flash_sale_id", saleID, "user_id", userID, "units", req.Units)
	response.Success(c, gin.H{"flash_sale_id": saleID, "units": req.Units})
}

func (h *Handler) reserveMaxUnits() int {
	if h.Config != nil && h.Config.Security.ReserveMaxUnits > 0 {
		return h.Config.Security.ReserveMaxUnits
	}
	return constants.DefaultReserveMaxUnits
}

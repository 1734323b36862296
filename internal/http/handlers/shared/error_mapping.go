package shared

import (
	"errors"

	"github.com/khatmdev/quadramall-promo/internal/http/response"
	"github.com/khatmdev/quadramall-promo/internal/i18n"
	"github.com/khatmdev/quadramall-promo/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// PromoErrorRules 促销引擎通用错误映射
var PromoErrorRules = []MappedError{
	{Target: service.ErrFlashSaleNotFound, Code: response.CodeNotFound, Key: "error.flash_sale_not_found"},
	{Target: service.ErrFlashSaleSoldOut, Code: response.CodeConflict, Key: "error.flash_sale_sold_out"},
	{Target: service.ErrFlashSaleExpired, Code: response.CodeConflict, Key: "error.flash_sale_expired"},
	{Target: service.ErrReserveUnitsInvalid, Code: response.CodeBadRequest, Key: "error.reserve_units_invalid"},
	{Target: service.ErrReserveTimeout, Code: response.CodeUnavailable, Key: "error.reserve_timeout"},
	{Target: service.ErrDiscountNotFound, Code: response.CodeBadRequest, Key: "error.discount_not_found"},
	{Target: service.ErrDiscountExpired, Code: response.CodeBadRequest, Key: "error.discount_expired"},
	{Target: service.ErrDiscountInactive, Code: response.CodeBadRequest, Key: "error.discount_inactive"},
	{Target: service.ErrDiscountCapacityExceeded, Code: response.CodeConflict, Key: "error.discount_capacity_exceeded"},
	{Target: service.ErrDiscountMinOrderNotMet, Code: response.CodeBadRequest, Key: "error.discount_min_order_not_met"},
	{Target: service.ErrDiscountUsageLimitExceeded, Code: response.CodeBadRequest, Key: "error.discount_usage_limit_exceeded"},
	{Target: service.ErrDiscountScopeMismatch, Code: response.CodeBadRequest, Key: "error.discount_scope_mismatch"},
	{Target: service.ErrStoreMismatch, Code: response.CodeBadRequest, Key: "error.discount_scope_mismatch"},
	{Target: service.ErrFlashSaleInvalid, Code: response.CodeBadRequest, Key: "error.flash_sale_invalid"},
	{Target: service.ErrFlashSaleOverlap, Code: response.CodeConflict, Key: "error.flash_sale_overlap"},
	{Target: service.ErrFlashSaleCapacityTooLow, Code: response.CodeConflict, Key: "error.flash_sale_capacity_too_low"},
	{Target: service.ErrDiscountInvalid, Code: response.CodeBadRequest, Key: "error.discount_invalid"},
	{Target: service.ErrDiscountCodeExists, Code: response.CodeConflict, Key: "error.discount_code_exists"},
	{Target: service.ErrDiscountQuantityTooLow, Code: response.CodeConflict, Key: "error.discount_quantity_too_low"},
	{Target: service.ErrCheckoutInvalid, Code: response.CodeBadRequest, Key: "error.checkout_invalid"},
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Key: "error.product_not_found"},
	{Target: service.ErrOrderAlreadyConfirmed, Code: response.CodeConflict, Key: "error.order_already_confirmed"},
	{Target: service.ErrSweepPassInvalid, Code: response.CodeBadRequest, Key: "error.sweep_pass_invalid"},
}

// RespondServiceError 按映射规则返回业务错误，附带对外错误码；未命中规则时按 fallback 处理并记录日志。
func RespondServiceError(c *gin.Context, err error, fallbackCode int, fallbackKey string) {
	for _, rule := range PromoErrorRules {
		if !errors.Is(err, rule.Target) {
			continue
		}
		msg := i18n.T(i18n.ResolveLocale(c), rule.Key)
		if code := service.ErrorCode(err); code != "" {
			response.ErrorWithData(c, rule.Code, msg, map[string]interface{}{"error_code": code})
			return
		}
		response.Error(c, rule.Code, msg)
		return
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

package service

import (
	"context"
	"errors"

	"github.com/khatmdev/quadramall-promo/internal/constants"
)

// 秒杀/预占相关错误
var (
	ErrFlashSaleNotFound   = errors.New("flash sale not found")
	ErrFlashSaleSoldOut    = errors.New("flash sale sold out")
	ErrFlashSaleExpired    = errors.New("flash sale outside its time window")
	ErrReserveUnitsInvalid = errors.New("reserve units must be positive")
	ErrReserveTimeout      = errors.New("reservation timed out")
)

// 优惠码校验错误
var (
	ErrDiscountNotFound           = errors.New("discount code not found")
	ErrDiscountExpired            = errors.New("discount code outside its time window")
	ErrDiscountInactive           = errors.New("discount code inactive")
	ErrDiscountCapacityExceeded   = errors.New("discount code fully used")
	ErrDiscountMinOrderNotMet     = errors.New("order below discount minimum")
	ErrDiscountUsageLimitExceeded = errors.New("discount usage per customer reached")
	ErrDiscountScopeMismatch      = errors.New("discount code does not apply to this order")
)

// 管理端写入错误
var (
	ErrFlashSaleInvalid        = errors.New("flash sale input invalid")
	ErrFlashSaleOverlap        = errors.New("flash sale window overlaps another sale of the product")
	ErrFlashSaleCapacityTooLow = errors.New("flash sale capacity below consumed units")
	ErrDiscountInvalid         = errors.New("discount code input invalid")
	ErrDiscountCodeExists      = errors.New("discount code already exists in store")
	ErrDiscountQuantityTooLow  = errors.New("discount quantity below used count")
)

// 结算相关错误
var (
	ErrCheckoutInvalid       = errors.New("checkout request invalid")
	ErrProductNotFound       = errors.New("product not found")
	ErrStoreMismatch         = errors.New("order lines belong to another store")
	ErrOrderAlreadyConfirmed = errors.New("order discounts already confirmed")
)

// ErrSweepPassInvalid 未知的清理阶段
var ErrSweepPassInvalid = errors.New("unknown sweep pass")

var errorCodeRules = []struct {
	err  error
	code string
}{
	{ErrFlashSaleSoldOut, constants.ErrorCodeSoldOut},
	{ErrFlashSaleExpired, constants.ErrorCodeExpired},
	{ErrFlashSaleNotFound, constants.ErrorCodeNotFound},
	{ErrDiscountNotFound, constants.ErrorCodeNotFound},
	{ErrDiscountExpired, constants.ErrorCodeExpired},
	{ErrDiscountInactive, constants.ErrorCodeInactive},
	{ErrDiscountCapacityExceeded, constants.ErrorCodeCapacityExceeded},
	{ErrDiscountMinOrderNotMet, constants.ErrorCodeMinOrderNotMet},
	{ErrDiscountUsageLimitExceeded, constants.ErrorCodeUsageLimitExceeded},
	{ErrDiscountScopeMismatch, constants.ErrorCodeScopeMismatch},
	{ErrStoreMismatch, constants.ErrorCodeScopeMismatch},
	{ErrProductNotFound, constants.ErrorCodeNotFound},
}

// ErrorCode 将业务错误映射为对外错误码，非业务错误返回空字符串
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, rule := range errorCodeRules {
		if errors.Is(err, rule.err) {
			return rule.code
		}
	}
	return ""
}

// IsValidationError 判断是否为优惠码校验失败（调用方需调整输入）
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrDiscountNotFound),
		errors.Is(err, ErrDiscountExpired),
		errors.Is(err, ErrDiscountInactive),
		errors.Is(err, ErrDiscountCapacityExceeded),
		errors.Is(err, ErrDiscountMinOrderNotMet),
		errors.Is(err, ErrDiscountUsageLimitExceeded),
		errors.Is(err, ErrDiscountScopeMismatch):
		return true
	}
	return false
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

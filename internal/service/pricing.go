package service

import (
	"strings"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PriceForLineItem 计算秒杀后的单价：round_half_up(origin * (100 - pct) / 100)
// sale 为 nil 或折扣比例不在 1-100 时返回原价
func PriceForLineItem(originPrice models.Money, sale *models.FlashSale) models.Money {
	if sale == nil {
		return models.NewMoneyFromDecimal(originPrice.Decimal)
	}
	pct := sale.PercentageDiscount
	if pct < 1 || pct > 100 {
		logger.Warnw("flash_sale_pct_out_of_range", "flash_sale_id", sale.ID, "percentage_discount", pct)
		return models.NewMoneyFromDecimal(originPrice.Decimal)
	}
	remain := hundred.Sub(decimal.NewFromInt(int64(pct)))
	return models.NewMoneyFromDecimal(originPrice.Decimal.Mul(remain).Div(hundred))
}

// LineSubtotal 计算行小计
func LineSubtotal(unitPrice models.Money, quantity int) models.Money {
	if quantity <= 0 {
		return models.Money{}
	}
	return models.NewMoneyFromDecimal(unitPrice.Decimal.Mul(decimal.NewFromInt(int64(quantity))))
}

// ApplyDiscountCode 在可用小计上计算优惠码折扣，返回 (折扣金额, 折后金额)
// 百分比：subtotal * value / 100，maxDiscountValue > 0 时封顶；固定金额：min(value, subtotal)
func ApplyDiscountCode(subtotal models.Money, code *models.DiscountCode) (models.Money, models.Money) {
	base := models.RoundHalfUp(subtotal.Decimal)
	if code == nil || base.Sign() <= 0 {
		return models.Money{}, models.NewMoneyFromDecimal(base)
	}

	var discount decimal.Decimal
	switch strings.ToLower(strings.TrimSpace(code.DiscountType)) {
	case constants.DiscountTypePercentage:
		discount = models.RoundHalfUp(base.Mul(code.DiscountValue).Div(hundred))
		if code.MaxDiscountValue.Decimal.Sign() > 0 && discount.GreaterThan(code.MaxDiscountValue.Decimal) {
			discount = models.RoundHalfUp(code.MaxDiscountValue.Decimal)
		}
	case constants.DiscountTypeFixed:
		discount = models.RoundHalfUp(code.DiscountValue)
	default:
		discount = decimal.Zero
	}

	if discount.Sign() < 0 {
		discount = decimal.Zero
	}
	if discount.GreaterThan(base) {
		discount = base
	}
	return models.NewMoneyFromDecimal(discount), models.NewMoneyFromDecimal(base.Sub(discount))
}

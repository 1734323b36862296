package i18n

var messages = map[string]map[string]string{
	LocaleEN: {
		"error.bad_request":                   "Invalid request parameters",
		"error.unauthorized":                  "Unauthorized",
		"error.forbidden":                     "Forbidden",
		"error.not_found":                     "Resource not found",
		"error.internal":                      "Internal server error",
		"error.jwt_secret_missing":            "Token verification is not configured",
		"error.auth_header_missing":           "Missing Authorization header",
		"error.auth_header_invalid":           "Authorization header must be Bearer token",
		"error.token_invalid":                 "Invalid or expired token",
		"error.rate_limited":                  "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":        "Rate limiter unavailable",
		"error.flash_sale_not_found":          "Flash sale not found",
		"error.flash_sale_sold_out":           "Flash sale sold out",
		"error.flash_sale_expired":            "Flash sale is not running",
		"error.flash_sale_invalid":            "Invalid flash sale settings",
		"error.flash_sale_overlap":            "Flash sale window overlaps another sale of this product",
		"error.flash_sale_capacity_too_low":   "Capacity cannot be lower than units already sold",
		"error.reserve_units_invalid":         "Units must be positive",
		"error.reserve_units_exceeded":        "Units exceed the per-request limit of %d",
		"error.reserve_timeout":               "Reservation timed out, please retry",
		"error.discount_not_found":            "Discount code not found",
		"error.discount_expired":              "Discount code is not valid at this time",
		"error.discount_inactive":             "Discount code is disabled",
		"error.discount_capacity_exceeded":    "Discount code has been fully used",
		"error.discount_min_order_not_met":    "Order total is below the discount minimum",
		"error.discount_usage_limit_exceeded": "You have reached the usage limit for this code",
		"error.discount_scope_mismatch":       "Discount code does not apply to this order",
		"error.discount_invalid":              "Invalid discount code settings",
		"error.discount_code_exists":          "Discount code already exists in this store",
		"error.discount_quantity_too_low":     "Quantity cannot be lower than times already used",
		"error.checkout_invalid":              "Invalid checkout request",
		"error.product_not_found":             "Product not found or unavailable",
		"error.order_already_confirmed":       "Order discounts already confirmed",
		"error.sweep_pass_invalid":            "Unknown sweep pass",
		"error.queue_unavailable":             "Task queue is disabled",
	},
	LocaleZH: {
		"error.bad_request":                   "请求参数错误",
		"error.unauthorized":                  "未授权",
		"error.forbidden":                     "无权限",
		"error.not_found":                     "资源不存在",
		"error.internal":                      "服务器内部错误",
		"error.jwt_secret_missing":            "未配置令牌校验密钥",
		"error.auth_header_missing":           "缺少 Authorization 头",
		"error.auth_header_invalid":           "Authorization 头格式错误",
		"error.token_invalid":                 "令牌无效或已过期",
		"error.rate_limited":                  "请求过于频繁，请 %d 秒后重试",
		"error.rate_limit_unavailable":        "限流服务不可用",
		"error.flash_sale_not_found":          "秒杀不存在",
		"error.flash_sale_sold_out":           "秒杀已售罄",
		"error.flash_sale_expired":            "秒杀不在进行中",
		"error.flash_sale_invalid":            "秒杀参数错误",
		"error.flash_sale_overlap":            "该商品的秒杀时间段存在重叠",
		"error.flash_sale_capacity_too_low":   "配额不能低于已售数量",
		"error.reserve_units_invalid":         "数量必须大于 0",
		"error.reserve_units_exceeded":        "单次预占数量不能超过 %d",
		"error.reserve_timeout":               "预占超时，请重试",
		"error.discount_not_found":            "优惠码不存在",
		"error.discount_expired":              "优惠码不在有效期内",
		"error.discount_inactive":             "优惠码已停用",
		"error.discount_capacity_exceeded":    "优惠码已被领完",
		"error.discount_min_order_not_met":    "未达到优惠码使用门槛",
		"error.discount_usage_limit_exceeded": "已达到该优惠码的使用次数上限",
		"error.discount_scope_mismatch":       "优惠码不适用于当前订单",
		"error.discount_invalid":              "优惠码参数错误",
		"error.discount_code_exists":          "店铺内已存在相同优惠码",
		"error.discount_quantity_too_low":     "总量不能低于已使用次数",
		"error.checkout_invalid":              "结算参数错误",
		"error.product_not_found":             "商品不存在或已下架",
		"error.order_already_confirmed":       "订单优惠已确认",
		"error.sweep_pass_invalid":            "未知的清理类型",
		"error.queue_unavailable":             "任务队列未启用",
	},
	LocaleVI: {
		"error.bad_request":                   "Tham số yêu cầu không hợp lệ",
		"error.unauthorized":                  "Chưa xác thực",
		"error.rate_limited":                  "Quá nhiều yêu cầu, thử lại sau %d giây",
		"error.flash_sale_sold_out":           "Flash sale đã hết hàng",
		"error.flash_sale_expired":            "Flash sale không trong thời gian diễn ra",
		"error.discount_not_found":            "Không tìm thấy mã giảm giá",
		"error.discount_expired":              "Mã giảm giá đã hết hạn",
		"error.discount_inactive":             "Mã giảm giá đã bị vô hiệu hóa",
		"error.discount_capacity_exceeded":    "Mã giảm giá đã hết lượt sử dụng",
		"error.discount_min_order_not_met":    "Đơn hàng chưa đạt giá trị tối thiểu",
		"error.discount_usage_limit_exceeded": "Bạn đã dùng hết lượt cho mã này",
		"error.discount_scope_mismatch":       "Mã giảm giá không áp dụng cho đơn hàng này",
	},
}

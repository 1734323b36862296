package constants

// 优惠码折扣类型常量
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// 优惠码适用范围常量
const (
	DiscountAppliesToShop     = "shop"
	DiscountAppliesToProducts = "products"
)

// 店铺状态常量
const (
	StoreStatusActive   = "active"
	StoreStatusInactive = "inactive"
	StoreStatusBanned   = "banned"
)

// 预占结果常量
const (
	ReserveResultOK       = "ok"
	ReserveResultSoldOut  = "sold_out"
	ReserveResultExpired  = "expired"
	ReserveResultNotFound = "not_found"
	ReserveResultError    = "error"
)

// 业务错误码（对外暴露给调用方）
const (
	ErrorCodeSoldOut            = "SOLD_OUT"
	ErrorCodeExpired            = "EXPIRED"
	ErrorCodeNotFound           = "NOT_FOUND"
	ErrorCodeInactive           = "INACTIVE"
	ErrorCodeCapacityExceeded   = "CAPACITY_EXCEEDED"
	ErrorCodeMinOrderNotMet     = "MIN_ORDER_NOT_MET"
	ErrorCodeUsageLimitExceeded = "USAGE_LIMIT_EXCEEDED"
	ErrorCodeScopeMismatch      = "SCOPE_MISMATCH"
)

// 清理任务阶段常量
const (
	SweepPassDeactivate = "deactivate"
	SweepPassExpiring   = "expiring"
)

// 即将到期通知对象类型
const (
	ExpiringKindDiscountCode = "discount_code"
	ExpiringKindFlashSale    = "flash_sale"
)

// 缓存类型常量（对应 cache.kinds 配置项）
const (
	CacheKindFlashSaleView = "flash_sale_view"
	CacheKindSweeperLock   = "sweeper_lock"
	CacheKindExpiringNotif = "expiring_notified"
	CacheKindReserveLimit  = "reserve_rate_limit"
)

// DefaultExpiringWindowHours 即将到期提醒窗口（小时）
const DefaultExpiringWindowHours = 72

// DefaultReserveMaxUnits 单次预占默认上限
const DefaultReserveMaxUnits = 5

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskDiscountSweep  = "discount:sweep"
	TaskExpiringNotify = "promo:expiring_notify"
)

package notify

import (
	"context"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/logger"
)

// ExpiringItem 即将到期的优惠码或秒杀
type ExpiringItem struct {
	Kind      string    `json:"kind"`
	ID        uint      `json:"id"`
	StoreID   uint      `json:"store_id,omitempty"`
	ProductID uint      `json:"product_id,omitempty"`
	Code      string    `json:"code,omitempty"`
	Remaining int       `json:"remaining"`
	EndTime   time.Time `json:"end_time"`
}

// Notifier 外部通知投递方
type Notifier interface {
	NotifyExpiring(ctx context.Context, item ExpiringItem) error
}

// LogNotifier 未配置 webhook 时仅记录日志
type LogNotifier struct{}

// NotifyExpiring 记录即将到期对象
func (LogNotifier) NotifyExpiring(_ context.Context, item ExpiringItem) error {
	logger.Infow("expiring_item_logged",
		"kind", item.Kind,
		"id", item.ID,
		"store_id", item.StoreID,
		"product_id", item.ProductID,
		"code", item.Code,
		"remaining", item.Remaining,
		"end_time", item.EndTime,
	)
	return nil
}

// New 根据 webhook 地址创建通知器
func New(webhookURL string, timeout time.Duration) Notifier {
	if webhookURL == "" {
		return LogNotifier{}
	}
	return NewWebhookNotifier(webhookURL, timeout)
}

package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/parnurzeal/gorequest"
)

const defaultWebhookTimeout = 5 * time.Second

// WebhookNotifier 通过 HTTP webhook 投递通知
type WebhookNotifier struct {
	url     string
	timeout time.Duration
}

// webhookMessage webhook 请求体
type webhookMessage struct {
	Event  string       `json:"event"`
	Item   ExpiringItem `json:"item"`
	SentAt time.Time    `json:"sent_at"`
}

// NewWebhookNotifier 创建 webhook 通知器
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookNotifier{url: strings.TrimSpace(url), timeout: timeout}
}

// NotifyExpiring 推送即将到期通知，非 2xx 视为失败
func (n *WebhookNotifier) NotifyExpiring(ctx context.Context, item ExpiringItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := webhookMessage{
		Event:  "promo.expiring_soon",
		Item:   item,
		SentAt: time.Now().UTC(),
	}
	resp, body, errs := gorequest.New().
		Post(n.url).
		Timeout(n.timeout).
		Set("Content-Type", "application/json").
		SendStruct(&msg).
		End()
	if len(errs) > 0 {
		return fmt.Errorf("webhook request failed: %v", errs[0])
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package monitor

import (
	"strings"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/config"

	"github.com/getsentry/sentry-go"
)

var sentryEnabled bool

// InitSentry 初始化 Sentry，DSN 为空时不启用
func InitSentry(cfg config.SentryConfig) error {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		sentryEnabled = false
		return nil
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: cfg.Environment,
		SampleRate:  sampleRate,
	}); err != nil {
		return err
	}
	sentryEnabled = true
	return nil
}

// CaptureError 上报错误并附带标签
func CaptureError(err error, tags map[string]string) {
	if err == nil || !sentryEnabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for key, value := range tags {
			scope.SetTag(key, value)
		}
		sentry.CaptureException(err)
	})
}

// FlushSentry 等待事件发送完成
func FlushSentry(timeout time.Duration) {
	if !sentryEnabled {
		return
	}
	sentry.Flush(timeout)
}

package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/config"
	"github.com/khatmdev/quadramall-promo/internal/constants"
)

// KindSpec 缓存类型：key 模板与过期时间
type KindSpec struct {
	KeyTemplate string
	TTL         time.Duration
}

var defaultKinds = map[string]KindSpec{
	constants.CacheKindFlashSaleView: {KeyTemplate: "flash_sale:view:%d", TTL: 5 * time.Second},
	constants.CacheKindSweeperLock:   {KeyTemplate: "sweeper:lock:%s", TTL: 5 * time.Minute},
	constants.CacheKindExpiringNotif: {KeyTemplate: "sweeper:notified:%s:%d", TTL: 24 * time.Hour},
	constants.CacheKindReserveLimit:  {KeyTemplate: "rate:reserve:%s", TTL: 10 * time.Second},
}

var (
	kindsMu sync.RWMutex
	kinds   = cloneKinds(defaultKinds)
)

// ConfigureKinds 用配置覆盖缓存类型，未配置的类型保留默认值
func ConfigureKinds(cfg map[string]config.CacheKindConfig) {
	next := cloneKinds(defaultKinds)
	for name, item := range cfg {
		kind := strings.TrimSpace(name)
		if kind == "" {
			continue
		}
		spec := next[kind]
		if tpl := strings.TrimSpace(item.KeyTemplate); tpl != "" {
			spec.KeyTemplate = tpl
		}
		if ttl := item.TTL(); ttl > 0 {
			spec.TTL = ttl
		}
		next[kind] = spec
	}
	kindsMu.Lock()
	kinds = next
	kindsMu.Unlock()
}

// Kind 获取缓存类型配置
func Kind(name string) (KindSpec, bool) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	spec, ok := kinds[name]
	return spec, ok
}

// Key 按缓存类型的模板生成 key（不含全局前缀）
func Key(kind string, args ...interface{}) string {
	spec, ok := Kind(kind)
	if !ok || spec.KeyTemplate == "" {
		parts := make([]string, 0, len(args)+1)
		parts = append(parts, kind)
		for _, arg := range args {
			parts = append(parts, fmt.Sprint(arg))
		}
		return strings.Join(parts, ":")
	}
	return fmt.Sprintf(spec.KeyTemplate, args...)
}

// TTL 获取缓存类型过期时间
func TTL(kind string) time.Duration {
	spec, _ := Kind(kind)
	return spec.TTL
}

func cloneKinds(src map[string]KindSpec) map[string]KindSpec {
	out := make(map[string]KindSpec, len(src))
	for name, spec := range src {
		out[name] = spec
	}
	return out
}

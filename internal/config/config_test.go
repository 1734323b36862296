package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		t.Fatalf("decode defaults failed: %v", err)
	}
	if cfg.Sweeper.DeactivateSpec != "@hourly" {
		t.Fatalf("deactivate spec want @hourly got %s", cfg.Sweeper.DeactivateSpec)
	}
	if cfg.Sweeper.ExpiringWindowHours != 72 {
		t.Fatalf("expiring window want 72 got %d", cfg.Sweeper.ExpiringWindowHours)
	}
	if cfg.Security.ReserveMaxUnits != 5 {
		t.Fatalf("reserve max units want 5 got %d", cfg.Security.ReserveMaxUnits)
	}
	kind, ok := cfg.Cache.Kinds["flash_sale_view"]
	if !ok {
		t.Fatalf("flash_sale_view cache kind missing: %+v", cfg.Cache.Kinds)
	}
	if kind.KeyTemplate != "flash_sale:view:%d" || kind.TTL() != 5*time.Second {
		t.Fatalf("unexpected flash_sale_view kind: %+v", kind)
	}
}

func TestDecodeOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yml")
	content := []byte(`
database:
  driver: postgres
  dsn: host=localhost user=promo dbname=promo
sweeper:
  expiring_window_hours: 24
cache:
  kinds:
    flash_sale_view:
      key_template: "fs:%d"
      ttl_seconds: 2
`)
	if err := os.WriteFile(file, content, 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config failed: %v", err)
	}
	cfg, err := decode(v)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver want postgres got %s", cfg.Database.Driver)
	}
	if cfg.Sweeper.ExpiringWindowHours != 24 || cfg.Sweeper.DeactivateSpec != "@hourly" {
		t.Fatalf("unexpected sweeper config: %+v", cfg.Sweeper)
	}
	if got := cfg.Cache.Kinds["flash_sale_view"]; got.KeyTemplate != "fs:%d" || got.TTLSeconds != 2 {
		t.Fatalf("unexpected cache kind override: %+v", got)
	}
}

func TestCacheKindTTLZero(t *testing.T) {
	if got := (CacheKindConfig{}).TTL(); got != 0 {
		t.Fatalf("zero ttl want 0 got %v", got)
	}
}

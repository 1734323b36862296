package provider

import (
	"time"

	"github.com/khatmdev/quadramall-promo/internal/cache"
	"github.com/khatmdev/quadramall-promo/internal/config"
	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/notify"
	"github.com/khatmdev/quadramall-promo/internal/queue"
	"github.com/khatmdev/quadramall-promo/internal/repository"
	"github.com/khatmdev/quadramall-promo/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Notifier    notify.Notifier

	// Repositories
	ProductRepo           repository.ProductRepository
	FlashSaleRepo         repository.FlashSaleRepository
	DiscountCodeRepo      repository.DiscountCodeRepository
	UserDiscountUsageRepo repository.UserDiscountUsageRepository

	// Services
	FlashSaleService         *service.FlashSaleService
	InventoryService         *service.InventoryService
	DiscountService          *service.DiscountService
	CheckoutService          *service.CheckoutService
	FlashSaleAdminService    *service.FlashSaleAdminService
	DiscountCodeAdminService *service.DiscountCodeAdminService
	SweeperService           *service.SweeperService
}

// NewContainer 初始化容器（使用全局数据库连接）
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}
	return NewContainerWithDB(cfg, models.DB)
}

// NewContainerWithDB 使用指定数据库连接初始化容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) *Container {
	cache.ConfigureKinds(cfg.Cache.Kinds)

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
		Notifier:    notify.New(cfg.Notify.WebhookURL, time.Duration(cfg.Notify.TimeoutSeconds)*time.Second),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	c.ProductRepo = repository.NewProductRepository(c.DB)
	c.FlashSaleRepo = repository.NewFlashSaleRepository(c.DB)
	c.DiscountCodeRepo = repository.NewDiscountCodeRepository(c.DB)
	c.UserDiscountUsageRepo = repository.NewUserDiscountUsageRepository(c.DB)
}

func (c *Container) initServices() {
	c.FlashSaleService = service.NewFlashSaleService(c.FlashSaleRepo)
	c.InventoryService = service.NewInventoryService(c.FlashSaleRepo)
	c.DiscountService = service.NewDiscountService(c.DiscountCodeRepo, c.UserDiscountUsageRepo)
	c.CheckoutService = service.NewCheckoutService(c.DB, c.ProductRepo, c.FlashSaleRepo, c.DiscountCodeRepo, c.UserDiscountUsageRepo, c.DiscountService)
	c.InventoryService.SetViewInvalidator(c.FlashSaleService)
	c.CheckoutService.SetViewInvalidator(c.FlashSaleService)
	c.FlashSaleAdminService = service.NewFlashSaleAdminService(c.FlashSaleRepo, c.ProductRepo, c.FlashSaleService, c.InventoryService)
	c.DiscountCodeAdminService = service.NewDiscountCodeAdminService(c.DiscountCodeRepo, c.ProductRepo)
	c.SweeperService = service.NewSweeperService(c.DiscountCodeRepo, c.FlashSaleRepo, c.Notifier, c.QueueClient, service.SweeperOptions{
		ExpiringWindow: time.Duration(c.Config.Sweeper.ExpiringWindowHours) * time.Hour,
		LockTTL:        time.Duration(c.Config.Sweeper.LockTTLSeconds) * time.Second,
	})
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

package router

import (
	"strings"

	"github.com/khatmdev/quadramall-promo/internal/cache"
	"github.com/khatmdev/quadramall-promo/internal/config"
	"github.com/khatmdev/quadramall-promo/internal/constants"
	adminhandlers "github.com/khatmdev/quadramall-promo/internal/http/handlers/admin"
	publichandlers "github.com/khatmdev/quadramall-promo/internal/http/handlers/public"
	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/monitor"
	"github.com/khatmdev/quadramall-promo/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	reserveRule := RateLimitRule{
		WindowSeconds: cfg.Security.ReserveRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ReserveRateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.ReserveRateLimit.BlockSeconds,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(monitor.GinMiddleware())
		metricsPath := strings.TrimSpace(cfg.Metrics.Path)
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.GET(metricsPath, gin.WrapH(monitor.Handler()))
	}

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		apiV1.GET("/flash-sales/products/:product_id", publicHandler.GetActiveFlashSale)
		apiV1.POST("/flash-sales/active", publicHandler.BatchActiveFlashSales)

		// 买家接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT))
		{
			user.POST("/checkout/quote", publicHandler.QuoteCheckout)
			user.POST("/checkout/confirm", publicHandler.ConfirmCheckout)
			user.POST("/discounts/validate", publicHandler.ValidateDiscount)
			user.POST("/discounts/candidates", publicHandler.ListDiscountCandidates)
			user.POST("/flash-sales/:id/reserve", RateLimitMiddleware(cache.Client(), reserveRule, reserveRateLimitKey), publicHandler.ReserveFlashSale)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(JWTAuthMiddleware(cfg.JWT))
		{
			// 秒杀配额
			admin.GET("/flash-sales", adminHandler.ListFlashSales)
			admin.POST("/flash-sales", adminHandler.CreateFlashSale)
			admin.GET("/flash-sales/:id", adminHandler.GetFlashSale)
			admin.PUT("/flash-sales/:id", adminHandler.UpdateFlashSale)
			admin.DELETE("/flash-sales/:id", adminHandler.DeleteFlashSale)
			admin.POST("/flash-sales/:id/release", adminHandler.ReleaseFlashSale)

			// 优惠码
			admin.GET("/discount-codes", adminHandler.ListDiscountCodes)
			admin.GET("/discount-codes/expiring", adminHandler.ListExpiringDiscountCodes)
			admin.POST("/discount-codes", adminHandler.CreateDiscountCode)
			admin.GET("/discount-codes/:id", adminHandler.GetDiscountCode)
			admin.PUT("/discount-codes/:id", adminHandler.UpdateDiscountCode)
			admin.DELETE("/discount-codes/:id", adminHandler.DeleteDiscountCode)

			// 订单优惠撤销
			admin.POST("/orders/:order_id/revert-discounts", adminHandler.RevertOrderDiscounts)

			// 清理任务
			admin.POST("/sweeper/run", adminHandler.RunSweeper)
		}
	}

	// 健康检查
	r.GET("/healthz", func(ctx *gin.Context) {
		status := "ok"
		if err := models.Ping(c.DB); err != nil {
			status = "degraded"
		}
		ctx.JSON(200, gin.H{"status": status})
	})

	return r
}

func reserveRateLimitKey(c *gin.Context) string {
	return cache.FullKey(cache.Key(constants.CacheKindReserveLimit, KeyByUserID(c)))
}

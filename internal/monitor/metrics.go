package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 进程内 Prometheus 注册表
var Registry = prometheus.NewRegistry()

var (
	reservationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promo",
		Name:      "flash_sale_reservations_total",
		Help:      "Flash-sale reservation attempts by result.",
	}, []string{"result"})

	reservedUnitsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "promo",
		Name:      "flash_sale_reserved_units_total",
		Help:      "Units granted by successful reservations.",
	})

	discountValidationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promo",
		Name:      "discount_validations_total",
		Help:      "Discount code validations by result code.",
	}, []string{"result"})

	sweeperRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promo",
		Name:      "sweeper_runs_total",
		Help:      "Sweeper pass executions by pass and result.",
	}, []string{"pass", "result"})

	sweeperDeactivatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "promo",
		Name:      "sweeper_deactivated_codes_total",
		Help:      "Discount codes deactivated by the sweeper.",
	})

	expiringNotifiedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promo",
		Name:      "expiring_notifications_total",
		Help:      "Expiring-soon items handed to the notifier.",
	}, []string{"kind", "result"})

	apiSummary = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  "promo",
		Name:       "http_request_duration_seconds",
		Help:       "HTTP request latency by route and status.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"method", "route", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		reservationCounter,
		reservedUnitsCounter,
		discountValidationCounter,
		sweeperRunCounter,
		sweeperDeactivatedCounter,
		expiringNotifiedCounter,
		apiSummary,
	)
}

// ObserveReservation 记录一次预占结果
func ObserveReservation(result string, units int) {
	reservationCounter.WithLabelValues(result).Inc()
	if units > 0 {
		reservedUnitsCounter.Add(float64(units))
	}
}

// ObserveDiscountValidation 记录一次优惠码校验结果
func ObserveDiscountValidation(result string) {
	if result == "" {
		result = "ok"
	}
	discountValidationCounter.WithLabelValues(result).Inc()
}

// ObserveSweeperRun 记录一次清理任务执行
func ObserveSweeperRun(pass, result string) {
	sweeperRunCounter.WithLabelValues(pass, result).Inc()
}

// AddDeactivated 累加清理任务停用数量
func AddDeactivated(count int64) {
	if count > 0 {
		sweeperDeactivatedCounter.Add(float64(count))
	}
}

// ObserveExpiringNotified 记录即将到期通知
func ObserveExpiringNotified(kind, result string) {
	expiringNotifiedCounter.WithLabelValues(kind, result).Inc()
}

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware 记录接口耗时
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		apiSummary.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

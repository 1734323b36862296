package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/cache"
	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/monitor"
	"github.com/khatmdev/quadramall-promo/internal/notify"
	"github.com/khatmdev/quadramall-promo/internal/queue"
	"github.com/khatmdev/quadramall-promo/internal/repository"
)

// SweepReport 单次清理结果
type SweepReport struct {
	Pass          string `json:"pass"`
	Skipped       bool   `json:"skipped"`
	Deactivated   int64  `json:"deactivated"`
	DiscountCodes int    `json:"discount_codes"`
	FlashSales    int    `json:"flash_sales"`
	Notified      int    `json:"notified"`
	Failed        int    `json:"failed"`
}

// SweeperOptions 清理任务参数
type SweeperOptions struct {
	ExpiringWindow time.Duration
	LockTTL        time.Duration
}

// SweeperService 过期优惠码清理与即将到期提醒
type SweeperService struct {
	codeRepo      repository.DiscountCodeRepository
	flashSaleRepo repository.FlashSaleRepository
	notifier      notify.Notifier
	queueClient   *queue.Client
	options       SweeperOptions
	clock         Clock
}

// NewSweeperService 创建清理服务
func NewSweeperService(codeRepo repository.DiscountCodeRepository, flashSaleRepo repository.FlashSaleRepository, notifier notify.Notifier, queueClient *queue.Client, options SweeperOptions) *SweeperService {
	if options.ExpiringWindow <= 0 {
		options.ExpiringWindow = constants.DefaultExpiringWindowHours * time.Hour
	}
	if options.LockTTL <= 0 {
		options.LockTTL = cache.TTL(constants.CacheKindSweeperLock)
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &SweeperService{
		codeRepo:      codeRepo,
		flashSaleRepo: flashSaleRepo,
		notifier:      notifier,
		queueClient:   queueClient,
		options:       options,
	}
}

// SetClock 替换时间来源
func (s *SweeperService) SetClock(clock Clock) {
	s.clock = clock
}

// DeactivateExpired 将已过期仍启用的优惠码置为停用，返回本次影响条数（重复执行结果为 0）
func (s *SweeperService) DeactivateExpired(ctx context.Context) (int64, error) {
	return s.codeRepo.WithContext(ctx).DeactivateExpired(s.clock.now())
}

// ListExpiringSoon 获取 window 内到期的启用优惠码
func (s *SweeperService) ListExpiringSoon(ctx context.Context, window time.Duration) ([]models.DiscountCode, error) {
	if window <= 0 {
		window = s.options.ExpiringWindow
	}
	now := s.clock.now()
	return s.codeRepo.WithContext(ctx).ListExpiringBetween(now, now.Add(window))
}

// ListFlashSalesEndingSoon 获取 window 内结束且仍有配额的秒杀
func (s *SweeperService) ListFlashSalesEndingSoon(ctx context.Context, window time.Duration) ([]models.FlashSale, error) {
	if window <= 0 {
		window = s.options.ExpiringWindow
	}
	now := s.clock.now()
	return s.flashSaleRepo.WithContext(ctx).ListEndingBetween(now, now.Add(window))
}

// IsSweepPass 判断清理阶段名称是否合法
func IsSweepPass(pass string) bool {
	return pass == constants.SweepPassDeactivate || pass == constants.SweepPassExpiring
}

// Run 按名称执行一次清理
func (s *SweeperService) Run(ctx context.Context, pass string) (*SweepReport, error) {
	switch pass {
	case constants.SweepPassDeactivate:
		return s.RunDeactivatePass(ctx)
	case constants.SweepPassExpiring:
		return s.RunExpiringPass(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrSweepPassInvalid, pass)
	}
}

// RunDeactivatePass 执行停用过期优惠码
func (s *SweeperService) RunDeactivatePass(ctx context.Context) (*SweepReport, error) {
	return s.runPass(ctx, constants.SweepPassDeactivate, func(report *SweepReport) error {
		affected, err := s.DeactivateExpired(ctx)
		if err != nil {
			return err
		}
		report.Deactivated = affected
		monitor.AddDeactivated(affected)
		return nil
	})
}

// RunExpiringPass 执行即将到期提醒：优先投递到队列，队列未启用时直接通知
func (s *SweeperService) RunExpiringPass(ctx context.Context) (*SweepReport, error) {
	return s.runPass(ctx, constants.SweepPassExpiring, func(report *SweepReport) error {
		codes, err := s.ListExpiringSoon(ctx, 0)
		if err != nil {
			return err
		}
		sales, err := s.ListFlashSalesEndingSoon(ctx, 0)
		if err != nil {
			return err
		}
		report.DiscountCodes = len(codes)
		report.FlashSales = len(sales)

		items := make([]notify.ExpiringItem, 0, len(codes)+len(sales))
		for _, code := range codes {
			items = append(items, notify.ExpiringItem{
				Kind:      constants.ExpiringKindDiscountCode,
				ID:        code.ID,
				StoreID:   code.StoreID,
				Code:      code.Code,
				Remaining: code.Remaining(),
				EndTime:   code.EndDate,
			})
		}
		for _, sale := range sales {
			items = append(items, notify.ExpiringItem{
				Kind:      constants.ExpiringKindFlashSale,
				ID:        sale.ID,
				ProductID: sale.ProductID,
				Remaining: sale.Remaining(),
				EndTime:   sale.EndTime,
			})
		}

		for _, item := range items {
			if err := s.dispatch(ctx, item); err != nil {
				report.Failed++
				logger.Warnw("sweeper_expiring_dispatch_failed", "kind", item.Kind, "id", item.ID, "error", err)
				continue
			}
			report.Notified++
		}
		return nil
	})
}

// NotifyExpiring 投递单个即将到期提醒；同一对象在去重窗口内只投递一次，失败时释放去重标记以便重试
func (s *SweeperService) NotifyExpiring(ctx context.Context, item notify.ExpiringItem) error {
	key := cache.Key(constants.CacheKindExpiringNotif, item.Kind, item.ID)
	fresh, err := cache.SetNX(ctx, key, item.EndTime.Unix(), cache.TTL(constants.CacheKindExpiringNotif))
	if err != nil {
		logger.Warnw("sweeper_notify_dedupe_failed", "kind", item.Kind, "id", item.ID, "error", err)
		fresh = true
	}
	if !fresh {
		monitor.ObserveExpiringNotified(item.Kind, "duplicate")
		return nil
	}
	if err := s.notifier.NotifyExpiring(ctx, item); err != nil {
		_ = cache.Del(ctx, key)
		monitor.ObserveExpiringNotified(item.Kind, "failed")
		return err
	}
	monitor.ObserveExpiringNotified(item.Kind, "sent")
	return nil
}

func (s *SweeperService) dispatch(ctx context.Context, item notify.ExpiringItem) error {
	if s.queueClient.Enabled() {
		return s.queueClient.EnqueueExpiringNotify(queue.ExpiringNotifyPayload{
			Kind:      item.Kind,
			ID:        item.ID,
			StoreID:   item.StoreID,
			ProductID: item.ProductID,
			Code:      item.Code,
			Remaining: item.Remaining,
			EndTime:   item.EndTime,
		})
	}
	return s.NotifyExpiring(ctx, item)
}

// runPass 加锁执行一次清理；任何错误或 panic 只记录，不向上抛出导致进程退出
func (s *SweeperService) runPass(ctx context.Context, pass string, fn func(report *SweepReport) error) (report *SweepReport, err error) {
	report = &SweepReport{Pass: pass}
	started := time.Now()

	lock, lockErr := cache.AcquireLock(ctx, cache.Key(constants.CacheKindSweeperLock, pass), s.options.LockTTL)
	if errors.Is(lockErr, cache.ErrLockHeld) {
		report.Skipped = true
		monitor.ObserveSweeperRun(pass, "skipped")
		logger.Infow("sweeper_pass_skipped", "pass", pass, "reason", "lock_held")
		return report, nil
	}
	if lockErr != nil {
		// 锁只是优化，清理本身幂等
		logger.Warnw("sweeper_lock_failed", "pass", pass, "error", lockErr)
	}
	defer func() {
		if lock != nil {
			if releaseErr := lock.Release(context.Background()); releaseErr != nil {
				logger.Warnw("sweeper_lock_release_failed", "pass", pass, "error", releaseErr)
			}
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweeper pass %s panic: %v", pass, r)
		}
		if err != nil {
			monitor.ObserveSweeperRun(pass, "error")
			monitor.CaptureError(err, map[string]string{"component": "sweeper", "pass": pass})
			logger.Errorw("sweeper_pass_failed", "pass", pass, "error", err, "duration", time.Since(started))
			return
		}
		monitor.ObserveSweeperRun(pass, "ok")
		logger.Infow("sweeper_pass_done",
			"pass", pass,
			"deactivated", report.Deactivated,
			"discount_codes", report.DiscountCodes,
			"flash_sales", report.FlashSales,
			"notified", report.Notified,
			"failed", report.Failed,
			"duration", time.Since(started),
		)
	}()

	err = fn(report)
	return report, err
}

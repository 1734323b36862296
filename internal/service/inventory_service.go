package service

import (
	"context"
	"fmt"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/monitor"
	"github.com/khatmdev/quadramall-promo/internal/repository"
)

// InventoryService 秒杀配额预占服务
type InventoryService struct {
	repo  repository.FlashSaleRepository
	views ViewInvalidator
	clock Clock
}

// NewInventoryService 创建预占服务
func NewInventoryService(repo repository.FlashSaleRepository) *InventoryService {
	return &InventoryService{repo: repo}
}

// SetClock 替换时间来源
func (s *InventoryService) SetClock(clock Clock) {
	s.clock = clock
}

// SetViewInvalidator 预占成功后使商品秒杀视图缓存失效
func (s *InventoryService) SetViewInvalidator(views ViewInvalidator) {
	s.views = views
}

// Reserve 原子预占配额：成功返回 nil，否则返回 ErrFlashSaleSoldOut / ErrFlashSaleExpired / ErrFlashSaleNotFound
// 超时或取消返回 ErrReserveTimeout，不做自动重试
func (s *InventoryService) Reserve(ctx context.Context, saleID uint, units int) error {
	repo := s.repo.WithContext(ctx)
	if err := reserveUnits(ctx, repo, saleID, units, s.clock.now()); err != nil {
		return err
	}
	if s.views != nil {
		sale, err := repo.GetByID(saleID)
		if err != nil || sale == nil {
			logger.Warnw("flash_sale_view_invalidate_lookup_failed", "flash_sale_id", saleID, "error", err)
			return nil
		}
		s.views.InvalidateView(ctx, sale.ProductID)
	}
	return nil
}

// Release 释放配额（由订单侧在取消/退款时显式调用），最低减至 0
func (s *InventoryService) Release(ctx context.Context, saleID uint, units int) error {
	if units <= 0 {
		return ErrReserveUnitsInvalid
	}
	affected, err := s.repo.WithContext(ctx).Release(saleID, units)
	if err != nil {
		if isTimeout(err) {
			return ErrReserveTimeout
		}
		return fmt.Errorf("release flash sale units: %w", err)
	}
	if affected == 0 {
		return ErrFlashSaleNotFound
	}
	logger.Infow("flash_sale_released", "flash_sale_id", saleID, "units", units)
	return nil
}

// reserveUnits 执行条件更新并在失败时重新读取以区分原因；事务内传入绑定 tx 的仓库
func reserveUnits(ctx context.Context, repo repository.FlashSaleRepository, saleID uint, units int, now time.Time) error {
	if units <= 0 {
		return ErrReserveUnitsInvalid
	}
	affected, err := repo.Reserve(saleID, units, now)
	if err != nil {
		monitor.ObserveReservation(constants.ReserveResultError, 0)
		if isTimeout(err) || ctx.Err() != nil {
			return ErrReserveTimeout
		}
		return fmt.Errorf("reserve flash sale units: %w", err)
	}
	if affected == 1 {
		monitor.ObserveReservation(constants.ReserveResultOK, units)
		return nil
	}

	reason, err := classifyReserveFailure(repo, saleID, now)
	if err != nil {
		if isTimeout(err) {
			return ErrReserveTimeout
		}
		return err
	}
	switch reason {
	case ErrFlashSaleNotFound:
		monitor.ObserveReservation(constants.ReserveResultNotFound, 0)
	case ErrFlashSaleExpired:
		monitor.ObserveReservation(constants.ReserveResultExpired, 0)
	default:
		monitor.ObserveReservation(constants.ReserveResultSoldOut, 0)
	}
	logger.Debugw("flash_sale_reserve_rejected", "flash_sale_id", saleID, "units", units, "reason", reason.Error())
	return reason
}

func classifyReserveFailure(repo repository.FlashSaleRepository, saleID uint, now time.Time) (reason error, err error) {
	sale, err := repo.GetByID(saleID)
	if err != nil {
		return nil, fmt.Errorf("load flash sale: %w", err)
	}
	if sale == nil {
		return ErrFlashSaleNotFound, nil
	}
	if !sale.InWindow(now) {
		return ErrFlashSaleExpired, nil
	}
	return ErrFlashSaleSoldOut, nil
}

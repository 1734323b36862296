package service

import (
	"context"
	"fmt"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/cache"
	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/models"
	"github.com/khatmdev/quadramall-promo/internal/repository"

	"golang.org/x/sync/singleflight"
)

// FlashSaleView 对外暴露的秒杀视图
type FlashSaleView struct {
	Active             bool      `json:"active"`
	FlashSaleID        uint      `json:"flash_sale_id,omitempty"`
	ProductID          uint      `json:"product_id"`
	PercentageDiscount int       `json:"percentage_discount,omitempty"`
	RemainingQuantity  int       `json:"remaining_quantity"`
	EndTime            time.Time `json:"end_time,omitempty"`
}

// ViewInvalidator 秒杀视图缓存失效
type ViewInvalidator interface {
	InvalidateView(ctx context.Context, productIDs ...uint)
}

// FlashSaleService 秒杀查询服务（当前生效判定的唯一入口）
type FlashSaleService struct {
	repo  repository.FlashSaleRepository
	clock Clock
	group singleflight.Group
}

// NewFlashSaleService 创建秒杀查询服务
func NewFlashSaleService(repo repository.FlashSaleRepository) *FlashSaleService {
	return &FlashSaleService{repo: repo}
}

// SetClock 替换时间来源
func (s *FlashSaleService) SetClock(clock Clock) {
	s.clock = clock
}

// FindActive 获取商品当前生效的秒杀，不存在时返回 nil
func (s *FlashSaleService) FindActive(ctx context.Context, productID uint) (*models.FlashSale, error) {
	if productID == 0 {
		return nil, nil
	}
	return s.repo.WithContext(ctx).FindActiveByProduct(productID, s.clock.now())
}

// FindActiveForMany 批量获取当前生效的秒杀，同一商品取最早结束的一条
func (s *FlashSaleService) FindActiveForMany(ctx context.Context, productIDs []uint) (map[uint]*models.FlashSale, error) {
	return findActiveForMany(s.repo.WithContext(ctx), productIDs, s.clock.now())
}

func findActiveForMany(repo repository.FlashSaleRepository, productIDs []uint, now time.Time) (map[uint]*models.FlashSale, error) {
	result := make(map[uint]*models.FlashSale)
	ids := models.UintArray(productIDs).Normalize()
	if len(ids) == 0 {
		return result, nil
	}
	sales, err := repo.FindActiveByProducts(ids, now)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sale := sales[i]
		if _, exists := result[sale.ProductID]; exists {
			continue
		}
		result[sale.ProductID] = &sale
	}
	return result, nil
}

// ActiveView 获取商品的秒杀视图（短 TTL 缓存，并发未命中合并为一次查询）
func (s *FlashSaleService) ActiveView(ctx context.Context, productID uint) (*FlashSaleView, error) {
	key := cache.Key(constants.CacheKindFlashSaleView, productID)
	var cached FlashSaleView
	hit, err := cache.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.Warnw("flash_sale_view_cache_get_failed", "product_id", productID, "error", err)
	}
	if hit {
		return &cached, nil
	}

	value, err, _ := s.group.Do(fmt.Sprintf("view:%d", productID), func() (interface{}, error) {
		sale, err := s.FindActive(ctx, productID)
		if err != nil {
			return nil, err
		}
		view := buildFlashSaleView(productID, sale)
		if err := cache.SetJSON(ctx, key, view, cache.TTL(constants.CacheKindFlashSaleView)); err != nil {
			logger.Warnw("flash_sale_view_cache_set_failed", "product_id", productID, "error", err)
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*FlashSaleView), nil
}

// ActiveViews 批量获取秒杀视图，不走缓存
func (s *FlashSaleService) ActiveViews(ctx context.Context, productIDs []uint) ([]FlashSaleView, error) {
	active, err := s.FindActiveForMany(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	ids := models.UintArray(productIDs).Normalize()
	views := make([]FlashSaleView, 0, len(ids))
	for _, id := range ids {
		views = append(views, *buildFlashSaleView(id, active[id]))
	}
	return views, nil
}

// InvalidateView 删除商品秒杀视图缓存
func (s *FlashSaleService) InvalidateView(ctx context.Context, productIDs ...uint) {
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if id == 0 {
			continue
		}
		keys = append(keys, cache.Key(constants.CacheKindFlashSaleView, id))
	}
	if err := cache.Del(ctx, keys...); err != nil {
		logger.Warnw("flash_sale_view_cache_del_failed", "product_ids", productIDs, "error", err)
	}
}

func buildFlashSaleView(productID uint, sale *models.FlashSale) *FlashSaleView {
	if sale == nil {
		return &FlashSaleView{ProductID: productID}
	}
	return &FlashSaleView{
		Active:             true,
		FlashSaleID:        sale.ID,
		ProductID:          sale.ProductID,
		PercentageDiscount: sale.PercentageDiscount,
		RemainingQuantity:  sale.Remaining(),
		EndTime:            sale.EndTime,
	}
}

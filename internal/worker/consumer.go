package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/khatmdev/quadramall-promo/internal/constants"
	"github.com/khatmdev/quadramall-promo/internal/logger"
	"github.com/khatmdev/quadramall-promo/internal/notify"
	"github.com/khatmdev/quadramall-promo/internal/provider"
	"github.com/khatmdev/quadramall-promo/internal/queue"
	"github.com/khatmdev/quadramall-promo/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskDiscountSweep, c.handleDiscountSweep)
	mux.HandleFunc(queue.TaskExpiringNotify, c.handleExpiringNotify)
}

func (c *Consumer) handleDiscountSweep(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.SweeperService == nil {
		logger.Debugw("worker_discount_sweep_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DiscountSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_discount_sweep_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	passes := []string{constants.SweepPassDeactivate, constants.SweepPassExpiring}
	if pass := strings.TrimSpace(payload.Pass); pass != "" {
		if !service.IsSweepPass(pass) {
			logger.Warnw("worker_discount_sweep_skip_unknown_pass", "pass", pass)
			return nil
		}
		passes = []string{pass}
	}
	for _, pass := range passes {
		report, err := c.SweeperService.Run(ctx, pass)
		if err != nil {
			return err
		}
		logger.Infow("worker_discount_sweep_done", "pass", pass, "requested_by", payload.RequestedBy, "skipped", report.Skipped)
	}
	return nil
}

func (c *Consumer) handleExpiringNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.SweeperService == nil {
		logger.Debugw("worker_expiring_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ExpiringNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_expiring_notify_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.ID == 0 || payload.Kind == "" {
		logger.Debugw("worker_expiring_notify_skip_invalid_payload", "kind", payload.Kind, "id", payload.ID)
		return nil
	}
	item := notify.ExpiringItem{
		Kind:      payload.Kind,
		ID:        payload.ID,
		StoreID:   payload.StoreID,
		ProductID: payload.ProductID,
		Code:      payload.Code,
		Remaining: payload.Remaining,
		EndTime:   payload.EndTime,
	}
	if err := c.SweeperService.NotifyExpiring(ctx, item); err != nil {
		logger.Warnw("worker_expiring_notify_failed", "kind", payload.Kind, "id", payload.ID, "error", err)
		return err
	}
	return nil
}

package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/khatmdev/quadramall-promo/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskDiscountSweep 触发一次清理任务
	TaskDiscountSweep = constants.TaskDiscountSweep
	// TaskExpiringNotify 即将到期通知任务
	TaskExpiringNotify = constants.TaskExpiringNotify
)

// DiscountSweepPayload 清理任务载荷
type DiscountSweepPayload struct {
	Pass        string `json:"pass"`
	RequestedBy uint   `json:"requested_by,omitempty"`
}

// ExpiringNotifyPayload 即将到期通知载荷（优惠码或秒杀）
type ExpiringNotifyPayload struct {
	Kind      string    `json:"kind"`
	ID        uint      `json:"id"`
	StoreID   uint      `json:"store_id,omitempty"`
	ProductID uint      `json:"product_id,omitempty"`
	Code      string    `json:"code,omitempty"`
	Remaining int       `json:"remaining"`
	EndTime   time.Time `json:"end_time"`
}

// NewDiscountSweepTask 创建清理任务
func NewDiscountSweepTask(payload DiscountSweepPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDiscountSweep, body), nil
}

// NewExpiringNotifyTask 创建即将到期通知任务
func NewExpiringNotifyTask(payload ExpiringNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpiringNotify, body), nil
}

// ExpiringNotifyTaskID 生成去重任务ID，同一对象同一到期时间只入队一次
func ExpiringNotifyTaskID(payload ExpiringNotifyPayload) string {
	return fmt.Sprintf("expiring:%s:%d:%d", payload.Kind, payload.ID, payload.EndTime.Unix())
}

package worker

import (
	"context"
	"encoding/json"

	"github.com/lingquan-next/internal/logger"
	"github.com/lingquan-next/internal/provider"
	"github.com/lingquan-next/internal/queue"

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
	mux.HandleFunc(queue.TaskIssuanceExpire, c.handleIssuanceExpire)
	mux.HandleFunc(queue.TaskIssuanceSweep, c.handleIssuanceSweep)
}

// handleIssuanceExpire 持券到期时触发的单张过期翻转
// 持券已被核销、作废或提前翻转时直接跳过。
func (c *Consumer) handleIssuanceExpire(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_issuance_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.IssuanceExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_issuance_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.IssuanceID == 0 {
		logger.Debugw("worker_issuance_expire_skip_invalid_payload", "issuance_id", payload.IssuanceID)
		return nil
	}
	if c.IssuanceService == nil {
		logger.Warnw("worker_issuance_expire_skip_service_nil", "issuance_id", payload.IssuanceID)
		return nil
	}
	if err := c.IssuanceService.ExpireOne(payload.IssuanceID); err != nil {
		logger.Warnw("worker_issuance_expire_failed", "issuance_id", payload.IssuanceID, "error", err)
		return err
	}
	return nil
}

// handleIssuanceSweep 兜底批量清理，补偿漏发或失败的延迟任务
func (c *Consumer) handleIssuanceSweep(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_issuance_sweep_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.IssuanceSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_issuance_sweep_unmarshal_failed", "error", err)
		return err
	}
	if c.IssuanceService == nil {
		logger.Warnw("worker_issuance_sweep_skip_service_nil")
		return nil
	}
	affected, err := c.IssuanceService.SweepExpired(payload.Limit)
	if err != nil {
		logger.Warnw("worker_issuance_sweep_failed", "error", err)
		return err
	}
	if affected > 0 {
		logger.Infow("worker_issuance_sweep_done", "expired", affected)
	}
	return nil
}

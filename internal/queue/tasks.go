package queue

import (
	"encoding/json"

	"github.com/lingquan-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskIssuanceExpire 单张持券到期任务
	TaskIssuanceExpire = constants.TaskIssuanceExpire
	// TaskIssuanceSweep 过期持券批量清理任务
	TaskIssuanceSweep = constants.TaskIssuanceSweep
)

// IssuanceExpirePayload 单张持券到期任务载荷
type IssuanceExpirePayload struct {
	IssuanceID uint `json:"issuance_id"`
}

// IssuanceSweepPayload 批量清理任务载荷
type IssuanceSweepPayload struct {
	Limit int `json:"limit"`
}

// NewIssuanceExpireTask 创建持券到期任务
func NewIssuanceExpireTask(payload IssuanceExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIssuanceExpire, body), nil
}

// NewIssuanceSweepTask 创建批量清理任务
func NewIssuanceSweepTask(payload IssuanceSweepPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIssuanceSweep, body), nil
}

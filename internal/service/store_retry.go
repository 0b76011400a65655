package service

import (
	"time"

	"github.com/lingquan-next/internal/logger"
)

const storeRetryBackoff = 50 * time.Millisecond

// runWithStoreRetry 执行事务性写入。
// 业务判定错误直接上抛；存储层瞬态失败（死锁、锁超时等）退避后重试一次，
// 仍失败则统一归为存储不可用。
func runWithStoreRetry(name string, op func() error) error {
	err := op()
	if err == nil || isPolicyError(err) {
		return err
	}
	logger.Warnw("store_write_retry", "op", name, "error", err)
	time.Sleep(storeRetryBackoff)

	err = op()
	if err == nil || isPolicyError(err) {
		return err
	}
	logger.Errorw("store_write_failed", "op", name, "error", err)
	return ErrStoreUnavailable
}

package worker

import (
	"context"
	"errors"
	"time"

	"github.com/lingquan-next/internal/config"
	"github.com/lingquan-next/internal/logger"
	"github.com/lingquan-next/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultSweepInterval = 10 * time.Minute

// Service 异步队列服务
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	sweepInterval := defaultSweepInterval
	if cfg.SweepMins > 0 {
		sweepInterval = time.Duration(cfg.SweepMins) * time.Minute
	}
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: sweepInterval,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.QueueClient != nil {
		go s.runSweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runSweepLoop 周期性投递兜底清理任务
func (s *Service) runSweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.QueueClient == nil {
		return
	}
	enqueueOnce := func() {
		if err := s.consumer.QueueClient.EnqueueIssuanceSweep(queue.IssuanceSweepPayload{}); err != nil {
			logger.Warnw("worker_enqueue_issuance_sweep_failed", "error", err)
		}
	}
	enqueueOnce()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueueOnce()
		}
	}
}

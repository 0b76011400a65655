package provider

import (
	"time"

	"github.com/lingquan-next/internal/cache"
	"github.com/lingquan-next/internal/config"
	"github.com/lingquan-next/internal/logger"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/queue"
	"github.com/lingquan-next/internal/repository"
	"github.com/lingquan-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo           repository.UserRepository
	StoreRepo          repository.StoreRepository
	CouponRepo         repository.CouponRepository
	CouponIssuanceRepo repository.CouponIssuanceRepository

	// Services
	DiscoveryService   *service.DiscoveryService
	AcquireService     *service.AcquireService
	GiftService        *service.GiftService
	RedeemService      *service.RedeemService
	IssuanceService    *service.IssuanceService
	CouponAdminService *service.CouponAdminService
	StoreAdminService  *service.StoreAdminService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.StoreRepo = repository.NewStoreRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponIssuanceRepo = repository.NewCouponIssuanceRepository(db)
}

func (c *Container) initServices() {
	policy := buildIssuancePolicy(c.Config.Coupon)

	c.DiscoveryService = service.NewDiscoveryService(c.CouponRepo)
	c.AcquireService = service.NewAcquireService(c.CouponRepo, c.CouponIssuanceRepo, c.UserRepo, c.QueueClient, policy)
	c.GiftService = service.NewGiftService(c.CouponRepo, c.CouponIssuanceRepo, c.UserRepo, c.QueueClient, policy)
	c.RedeemService = service.NewRedeemService(c.CouponRepo, c.CouponIssuanceRepo, c.StoreRepo)
	c.IssuanceService = service.NewIssuanceService(c.CouponIssuanceRepo, c.CouponRepo)
	c.CouponAdminService = service.NewCouponAdminService(c.CouponRepo, c.StoreRepo)
	c.StoreAdminService = service.NewStoreAdminService(c.StoreRepo)
}

// buildIssuancePolicy 将配置换算为发放策略，未配置项由策略内部兜底
func buildIssuancePolicy(cfg config.CouponConfig) service.IssuancePolicy {
	return service.IssuancePolicy{
		EventClaimTTL:   time.Duration(cfg.EventClaimTTLDays) * 24 * time.Hour,
		WalletClaimTTL:  time.Duration(cfg.WalletClaimTTLDays) * 24 * time.Hour,
		GiftTokenTTL:    time.Duration(cfg.GiftTokenTTLHours) * time.Hour,
		CodeLength:      cfg.CodeLength,
		CodeMaxAttempts: cfg.CodeMaxAttempts,
	}
}

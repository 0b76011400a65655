package router

import (
	"fmt"
	"strings"

	"github.com/lingquan-next/internal/cache"
	"github.com/lingquan-next/internal/config"
	adminhandlers "github.com/lingquan-next/internal/http/handlers/admin"
	publichandlers "github.com/lingquan-next/internal/http/handlers/public"
	"github.com/lingquan-next/internal/logger"
	"github.com/lingquan-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按用户侧/管理端分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "lq"
	}
	redisClient := cache.Client()
	claimRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:claim", redisPrefix),
		WindowSeconds: cfg.Security.ClaimRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClaimRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.ClaimRateLimit.BlockSeconds,
		Message:       "领取过于频繁，请 %d 秒后重试",
	}
	redeemRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:redeem", redisPrefix),
		WindowSeconds: cfg.Security.ClaimRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClaimRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.ClaimRateLimit.BlockSeconds,
		Message:       "核销尝试过于频繁，请 %d 秒后重试",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/coupons", publicHandler.GetCoupons)
			public.GET("/coupons/:id", publicHandler.GetCoupon)
			public.GET("/gifts/:token", publicHandler.GetGiftTransfer)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.POST("/coupons/:id/claim", RateLimitMiddleware(redisClient, claimRule, KeyByUserID), publicHandler.ClaimCoupon)
			user.GET("/me/coupons", publicHandler.GetMyCoupons)
			user.GET("/me/coupons/:id", publicHandler.GetMyCoupon)
			user.POST("/me/coupons/:id/gift", publicHandler.CreateGiftTransfer)
			user.POST("/gifts/:token/accept", RateLimitMiddleware(redisClient, claimRule, KeyByUserID), publicHandler.AcceptGiftTransfer)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(AdminJWTAuthMiddleware(cfg.AdminJWT.SecretKey))
		{
			// 优惠券管理
			admin.GET("/coupons", adminHandler.GetAdminCoupons)
			admin.GET("/coupons/:id", adminHandler.GetAdminCoupon)
			admin.POST("/coupons", adminHandler.CreateCoupon)
			admin.PUT("/coupons/:id", adminHandler.UpdateCoupon)
			admin.DELETE("/coupons/:id", adminHandler.DeleteCoupon)
			admin.POST("/coupons/:id/submit", adminHandler.SubmitCouponForApproval)
			admin.POST("/coupons/:id/approve", adminHandler.ApproveCoupon)
			admin.POST("/coupons/:id/reject", adminHandler.RejectCoupon)
			admin.PUT("/coupons/:id/active", adminHandler.SetCouponActive)

			// 门店管理
			admin.GET("/stores", adminHandler.GetAdminStores)
			admin.GET("/stores/:id", adminHandler.GetAdminStore)
			admin.POST("/stores", adminHandler.CreateStore)
			admin.PUT("/stores/:id", adminHandler.UpdateStore)
			admin.DELETE("/stores/:id", adminHandler.DeleteStore)

			// 持券与核销
			admin.GET("/issuances", adminHandler.GetAdminIssuances)
			admin.POST("/issuances/sweep", adminHandler.SweepExpiredIssuances)
			admin.POST("/redeem", RateLimitMiddleware(redisClient, redeemRule, KeyByIPAndJSONField("code")), adminHandler.RedeemCoupon)
		}
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

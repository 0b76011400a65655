package main

import (
	"time"

	"github.com/lingquan-next/internal/config"
	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/logger"
	"github.com/lingquan-next/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加门店
	stores := []models.Store{
		{Name: "明洞咖啡店", Address: "首尔中区明洞街 27", Latitude: 37.5637, Longitude: 126.9838, IsActive: true},
		{Name: "江南烘焙坊", Address: "首尔江南区德黑兰路 152", Latitude: 37.5000, Longitude: 127.0364, IsActive: true},
		{Name: "弘大甜品屋", Address: "首尔麻浦区弘益路 20", Latitude: 37.5572, Longitude: 126.9239, IsActive: true},
	}
	storeIDs := map[string]uint{}
	for _, store := range stores {
		var existing models.Store
		if err := models.DB.Where("name = ?", store.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&store).Error; err != nil {
				stdLog.Printf("Failed to create store %s: %v", store.Name, err)
				continue
			}
			stdLog.Printf("Created store: %s", store.Name)
			storeIDs[store.Name] = store.ID
		} else {
			stdLog.Printf("Store already exists: %s", existing.Name)
			storeIDs[existing.Name] = existing.ID
		}
	}

	// 添加测试用户
	users := []models.User{
		{Nickname: "测试用户一", Email: "user1@example.com", Status: constants.UserStatusActive},
		{Nickname: "测试用户二", Email: "user2@example.com", Status: constants.UserStatusActive},
	}
	for _, user := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", user.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", user.Email, err)
			} else {
				stdLog.Printf("Created user: %s", user.Email)
			}
		} else {
			stdLog.Printf("User already exists: %s", user.Email)
		}
	}

	// 添加优惠券
	now := time.Now()
	monthLater := now.AddDate(0, 1, 0)
	quantity := 500
	radius := 1.5
	lat := 37.5637
	lng := 126.9838
	coupons := []models.Coupon{
		{
			Title:          "明洞门店满减券",
			StoreID:        storeIDs["明洞咖啡店"],
			GroupKey:       "myeongdong-coffee",
			Type:           constants.CouponTypeFixed,
			Value:          models.NewMoneyFromDecimal(decimal.NewFromInt(2000)),
			MinOrderAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(10000)),
			TotalQuantity:  &quantity,
			PerUserLimit:   1,
			ApprovalStatus: constants.CouponApprovalApproved,
			IsActive:       true,
			ValidFrom:      &now,
			ValidTo:        &monthLater,
			GeoLatitude:    &lat,
			GeoLongitude:   &lng,
			GeoRadiusKM:    &radius,
		},
		{
			Title:          "江南烘焙折扣券",
			StoreID:        storeIDs["江南烘焙坊"],
			GroupKey:       "gangnam-bakery",
			Type:           constants.CouponTypePercent,
			Value:          models.NewMoneyFromDecimal(decimal.NewFromInt(15)),
			MaxDiscount:    models.NewMoneyFromDecimal(decimal.NewFromInt(5000)),
			PerUserLimit:   2,
			ApprovalStatus: constants.CouponApprovalApproved,
			IsActive:       true,
			ValidFrom:      &now,
			ValidTo:        &monthLater,
		},
		{
			Title:          "全城通用新客券",
			GroupKey:       "citywide-welcome",
			Type:           constants.CouponTypeFixed,
			Value:          models.NewMoneyFromDecimal(decimal.NewFromInt(1000)),
			PerUserLimit:   1,
			ApprovalStatus: constants.CouponApprovalApproved,
			IsActive:       true,
		},
	}
	for _, coupon := range coupons {
		var existing models.Coupon
		if err := models.DB.Where("group_key = ?", coupon.GroupKey).First(&existing).Error; err != nil {
			if err := models.DB.Create(&coupon).Error; err != nil {
				stdLog.Printf("Failed to create coupon %s: %v", coupon.Title, err)
			} else {
				stdLog.Printf("Created coupon: %s", coupon.Title)
			}
		} else {
			stdLog.Printf("Coupon already exists: %s", existing.Title)
		}
	}

	stdLog.Println("Seed completed")
}

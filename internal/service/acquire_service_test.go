package service

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCouponServiceTest(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Store{},
		&models.Coupon{},
		&models.CouponIssuance{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return db
}

func newAcquireServiceTest(t *testing.T, name string) (*AcquireService, *gorm.DB) {
	t.Helper()
	db := setupCouponServiceTest(t, name)
	svc := NewAcquireService(
		repository.NewCouponRepository(db),
		repository.NewCouponIssuanceRepository(db),
		repository.NewUserRepository(db),
		nil,
		DefaultIssuancePolicy(),
	)
	return svc, db
}

func seedCouponUser(t *testing.T, db *gorm.DB, id uint) {
	t.Helper()
	user := models.User{
		ID:       id,
		Nickname: fmt.Sprintf("用户%d", id),
		Email:    fmt.Sprintf("holder_%d@example.com", id),
		Status:   constants.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
}

func seedCoupon(t *testing.T, db *gorm.DB, coupon *models.Coupon) *models.Coupon {
	t.Helper()
	if coupon.Type == "" {
		coupon.Type = constants.CouponTypeFixed
	}
	if coupon.Value.Decimal.IsZero() {
		coupon.Value = models.NewMoneyFromDecimal(decimal.RequireFromString("1000"))
	}
	if coupon.ApprovalStatus == "" {
		coupon.ApprovalStatus = constants.CouponApprovalApproved
	}
	if coupon.PerUserLimit == 0 {
		coupon.PerUserLimit = 1
	}
	coupon.IsActive = true
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

func TestAcquireSuccess(t *testing.T) {
	svc, db := newAcquireServiceTest(t, "acquire_success")
	seedCouponUser(t, db, 1)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "满减券", GroupKey: "launch"})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	result, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if result.Outcome != constants.AcquireOutcomeAcquired {
		t.Fatalf("expected outcome acquired, got: %s", result.Outcome)
	}
	if result.Issuance == nil || result.Issuance.ID == 0 {
		t.Fatalf("invalid issuance: %+v", result.Issuance)
	}
	if len(result.Issuance.Code) != 8 {
		t.Fatalf("expected 8 char code, got: %q", result.Issuance.Code)
	}
	// 活动领取默认 7 天有效
	if !result.Issuance.ExpiresAt.Equal(base.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry: %s", result.Issuance.ExpiresAt)
	}
	if result.Issuance.ClaimMethod != constants.ClaimMethodEvent {
		t.Fatalf("expected claim method event, got: %s", result.Issuance.ClaimMethod)
	}

	var stored models.CouponIssuance
	if err := db.First(&stored, result.Issuance.ID).Error; err != nil {
		t.Fatalf("query issuance failed: %v", err)
	}
	if stored.Status != constants.IssuanceStatusActive {
		t.Fatalf("expected active status, got: %s", stored.Status)
	}
}

func TestAcquireWalletClaimExpiry(t *testing.T) {
	svc, db := newAcquireServiceTest(t, "acquire_wallet")
	seedCouponUser(t, db, 1)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "钱包券", GroupKey: "wallet"})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	result, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID, ClaimMethod: constants.ClaimMethodWallet})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !result.Issuance.ExpiresAt.Equal(base.Add(30 * 24 * time.Hour)) {
		t.Fatalf("unexpected wallet claim expiry: %s", result.Issuance.ExpiresAt)
	}
}

func TestAcquireCouponValidToOverridesDefault(t *testing.T) {
	svc, db := newAcquireServiceTest(t, "acquire_valid_to")
	seedCouponUser(t, db, 1)
	validTo := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "限时券", GroupKey: "flash", ValidTo: &validTo})

	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	result, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID})
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !result.Issuance.ExpiresAt.Equal(validTo) {
		t.Fatalf("expected expiry pinned to coupon window end, got: %s", result.Issuance.ExpiresAt)
	}
}

func TestAcquireRejections(t *testing.T) {
	svc, db := newAcquireServiceTest(t, "acquire_reject")
	seedCouponUser(t, db, 1)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	if _, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: 9999}); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got: %v", err)
	}

	inactive := seedCoupon(t, db, &models.Coupon{Title: "下线券", GroupKey: "g1"})
	if err := db.Model(&models.Coupon{}).Where("id = ?", inactive.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate coupon failed: %v", err)
	}
	if _, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: inactive.ID}); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound for inactive, got: %v", err)
	}

	pending := seedCoupon(t, db, &models.Coupon{Title: "待审券", GroupKey: "g2", ApprovalStatus: constants.CouponApprovalPending})
	if _, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: pending.ID}); !errors.Is(err, ErrCouponNotApproved) {
		t.Fatalf("expected ErrCouponNotApproved, got: %v", err)
	}

	futureFrom := base.Add(24 * time.Hour)
	early := seedCoupon(t, db, &models.Coupon{Title: "未开始券", GroupKey: "g3", ValidFrom: &futureFrom})
	if _, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: early.ID}); !errors.Is(err, ErrCouponNotYetValid) {
		t.Fatalf("expected ErrCouponNotYetValid, got: %v", err)
	}

	pastTo := base.Add(-24 * time.Hour)
	stale := seedCoupon(t, db, &models.Coupon{Title: "已结束券", GroupKey: "g4", ValidTo: &pastTo})
	if _, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: stale.ID}); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("expected ErrCouponExpired, got: %v", err)
	}
}

func TestAcquireGeofence(t *testing.T) {
	svc, db := newAcquireServiceTest(t, "acquire_geo")
	seedCouponUser(t, db, 1)

	lat, lng, radius := 37.5665, 126.9780, 1.0
	coupon := seedCoupon(t, db, &models.Coupon{
		Title:        "到店券",
		GroupKey:     "geo",
		GeoLatitude:  &lat,
		GeoLongitude: &lng,
		GeoRadiusKM:  &radius,
	})

	// 约 2km 之外
	farLat, farLng := 37.5845, 126.9780
	_, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID, Latitude: &farLat, Longitude: &farLng})
	var rangeErr *OutOfRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected OutOfRangeError, got: %v", err)
	}
	if !errors.Is(err, ErrCouponOutOfRange) {
		t.Fatalf("expected wrap of ErrCouponOutOfRange, got: %v", err)
	}
	if rangeErr.RadiusKM != 1.0 {
		t.Fatalf("payload should carry radius, got: %f", rangeErr.RadiusKM)
	}
	if rangeErr.DistanceKM <= 1.0 {
		t.Fatalf("distance should exceed radius, got: %f", rangeErr.DistanceKM)
	}

	// 未提供定位同样按范围外处理
	if _, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID}); !errors.Is(err, ErrCouponOutOfRange) {
		t.Fatalf("expected ErrCouponOutOfRange without location, got: %v", err)
	}

	// 围栏内正常领取
	nearLat, nearLng := 37.5700, 126.9780
	result, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID, Latitude: &nearLat, Longitude: &nearLng})
	if err != nil {
		t.Fatalf("acquire inside fence failed: %v", err)
	}
	if result.Outcome != constants.AcquireOutcomeAcquired {
		t.Fatalf("expected acquired, got: %s", result.Outcome)
	}
}

func TestAcquireSoldOut(t *testing.T) {
	svc, db := newAcquireServiceTest(t, "acquire_sold_out")
	seedCouponUser(t, db, 1)
	seedCouponUser(t, db, 2)
	quantity := 1
	coupon := seedCoupon(t, db, &models.Coupon{Title: "限量券", GroupKey: "limited", TotalQuantity: &quantity})

	first, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID})
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if first.Remaining == nil || *first.Remaining != 0 {
		t.Fatalf("expected remaining 0, got: %+v", first.Remaining)
	}

	_, err = svc.Acquire(AcquireInput{HolderID: 2, CouponID: coupon.ID})
	var soldOut *SoldOutError
	if !errors.As(err, &soldOut) {
		t.Fatalf("expected SoldOutError, got: %v", err)
	}
	if !errors.Is(err, ErrCouponSoldOut) {
		t.Fatalf("expected wrap of ErrCouponSoldOut, got: %v", err)
	}
	if soldOut.Quantity != 1 {
		t.Fatalf("payload should carry quantity, got: %d", soldOut.Quantity)
	}
}

func TestAcquireAlreadyClaimed(t *testing.T) {
	svc, db := newAcquireServiceTest(t, "acquire_already")
	seedCouponUser(t, db, 1)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "单次券", GroupKey: "once"})

	first, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID})
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	// 核销后再领同一张券触发每人上限
	if err := db.Model(&models.CouponIssuance{}).Where("id = ?", first.Issuance.ID).
		Update("status", constants.IssuanceStatusUsed).Error; err != nil {
		t.Fatalf("mark used failed: %v", err)
	}
	if _, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID}); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got: %v", err)
	}
}

func TestAcquireGroupReplacementAndNoop(t *testing.T) {
	svc, db := newAcquireServiceTest(t, "acquire_group")
	seedCouponUser(t, db, 1)
	fixed := seedCoupon(t, db, &models.Coupon{
		Title:    "固定额券",
		GroupKey: "spring",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.RequireFromString("1000")),
	})
	percent := seedCoupon(t, db, &models.Coupon{
		Title:    "折扣券",
		GroupKey: "spring",
		Type:     constants.CouponTypePercent,
		Value:    models.NewMoneyFromDecimal(decimal.RequireFromString("10")),
	})

	first, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: fixed.ID})
	if err != nil {
		t.Fatalf("acquire fixed failed: %v", err)
	}

	// 折扣券更优，旧券被替换
	second, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: percent.ID})
	if err != nil {
		t.Fatalf("acquire percent failed: %v", err)
	}
	if second.Outcome != constants.AcquireOutcomeReplaced {
		t.Fatalf("expected replaced, got: %s", second.Outcome)
	}
	if second.ReplacedIssuanceID != first.Issuance.ID {
		t.Fatalf("expected replaced id %d, got: %d", first.Issuance.ID, second.ReplacedIssuanceID)
	}
	var old models.CouponIssuance
	if err := db.First(&old, first.Issuance.ID).Error; err != nil {
		t.Fatalf("query old issuance failed: %v", err)
	}
	if old.Status != constants.IssuanceStatusCancelled {
		t.Fatalf("expected old issuance cancelled, got: %s", old.Status)
	}

	// 固定额不优于折扣券，空领取保留现有券
	third, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: fixed.ID})
	if err != nil {
		t.Fatalf("noop acquire failed: %v", err)
	}
	if third.Outcome != constants.AcquireOutcomeNoop {
		t.Fatalf("expected noop, got: %s", third.Outcome)
	}
	if third.NoopReason != constants.NoopReasonExistingBetterOrEqual {
		t.Fatalf("unexpected noop reason: %s", third.NoopReason)
	}
	if third.Issuance == nil || third.Issuance.ID != second.Issuance.ID {
		t.Fatalf("noop should surface the kept issuance: %+v", third.Issuance)
	}

	var activeCount int64
	if err := db.Model(&models.CouponIssuance{}).
		Where("holder_id = ? AND status = ?", 1, constants.IssuanceStatusActive).
		Count(&activeCount).Error; err != nil {
		t.Fatalf("count active failed: %v", err)
	}
	if activeCount != 1 {
		t.Fatalf("expected single active holding per group, got: %d", activeCount)
	}
}

func TestAcquireExpiredHoldingIsReplacedLazily(t *testing.T) {
	svc, db := newAcquireServiceTest(t, "acquire_lazy_expire")
	seedCouponUser(t, db, 1)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "复领券", GroupKey: "lazy"})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	first, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID})
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	// 8 天后旧券已过期，应先翻转状态再正常发放
	svc.now = func() time.Time { return base.Add(8 * 24 * time.Hour) }
	second, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID})
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	if second.Outcome != constants.AcquireOutcomeAcquired {
		t.Fatalf("expected acquired, got: %s", second.Outcome)
	}

	var old models.CouponIssuance
	if err := db.First(&old, first.Issuance.ID).Error; err != nil {
		t.Fatalf("query old issuance failed: %v", err)
	}
	if old.Status != constants.IssuanceStatusExpired {
		t.Fatalf("expected old issuance expired, got: %s", old.Status)
	}
}

func TestAcquireCodeCollisionExhausted(t *testing.T) {
	svc, db := newAcquireServiceTest(t, "acquire_collision")
	seedCouponUser(t, db, 1)
	seedCouponUser(t, db, 2)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "碰撞券", GroupKey: "collide", PerUserLimit: 5})

	// 全零随机源每次都生成同一个码
	svc.codes = NewCodeGenerator(8, bytes.NewReader(make([]byte, 1024)))
	first, err := svc.Acquire(AcquireInput{HolderID: 2, CouponID: coupon.ID})
	if err != nil {
		t.Fatalf("seed acquire failed: %v", err)
	}
	if first.Issuance.Code != "22222222" {
		t.Fatalf("unexpected deterministic code: %q", first.Issuance.Code)
	}

	if _, err := svc.Acquire(AcquireInput{HolderID: 1, CouponID: coupon.ID}); !errors.Is(err, ErrCodeGenerationExhausted) {
		t.Fatalf("expected ErrCodeGenerationExhausted, got: %v", err)
	}
}

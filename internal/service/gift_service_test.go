package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newGiftServiceTest(t *testing.T, name string) (*GiftService, *gorm.DB) {
	t.Helper()
	db := setupCouponServiceTest(t, name)
	svc := NewGiftService(
		repository.NewCouponRepository(db),
		repository.NewCouponIssuanceRepository(db),
		repository.NewUserRepository(db),
		nil,
		DefaultIssuancePolicy(),
	)
	return svc, db
}

func seedIssuance(t *testing.T, db *gorm.DB, issuance *models.CouponIssuance) *models.CouponIssuance {
	t.Helper()
	if issuance.Code == "" {
		issuance.Code = fmt.Sprintf("SEED%04d", time.Now().UnixNano()%10000)
	}
	if issuance.Status == "" {
		issuance.Status = constants.IssuanceStatusActive
	}
	if issuance.ClaimMethod == "" {
		issuance.ClaimMethod = constants.ClaimMethodEvent
	}
	if issuance.IssuedAt.IsZero() {
		issuance.IssuedAt = time.Now()
	}
	if issuance.ExpiresAt.IsZero() {
		issuance.ExpiresAt = time.Now().Add(7 * 24 * time.Hour)
	}
	if err := db.Create(issuance).Error; err != nil {
		t.Fatalf("create issuance failed: %v", err)
	}
	return issuance
}

func TestGiftCreateTransfer(t *testing.T) {
	svc, db := newGiftServiceTest(t, "gift_create")
	seedCouponUser(t, db, 1)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "可转赠券", GroupKey: "g"})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	issuance := seedIssuance(t, db, &models.CouponIssuance{
		CouponID:  coupon.ID,
		HolderID:  1,
		Code:      "GIFTSRC1",
		ExpiresAt: base.Add(5 * 24 * time.Hour),
	})

	result, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: issuance.ID})
	if err != nil {
		t.Fatalf("create transfer failed: %v", err)
	}
	if len(result.Token) != 32 {
		t.Fatalf("expected 32 hex char token, got: %q", result.Token)
	}
	if !result.ExpiresAt.Equal(base.Add(24 * time.Hour)) {
		t.Fatalf("expected 24h token expiry, got: %s", result.ExpiresAt)
	}

	var stored models.CouponIssuance
	if err := db.First(&stored, issuance.ID).Error; err != nil {
		t.Fatalf("query issuance failed: %v", err)
	}
	if stored.GiftToken == nil || *stored.GiftToken != result.Token {
		t.Fatalf("token not stamped on issuance: %+v", stored.GiftToken)
	}
}

func TestGiftCreateTransferRejections(t *testing.T) {
	svc, db := newGiftServiceTest(t, "gift_create_reject")
	seedCouponUser(t, db, 1)
	seedCouponUser(t, db, 2)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "转赠校验券", GroupKey: "g"})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	issuance := seedIssuance(t, db, &models.CouponIssuance{
		CouponID:  coupon.ID,
		HolderID:  1,
		Code:      "GIFTOWN1",
		ExpiresAt: base.Add(24 * time.Hour),
	})

	// 非持有人
	if _, err := svc.CreateTransfer(CreateTransferInput{SenderID: 2, IssuanceID: issuance.ID}); !errors.Is(err, ErrIssuanceNotFound) {
		t.Fatalf("expected ErrIssuanceNotFound, got: %v", err)
	}

	used := seedIssuance(t, db, &models.CouponIssuance{
		CouponID:  coupon.ID,
		HolderID:  1,
		Code:      "GIFTUSED",
		Status:    constants.IssuanceStatusUsed,
		ExpiresAt: base.Add(24 * time.Hour),
	})
	if _, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: used.ID}); !errors.Is(err, ErrGiftNotEligible) {
		t.Fatalf("expected ErrGiftNotEligible for used, got: %v", err)
	}

	overdue := seedIssuance(t, db, &models.CouponIssuance{
		CouponID:  coupon.ID,
		HolderID:  1,
		Code:      "GIFTLATE",
		ExpiresAt: base.Add(-time.Hour),
	})
	if _, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: overdue.ID}); !errors.Is(err, ErrGiftNotEligible) {
		t.Fatalf("expected ErrGiftNotEligible for overdue, got: %v", err)
	}
	var flipped models.CouponIssuance
	if err := db.First(&flipped, overdue.ID).Error; err != nil {
		t.Fatalf("query overdue issuance failed: %v", err)
	}
	if flipped.Status != constants.IssuanceStatusExpired {
		t.Fatalf("expected overdue issuance flipped to expired, got: %s", flipped.Status)
	}
}

func TestGiftRecreateInvalidatesPreviousToken(t *testing.T) {
	svc, db := newGiftServiceTest(t, "gift_recreate")
	seedCouponUser(t, db, 1)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "重发令牌券", GroupKey: "g"})
	issuance := seedIssuance(t, db, &models.CouponIssuance{CouponID: coupon.ID, HolderID: 1, Code: "GIFTRE01"})

	first, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: issuance.ID})
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: issuance.ID})
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if first.Token == second.Token {
		t.Fatal("recreate should mint a fresh token")
	}
	if _, err := svc.GetTransfer(first.Token); !errors.Is(err, ErrGiftTokenInvalid) {
		t.Fatalf("old token should be invalid, got: %v", err)
	}
	if _, err := svc.GetTransfer(second.Token); err != nil {
		t.Fatalf("new token should preview fine, got: %v", err)
	}
}

func TestGiftGetTransferPreview(t *testing.T) {
	svc, db := newGiftServiceTest(t, "gift_preview")
	seedCouponUser(t, db, 1)
	coupon := seedCoupon(t, db, &models.Coupon{
		Title:    "预览券",
		GroupKey: "g",
		Type:     constants.CouponTypePercent,
		Value:    models.NewMoneyFromDecimal(decimal.RequireFromString("15")),
	})
	issuance := seedIssuance(t, db, &models.CouponIssuance{CouponID: coupon.ID, HolderID: 1, Code: "GIFTPV01"})

	created, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: issuance.ID})
	if err != nil {
		t.Fatalf("create transfer failed: %v", err)
	}
	preview, err := svc.GetTransfer(created.Token)
	if err != nil {
		t.Fatalf("get transfer failed: %v", err)
	}
	if preview.CouponID != coupon.ID || preview.Title != "预览券" {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if preview.Type != constants.CouponTypePercent || !preview.Value.Decimal.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("preview should carry benefit info: %+v", preview)
	}

	if _, err := svc.GetTransfer("no-such-token"); !errors.Is(err, ErrGiftTokenInvalid) {
		t.Fatalf("expected ErrGiftTokenInvalid, got: %v", err)
	}
}

func TestGiftAcceptTransfer(t *testing.T) {
	svc, db := newGiftServiceTest(t, "gift_accept")
	seedCouponUser(t, db, 1)
	seedCouponUser(t, db, 2)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "转手券", GroupKey: "g"})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	expiresAt := base.Add(5 * 24 * time.Hour)
	issuance := seedIssuance(t, db, &models.CouponIssuance{
		CouponID:  coupon.ID,
		HolderID:  1,
		Code:      "GIFTAC01",
		IssuedAt:  base,
		ExpiresAt: expiresAt,
	})
	created, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: issuance.ID})
	if err != nil {
		t.Fatalf("create transfer failed: %v", err)
	}

	result, err := svc.AcceptTransfer(AcceptTransferInput{ReceiverID: 2, Token: created.Token})
	if err != nil {
		t.Fatalf("accept transfer failed: %v", err)
	}
	minted := result.Issuance
	if minted.HolderID != 2 || minted.ClaimMethod != constants.ClaimMethodGift {
		t.Fatalf("unexpected minted issuance: %+v", minted)
	}
	if !minted.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("minted issuance should keep original expiry, got: %s", minted.ExpiresAt)
	}
	if minted.GiftedFrom == nil || *minted.GiftedFrom != 1 {
		t.Fatalf("minted issuance should record sender: %+v", minted.GiftedFrom)
	}
	if minted.Code == issuance.Code {
		t.Fatal("minted issuance should carry a fresh code")
	}

	var sender models.CouponIssuance
	if err := db.First(&sender, issuance.ID).Error; err != nil {
		t.Fatalf("query sender issuance failed: %v", err)
	}
	if sender.Status != constants.IssuanceStatusCancelled {
		t.Fatalf("sender issuance should be cancelled, got: %s", sender.Status)
	}
	if sender.GiftedTo == nil || *sender.GiftedTo != 2 {
		t.Fatalf("sender issuance should record receiver: %+v", sender.GiftedTo)
	}

	// 转赠前后全局只有一张有效券
	var activeCount int64
	if err := db.Model(&models.CouponIssuance{}).
		Where("coupon_id = ? AND status = ?", coupon.ID, constants.IssuanceStatusActive).
		Count(&activeCount).Error; err != nil {
		t.Fatalf("count active failed: %v", err)
	}
	if activeCount != 1 {
		t.Fatalf("transfer must conserve holdings, active count: %d", activeCount)
	}

	// 令牌一次性，二次领取无效
	if _, err := svc.AcceptTransfer(AcceptTransferInput{ReceiverID: 2, Token: created.Token}); !errors.Is(err, ErrGiftTokenInvalid) {
		t.Fatalf("expected ErrGiftTokenInvalid on reuse, got: %v", err)
	}
}

func TestGiftAcceptSelf(t *testing.T) {
	svc, db := newGiftServiceTest(t, "gift_self")
	seedCouponUser(t, db, 1)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "自赠券", GroupKey: "g"})
	issuance := seedIssuance(t, db, &models.CouponIssuance{CouponID: coupon.ID, HolderID: 1, Code: "GIFTSF01"})

	created, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: issuance.ID})
	if err != nil {
		t.Fatalf("create transfer failed: %v", err)
	}
	if _, err := svc.AcceptTransfer(AcceptTransferInput{ReceiverID: 1, Token: created.Token}); !errors.Is(err, ErrGiftSelf) {
		t.Fatalf("expected ErrGiftSelf, got: %v", err)
	}

	// 失败不消耗令牌
	var stored models.CouponIssuance
	if err := db.First(&stored, issuance.ID).Error; err != nil {
		t.Fatalf("query issuance failed: %v", err)
	}
	if stored.Status != constants.IssuanceStatusActive || stored.GiftToken == nil {
		t.Fatalf("failed accept must not burn the token: %+v", stored)
	}
}

func TestGiftAcceptReceiverHasBetter(t *testing.T) {
	svc, db := newGiftServiceTest(t, "gift_better")
	seedCouponUser(t, db, 1)
	seedCouponUser(t, db, 2)
	fixed := seedCoupon(t, db, &models.Coupon{
		Title:    "固定额券",
		GroupKey: "g",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.RequireFromString("1000")),
	})
	percent := seedCoupon(t, db, &models.Coupon{
		Title:    "折扣券",
		GroupKey: "g",
		Type:     constants.CouponTypePercent,
		Value:    models.NewMoneyFromDecimal(decimal.RequireFromString("10")),
	})

	// 接收方已持有同组折扣券
	seedIssuance(t, db, &models.CouponIssuance{CouponID: percent.ID, HolderID: 2, Code: "GIFTRB01"})
	senderHolding := seedIssuance(t, db, &models.CouponIssuance{CouponID: fixed.ID, HolderID: 1, Code: "GIFTRB02"})

	created, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: senderHolding.ID})
	if err != nil {
		t.Fatalf("create transfer failed: %v", err)
	}

	_, err = svc.AcceptTransfer(AcceptTransferInput{ReceiverID: 2, Token: created.Token})
	var betterErr *ReceiverHasBetterError
	if !errors.As(err, &betterErr) {
		t.Fatalf("expected ReceiverHasBetterError, got: %v", err)
	}
	if !errors.Is(err, ErrReceiverHasBetter) {
		t.Fatalf("expected wrap of ErrReceiverHasBetter, got: %v", err)
	}
	if betterErr.ExistingType != constants.CouponTypePercent {
		t.Fatalf("payload should describe existing benefit: %+v", betterErr)
	}

	// 拒绝不消耗令牌，发起方持券原样保留
	var sender models.CouponIssuance
	if err := db.First(&sender, senderHolding.ID).Error; err != nil {
		t.Fatalf("query sender issuance failed: %v", err)
	}
	if sender.Status != constants.IssuanceStatusActive || sender.GiftToken == nil {
		t.Fatalf("rejected accept must not burn the token: %+v", sender)
	}
	if _, err := svc.GetTransfer(created.Token); err != nil {
		t.Fatalf("token should stay previewable: %v", err)
	}
}

func TestGiftAcceptReplacesWorseReceiverHolding(t *testing.T) {
	svc, db := newGiftServiceTest(t, "gift_replace")
	seedCouponUser(t, db, 1)
	seedCouponUser(t, db, 2)
	fixed := seedCoupon(t, db, &models.Coupon{
		Title:    "固定额券",
		GroupKey: "g",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.RequireFromString("1000")),
	})
	percent := seedCoupon(t, db, &models.Coupon{
		Title:    "折扣券",
		GroupKey: "g",
		Type:     constants.CouponTypePercent,
		Value:    models.NewMoneyFromDecimal(decimal.RequireFromString("10")),
	})

	receiverHolding := seedIssuance(t, db, &models.CouponIssuance{CouponID: fixed.ID, HolderID: 2, Code: "GIFTRP01"})
	senderHolding := seedIssuance(t, db, &models.CouponIssuance{CouponID: percent.ID, HolderID: 1, Code: "GIFTRP02"})

	created, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: senderHolding.ID})
	if err != nil {
		t.Fatalf("create transfer failed: %v", err)
	}
	result, err := svc.AcceptTransfer(AcceptTransferInput{ReceiverID: 2, Token: created.Token})
	if err != nil {
		t.Fatalf("accept transfer failed: %v", err)
	}
	if result.ReplacedIssuanceID != receiverHolding.ID {
		t.Fatalf("expected replaced id %d, got: %d", receiverHolding.ID, result.ReplacedIssuanceID)
	}
	var old models.CouponIssuance
	if err := db.First(&old, receiverHolding.ID).Error; err != nil {
		t.Fatalf("query old holding failed: %v", err)
	}
	if old.Status != constants.IssuanceStatusCancelled {
		t.Fatalf("worse receiver holding should be cancelled, got: %s", old.Status)
	}
}

func TestGiftAcceptExpiredToken(t *testing.T) {
	svc, db := newGiftServiceTest(t, "gift_token_expired")
	seedCouponUser(t, db, 1)
	seedCouponUser(t, db, 2)
	coupon := seedCoupon(t, db, &models.Coupon{Title: "过期令牌券", GroupKey: "g"})
	issuance := seedIssuance(t, db, &models.CouponIssuance{
		CouponID:  coupon.ID,
		HolderID:  1,
		Code:      "GIFTTK01",
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	created, err := svc.CreateTransfer(CreateTransferInput{SenderID: 1, IssuanceID: issuance.ID})
	if err != nil {
		t.Fatalf("create transfer failed: %v", err)
	}

	// 令牌 24 小时后失效
	svc.now = func() time.Time { return base.Add(25 * time.Hour) }
	if _, err := svc.AcceptTransfer(AcceptTransferInput{ReceiverID: 2, Token: created.Token}); !errors.Is(err, ErrGiftTokenInvalid) {
		t.Fatalf("expected ErrGiftTokenInvalid for expired token, got: %v", err)
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/repository"

	"gorm.io/gorm"
)

func newDiscoveryServiceTest(t *testing.T, name string) (*DiscoveryService, *gorm.DB) {
	t.Helper()
	db := setupCouponServiceTest(t, name)
	svc := NewDiscoveryService(repository.NewCouponRepository(db))
	return svc, db
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestListNearbySortsByDistance(t *testing.T) {
	svc, db := newDiscoveryServiceTest(t, "discovery_sort")

	// 明洞与江南，距首尔市厅分别约 1 公里与 8 公里
	near := seedCoupon(t, db, &models.Coupon{
		Title: "明洞券", GroupKey: "g1",
		GeoLatitude: floatPtr(37.5637), GeoLongitude: floatPtr(126.9838), GeoRadiusKM: floatPtr(2),
	})
	far := seedCoupon(t, db, &models.Coupon{
		Title: "江南券", GroupKey: "g2",
		GeoLatitude: floatPtr(37.5000), GeoLongitude: floatPtr(127.0364), GeoRadiusKM: floatPtr(2),
	})
	citywide := seedCoupon(t, db, &models.Coupon{Title: "全城券", GroupKey: "g3"})

	items, err := svc.ListNearby(context.Background(), NearbyInput{
		Latitude:  floatPtr(37.5663),
		Longitude: floatPtr(126.9779),
	})
	if err != nil {
		t.Fatalf("list nearby failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Coupon.ID != near.ID || items[1].Coupon.ID != far.ID || items[2].Coupon.ID != citywide.ID {
		t.Fatalf("unexpected order: %d, %d, %d", items[0].Coupon.ID, items[1].Coupon.ID, items[2].Coupon.ID)
	}
	if !items[0].InRange {
		t.Fatalf("near coupon should be in range, distance=%v", items[0].DistanceKM)
	}
	if items[1].InRange {
		t.Fatalf("far coupon should be out of range, distance=%v", items[1].DistanceKM)
	}
	if items[2].DistanceKM != nil || !items[2].InRange {
		t.Fatalf("citywide coupon should have no distance and be in range")
	}
}

func TestListNearbyWithoutCoordinates(t *testing.T) {
	svc, db := newDiscoveryServiceTest(t, "discovery_no_coords")

	fenced := seedCoupon(t, db, &models.Coupon{
		Title: "围栏券", GroupKey: "g1",
		GeoLatitude: floatPtr(37.5), GeoLongitude: floatPtr(127.0), GeoRadiusKM: floatPtr(1),
	})
	open := seedCoupon(t, db, &models.Coupon{Title: "全城券", GroupKey: "g2"})

	items, err := svc.ListNearby(context.Background(), NearbyInput{})
	if err != nil {
		t.Fatalf("list nearby failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		switch item.Coupon.ID {
		case fenced.ID:
			if item.InRange {
				t.Fatalf("fenced coupon should be out of range without coordinates")
			}
		case open.ID:
			if !item.InRange {
				t.Fatalf("open coupon should stay in range without coordinates")
			}
		}
	}
}

func TestListNearbyFiltersClaimable(t *testing.T) {
	svc, db := newDiscoveryServiceTest(t, "discovery_claimable")

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	visible := seedCoupon(t, db, &models.Coupon{Title: "可领券", GroupKey: "g1"})

	past := base.Add(-time.Hour)
	seedCoupon(t, db, &models.Coupon{Title: "已结束", GroupKey: "g2", ValidTo: &past})

	pending := &models.Coupon{
		Title: "待审核", GroupKey: "g3",
		Type:           constants.CouponTypeFixed,
		Value:          models.NewMoneyFromInt(1000),
		ApprovalStatus: constants.CouponApprovalPending,
		PerUserLimit:   1,
		IsActive:       true,
	}
	if err := db.Create(pending).Error; err != nil {
		t.Fatalf("create pending coupon failed: %v", err)
	}

	items, err := svc.ListNearby(context.Background(), NearbyInput{})
	if err != nil {
		t.Fatalf("list nearby failed: %v", err)
	}
	if len(items) != 1 || items[0].Coupon.ID != visible.ID {
		t.Fatalf("expected only the claimable coupon, got %d items", len(items))
	}
}

func TestGetCouponHidesUnapproved(t *testing.T) {
	svc, db := newDiscoveryServiceTest(t, "discovery_detail")

	approved := seedCoupon(t, db, &models.Coupon{Title: "可领券", GroupKey: "g1"})
	draft := &models.Coupon{
		Title: "草稿券", GroupKey: "g2",
		Type:           constants.CouponTypeFixed,
		Value:          models.NewMoneyFromInt(1000),
		ApprovalStatus: constants.CouponApprovalDraft,
		PerUserLimit:   1,
		IsActive:       true,
	}
	if err := db.Create(draft).Error; err != nil {
		t.Fatalf("create draft coupon failed: %v", err)
	}

	if got, err := svc.GetCoupon(approved.ID); err != nil || got.ID != approved.ID {
		t.Fatalf("approved lookup failed: got=%v err=%v", got, err)
	}
	if _, err := svc.GetCoupon(draft.ID); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound for draft, got %v", err)
	}
	if _, err := svc.GetCoupon(0); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound for zero id, got %v", err)
	}
}

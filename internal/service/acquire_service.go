package service

import (
	"errors"
	"strings"
	"time"

	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/geo"
	"github.com/lingquan-next/internal/logger"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/queue"
	"github.com/lingquan-next/internal/repository"

	"gorm.io/gorm"
)

// AcquireService 领取引擎
// 职责：校验时间窗、地理围栏、每人上限、余量与同组持有策略，
// 决定 领取 / 替换 / 空领取 / 拒绝，并完成发放写入。
type AcquireService struct {
	couponRepo   repository.CouponRepository
	issuanceRepo repository.CouponIssuanceRepository
	userRepo     repository.UserRepository
	queueClient  *queue.Client
	policy       IssuancePolicy
	codes        *CodeGenerator
	now          func() time.Time
}

// NewAcquireService 创建领取引擎
func NewAcquireService(
	couponRepo repository.CouponRepository,
	issuanceRepo repository.CouponIssuanceRepository,
	userRepo repository.UserRepository,
	queueClient *queue.Client,
	policy IssuancePolicy,
) *AcquireService {
	policy = policy.normalized()
	return &AcquireService{
		couponRepo:   couponRepo,
		issuanceRepo: issuanceRepo,
		userRepo:     userRepo,
		queueClient:  queueClient,
		policy:       policy,
		codes:        NewCodeGenerator(policy.CodeLength, nil),
		now:          time.Now,
	}
}

// AcquireInput 领取输入
type AcquireInput struct {
	HolderID    uint
	CouponID    uint
	Latitude    *float64
	Longitude   *float64
	ClaimMethod string // event / wallet
}

// AcquireResult 领取结果
type AcquireResult struct {
	Outcome            string                  `json:"outcome"` // acquired / replaced / noop
	Issuance           *models.CouponIssuance  `json:"issuance,omitempty"`
	ReplacedIssuanceID uint                    `json:"replaced_issuance_id,omitempty"`
	NoopReason         string                  `json:"noop_reason,omitempty"`
	Remaining          *int64                  `json:"remaining,omitempty"`
}

// Acquire 领取一张优惠券
func (s *AcquireService) Acquire(input AcquireInput) (*AcquireResult, error) {
	if s == nil || s.couponRepo == nil || s.issuanceRepo == nil || s.userRepo == nil {
		return nil, ErrStoreUnavailable
	}
	if input.HolderID == 0 || input.CouponID == 0 {
		return nil, ErrCouponInvalid
	}
	method := strings.ToLower(strings.TrimSpace(input.ClaimMethod))
	switch method {
	case "":
		method = constants.ClaimMethodEvent
	case constants.ClaimMethodEvent, constants.ClaimMethodWallet:
	default:
		return nil, ErrCouponInvalid
	}

	coupon, err := s.couponRepo.GetByID(input.CouponID)
	if err != nil {
		logger.Errorw("acquire_fetch_coupon_failed", "coupon_id", input.CouponID, "error", err)
		return nil, ErrStoreUnavailable
	}
	if coupon == nil || !coupon.IsActive {
		return nil, ErrCouponNotFound
	}
	if coupon.ApprovalStatus != constants.CouponApprovalApproved {
		return nil, ErrCouponNotApproved
	}

	now := s.now()
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return nil, ErrCouponNotYetValid
	}
	if coupon.ValidTo != nil && now.After(*coupon.ValidTo) {
		return nil, ErrCouponExpired
	}

	if coupon.HasGeofence() {
		if input.Latitude == nil || input.Longitude == nil {
			// 未提供定位按范围外处理
			return nil, &OutOfRangeError{RadiusKM: *coupon.GeoRadiusKM}
		}
		distance := geo.DistanceKM(*input.Latitude, *input.Longitude, *coupon.GeoLatitude, *coupon.GeoLongitude)
		if distance > *coupon.GeoRadiusKM {
			return nil, &OutOfRangeError{RadiusKM: *coupon.GeoRadiusKM, DistanceKM: distance}
		}
	}

	expiresAt := s.resolveExpiry(coupon, method, now)

	// 核销码撞唯一索引时换码重试整个事务，保证在哪种数据库上行为一致
	var result *AcquireResult
	err = runWithStoreRetry("acquire", func() error {
		for attempt := 0; attempt < s.policy.CodeMaxAttempts; attempt++ {
			result = nil
			code, codeErr := s.codes.NewCode()
			if codeErr != nil {
				return codeErr
			}
			txErr := models.DB.Transaction(func(tx *gorm.DB) error {
				txResult, innerErr := s.acquireInTx(tx, coupon, input.HolderID, method, code, expiresAt, now)
				if innerErr != nil {
					return innerErr
				}
				result = txResult
				return nil
			})
			if errors.Is(txErr, gorm.ErrDuplicatedKey) {
				continue
			}
			return txErr
		}
		return ErrCodeGenerationExhausted
	})
	if err != nil {
		return nil, err
	}

	if result.Issuance != nil && s.queueClient != nil {
		if enqueueErr := s.queueClient.EnqueueIssuanceExpire(queue.IssuanceExpirePayload{
			IssuanceID: result.Issuance.ID,
		}, result.Issuance.ExpiresAt); enqueueErr != nil {
			logger.Warnw("acquire_enqueue_expire_failed", "issuance_id", result.Issuance.ID, "error", enqueueErr)
		}
	}
	return result, nil
}

// acquireInTx 事务内的发放主流程：持有人行锁 -> 同组持有策略 -> 每人上限 -> 余量 -> 写入
func (s *AcquireService) acquireInTx(tx *gorm.DB, coupon *models.Coupon, holderID uint, method, code string, expiresAt, now time.Time) (*AcquireResult, error) {
	userRepo := s.userRepo.WithTx(tx)
	issuanceRepo := s.issuanceRepo.WithTx(tx)
	couponRepo := s.couponRepo.WithTx(tx)

	holder, err := userRepo.GetByIDForUpdate(holderID)
	if err != nil {
		return nil, err
	}
	if holder == nil {
		return nil, ErrHolderNotFound
	}

	outcome := constants.AcquireOutcomeAcquired
	replacedID := uint(0)

	existing, err := issuanceRepo.GetActiveByHolderAndGroup(holderID, coupon.GroupKey)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsOverdue(now) {
		if _, err := issuanceRepo.MarkExpiredIfActive(existing.ID, now); err != nil {
			return nil, err
		}
		existing = nil
	}
	if existing != nil {
		existingCoupon, err := couponRepo.GetByID(existing.CouponID)
		if err != nil {
			return nil, err
		}
		if existingCoupon != nil &&
			!IsBetterBenefit(coupon.Type, coupon.Value.Decimal, existingCoupon.Type, existingCoupon.Value.Decimal) {
			// 空领取：请求有效但现持有券不差于新券，保留原券
			return &AcquireResult{
				Outcome:    constants.AcquireOutcomeNoop,
				Issuance:   existing,
				NoopReason: constants.NoopReasonExistingBetterOrEqual,
			}, nil
		}
		rows, err := issuanceRepo.CancelIfActive(existing.ID, nil, now)
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, errors.New("issuance state changed concurrently")
		}
		outcome = constants.AcquireOutcomeReplaced
		replacedID = existing.ID
	}

	if coupon.PerUserLimit > 0 {
		count, err := issuanceRepo.CountByHolderAndCoupon(holderID, coupon.ID,
			[]string{constants.IssuanceStatusActive, constants.IssuanceStatusUsed})
		if err != nil {
			return nil, err
		}
		if count >= int64(coupon.PerUserLimit) {
			return nil, ErrAlreadyClaimed
		}
	}

	var remaining *int64
	if coupon.TotalQuantity != nil {
		// 先锁定义行再计数，防止并发超发
		locked, err := couponRepo.GetByIDForUpdate(coupon.ID)
		if err != nil {
			return nil, err
		}
		if locked == nil {
			return nil, ErrCouponNotFound
		}
		count, err := issuanceRepo.CountByCoupon(coupon.ID,
			[]string{constants.IssuanceStatusActive, constants.IssuanceStatusUsed})
		if err != nil {
			return nil, err
		}
		if count >= int64(*coupon.TotalQuantity) {
			return nil, &SoldOutError{Quantity: *coupon.TotalQuantity}
		}
		left := int64(*coupon.TotalQuantity) - count - 1
		remaining = &left
	}

	issuance := &models.CouponIssuance{
		CouponID:    coupon.ID,
		HolderID:    holderID,
		Code:        code,
		Status:      constants.IssuanceStatusActive,
		ClaimMethod: method,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	}
	if err := issuanceRepo.Create(issuance); err != nil {
		return nil, err
	}

	return &AcquireResult{
		Outcome:            outcome,
		Issuance:           issuance,
		ReplacedIssuanceID: replacedID,
		Remaining:          remaining,
	}, nil
}

// resolveExpiry 券面有失效时间则随券面，否则按领取入口取默认有效期
func (s *AcquireService) resolveExpiry(coupon *models.Coupon, method string, now time.Time) time.Time {
	if coupon.ValidTo != nil {
		return *coupon.ValidTo
	}
	if method == constants.ClaimMethodWallet {
		return now.Add(s.policy.WalletClaimTTL)
	}
	return now.Add(s.policy.EventClaimTTL)
}


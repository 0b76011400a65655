package service

import (
	"errors"
	"strings"
	"time"

	"github.com/lingquan-next/internal/constants"
	"github.com/lingquan-next/internal/logger"
	"github.com/lingquan-next/internal/models"
	"github.com/lingquan-next/internal/queue"
	"github.com/lingquan-next/internal/repository"

	"gorm.io/gorm"
)

// GiftService 转赠引擎
// 发起方生成一次性转赠令牌；接收方凭令牌领入，
// 撤销发起方与发放接收方在同一事务内完成。
type GiftService struct {
	couponRepo   repository.CouponRepository
	issuanceRepo repository.CouponIssuanceRepository
	userRepo     repository.UserRepository
	queueClient  *queue.Client
	policy       IssuancePolicy
	codes        *CodeGenerator
	now          func() time.Time
}

// NewGiftService 创建转赠引擎
func NewGiftService(
	couponRepo repository.CouponRepository,
	issuanceRepo repository.CouponIssuanceRepository,
	userRepo repository.UserRepository,
	queueClient *queue.Client,
	policy IssuancePolicy,
) *GiftService {
	policy = policy.normalized()
	return &GiftService{
		couponRepo:   couponRepo,
		issuanceRepo: issuanceRepo,
		userRepo:     userRepo,
		queueClient:  queueClient,
		policy:       policy,
		codes:        NewCodeGenerator(policy.CodeLength, nil),
	}
}

// CreateTransferInput 发起转赠输入
type CreateTransferInput struct {
	SenderID   uint
	IssuanceID uint
}

// CreateTransferResult 发起转赠结果
type CreateTransferResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TransferPreview 转赠落地页预览
type TransferPreview struct {
	CouponID    uint         `json:"coupon_id"`
	Title       string       `json:"title"`
	Type        string       `json:"type"`
	Value       models.Money `json:"value"`
	ExpiresAt   time.Time    `json:"expires_at"`
	TokenExpiry time.Time    `json:"token_expiry"`
}

// AcceptTransferInput 接收转赠输入
type AcceptTransferInput struct {
	ReceiverID uint
	Token      string
}

// AcceptTransferResult 接收转赠结果
type AcceptTransferResult struct {
	Issuance           *models.CouponIssuance `json:"issuance"`
	ReplacedIssuanceID uint                   `json:"replaced_issuance_id,omitempty"`
}

// CreateTransfer 为自己持有的券生成转赠令牌
// 重复发起会生成新令牌并使旧令牌失效
func (s *GiftService) CreateTransfer(input CreateTransferInput) (*CreateTransferResult, error) {
	if input.SenderID == 0 || input.IssuanceID == 0 {
		return nil, ErrGiftNotEligible
	}

	var result *CreateTransferResult
	err := runWithStoreRetry("gift_create", func() error {
		result = nil
		return models.DB.Transaction(func(tx *gorm.DB) error {
			issuanceRepo := s.issuanceRepo.WithTx(tx)

			issuance, err := issuanceRepo.GetByIDForUpdate(input.IssuanceID)
			if err != nil {
				return err
			}
			if issuance == nil || issuance.HolderID != input.SenderID {
				return ErrIssuanceNotFound
			}
			if issuance.Status != constants.IssuanceStatusActive {
				return ErrGiftNotEligible
			}
			now := s.clock()
			if issuance.IsOverdue(now) {
				if _, err := issuanceRepo.MarkExpiredIfActive(issuance.ID, now); err != nil {
					return err
				}
				return ErrGiftNotEligible
			}

			token, err := s.codes.NewGiftToken()
			if err != nil {
				return err
			}
			expiresAt := now.Add(s.policy.GiftTokenTTL)
			rows, err := issuanceRepo.StampGiftToken(issuance.ID, token, expiresAt, now)
			if err != nil {
				return err
			}
			if rows == 0 {
				return ErrGiftNotEligible
			}
			result = &CreateTransferResult{Token: token, ExpiresAt: expiresAt}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransfer 按令牌查询转赠预览，供接收方确认前展示
func (s *GiftService) GetTransfer(token string) (*TransferPreview, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrGiftTokenInvalid
	}
	issuance, err := s.issuanceRepo.GetByGiftToken(token)
	if err != nil {
		logger.Errorw("gift_preview_fetch_failed", "error", err)
		return nil, ErrStoreUnavailable
	}
	now := s.clock()
	if issuance == nil || !issuance.HasPendingGift(now) || issuance.IsOverdue(now) {
		return nil, ErrGiftTokenInvalid
	}
	coupon, err := s.couponRepo.GetByID(issuance.CouponID)
	if err != nil {
		logger.Errorw("gift_preview_fetch_coupon_failed", "coupon_id", issuance.CouponID, "error", err)
		return nil, ErrStoreUnavailable
	}
	if coupon == nil {
		return nil, ErrGiftTokenInvalid
	}
	return &TransferPreview{
		CouponID:    coupon.ID,
		Title:       coupon.Title,
		Type:        coupon.Type,
		Value:       coupon.Value,
		ExpiresAt:   issuance.ExpiresAt,
		TokenExpiry: *issuance.GiftTokenExpiresAt,
	}, nil
}

// AcceptTransfer 凭令牌领入转赠券
// 校验失败（含接收方已有更优券）不消耗令牌；成功时撤销发起方持券并为接收方发放新券
func (s *GiftService) AcceptTransfer(input AcceptTransferInput) (*AcceptTransferResult, error) {
	token := strings.TrimSpace(input.Token)
	if input.ReceiverID == 0 || token == "" {
		return nil, ErrGiftTokenInvalid
	}

	// 与领取一致：新码撞唯一索引时换码重试整个事务
	var result *AcceptTransferResult
	err := runWithStoreRetry("gift_accept", func() error {
		for attempt := 0; attempt < s.policy.CodeMaxAttempts; attempt++ {
			result = nil
			code, codeErr := s.codes.NewCode()
			if codeErr != nil {
				return codeErr
			}
			txErr := models.DB.Transaction(func(tx *gorm.DB) error {
				txResult, innerErr := s.acceptInTx(tx, input.ReceiverID, token, code)
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

	if s.queueClient != nil {
		if enqueueErr := s.queueClient.EnqueueIssuanceExpire(queue.IssuanceExpirePayload{
			IssuanceID: result.Issuance.ID,
		}, result.Issuance.ExpiresAt); enqueueErr != nil {
			logger.Warnw("gift_accept_enqueue_expire_failed", "issuance_id", result.Issuance.ID, "error", enqueueErr)
		}
	}
	return result, nil
}

// acceptInTx 先锁接收方用户行再锁持券行，保持固定加锁顺序
func (s *GiftService) acceptInTx(tx *gorm.DB, receiverID uint, token, code string) (*AcceptTransferResult, error) {
	userRepo := s.userRepo.WithTx(tx)
	issuanceRepo := s.issuanceRepo.WithTx(tx)
	couponRepo := s.couponRepo.WithTx(tx)

	receiver, err := userRepo.GetByIDForUpdate(receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, ErrHolderNotFound
	}

	issuance, err := issuanceRepo.GetByGiftTokenForUpdate(token)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if issuance == nil || !issuance.HasPendingGift(now) {
		return nil, ErrGiftTokenInvalid
	}
	if issuance.IsOverdue(now) {
		if _, err := issuanceRepo.MarkExpiredIfActive(issuance.ID, now); err != nil {
			return nil, err
		}
		return nil, ErrGiftTokenInvalid
	}
	if issuance.HolderID == receiverID {
		return nil, ErrGiftSelf
	}

	coupon, err := couponRepo.GetByID(issuance.CouponID)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrGiftTokenInvalid
	}

	replacedID := uint(0)
	existing, err := issuanceRepo.GetActiveByHolderAndGroup(receiverID, coupon.GroupKey)
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
			// 回滚保留令牌，接收方可先处理手中的券后再领
			return nil, &ReceiverHasBetterError{
				ExistingType:  existingCoupon.Type,
				ExistingValue: existingCoupon.Value,
			}
		}
		rows, err := issuanceRepo.CancelIfActive(existing.ID, nil, now)
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, errors.New("issuance state changed concurrently")
		}
		replacedID = existing.ID
	}

	senderID := issuance.HolderID
	rows, err := issuanceRepo.CancelIfActive(issuance.ID, &receiverID, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrGiftTokenInvalid
	}

	// 接收方的新持券沿用原券的到期时间
	minted := &models.CouponIssuance{
		CouponID:    coupon.ID,
		HolderID:    receiverID,
		Code:        code,
		Status:      constants.IssuanceStatusActive,
		ClaimMethod: constants.ClaimMethodGift,
		IssuedAt:    now,
		ExpiresAt:   issuance.ExpiresAt,
		GiftedFrom:  &senderID,
	}
	if err := issuanceRepo.Create(minted); err != nil {
		return nil, err
	}
	return &AcceptTransferResult{Issuance: minted, ReplacedIssuanceID: replacedID}, nil
}

func (s *GiftService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

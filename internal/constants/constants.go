package constants

// 优惠类型常量
const (
	CouponTypeFixed   = "fixed"
	CouponTypePercent = "percent"
)

// 优惠券审核状态常量
const (
	CouponApprovalDraft    = "draft"
	CouponApprovalPending  = "pending"
	CouponApprovalApproved = "approved"
	CouponApprovalRejected = "rejected"
)

// 持券状态常量
const (
	IssuanceStatusActive    = "active"
	IssuanceStatusUsed      = "used"
	IssuanceStatusExpired   = "expired"
	IssuanceStatusCancelled = "cancelled"
)

// 领取方式常量
const (
	ClaimMethodEvent  = "event"
	ClaimMethodWallet = "wallet"
	ClaimMethodGift   = "gift"
)

// 领取结果常量
const (
	AcquireOutcomeAcquired = "acquired"
	AcquireOutcomeReplaced = "replaced"
	AcquireOutcomeNoop     = "noop"
)

// 空领取原因常量
const (
	NoopReasonExistingBetterOrEqual = "existing_better_or_equal"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 队列常量
const (
	QueueDefault = "default"

	TaskIssuanceExpire = "coupon:issuance_expire"
	TaskIssuanceSweep  = "coupon:issuance_sweep"
)

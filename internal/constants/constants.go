package constants

// 兑换码状态常量
const (
	UnlockCodeStatusUnused   = "unused"
	UnlockCodeStatusRedeemed = "redeemed"
	UnlockCodeStatusInvalid  = "invalid"
)

// 批次状态常量
const (
	CodeBatchStatusActive  = "active"
	CodeBatchStatusRevoked = "revoked"
)

// 限流标识类型常量
const (
	RateLimitKindIP     = "ip"
	RateLimitKindUser   = "user"
	RateLimitKindDevice = "device"
)

// 兑换日志动作与结果常量
const (
	RedemptionActionValidate = "validate"
	RedemptionActionRedeem   = "redeem"
	RedemptionResultSuccess  = "success"
	RedemptionResultFailed   = "failed"
)

// 访问授权来源常量
const (
	AccessSourceUnlockCode = "unlock_code"
	AccessSourcePurchase   = "purchase"
	AccessSourceAdminGrant = "admin_grant"
)

// 欺诈标记原因常量
const (
	FraudReasonCodeEnumeration = "code_enumeration"
	FraudReasonCodeTargeting   = "code_targeting"
	FraudReasonManualFlag      = "manual_flag"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 队列与任务常量
const (
	QueueDefault     = "default"
	TaskFraudObserve = "fraud:observe"
)

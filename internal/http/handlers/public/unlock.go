package public

import (
	"errors"
	"strings"

	"github.com/release-unlock/internal/http/response"
	"github.com/release-unlock/internal/service"

	"github.com/gin-gonic/gin"
)

const deviceFingerprintHeader = "X-Device-Fingerprint"

// UnlockCodeRequest 兑换码请求
type UnlockCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) buildRedeemInput(c *gin.Context, uid uint, code string) service.RedeemInput {
	return service.RedeemInput{
		UserID:     uid,
		Code:       strings.TrimSpace(code),
		ClientIP:   c.ClientIP(),
		DeviceHash: strings.TrimSpace(c.GetHeader(deviceFingerprintHeader)),
		UserAgent:  c.Request.UserAgent(),
		RequestID:  c.GetString("request_id"),
	}
}

// ValidateUnlockCode 校验兑换码（只读，不消耗）
func (h *Handler) ValidateUnlockCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req UnlockCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	result, err := h.RedemptionService.Validate(c.Request.Context(), h.buildRedeemInput(c, uid, req.Code))
	if err != nil {
		respondRedeemError(c, err, "校验兑换码失败")
		return
	}

	response.Success(c, result)
}

// RedeemUnlockCode 兑换兑换码
func (h *Handler) RedeemUnlockCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req UnlockCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	result, err := h.RedemptionService.Redeem(c.Request.Context(), h.buildRedeemInput(c, uid, req.Code))
	if err != nil {
		respondRedeemError(c, err, "兑换失败")
		return
	}

	response.Success(c, result)
}

func respondRedeemError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrCodeInvalidFormat):
		respondError(c, response.CodeBadRequest, "兑换码格式不正确", nil)
	case errors.Is(err, service.ErrCodeNotFound):
		respondError(c, response.CodeNotFound, "兑换码不存在", nil)
	case errors.Is(err, service.ErrCodeAlreadyRedeemed):
		respondError(c, response.CodeBadRequest, "兑换码已被使用", nil)
	case errors.Is(err, service.ErrCodeInvalidStatus):
		respondError(c, response.CodeBadRequest, "兑换码已作废", nil)
	case errors.Is(err, service.ErrCodeOwnershipConflict):
		respondError(c, response.CodeBadRequest, "你已拥有该内容", nil)
	case errors.Is(err, service.ErrRateLimited):
		respondError(c, response.CodeTooManyRequests, "尝试过于频繁，请稍后重试", nil)
	case errors.Is(err, service.ErrFraudBlocked):
		respondError(c, response.CodeForbidden, "当前来源已被临时封禁", nil)
	case errors.Is(err, service.ErrDeviceMismatch):
		respondError(c, response.CodeForbidden, "该兑换码已绑定其他设备", nil)
	case errors.Is(err, service.ErrIPMismatch):
		respondError(c, response.CodeForbidden, "该兑换码已绑定其他网络地址", nil)
	default:
		respondError(c, response.CodeInternal, fallback, err)
	}
}

// GetMyReleases 获取当前用户已解锁的发行内容
func (h *Handler) GetMyReleases(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	accesses, err := h.ReleaseAccessRepo.ListByUser(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "获取已解锁内容失败", err)
		return
	}

	items := make([]gin.H, 0, len(accesses))
	for _, access := range accesses {
		items = append(items, gin.H{
			"release":    access.Release.Summary(),
			"source":     access.Source,
			"granted_at": access.GrantedAt,
		})
	}
	response.Success(c, items)
}

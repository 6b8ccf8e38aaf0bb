package admin

import (
	"github.com/release-unlock/internal/http/response"
	"github.com/release-unlock/internal/service"

	"github.com/gin-gonic/gin"
)

// GetSecurityConfig 获取安全开关
func (h *Handler) GetSecurityConfig(c *gin.Context) {
	cfg, err := h.SecurityConfigService.Current()
	if err != nil {
		respondError(c, response.CodeInternal, "获取安全配置失败", err)
		return
	}
	response.Success(c, cfg)
}

// UpdateSecurityConfigRequest 更新安全开关请求
type UpdateSecurityConfigRequest struct {
	DeviceLockEnabled     *bool `json:"device_lock_enabled"`
	IPLockEnabled         *bool `json:"ip_lock_enabled"`
	FraudDetectionEnabled *bool `json:"fraud_detection_enabled"`
}

// UpdateSecurityConfig 更新安全开关
func (h *Handler) UpdateSecurityConfig(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdateSecurityConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	cfg, err := h.SecurityConfigService.Update(service.UpdateSecurityConfigInput{
		DeviceLockEnabled:     req.DeviceLockEnabled,
		IPLockEnabled:         req.IPLockEnabled,
		FraudDetectionEnabled: req.FraudDetectionEnabled,
		AdminID:               adminID,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "更新安全配置失败", err)
		return
	}

	response.Success(c, cfg)
}

package admin

import (
	"errors"
	"strconv"

	"github.com/release-unlock/internal/http/response"
	"github.com/release-unlock/internal/service"

	"github.com/gin-gonic/gin"
)

// GetFraudLogs 获取欺诈标记列表
func (h *Handler) GetFraudLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	var resolved *bool
	if raw := c.Query("resolved"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err == nil {
			resolved = &value
		}
	}

	logs, total, err := h.FraudDetector.ListFraudLogs(service.ListFraudLogsInput{
		ClientIP:   c.Query("client_ip"),
		DeviceHash: c.Query("device_hash"),
		UserID:     parseUintQuery(c, "user_id"),
		Reason:     c.Query("reason"),
		Resolved:   resolved,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取欺诈标记失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, logs, pagination)
}

// ResolveFraudLogRequest 处理欺诈标记请求
type ResolveFraudLogRequest struct {
	Note string `json:"note"`
}

// ResolveFraudLog 处理欺诈标记（解除封禁）
func (h *Handler) ResolveFraudLog(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id := parseUintParam(c, "id")
	if id == 0 {
		respondError(c, response.CodeBadRequest, "标记 ID 不合法", nil)
		return
	}

	// 备注可选，请求体为空时忽略绑定错误
	var req ResolveFraudLogRequest
	_ = c.ShouldBindJSON(&req)

	log, err := h.FraudDetector.ResolveFraudLog(id, adminID, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFraudLogNotFound):
			respondError(c, response.CodeNotFound, "欺诈标记不存在", nil)
		case errors.Is(err, service.ErrFraudLogResolved):
			respondError(c, response.CodeBadRequest, "该标记已被处理", nil)
		default:
			respondError(c, response.CodeInternal, "处理欺诈标记失败", err)
		}
		return
	}

	response.Success(c, log)
}

package admin

import (
	"strconv"

	"github.com/release-unlock/internal/http/response"
	"github.com/release-unlock/internal/service"

	"github.com/gin-gonic/gin"
)

// GetRedemptionLogs 获取兑换日志列表
func (h *Handler) GetRedemptionLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	logs, total, err := h.RedemptionLogService.List(service.ListRedemptionLogsInput{
		Code:        c.Query("code"),
		UserID:      parseUintQuery(c, "user_id"),
		ClientIP:    c.Query("client_ip"),
		DeviceHash:  c.Query("device_hash"),
		Action:      c.Query("action"),
		Result:      c.Query("result"),
		CreatedFrom: parseTimeQuery(c, "created_from"),
		CreatedTo:   parseTimeQuery(c, "created_to"),
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取兑换日志失败", err)
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

package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/release-unlock/internal/http/response"
	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GenerateCodeBatchRequest 生成兑换码批次请求
type GenerateCodeBatchRequest struct {
	ReleaseID     uint    `json:"release_id" binding:"required"`
	Quantity      int     `json:"quantity" binding:"required"`
	UnitCost      float64 `json:"unit_cost"`
	PaymentMethod string  `json:"payment_method"`
	Note          string  `json:"note"`
}

// GenerateCodeBatch 生成兑换码批次
func (h *Handler) GenerateCodeBatch(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req GenerateCodeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	batch, codes, err := h.CodeBatchService.GenerateCodes(service.GenerateCodesInput{
		ReleaseID:     req.ReleaseID,
		Quantity:      req.Quantity,
		UnitCost:      models.NewMoneyFromDecimal(decimal.NewFromFloat(req.UnitCost)),
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
		CreatedBy:     &adminID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeInvalid):
			respondError(c, response.CodeBadRequest, "批次参数不合法", nil)
		case errors.Is(err, service.ErrReleaseNotFound):
			respondError(c, response.CodeNotFound, "发行内容不存在", nil)
		default:
			respondError(c, response.CodeInternal, "生成兑换码批次失败", err)
		}
		return
	}

	response.Success(c, gin.H{
		"batch": batch,
		"codes": codes,
	})
}

// GetCodeBatches 获取兑换码批次列表
func (h *Handler) GetCodeBatches(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	releaseID := parseUintQuery(c, "release_id")

	batches, total, err := h.CodeBatchService.ListBatches(releaseID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "获取批次列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, batches, pagination)
}

// ExportCodeBatch 导出批次兑换码
func (h *Handler) ExportCodeBatch(c *gin.Context) {
	batchID := parseUintParam(c, "id")
	if batchID == 0 {
		respondError(c, response.CodeBadRequest, "批次 ID 不合法", nil)
		return
	}
	format := c.DefaultQuery("format", "csv")

	data, contentType, err := h.CodeBatchService.ExportBatchCodes(batchID, format)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeInvalid):
			respondError(c, response.CodeBadRequest, "导出格式不支持", nil)
		case errors.Is(err, service.ErrCodeNotFound):
			respondError(c, response.CodeNotFound, "批次内没有兑换码", nil)
		case errors.Is(err, service.ErrCodeBatchFetchFailed):
			respondError(c, response.CodeNotFound, "批次不存在", nil)
		default:
			respondError(c, response.CodeInternal, "导出兑换码失败", err)
		}
		return
	}

	filename := fmt.Sprintf("unlock_codes_batch_%d.%s", batchID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}

// GetAdminCodes 获取兑换码列表
func (h *Handler) GetAdminCodes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	codes, total, err := h.CodeBatchService.ListCodes(service.ListCodesInput{
		Code:           c.Query("code"),
		Status:         c.Query("status"),
		ReleaseID:      parseUintQuery(c, "release_id"),
		BatchNo:        c.Query("batch_no"),
		RedeemedUserID: parseUintQuery(c, "redeemed_user_id"),
		CreatedFrom:    parseTimeQuery(c, "created_from"),
		CreatedTo:      parseTimeQuery(c, "created_to"),
		RedeemedFrom:   parseTimeQuery(c, "redeemed_from"),
		RedeemedTo:     parseTimeQuery(c, "redeemed_to"),
		Page:           page,
		PageSize:       pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取兑换码列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, codes, pagination)
}

// InvalidateCode 作废兑换码
func (h *Handler) InvalidateCode(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		respondError(c, response.CodeBadRequest, "兑换码 ID 不合法", nil)
		return
	}

	code, err := h.CodeBatchService.InvalidateCode(id)
	if err != nil {
		respondCodeTransitionError(c, err, "作废兑换码失败")
		return
	}

	response.Success(c, code)
}

// RestoreCode 恢复被作废的兑换码
func (h *Handler) RestoreCode(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		respondError(c, response.CodeBadRequest, "兑换码 ID 不合法", nil)
		return
	}

	code, err := h.CodeBatchService.RestoreCode(id)
	if err != nil {
		respondCodeTransitionError(c, err, "恢复兑换码失败")
		return
	}

	response.Success(c, code)
}

func respondCodeTransitionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrCodeNotFound):
		respondError(c, response.CodeNotFound, "兑换码不存在", nil)
	case errors.Is(err, service.ErrCodeAlreadyRedeemed):
		respondError(c, response.CodeBadRequest, "兑换码已被使用，不能变更状态", nil)
	case errors.Is(err, service.ErrCodeInvalidStatus):
		respondError(c, response.CodeBadRequest, "兑换码当前状态不允许该操作", nil)
	case errors.Is(err, service.ErrCodeInvalid):
		respondError(c, response.CodeBadRequest, "兑换码 ID 不合法", nil)
	default:
		respondError(c, response.CodeInternal, fallback, err)
	}
}

func parseUintParam(c *gin.Context, name string) uint {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}

func parseUintQuery(c *gin.Context, name string) uint {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}

func parseTimeQuery(c *gin.Context, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &parsed
}

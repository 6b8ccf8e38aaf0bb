package admin

import (
	"errors"
	"strconv"

	"github.com/release-unlock/internal/http/response"
	"github.com/release-unlock/internal/service"

	"github.com/gin-gonic/gin"
)

// ReleaseRequest 创建/更新发行内容请求
type ReleaseRequest struct {
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Artist string `json:"artist"`
	Status string `json:"status"`
}

// GetAdminReleases 获取发行内容列表
func (h *Handler) GetAdminReleases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	releases, total, err := h.ReleaseService.List(page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "获取发行内容列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, releases, pagination)
}

// CreateRelease 创建发行内容
func (h *Handler) CreateRelease(c *gin.Context) {
	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	release, err := h.ReleaseService.Create(service.CreateReleaseInput{
		Title:  req.Title,
		Slug:   req.Slug,
		Artist: req.Artist,
		Status: req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReleaseInvalid):
			respondError(c, response.CodeBadRequest, "标题与标识符不能为空", nil)
		case errors.Is(err, service.ErrReleaseSlugExists):
			respondError(c, response.CodeBadRequest, "标识符已被占用", nil)
		default:
			respondError(c, response.CodeInternal, "创建发行内容失败", err)
		}
		return
	}

	response.Success(c, release)
}

// UpdateRelease 更新发行内容
func (h *Handler) UpdateRelease(c *gin.Context) {
	id := parseUintParam(c, "id")
	if id == 0 {
		respondError(c, response.CodeBadRequest, "发行内容 ID 不合法", nil)
		return
	}

	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	release, err := h.ReleaseService.Update(id, service.CreateReleaseInput{
		Title:  req.Title,
		Slug:   req.Slug,
		Artist: req.Artist,
		Status: req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReleaseNotFound):
			respondError(c, response.CodeNotFound, "发行内容不存在", nil)
		case errors.Is(err, service.ErrReleaseSlugExists):
			respondError(c, response.CodeBadRequest, "标识符已被占用", nil)
		default:
			respondError(c, response.CodeInternal, "更新发行内容失败", err)
		}
		return
	}

	response.Success(c, release)
}

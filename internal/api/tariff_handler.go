package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/park-gate/internal/models"
	"github.com/wfunc/park-gate/internal/repository"
	"github.com/wfunc/park-gate/internal/tariff"
)

// TariffHandler 费率配置处理器
type TariffHandler struct {
	tariffs repository.TariffRepository
}

// NewTariffHandler 创建费率处理器
func NewTariffHandler(tariffs repository.TariffRepository) *TariffHandler {
	return &TariffHandler{tariffs: tariffs}
}

// TariffRequest 费率创建/更新请求
type TariffRequest struct {
	Title     string `json:"title" binding:"required,max=100"`
	Type      int    `json:"type" binding:"required"`
	Interval  int    `json:"interval" binding:"required"`
	Cost      string `json:"cost" binding:"required"`
	ZeroTime  string `json:"zero_time"`
	MaxPerDay string `json:"max_per_day"`
	FreeTime  int    `json:"free_time"`
	Note      string `json:"note"`
	Enabled   *bool  `json:"enabled"`
}

// validate 用计费侧的解析逻辑校验字段，非法配置当场拒绝
func (r *TariffRequest) validate() error {
	_, err := tariff.New(tariff.Fields{
		Title:     r.Title,
		Type:      r.Type,
		Interval:  r.Interval,
		Cost:      r.Cost,
		ZeroTime:  r.ZeroTime,
		MaxPerDay: r.MaxPerDay,
		FreeTime:  r.FreeTime,
		Note:      r.Note,
	})
	return err
}

func (r *TariffRequest) apply(m *models.Tariff) {
	m.Title = r.Title
	m.Type = r.Type
	m.Interval = r.Interval
	m.Cost = r.Cost
	m.ZeroTime = r.ZeroTime
	m.MaxPerDay = r.MaxPerDay
	m.FreeTime = r.FreeTime
	m.Note = r.Note
	if r.Enabled != nil {
		m.Enabled = *r.Enabled
	}
}

func parseTariffID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_ID",
			Message: "非法费率ID",
		})
		return 0, false
	}
	return uint(id), true
}

// List 分页列出费率
func (h *TariffHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := repository.NewPagination(page, pageSize)

	tariffs, err := h.tariffs.List(c.Request.Context(), pagination)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "TARIFF_LIST_FAILED",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tariffs":   tariffs,
		"total":     pagination.Total,
		"page":      pagination.Page,
		"page_size": pagination.PageSize,
	})
}

// Create 新建费率
func (h *TariffHandler) Create(c *gin.Context) {
	var req TariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_TARIFF",
			Message: "费率配置非法",
			Details: err.Error(),
		})
		return
	}

	m := &models.Tariff{Enabled: true}
	req.apply(m)
	if err := h.tariffs.Create(c.Request.Context(), m); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "TARIFF_CREATE_FAILED",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, m)
}

// Update 更新费率
func (h *TariffHandler) Update(c *gin.Context) {
	id, ok := parseTariffID(c)
	if !ok {
		return
	}

	var req TariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_TARIFF",
			Message: "费率配置非法",
			Details: err.Error(),
		})
		return
	}

	m, err := h.tariffs.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "TARIFF_QUERY_FAILED",
			Message: err.Error(),
		})
		return
	}
	if m == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "TARIFF_NOT_FOUND",
			Message: "费率不存在",
		})
		return
	}

	req.apply(m)
	if err := h.tariffs.Update(c.Request.Context(), m); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "TARIFF_UPDATE_FAILED",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, m)
}

// SetEnabledRequest 启用状态请求
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetEnabled 启用或停用费率
func (h *TariffHandler) SetEnabled(c *gin.Context) {
	id, ok := parseTariffID(c)
	if !ok {
		return
	}

	var req SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	if err := h.tariffs.SetEnabled(c.Request.Context(), id, *req.Enabled); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "TARIFF_NOT_FOUND",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "费率状态已更新"})
}

// Delete 删除费率
func (h *TariffHandler) Delete(c *gin.Context) {
	id, ok := parseTariffID(c)
	if !ok {
		return
	}

	if err := h.tariffs.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "TARIFF_DELETE_FAILED",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "费率已删除"})
}

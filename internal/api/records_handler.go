package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/park-gate/internal/repository"
)

// RecordsHandler 通行与收费记录查询
type RecordsHandler struct {
	passEvents repository.PassEventRepository
	gateEvents repository.GateEventRepository
	payments   repository.PaymentRepository
}

// NewRecordsHandler 创建记录查询处理器
func NewRecordsHandler(passEvents repository.PassEventRepository, gateEvents repository.GateEventRepository, payments repository.PaymentRepository) *RecordsHandler {
	return &RecordsHandler{
		passEvents: passEvents,
		gateEvents: gateEvents,
		payments:   payments,
	}
}

func parsePagination(c *gin.Context) *repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return repository.NewPagination(page, pageSize)
}

// ListPassEvents 查询通行记录，支持按车道地址过滤
func (h *RecordsHandler) ListPassEvents(c *gin.Context) {
	pagination := parsePagination(c)

	var err error
	var events interface{}
	if addrStr := c.Query("addr"); addrStr != "" {
		addr, parseErr := strconv.ParseUint(addrStr, 10, 8)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "INVALID_ADDR",
				Message: "车道地址无效",
			})
			return
		}
		events, err = h.passEvents.ListByAddr(c.Request.Context(), uint8(addr), pagination)
	} else {
		events, err = h.passEvents.List(c.Request.Context(), pagination)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "LIST_FAILED",
			Message: "查询通行记录失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":    events,
		"total":     pagination.Total,
		"page":      pagination.Page,
		"page_size": pagination.PageSize,
	})
}

// ListGateEvents 查询道闸开关记录
func (h *RecordsHandler) ListGateEvents(c *gin.Context) {
	pagination := parsePagination(c)

	events, err := h.gateEvents.List(c.Request.Context(), pagination)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "LIST_FAILED",
			Message: "查询道闸记录失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":    events,
		"total":     pagination.Total,
		"page":      pagination.Page,
		"page_size": pagination.PageSize,
	})
}

// ListPayments 查询收费记录，支持按票号或卡号过滤
func (h *RecordsHandler) ListPayments(c *gin.Context) {
	pagination := parsePagination(c)

	var err error
	var payments interface{}
	if ref := c.Query("ref"); ref != "" {
		payments, err = h.payments.ListByRef(c.Request.Context(), ref, pagination)
	} else {
		payments, err = h.payments.List(c.Request.Context(), pagination)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "LIST_FAILED",
			Message: "查询收费记录失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments":  payments,
		"total":     pagination.Total,
		"page":      pagination.Page,
		"page_size": pagination.PageSize,
	})
}

// GetRevenue 按日统计营收
func (h *RecordsHandler) GetRevenue(c *gin.Context) {
	date := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "INVALID_DATE",
				Message: "日期格式应为 YYYY-MM-DD",
			})
			return
		}
		date = parsed
	}

	stats, err := h.payments.GetDailyRevenue(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "REVENUE_FAILED",
			Message: "营收统计失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":    date.Format("2006-01-02"),
		"revenue": stats,
	})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/park-gate/internal/service"
)

// CashierHandler 收银台处理器
type CashierHandler struct {
	cashier service.CashierService
}

// NewCashierHandler 创建收银处理器
func NewCashierHandler(cashier service.CashierService) *CashierHandler {
	return &CashierHandler{cashier: cashier}
}

// PayRequest 付费请求
type PayRequest struct {
	TariffID int `json:"tariff_id" binding:"required"`
}

func (h *CashierHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTicketNotFound), errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrTariffNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrPaymentDisabled):
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "PAYMENT_DISABLED",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "CASHIER_FAILED",
			Message: err.Error(),
		})
	}
}

// TicketQuotes 查询停车票的费率试算
func (h *CashierHandler) TicketQuotes(c *gin.Context) {
	quotes, err := h.cashier.TicketQuotes(c.Request.Context(), c.Param("bar"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotes)
}

// PayTicket 对停车票执行付费
func (h *CashierHandler) PayTicket(c *gin.Context) {
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	result, err := h.cashier.PayTicket(c.Request.Context(), c.Param("bar"), req.TariffID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CardQuotes 查询卡片的费率试算
func (h *CashierHandler) CardQuotes(c *gin.Context) {
	quotes, err := h.cashier.CardQuotes(c.Request.Context(), c.Param("serial"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotes)
}

// PayCard 为卡片续期
func (h *CashierHandler) PayCard(c *gin.Context) {
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	result, err := h.cashier.PayCard(c.Request.Context(), c.Param("serial"), req.TariffID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PayOnce 无票无卡的一次性收费
func (h *CashierHandler) PayOnce(c *gin.Context) {
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	result, err := h.cashier.PayOnce(c.Request.Context(), req.TariffID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/park-gate/internal/repository"
)

// GateController 道闸控制入口，由设备主循环实现。
// 返回 false 表示命令队列已满或主循环未启动。
type GateController interface {
	OpenLane(addr uint8) bool
	CloseLane(addr uint8) bool
	TestDisplay(message string) bool
	PushConfig(addr uint8) bool
}

// LaneHandler 车道与场区处理器
type LaneHandler struct {
	gate GateController
	lot  repository.LotRepository
}

// NewLaneHandler 创建车道处理器
func NewLaneHandler(gate GateController, lot repository.LotRepository) *LaneHandler {
	return &LaneHandler{gate: gate, lot: lot}
}

func parseAddr(c *gin.Context) (uint8, bool) {
	addr, err := strconv.ParseUint(c.Param("addr"), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_ADDR",
			Message: "非法车道地址",
		})
		return 0, false
	}
	return uint8(addr), true
}

func (h *LaneHandler) submit(c *gin.Context, accepted bool) {
	if !accepted {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Code:    "GATE_BUSY",
			Message: "设备命令队列不可用",
		})
		return
	}
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "命令已下发"})
}

// Open 手动开闸
func (h *LaneHandler) Open(c *gin.Context) {
	addr, ok := parseAddr(c)
	if !ok {
		return
	}
	h.submit(c, h.gate.OpenLane(addr))
}

// Close 手动关闸
func (h *LaneHandler) Close(c *gin.Context) {
	addr, ok := parseAddr(c)
	if !ok {
		return
	}
	h.submit(c, h.gate.CloseLane(addr))
}

// PushConfig 向车道重发时钟、显示文本与空位数
func (h *LaneHandler) PushConfig(c *gin.Context) {
	addr, ok := parseAddr(c)
	if !ok {
		return
	}
	h.submit(c, h.gate.PushConfig(addr))
}

// TestDisplayRequest 显示屏测试请求
type TestDisplayRequest struct {
	Message string `json:"message" binding:"required,max=80"`
}

// TestDisplay 在所有车道显示屏滚动测试消息
func (h *LaneHandler) TestDisplay(c *gin.Context) {
	var req TestDisplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}
	h.submit(c, h.gate.TestDisplay(req.Message))
}

// GetLot 查询场区空位状态
func (h *LaneHandler) GetLot(c *gin.Context) {
	state, err := h.lot.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "LOT_QUERY_FAILED",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_places": state.TotalPlaces,
		"free_places":  state.FreePlaces,
	})
}

// UpdateLotRequest 场区调整请求，字段可单独出现
type UpdateLotRequest struct {
	TotalPlaces *int `json:"total_places" binding:"omitempty,min=0"`
	FreePlaces  *int `json:"free_places" binding:"omitempty,min=0"`
}

// UpdateLot 人工校正总车位与空位数
func (h *LaneHandler) UpdateLot(c *gin.Context) {
	var req UpdateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	if req.TotalPlaces != nil {
		if err := h.lot.SetTotalPlaces(ctx, *req.TotalPlaces); err != nil {
			h.lotUpdateFailed(c, err)
			return
		}
	}
	if req.FreePlaces != nil {
		if err := h.lot.SetFreePlaces(ctx, *req.FreePlaces); err != nil {
			h.lotUpdateFailed(c, err)
			return
		}
	}

	h.GetLot(c)
}

func (h *LaneHandler) lotUpdateFailed(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    "LOT_UPDATE_FAILED",
		Message: err.Error(),
	})
}

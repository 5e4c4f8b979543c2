package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wfunc/park-gate/internal/logger"
	"github.com/wfunc/park-gate/internal/middleware"
	ws "github.com/wfunc/park-gate/internal/websocket"
)

// WebSocketHandler 操作台实时推送的握手入口
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader gorilla.Upgrader
	log      *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 操作台部署在内网，允许所有来源
				return true
			},
		},
		log: logger.GetModuleLogger("websocket"),
	}
}

// Handle 升级连接并注册到推送中心
func (h *WebSocketHandler) Handle(c *gin.Context) {
	operatorID, ok := middleware.GetOperatorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "未认证",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("WebSocket升级失败", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, operatorID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	h.log.Info("操作台已连接",
		zap.String("client_id", client.ID),
		zap.Uint("operator_id", operatorID))
}

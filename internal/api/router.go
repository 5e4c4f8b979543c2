package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/park-gate/internal/middleware"
	"github.com/wfunc/park-gate/internal/service"
	ws "github.com/wfunc/park-gate/internal/websocket"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	authHandler    *AuthHandler
	laneHandler    *LaneHandler
	tariffHandler  *TariffHandler
	cashierHandler *CashierHandler
	recordsHandler *RecordsHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, services *service.Services, gate GateController, hub *ws.Hub, log *zap.Logger) *Router {
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		authHandler:    NewAuthHandler(services.Auth),
		laneHandler:    NewLaneHandler(gate, services.Repos.Lot()),
		tariffHandler:  NewTariffHandler(services.Repos.Tariff()),
		cashierHandler: NewCashierHandler(services.Cashier),
		recordsHandler: NewRecordsHandler(services.Repos.PassEvent(), services.Repos.GateEvent(), services.Repos.Payment()),
		wsHandler:      NewWebSocketHandler(hub),
		authMiddleware: middleware.NewAuthMiddleware(services.Auth),
		log:            log,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authHandler.Login)
		auth.POST("/refresh", r.authHandler.Refresh)

			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.GET("/profile", r.authHandler.GetProfile)
				authRequired.PUT("/password", r.authHandler.UpdatePassword)
			}
		}

		// 车道控制路由（需要认证）
		lanes := v1.Group("/lanes")
		lanes.Use(r.authMiddleware.RequireAuth())
		{
			lanes.POST("/:addr/open", r.laneHandler.Open)
			lanes.POST("/:addr/close", r.laneHandler.Close)
			lanes.POST("/:addr/push-config", r.laneHandler.PushConfig)
		}

		// 显示屏测试（需要认证）
		display := v1.Group("/display")
		display.Use(r.authMiddleware.RequireAuth())
		{
			display.POST("/test", r.laneHandler.TestDisplay)
		}

		// 车位统计（需要认证，修改需要管理员）
		lot := v1.Group("/lot")
		lot.Use(r.authMiddleware.RequireAuth())
		{
			lot.GET("", r.laneHandler.GetLot)
			lot.PUT("", r.authMiddleware.RequireRole("admin"), r.laneHandler.UpdateLot)
		}

		// 费率管理（查询需要认证，变更需要管理员）
		tariffs := v1.Group("/tariffs")
		tariffs.Use(r.authMiddleware.RequireAuth())
		{
			tariffs.GET("", r.tariffHandler.List)

			admin := tariffs.Group("")
			admin.Use(r.authMiddleware.RequireRole("admin"))
			{
				admin.POST("", r.tariffHandler.Create)
				admin.PUT("/:id", r.tariffHandler.Update)
				admin.PUT("/:id/enabled", r.tariffHandler.SetEnabled)
				admin.DELETE("/:id", r.tariffHandler.Delete)
			}
		}

		// 收银台路由（需要认证）
		cashier := v1.Group("/cashier")
		cashier.Use(r.authMiddleware.RequireAuth())
		{
			cashier.GET("/tickets/:bar", r.cashierHandler.TicketQuotes)
			cashier.POST("/tickets/:bar/pay", r.cashierHandler.PayTicket)
			cashier.GET("/cards/:serial", r.cashierHandler.CardQuotes)
			cashier.POST("/cards/:serial/pay", r.cashierHandler.PayCard)
			cashier.POST("/once", r.cashierHandler.PayOnce)
		}

		// 记录查询路由（需要认证）
		records := v1.Group("/records")
		records.Use(r.authMiddleware.RequireAuth())
		{
			records.GET("/pass-events", r.recordsHandler.ListPassEvents)
			records.GET("/gate-events", r.recordsHandler.ListGateEvents)
			records.GET("/payments", r.recordsHandler.ListPayments)
			records.GET("/revenue", r.recordsHandler.GetRevenue)
		}
	}

	// WebSocket路由（支持query token认证）
	wsGroup := r.engine.Group("/ws")
	wsGroup.Use(r.authMiddleware.RequireAuth())
	{
		wsGroup.GET("", r.wsHandler.Handle)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/park-gate/internal/api"
	"github.com/wfunc/park-gate/internal/config"
	"github.com/wfunc/park-gate/internal/database"
	"github.com/wfunc/park-gate/internal/errors"
	"github.com/wfunc/park-gate/internal/hardware"
	"github.com/wfunc/park-gate/internal/logger"
	"github.com/wfunc/park-gate/internal/mainloop"
	"github.com/wfunc/park-gate/internal/peripheral"
	"github.com/wfunc/park-gate/internal/service"
	"github.com/wfunc/park-gate/internal/websocket"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	services *service.Services
	hub      *websocket.Hub
	terminal *hardware.Terminal
	loop     *mainloop.Mainloop
	scanner  *peripheral.Reader
	httpSrv  *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	// 设置系统参数
	setupSystem(&cfg.System)

	// 创建服务器实例
	server := NewServer(cfg)

	// 启动服务器
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动停车场道闸服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initDatabase(); err != nil {
		return err
	}

	// 服务层与推送中心
	s.services = service.NewServices(database.GetDB(), &service.Config{
		JWTSecret:          s.cfg.Security.JWT.Secret,
		AccessTokenExpiry:  time.Duration(s.cfg.Security.JWT.ExpireHours) * time.Hour,
		RefreshTokenExpiry: time.Duration(s.cfg.Security.JWT.RefreshHours) * time.Hour,
	}, s.logger)

	s.hub = websocket.NewHub(s.logger)
	go s.hub.Run()

	// 车位总数以配置为准
	if s.cfg.Parking.TotalPlaces > 0 {
		if err := s.services.Repos.Lot().SetTotalPlaces(s.ctx, s.cfg.Parking.TotalPlaces); err != nil {
			s.logger.Warn("同步车位总数失败", zap.Error(err))
		}
	}

	if err := s.startMainloop(); err != nil {
		return err
	}

	s.startPeripheral()

	if err := s.startHTTPServer(); err != nil {
		return err
	}

	s.logger.Info("服务器启动成功",
		zap.String("http", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)),
		zap.Bool("serial", s.cfg.Serial.Enabled),
	)

	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// startMainloop 打开总线端口并启动设备主循环
func (s *Server) startMainloop() error {
	if !s.cfg.Serial.Enabled {
		s.logger.Warn("串口已禁用，设备主循环不启动")
		return nil
	}

	var port hardware.Port
	if s.cfg.Serial.MockMode {
		s.logger.Warn("串口调试模式，使用模拟控制器")
		port = hardware.NewMockPort()
	} else {
		serialPort, err := hardware.NewSerialPort(&s.cfg.Serial)
		if err != nil {
			return errors.Wrap(err, errors.ErrUnknown, "打开串口失败")
		}
		port = serialPort
	}

	s.terminal = hardware.NewTerminal(port, s.cfg.Serial.RetryTimes, s.cfg.Serial.RetryInterval)
	s.loop = mainloop.New(s.terminal, s.services.Store, &s.cfg.Terminal, s.cfg.Parking.CheckLines, s.hub, s.hub)

	if err := s.loop.Start(s.ctx); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "启动设备主循环失败")
	}

	return nil
}

// startPeripheral 启动收费台条码枪读取器
func (s *Server) startPeripheral() {
	if !s.cfg.Peripheral.Enabled {
		return
	}

	handler := peripheral.NewTicketHandler(s.services.Store, s.hub.PushPayable)
	s.scanner = peripheral.NewReader(&s.cfg.Peripheral, handler)
	s.scanner.Start()

	s.logger.Info("条码枪读取器已启动",
		zap.String("network", s.cfg.Peripheral.Network),
		zap.String("address", s.cfg.Peripheral.Address),
	)
}

// startHTTPServer 启动HTTP服务器
func (s *Server) startHTTPServer() error {
	var gate api.GateController = s.loop
	if s.loop == nil {
		gate = noGate{}
	}

	router := api.NewRouter(database.GetDB(), s.services, gate, s.hub, s.logger)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务器异常退出", zap.Error(err))
		}
	}()

	return nil
}

// noGate 串口禁用时的空实现，所有车道命令直接拒绝
type noGate struct{}

func (noGate) OpenLane(addr uint8) bool   { return false }
func (noGate) CloseLane(addr uint8) bool  { return false }
func (noGate) TestDisplay(_ string) bool  { return false }
func (noGate) PushConfig(addr uint8) bool { return false }

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 先停HTTP，拒绝新请求
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务器关闭超时", zap.Error(err))
		}
	}

	// 停设备主循环，等所有车道协程退出后关闭串口
	if s.loop != nil {
		s.loop.Stop()
	}

	if s.scanner != nil {
		s.scanner.Stop()
	}

	s.cancel()

	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	return nil
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err == nil {
		rLimit.Cur = rLimit.Max
		syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("停车场道闸服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("停车场道闸服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  park-gate-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  PARK_GATE_SERVER_MODE    运行模式 (development/production)")
	fmt.Println("  PARK_GATE_SERVER_PORT    HTTP端口")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  park-gate-server -config=/path/to/config.yaml")
	fmt.Println("  park-gate-server -version")
}

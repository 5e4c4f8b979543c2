package service

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/park-gate/internal/repository"
	"github.com/wfunc/park-gate/internal/utils"
)

// Config 服务配置
type Config struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// Services 服务集合
type Services struct {
	Auth    AuthService
	Cashier CashierService
	Store   *repository.Store
	Repos   *repository.Manager
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, config *Config, log *zap.Logger) *Services {
	repos := repository.NewManager(db)
	store := repository.NewStore(repos)

	jwtManager := utils.NewJWTManager(
		config.JWTSecret,
		config.AccessTokenExpiry,
		config.RefreshTokenExpiry,
	)

	return &Services{
		Auth:    NewAuthService(repos.Operator(), jwtManager, log),
		Cashier: NewCashierService(store, log),
		Store:   store,
		Repos:   repos,
	}
}

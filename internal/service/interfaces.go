package service

import (
	"context"
	"time"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/models"
)

// AuthService 操作员认证服务接口
type AuthService interface {
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	UpdatePassword(ctx context.Context, operatorID uint, oldPassword, newPassword string) error
	GetOperator(ctx context.Context, operatorID uint) (*models.Operator, error)
}

// CashierService 收银台计费服务接口。
// 出示停车票或卡片后列出所有启用费率的试算结果，由收银员选定后执行。
type CashierService interface {
	TicketQuotes(ctx context.Context, bar string) (*TicketQuotes, error)
	PayTicket(ctx context.Context, bar string, tariffID int) (*PaymentResult, error)
	CardQuotes(ctx context.Context, serial string) (*CardQuotes, error)
	PayCard(ctx context.Context, serial string, tariffID int) (*PaymentResult, error)
	PayOnce(ctx context.Context, tariffID int) (*PaymentResult, error)
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IP       string `json:"-"` // 客户端IP，由handler设置
}

// AuthResponse 认证响应。刷新令牌每次换发都会轮换。
type AuthResponse struct {
	Operator     *models.Operator `json:"operator"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresIn    int64            `json:"expires_in"`
	TokenType    string           `json:"token_type"`
}

// TokenClaims JWT Claims
type TokenClaims struct {
	OperatorID uint   `json:"operator_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
}

// Quote 单个费率的试算结果
type Quote struct {
	TariffID    int    `json:"tariff_id"`
	TariffTitle string `json:"tariff_title"`
	Enabled     bool   `json:"enabled"`
	Price       int    `json:"price"`
	Explanation string `json:"explanation"`
}

// TicketQuotes 停车票的费率试算集合
type TicketQuotes struct {
	Bar      string     `json:"bar"`
	Status   int        `json:"status"`
	TimeIn   time.Time  `json:"time_in"`
	TimePaid *time.Time `json:"time_paid,omitempty"`
	Quotes   []*Quote   `json:"quotes"`
}

// CardQuotes 卡片的费率试算集合
type CardQuotes struct {
	Serial   string     `json:"serial"`
	Type     int        `json:"type"`
	FullName string     `json:"full_name"`
	Plate    string     `json:"plate"`
	Status   int        `json:"status"`
	DateReg  *time.Time `json:"date_reg,omitempty"`
	DateEnd  *time.Time `json:"date_end,omitempty"`
	Quotes   []*Quote   `json:"quotes"`
}

// PaymentResult 已执行付费的回执
type PaymentResult struct {
	Price       int    `json:"price"`
	Explanation string `json:"explanation"`
}

// quoteFromPayment 把计费结果折叠成试算条目
func quoteFromPayment(tariffID int, title string, p billing.Payment) *Quote {
	return &Quote{
		TariffID:    tariffID,
		TariffTitle: title,
		Enabled:     p.Enabled(),
		Price:       p.Price(),
		Explanation: p.Explanation(),
	}
}

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/park-gate/internal/models"
	"github.com/wfunc/park-gate/internal/repository"
	"github.com/wfunc/park-gate/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrOperatorNotFound   = errors.New("操作员不存在")
	ErrOperatorDisabled   = errors.New("账号已停用")
	ErrInvalidToken       = errors.New("无效的令牌")
)

// authService 操作员认证服务实现
type authService struct {
	operatorRepo repository.OperatorRepository
	jwtManager   *utils.JWTManager
	log          *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(operatorRepo repository.OperatorRepository, jwtManager *utils.JWTManager, log *zap.Logger) AuthService {
	return &authService{
		operatorRepo: operatorRepo,
		jwtManager:   jwtManager,
		log:          log,
	}
}

// Login 操作员登录
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	operator, err := s.operatorRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if operator == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := utils.VerifyPassword(req.Password, operator.Password)
	if err != nil || !ok {
		s.log.Warn("登录失败",
			zap.String("username", req.Username),
			zap.String("ip", req.IP))
		return nil, ErrInvalidCredentials
	}

	if !operator.IsActive() {
		return nil, ErrOperatorDisabled
	}

	resp, err := s.issueTokens(operator)
	if err != nil {
		return nil, err
	}

	if err := s.operatorRepo.UpdateLastLogin(ctx, operator.ID, req.IP); err != nil {
		s.log.Warn("更新登录记录失败", zap.Uint("operator_id", operator.ID), zap.Error(err))
	}

	s.log.Info("操作员登录",
		zap.String("username", operator.Username),
		zap.String("ip", req.IP))

	return resp, nil
}

// Refresh 用刷新令牌换发新令牌对。角色与停用状态按当前库内记录重新判定。
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	operator, err := s.operatorRepo.FindByID(ctx, claims.OperatorID)
	if err != nil {
		return nil, err
	}
	if operator == nil {
		return nil, ErrOperatorNotFound
	}
	if !operator.IsActive() {
		return nil, ErrOperatorDisabled
	}

	return s.issueTokens(operator)
}

// issueTokens 签发访问令牌与轮换后的刷新令牌
func (s *authService) issueTokens(operator *models.Operator) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(operator.ID, operator.Username, operator.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(operator.ID, operator.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Operator:     operator,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access") / time.Second),
		TokenType:    "Bearer",
	}, nil
}

// ValidateToken 校验访问令牌，刷新令牌不可用于接口鉴权
func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "access" {
		return nil, ErrInvalidToken
	}
	return &TokenClaims{
		OperatorID: claims.OperatorID,
		Username:   claims.Username,
		Role:       claims.Role,
	}, nil
}

// UpdatePassword 修改密码，需先验证旧密码
func (s *authService) UpdatePassword(ctx context.Context, operatorID uint, oldPassword, newPassword string) error {
	operator, err := s.operatorRepo.FindByID(ctx, operatorID)
	if err != nil {
		return err
	}
	if operator == nil {
		return ErrOperatorNotFound
	}

	ok, err := utils.VerifyPassword(oldPassword, operator.Password)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	operator.Password = hashed
	return s.operatorRepo.Update(ctx, operator)
}

// GetOperator 查询操作员资料
func (s *authService) GetOperator(ctx context.Context, operatorID uint) (*models.Operator, error) {
	operator, err := s.operatorRepo.FindByID(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if operator == nil {
		return nil, ErrOperatorNotFound
	}
	return operator, nil
}

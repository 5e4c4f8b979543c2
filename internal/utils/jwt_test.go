package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// JWTTestSuite 操作员令牌测试套件
type JWTTestSuite struct {
	suite.Suite
	manager *JWTManager
}

func (suite *JWTTestSuite) SetupTest() {
	suite.manager = NewJWTManager("test-secret-key", time.Hour, 24*time.Hour)
}

// 测试访问令牌生成与解析
func (suite *JWTTestSuite) TestAccessTokenRoundTrip() {
	token, err := suite.manager.GenerateAccessToken(7, "cashier1", "operator")
	suite.NoError(err)
	suite.NotEmpty(token)

	claims, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.Equal(uint(7), claims.OperatorID)
	suite.Equal("cashier1", claims.Username)
	suite.Equal("operator", claims.Role)
	suite.Equal("access", claims.TokenType)
	suite.Equal("park-gate", claims.Issuer)
}

// 测试刷新令牌不携带角色
func (suite *JWTTestSuite) TestRefreshTokenClaims() {
	token, err := suite.manager.GenerateRefreshToken(7, "cashier1")
	suite.NoError(err)

	claims, err := suite.manager.ValidateRefreshToken(token)
	suite.NoError(err)
	suite.Equal(uint(7), claims.OperatorID)
	suite.Equal("cashier1", claims.Username)
	suite.Empty(claims.Role)
	suite.Equal("refresh", claims.TokenType)
}

// 测试访问令牌不能用于换发
func (suite *JWTTestSuite) TestValidateRefreshRejectsAccessToken() {
	token, _ := suite.manager.GenerateAccessToken(7, "cashier1", "operator")

	claims, err := suite.manager.ValidateRefreshToken(token)
	suite.ErrorIs(err, ErrNotRefresh)
	suite.Nil(claims)
}

// 测试错误密钥签发的令牌被拒绝
func (suite *JWTTestSuite) TestValidateTokenWrongSecret() {
	other := NewJWTManager("another-secret", time.Hour, 24*time.Hour)
	token, _ := other.GenerateAccessToken(1, "admin1", "admin")

	claims, err := suite.manager.ValidateToken(token)
	suite.Error(err)
	suite.Nil(claims)
}

// 测试过期令牌
func (suite *JWTTestSuite) TestValidateTokenExpired() {
	expired := NewJWTManager("test-secret-key", -time.Hour, -time.Hour)
	token, _ := expired.GenerateAccessToken(1, "admin1", "admin")

	claims, err := suite.manager.ValidateToken(token)
	suite.Error(err)
	suite.Nil(claims)
}

// 测试格式损坏的令牌
func (suite *JWTTestSuite) TestValidateTokenMalformed() {
	for _, token := range []string{"", "not.a.jwt", "aaaa"} {
		claims, err := suite.manager.ValidateToken(token)
		suite.Error(err)
		suite.Nil(claims)
	}
}

// 测试两类令牌的过期时长
func (suite *JWTTestSuite) TestGetTokenExpiry() {
	suite.Equal(time.Hour, suite.manager.GetTokenExpiry("access"))
	suite.Equal(24*time.Hour, suite.manager.GetTokenExpiry("refresh"))
	suite.Equal(time.Hour, suite.manager.GetTokenExpiry("unknown"))
}

func TestJWTSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}

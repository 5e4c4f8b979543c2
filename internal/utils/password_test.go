package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

// PasswordTestSuite 操作员口令哈希测试套件
type PasswordTestSuite struct {
	suite.Suite
}

// 测试哈希格式与验证
func (suite *PasswordTestSuite) TestHashAndVerify() {
	hash, err := HashPassword("admin123")
	suite.NoError(err)
	suite.True(strings.HasPrefix(hash, "$argon2id$v="))

	ok, err := VerifyPassword("admin123", hash)
	suite.NoError(err)
	suite.True(ok)

	ok, err = VerifyPassword("Admin123", hash)
	suite.NoError(err)
	suite.False(ok)
}

// 测试随机盐使相同口令得到不同哈希
func (suite *PasswordTestSuite) TestHashSalting() {
	hash1, err := HashPassword("pass-1234")
	suite.NoError(err)
	hash2, err := HashPassword("pass-1234")
	suite.NoError(err)
	suite.NotEqual(hash1, hash2)

	for _, hash := range []string{hash1, hash2} {
		ok, err := VerifyPassword("pass-1234", hash)
		suite.NoError(err)
		suite.True(ok)
	}
}

// 测试自定义配置写入哈希串并可独立验证
func (suite *PasswordTestSuite) TestHashWithConfig() {
	cfg := &PasswordConfig{Time: 2, Memory: 32 * 1024, Threads: 2, KeyLen: 16}
	hash, err := HashPasswordWithConfig("cashier-pw", cfg)
	suite.NoError(err)
	suite.Contains(hash, "m=32768,t=2,p=2")

	ok, err := VerifyPassword("cashier-pw", hash)
	suite.NoError(err)
	suite.True(ok)
}

// 测试中文等多字节口令
func (suite *PasswordTestSuite) TestMultibytePassword() {
	hash, err := HashPassword("停车场123")
	suite.NoError(err)

	ok, err := VerifyPassword("停车场123", hash)
	suite.NoError(err)
	suite.True(ok)
}

// 测试损坏的哈希串
func (suite *PasswordTestSuite) TestVerifyMalformedHash() {
	cases := []string{
		"",
		"plain-text",
		"$argon2id$broken",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
	}
	for _, encoded := range cases {
		ok, err := VerifyPassword("whatever", encoded)
		suite.Error(err)
		suite.False(ok)
	}
}

func TestPasswordSuite(t *testing.T) {
	suite.Run(t, new(PasswordTestSuite))
}

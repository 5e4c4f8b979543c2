package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// LotRepositoryTestSuite 场区状态仓储测试套件
type LotRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo LotRepository
}

func (suite *LotRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.repo = NewLotRepository(suite.db)
}

func (suite *LotRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestLotRepository_GetInitializes 测试首次读取自动初始化
func (suite *LotRepositoryTestSuite) TestLotRepository_GetInitializes() {
	ctx := context.Background()
	state, err := suite.repo.Get(ctx)
	assert.NoError(suite.T(), err)
	assert.NotZero(suite.T(), state.ID)
	assert.Zero(suite.T(), state.TotalPlaces)

	// 再次读取得到同一行
	again, err := suite.repo.Get(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), state.ID, again.ID)
}

// TestLotRepository_SetTotalPlaces 测试设置总车位数
func (suite *LotRepositoryTestSuite) TestLotRepository_SetTotalPlaces() {
	ctx := context.Background()
	err := suite.repo.SetTotalPlaces(ctx, 50)
	assert.NoError(suite.T(), err)

	err = suite.repo.SetFreePlaces(ctx, 30)
	assert.NoError(suite.T(), err)

	// 缩小总量时空位随之钳制
	err = suite.repo.SetTotalPlaces(ctx, 20)
	assert.NoError(suite.T(), err)

	state, err := suite.repo.Get(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 20, state.TotalPlaces)
	assert.Equal(suite.T(), 20, state.FreePlaces)
}

// TestLotRepository_AdjustFreePlaces 测试空位增减与边界钳制
func (suite *LotRepositoryTestSuite) TestLotRepository_AdjustFreePlaces() {
	ctx := context.Background()
	suite.Require().NoError(suite.repo.SetTotalPlaces(ctx, 10))
	suite.Require().NoError(suite.repo.SetFreePlaces(ctx, 5))

	free, err := suite.repo.AdjustFreePlaces(ctx, -2)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, free)

	free, err = suite.repo.AdjustFreePlaces(ctx, -10)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, free)

	free, err = suite.repo.AdjustFreePlaces(ctx, 99)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 10, free)
}

// TestLotRepository_SetFreePlacesClamps 测试人工校正的边界
func (suite *LotRepositoryTestSuite) TestLotRepository_SetFreePlacesClamps() {
	ctx := context.Background()
	suite.Require().NoError(suite.repo.SetTotalPlaces(ctx, 10))

	suite.Require().NoError(suite.repo.SetFreePlaces(ctx, 99))
	state, err := suite.repo.Get(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 10, state.FreePlaces)

	suite.Require().NoError(suite.repo.SetFreePlaces(ctx, -1))
	state, err = suite.repo.Get(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, state.FreePlaces)
}

func TestLotRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(LotRepositoryTestSuite))
}

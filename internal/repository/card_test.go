package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/models"
	"gorm.io/gorm"
)

// CardRepositoryTestSuite 通行卡片仓储测试套件
type CardRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo CardRepository
}

func (suite *CardRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.repo = NewCardRepository(suite.db)
}

func (suite *CardRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// 登记一张月租卡
func (suite *CardRepositoryTestSuite) createCard(serial string) *models.Card {
	card := &models.Card{
		Type:   billing.CardClient,
		Serial: serial,
		Status: billing.CardAllowed,
	}
	err := suite.repo.Create(context.Background(), card)
	suite.Require().NoError(err)
	return card
}

// TestCardRepository_CreateAndFind 测试登记与查找
func (suite *CardRepositoryTestSuite) TestCardRepository_CreateAndFind() {
	ctx := context.Background()
	created := suite.createCard("2E00AABBCC")
	assert.NotZero(suite.T(), created.ID)

	found, err := suite.repo.FindBySerial(ctx, "2E00AABBCC")
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), found)
	assert.Equal(suite.T(), billing.CardClient, found.Type)
}

// TestCardRepository_FindMissing 测试未登记的卡返回 nil
func (suite *CardRepositoryTestSuite) TestCardRepository_FindMissing() {
	found, err := suite.repo.FindBySerial(context.Background(), "FFFFFFFF")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), found)
}

// TestCardRepository_UpdateWindow 测试续期落库
func (suite *CardRepositoryTestSuite) TestCardRepository_UpdateWindow() {
	ctx := context.Background()
	suite.createCard("2E00AABBCC")

	begin := time.Date(2025, 11, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 11, 30, 0, 0, 0, 0, time.Local)
	err := suite.repo.UpdateWindow(ctx, "2E00AABBCC", begin, end, 5, 200, 200)
	assert.NoError(suite.T(), err)

	found, err := suite.repo.FindBySerial(ctx, "2E00AABBCC")
	assert.NoError(suite.T(), err)
	suite.Require().NotNil(found.DateReg)
	suite.Require().NotNil(found.DateEnd)
	assert.True(suite.T(), found.DateReg.Equal(begin))
	assert.True(suite.T(), found.DateEnd.Equal(end))
	assert.Equal(suite.T(), 5, found.TariffID)
	assert.Equal(suite.T(), 200, found.TariffSum)
}

// TestCardRepository_UpdateWindowMissing 测试未登记的卡不能续期
func (suite *CardRepositoryTestSuite) TestCardRepository_UpdateWindowMissing() {
	err := suite.repo.UpdateWindow(context.Background(), "FFFFFFFF",
		time.Now(), time.Now().AddDate(0, 1, 0), 5, 200, 200)
	assert.Error(suite.T(), err)
}

// TestCardRepository_UpdateMoved 测试过闸状态翻转
func (suite *CardRepositoryTestSuite) TestCardRepository_UpdateMoved() {
	ctx := context.Background()
	suite.createCard("2E00AABBCC")

	enteredAt := time.Date(2025, 11, 15, 8, 30, 0, 0, time.Local)
	err := suite.repo.UpdateMoved(ctx, "2E00AABBCC", true, enteredAt)
	assert.NoError(suite.T(), err)

	found, err := suite.repo.FindBySerial(ctx, "2E00AABBCC")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), billing.CardInside, found.Status)
	suite.Require().NotNil(found.DateIn)
	assert.True(suite.T(), found.DateIn.Equal(enteredAt))
	assert.Nil(suite.T(), found.DateOut)

	leftAt := enteredAt.Add(9 * time.Hour)
	err = suite.repo.UpdateMoved(ctx, "2E00AABBCC", false, leftAt)
	assert.NoError(suite.T(), err)

	found, err = suite.repo.FindBySerial(ctx, "2E00AABBCC")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), billing.CardOutside, found.Status)
	suite.Require().NotNil(found.DateOut)
	assert.True(suite.T(), found.DateOut.Equal(leftAt))
}

// TestCardRepository_List 测试分页查询
func (suite *CardRepositoryTestSuite) TestCardRepository_List() {
	suite.createCard("CARD000001")
	suite.createCard("CARD000002")
	suite.createCard("CARD000003")

	p := NewPagination(1, 2)
	cards, err := suite.repo.List(context.Background(), p)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), cards, 2)
	assert.Equal(suite.T(), int64(3), p.Total)
}

func TestCardRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CardRepositoryTestSuite))
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/models"
	"github.com/wfunc/park-gate/internal/repository"
	"github.com/wfunc/park-gate/internal/tariff"
)

type CashierServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	cashier CashierService
	ctx     context.Context

	hourly       models.Tariff
	monthly      models.Tariff
	onceOff      models.Tariff
	disabledRate models.Tariff
}

func (s *CashierServiceTestSuite) SetupTest() {
	s.db = repository.SetupTestDB()
	s.ctx = context.Background()

	store := repository.NewStore(repository.NewManager(s.db))
	s.cashier = NewCashierService(store, zap.NewNop())

	s.hourly = models.Tariff{Title: "小时计费", Type: tariff.TypeFixed, Interval: tariff.IntervalHourly, Cost: "10", FreeTime: 0, Enabled: true}
	s.monthly = models.Tariff{Title: "包月", Type: tariff.TypeSubscription, Interval: tariff.IntervalMonthly, Cost: "600", Enabled: true}
	s.onceOff = models.Tariff{Title: "一次性", Type: tariff.TypeOnce, Interval: tariff.IntervalHourly, Cost: "20", Enabled: true}
	s.disabledRate = models.Tariff{Title: "停用费率", Type: tariff.TypeFixed, Interval: tariff.IntervalHourly, Cost: "99", Enabled: false}

	for _, t := range []*models.Tariff{&s.hourly, &s.monthly, &s.onceOff, &s.disabledRate} {
		s.Require().NoError(s.db.Create(t).Error)
	}

	s.Require().NoError(s.db.Create(&models.Ticket{
		Bar:    "0829093000991234",
		TimeIn: time.Now().Add(-90 * time.Minute),
		Status: 1,
	}).Error)

	end := time.Now().AddDate(0, -1, 0)
	reg := end.AddDate(0, -1, 0)
	s.Require().NoError(s.db.Create(&models.Card{
		Type:          billing.CardClient,
		Serial:        "12345678",
		DateReg:       &reg,
		DateEnd:       &end,
		DriverName:    "海",
		DriverSurname: "王",
		Status:        billing.CardOutside,
	}).Error)
}

func (s *CashierServiceTestSuite) TearDownTest() {
	repository.CleanupTestDB(s.db)
}

func (s *CashierServiceTestSuite) TestTicketQuotesListsActiveTariffs() {
	quotes, err := s.cashier.TicketQuotes(s.ctx, "0829093000991234")
	s.Require().NoError(err)
	s.Equal("0829093000991234", quotes.Bar)
	s.Require().Len(quotes.Quotes, 3)

	byID := make(map[int]*Quote, len(quotes.Quotes))
	for _, q := range quotes.Quotes {
		byID[q.TariffID] = q
	}

	// 90分钟按小时计费凑整为2个单位
	hourly := byID[int(s.hourly.ID)]
	s.Require().NotNil(hourly)
	s.True(hourly.Enabled)
	s.Equal(20, hourly.Price)

	// 包月费率不适用于停车票
	monthly := byID[int(s.monthly.ID)]
	s.Require().NotNil(monthly)
	s.False(monthly.Enabled)
}

func (s *CashierServiceTestSuite) TestTicketQuotesUnknownBar() {
	_, err := s.cashier.TicketQuotes(s.ctx, "9999999999999999")
	s.ErrorIs(err, ErrTicketNotFound)
}

func (s *CashierServiceTestSuite) TestPayTicket() {
	result, err := s.cashier.PayTicket(s.ctx, "0829093000991234", int(s.hourly.ID))
	s.Require().NoError(err)
	s.Equal(20, result.Price)

	var ticket models.Ticket
	s.Require().NoError(s.db.Where("bar = ?", "0829093000991234").First(&ticket).Error)
	s.Equal(5, ticket.Status)
	s.Equal(int(s.hourly.ID), ticket.TariffID)
	s.NotNil(ticket.TimePaid)

	var payment models.Payment
	s.Require().NoError(s.db.First(&payment).Error)
	s.Equal("ticket", payment.Kind)
	s.Equal(20, payment.Price)
}

func (s *CashierServiceTestSuite) TestPayTicketRejectsDisabledTariff() {
	_, err := s.cashier.PayTicket(s.ctx, "0829093000991234", int(s.disabledRate.ID))
	s.ErrorIs(err, ErrTariffNotFound)
}

func (s *CashierServiceTestSuite) TestPayTicketNotApplicable() {
	_, err := s.cashier.PayTicket(s.ctx, "0829093000991234", int(s.monthly.ID))
	s.ErrorIs(err, ErrPaymentDisabled)
}

func (s *CashierServiceTestSuite) TestCardQuotes() {
	quotes, err := s.cashier.CardQuotes(s.ctx, "12345678")
	s.Require().NoError(err)
	s.Equal("12345678", quotes.Serial)
	s.Equal("王 海", quotes.FullName)
	s.Require().Len(quotes.Quotes, 3)
}

func (s *CashierServiceTestSuite) TestPayCardRenewsWindow() {
	result, err := s.cashier.PayCard(s.ctx, "12345678", int(s.monthly.ID))
	s.Require().NoError(err)
	s.Equal(600, result.Price)

	var card models.Card
	s.Require().NoError(s.db.Where("serial = ?", "12345678").First(&card).Error)
	s.Require().NotNil(card.DateEnd)
	// 过期卡续期后窗口落在当前月份
	s.Equal(time.Now().Month(), card.DateEnd.Month())
	s.Equal(600, card.TariffSum)
}

func (s *CashierServiceTestSuite) TestPayCardRejectsHourly() {
	_, err := s.cashier.PayCard(s.ctx, "12345678", int(s.hourly.ID))
	s.ErrorIs(err, ErrPaymentDisabled)
}

func (s *CashierServiceTestSuite) TestPayCardUnknownSerial() {
	_, err := s.cashier.PayCard(s.ctx, "00000000", int(s.monthly.ID))
	s.ErrorIs(err, ErrCardNotFound)
}

func (s *CashierServiceTestSuite) TestPayOnce() {
	result, err := s.cashier.PayOnce(s.ctx, int(s.onceOff.ID))
	s.Require().NoError(err)
	s.Equal(20, result.Price)

	var payment models.Payment
	s.Require().NoError(s.db.First(&payment).Error)
	s.Equal("once", payment.Kind)
}

func (s *CashierServiceTestSuite) TestPayOnceRejectsHourly() {
	_, err := s.cashier.PayOnce(s.ctx, int(s.hourly.ID))
	s.ErrorIs(err, ErrPaymentDisabled)
}

func TestCashierServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CashierServiceTestSuite))
}

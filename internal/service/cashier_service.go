package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/repository"
	"github.com/wfunc/park-gate/internal/tariff"
)

var (
	ErrTicketNotFound  = errors.New("停车票不存在")
	ErrCardNotFound    = errors.New("卡片不存在")
	ErrTariffNotFound  = errors.New("费率不存在或未启用")
	ErrPaymentDisabled = errors.New("当前状态不可付费")
)

// cashierService 收银台计费服务实现
type cashierService struct {
	store *repository.Store
	log   *zap.Logger
}

// NewCashierService 创建收银服务
func NewCashierService(store *repository.Store, log *zap.Logger) CashierService {
	return &cashierService{store: store, log: log}
}

// TicketQuotes 列出停车票对每个启用费率的试算结果
func (s *cashierService) TicketQuotes(ctx context.Context, bar string) (*TicketQuotes, error) {
	ticket, err := s.store.FindTicketByBar(ctx, bar)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}

	tariffs, err := s.store.ActiveTariffs(ctx)
	if err != nil {
		return nil, err
	}

	quotes := make([]*Quote, 0, len(tariffs))
	for _, t := range tariffs {
		calc, err := tariff.NewCalculator(t, nil)
		if err != nil {
			continue
		}
		quotes = append(quotes, quoteFromPayment(t.ID, t.Title, ticket.Pay(calc)))
	}

	return &TicketQuotes{
		Bar:      ticket.Bar,
		Status:   ticket.Status,
		TimeIn:   ticket.TimeIn,
		TimePaid: ticket.TimePaid,
		Quotes:   quotes,
	}, nil
}

// PayTicket 以选定费率对停车票执行付费
func (s *cashierService) PayTicket(ctx context.Context, bar string, tariffID int) (*PaymentResult, error) {
	ticket, err := s.store.FindTicketByBar(ctx, bar)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}

	calc, err := s.calculator(ctx, tariffID)
	if err != nil {
		return nil, err
	}

	payment := ticket.Pay(calc)
	if !payment.Enabled() {
		return nil, fmt.Errorf("%w: %s", ErrPaymentDisabled, payment.Explanation())
	}
	if err := payment.Execute(ctx, s.store); err != nil {
		return nil, err
	}

	s.log.Info("停车票已收费",
		zap.String("bar", bar),
		zap.Int("tariff_id", tariffID),
		zap.Int("price", payment.Price()))

	return &PaymentResult{Price: payment.Price(), Explanation: payment.Explanation()}, nil
}

// CardQuotes 列出卡片对每个启用费率的试算结果
func (s *cashierService) CardQuotes(ctx context.Context, serial string) (*CardQuotes, error) {
	card, err := s.store.FindCardBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	tariffs, err := s.store.ActiveTariffs(ctx)
	if err != nil {
		return nil, err
	}

	quotes := make([]*Quote, 0, len(tariffs))
	for _, t := range tariffs {
		calc, err := tariff.NewCalculator(t, nil)
		if err != nil {
			continue
		}
		quotes = append(quotes, quoteFromPayment(t.ID, t.Title, card.Pay(calc)))
	}

	return &CardQuotes{
		Serial:   card.Serial,
		Type:     card.Type,
		FullName: card.FullName(),
		Plate:    card.PlateNumber,
		Status:   card.Status,
		DateReg:  card.DateReg,
		DateEnd:  card.DateEnd,
		Quotes:   quotes,
	}, nil
}

// PayCard 以选定费率为卡片续期
func (s *cashierService) PayCard(ctx context.Context, serial string, tariffID int) (*PaymentResult, error) {
	card, err := s.store.FindCardBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	calc, err := s.calculator(ctx, tariffID)
	if err != nil {
		return nil, err
	}

	payment := card.Pay(calc)
	if !payment.Enabled() {
		return nil, fmt.Errorf("%w: %s", ErrPaymentDisabled, payment.Explanation())
	}
	if err := payment.Execute(ctx, s.store); err != nil {
		return nil, err
	}

	s.log.Info("卡片已续期",
		zap.String("serial", serial),
		zap.Int("tariff_id", tariffID),
		zap.Int("price", payment.Price()))

	return &PaymentResult{Price: payment.Price(), Explanation: payment.Explanation()}, nil
}

// PayOnce 无票无卡的一次性收费
func (s *cashierService) PayOnce(ctx context.Context, tariffID int) (*PaymentResult, error) {
	calc, err := s.calculator(ctx, tariffID)
	if err != nil {
		return nil, err
	}

	payable := &billing.OncePayable{}
	payment := payable.Pay(calc)
	if !payment.Enabled() {
		return nil, fmt.Errorf("%w: 该费率不支持一次性收费", ErrPaymentDisabled)
	}
	if err := payment.Execute(ctx, s.store); err != nil {
		return nil, err
	}

	s.log.Info("一次性收费", zap.Int("tariff_id", tariffID), zap.Int("price", payment.Price()))

	return &PaymentResult{Price: payment.Price(), Explanation: payment.Explanation()}, nil
}

// calculator 在启用费率集合中定位费率并构造计算器
func (s *cashierService) calculator(ctx context.Context, tariffID int) (tariff.Calculator, error) {
	tariffs, err := s.store.ActiveTariffs(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tariffs {
		if t.ID == tariffID {
			return tariff.NewCalculator(t, nil)
		}
	}
	return nil, ErrTariffNotFound
}

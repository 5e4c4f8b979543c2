package repository

import (
	"context"
	"time"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/logger"
	"github.com/wfunc/park-gate/internal/models"
	"github.com/wfunc/park-gate/internal/tariff"
	"go.uber.org/zap"
)

// Store 计费与设备层的持久化门面。
// 实现 billing.Store 与 hardware.OpenEventRecorder，
// 并提供票/卡/费率的读取入口，屏蔽仓储细节。
type Store struct {
	repos *Manager
	log   *zap.Logger
}

// NewStore 创建持久化门面
func NewStore(repos *Manager) *Store {
	return &Store{
		repos: repos,
		log:   logger.GetModuleLogger("store"),
	}
}

// UpdateTicketPaid 首次付费落库
func (s *Store) UpdateTicketPaid(ctx context.Context, bar string, tariffID, cost, price int, paidUntil time.Time) error {
	return s.repos.Ticket().MarkPaid(ctx, bar, tariffID, cost, price, paidUntil)
}

// UpdateTicketExcessPaid 补缴落库
func (s *Store) UpdateTicketExcessPaid(ctx context.Context, bar string, price int, paidUntil time.Time) error {
	return s.repos.Ticket().MarkExcessPaid(ctx, bar, price, paidUntil)
}

// UpdateTicketOut 离场落库
func (s *Store) UpdateTicketOut(ctx context.Context, bar string, timeOut time.Time) error {
	return s.repos.Ticket().MarkOut(ctx, bar, timeOut)
}

// UpdateCardWindow 卡片续期落库
func (s *Store) UpdateCardWindow(ctx context.Context, serial string, begin, end time.Time, tariffID, cost, price int) error {
	return s.repos.Card().UpdateWindow(ctx, serial, begin, end, tariffID, cost, price)
}

// UpdateCardMoved 卡片过闸落库
func (s *Store) UpdateCardMoved(ctx context.Context, serial string, inside bool, at time.Time) error {
	return s.repos.Card().UpdateMoved(ctx, serial, inside, at)
}

// RecordPassEvent 记录通行事件
func (s *Store) RecordPassEvent(ctx context.Context, addr uint8, inside bool, ref string) error {
	return s.repos.PassEvent().Create(ctx, &models.PassEvent{
		Addr:   addr,
		Inside: inside,
		Ref:    ref,
		At:     time.Now(),
	})
}

// RecordPayment 付费留档
func (s *Store) RecordPayment(ctx context.Context, rec *billing.PaymentRecord) error {
	return s.repos.Payment().Create(ctx, &models.Payment{
		Kind:     rec.Kind,
		TariffID: rec.TariffID,
		Ref:      rec.Ref,
		Cost:     rec.Cost,
		Units:    rec.Units,
		Begin:    rec.Begin,
		End:      rec.End,
		Price:    rec.Price,
	})
}

// RecordOpenEvent 开闸事件留档。只记录开闸命令，关闸不留档。
func (s *Store) RecordOpenEvent(addr uint8, reason byte, command byte) error {
	if command%2 != 1 {
		return nil
	}
	return s.repos.GateEvent().Create(context.Background(), &models.GateEvent{
		Addr:    addr,
		Reason:  int(reason),
		Command: int(command),
		At:      time.Now(),
	})
}

// FindTicketByBar 根据条码查找停车票，未登记的条码返回 (nil, nil)
func (s *Store) FindTicketByBar(ctx context.Context, bar string) (*billing.Ticket, error) {
	row, err := s.repos.Ticket().FindByBar(ctx, bar)
	if err != nil || row == nil {
		return nil, err
	}
	return ticketFromModel(row), nil
}

// RegisterTicket 登记新取出的停车票，入场时刻取自条码
func (s *Store) RegisterTicket(ctx context.Context, bar string) (*billing.Ticket, error) {
	timeIn, err := billing.ParseBar(bar, time.Now())
	if err != nil {
		return nil, err
	}
	row := &models.Ticket{
		Bar:    bar,
		TimeIn: timeIn,
		Status: billing.TicketIn,
	}
	if err := s.repos.Ticket().Create(ctx, row); err != nil {
		return nil, err
	}
	return ticketFromModel(row), nil
}

// FindCardBySerial 根据序列号查找通行卡片，未登记的卡返回 (nil, nil)
func (s *Store) FindCardBySerial(ctx context.Context, serial string) (*billing.Card, error) {
	row, err := s.repos.Card().FindBySerial(ctx, serial)
	if err != nil || row == nil {
		return nil, err
	}
	return cardFromModel(row), nil
}

// ActiveTariffs 加载所有启用且合法的费率。
// 解析失败的费率记录警告并剔除，不中断设备轮询。
func (s *Store) ActiveTariffs(ctx context.Context) ([]*tariff.Tariff, error) {
	rows, err := s.repos.Tariff().ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	tariffs := make([]*tariff.Tariff, 0, len(rows))
	for _, row := range rows {
		t, err := tariff.New(tariff.Fields{
			ID:        int(row.ID),
			Title:     row.Title,
			Type:      row.Type,
			Interval:  row.Interval,
			Cost:      row.Cost,
			ZeroTime:  row.ZeroTime,
			MaxPerDay: row.MaxPerDay,
			FreeTime:  row.FreeTime,
			Note:      row.Note,
		})
		if err != nil {
			s.log.Warn("费率配置非法，已剔除",
				zap.Uint("id", row.ID),
				zap.String("title", row.Title),
				zap.Error(err))
			continue
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, nil
}

// FreePlaces 读取当前空位数与总车位数
func (s *Store) FreePlaces(ctx context.Context) (free, total int, err error) {
	state, err := s.repos.Lot().Get(ctx)
	if err != nil {
		return 0, 0, err
	}
	return state.FreePlaces, state.TotalPlaces, nil
}

// AdjustFreePlaces 车辆进出后增减空位数，返回调整后的值
func (s *Store) AdjustFreePlaces(ctx context.Context, delta int) (int, error) {
	return s.repos.Lot().AdjustFreePlaces(ctx, delta)
}

// SetFreePlaces 人工校正空位数
func (s *Store) SetFreePlaces(ctx context.Context, free int) error {
	return s.repos.Lot().SetFreePlaces(ctx, free)
}

// ticketFromModel 数据行转计费实体
func ticketFromModel(row *models.Ticket) *billing.Ticket {
	return &billing.Ticket{
		ID:              int(row.ID),
		Bar:             row.Bar,
		TariffID:        row.TariffID,
		TariffPrice:     row.TariffPrice,
		TariffSum:       row.TariffSum,
		TariffSumExcess: row.TariffSumExcess,
		TimeIn:          row.TimeIn,
		TimeOut:         row.TimeOut,
		TimePaid:        row.TimePaid,
		TimeExcessPaid:  row.TimeExcessPaid,
		Status:          row.Status,
	}
}

// cardFromModel 数据行转计费实体
func cardFromModel(row *models.Card) *billing.Card {
	return &billing.Card{
		ID:            int(row.ID),
		Type:          row.Type,
		Serial:        row.Serial,
		DateReg:       row.DateReg,
		DateEnd:       row.DateEnd,
		DateIn:        row.DateIn,
		DateOut:       row.DateOut,
		DriverName:    row.DriverName,
		DriverSurname: row.DriverSurname,
		DriverPatron:  row.DriverPatron,
		DriverPhone:   row.DriverPhone,
		PlateNumber:   row.PlateNumber,
		VehicleModel:  row.VehicleModel,
		VehicleColor:  row.VehicleColor,
		Status:        row.Status,
		TariffID:      row.TariffID,
		TariffPrice:   row.TariffPrice,
		TariffSum:     row.TariffSum,
	}
}

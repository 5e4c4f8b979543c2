package mainloop

import (
	"context"
	"encoding/binary"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/wfunc/park-gate/internal/billing"
	"github.com/wfunc/park-gate/internal/config"
	"github.com/wfunc/park-gate/internal/hardware"
	"github.com/wfunc/park-gate/internal/tariff"
)

type passEvent struct {
	addr   uint8
	inside bool
	ref    string
}

type openEvent struct {
	addr    uint8
	reason  byte
	command byte
}

type cardMove struct {
	serial string
	inside bool
}

// mockStore 内存版计费协作方
type mockStore struct {
	mu          sync.Mutex
	free        int
	total       int
	cards       map[string]*billing.Card
	tickets     map[string]*billing.Ticket
	tariffs     []*tariff.Tariff
	adjustCalls []int
	passEvents  []passEvent
	openEvents  []openEvent
	cardMoves   []cardMove
	ticketsOut  []string
}

func newMockStore() *mockStore {
	return &mockStore{
		free:    10,
		total:   50,
		cards:   make(map[string]*billing.Card),
		tickets: make(map[string]*billing.Ticket),
	}
}

func (m *mockStore) UpdateTicketPaid(_ context.Context, bar string, tariffID, cost, price int, paidUntil time.Time) error {
	return nil
}

func (m *mockStore) UpdateTicketExcessPaid(_ context.Context, bar string, price int, paidUntil time.Time) error {
	return nil
}

func (m *mockStore) UpdateTicketOut(_ context.Context, bar string, timeOut time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticketsOut = append(m.ticketsOut, bar)
	return nil
}

func (m *mockStore) UpdateCardWindow(_ context.Context, serial string, begin, end time.Time, tariffID, cost, price int) error {
	return nil
}

func (m *mockStore) UpdateCardMoved(_ context.Context, serial string, inside bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cardMoves = append(m.cardMoves, cardMove{serial: serial, inside: inside})
	return nil
}

func (m *mockStore) RecordPassEvent(_ context.Context, addr uint8, inside bool, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passEvents = append(m.passEvents, passEvent{addr: addr, inside: inside, ref: ref})
	return nil
}

func (m *mockStore) RecordPayment(_ context.Context, rec *billing.PaymentRecord) error {
	return nil
}

func (m *mockStore) RecordOpenEvent(addr uint8, reason byte, command byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openEvents = append(m.openEvents, openEvent{addr: addr, reason: reason, command: command})
	return nil
}

func (m *mockStore) FindTicketByBar(_ context.Context, bar string) (*billing.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[bar], nil
}

func (m *mockStore) FindCardBySerial(_ context.Context, serial string) (*billing.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cards[serial], nil
}

func (m *mockStore) ActiveTariffs(_ context.Context) ([]*tariff.Tariff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tariffs, nil
}

func (m *mockStore) FreePlaces(_ context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.free, m.total, nil
}

func (m *mockStore) AdjustFreePlaces(_ context.Context, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustCalls = append(m.adjustCalls, delta)
	m.free += delta
	if m.free < 0 {
		m.free = 0
	}
	if m.free > m.total {
		m.free = m.total
	}
	return m.free, nil
}

type stubNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *stubNotifier) Notify(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, title+": "+message)
}

func (n *stubNotifier) contains(sub string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, msg := range n.messages {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}

type laneState struct {
	addr   uint8
	active bool
}

type stubSink struct {
	mu          sync.Mutex
	laneStates  []laneState
	freeUpdates []int
}

func (s *stubSink) LaneState(addr uint8, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.laneStates = append(s.laneStates, laneState{addr: addr, active: active})
}

func (s *stubSink) FreePlaces(free int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freeUpdates = append(s.freeUpdates, free)
}

func (s *stubSink) states() []laneState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]laneState, len(s.laneStates))
	copy(out, s.laneStates)
	return out
}

type MainloopTestSuite struct {
	suite.Suite
	port     *hardware.MockPort
	terminal *hardware.Terminal
	store    *mockStore
	notifier *stubNotifier
	sink     *stubSink
	loop     *Mainloop
	ctx      context.Context
}

func (s *MainloopTestSuite) SetupTest() {
	s.port = hardware.NewMockPort()
	s.terminal = hardware.NewTerminal(s.port, 1, time.Millisecond)
	s.store = newMockStore()
	s.notifier = &stubNotifier{}
	s.sink = &stubSink{}
	cfg := &config.TerminalConfig{
		Addresses:        []int{0, 1},
		PollInterval:     time.Millisecond,
		DegradedInterval: 2 * time.Millisecond,
		FailureThreshold: 2,
		CardTimeout:      30,
		BarcodeTimeout:   40,
		LeaveTimeout:     200,
	}
	s.loop = New(s.terminal, s.store, cfg, []string{"欢迎光临", "请妥善保管停车票"}, s.notifier, s.sink)
	s.ctx = context.Background()
}

// reply 预置一帧终端应答
func (s *MainloopTestSuite) reply(addr byte, cmd byte, data []byte) {
	s.port.QueueResponse((&hardware.Frame{Addr: addr, Command: cmd, Data: data}).Encode())
}

// commandWrites 解码所有写入帧并返回命令码等于 cmd 的帧
func (s *MainloopTestSuite) commandWrites(cmd byte) []*hardware.Frame {
	var out []*hardware.Frame
	for _, raw := range s.port.Writes() {
		frame, err := hardware.DecodeFrame(raw)
		s.Require().NoError(err)
		if frame.Command == cmd {
			out = append(out, frame)
		}
	}
	return out
}

func (s *MainloopTestSuite) validCard(serial string) *billing.Card {
	reg := time.Now().AddDate(0, -1, 0)
	end := time.Now().AddDate(0, 1, 0)
	return &billing.Card{
		Type:          billing.CardClient,
		Serial:        serial,
		DateReg:       &reg,
		DateEnd:       &end,
		DriverSurname: "王",
		DriverName:    "海",
		Status:        billing.CardOutside,
	}
}

func (s *MainloopTestSuite) paidTicket(bar string) *billing.Ticket {
	paid := time.Now().Add(-time.Minute)
	return &billing.Ticket{
		Bar:      bar,
		TimeIn:   time.Now().Add(-2 * time.Hour),
		TimePaid: &paid,
		Status:   billing.TicketPaid,
	}
}

func (s *MainloopTestSuite) TestEntriesAdjustAndBroadcast() {
	report := &hardware.EntryReport{
		TimeFresh:    true,
		MessageFresh: true,
		PlacesFresh:  true,
		OutCount:     2,
		InCount:      0,
	}
	s.reply(2, hardware.CmdGetEntries, report.Encode())

	s.Require().True(s.loop.processEntries(s.ctx, 2))

	s.Equal([]int{2}, s.store.adjustCalls)
	s.Equal(12, s.store.free)
	s.Equal([]int{12}, s.sink.freeUpdates)

	// 空位广播恰好一次，发往全部车道
	counters := s.commandWrites(hardware.CmdSetCounters)
	s.Require().Len(counters, 1)
	s.Equal(hardware.BroadcastAddr, counters[0].Addr)
	s.Equal(uint16(12), binary.BigEndian.Uint16(counters[0].Data))

	// 通行事件先出后进
	s.Require().Len(s.store.passEvents, 2)
	for _, ev := range s.store.passEvents {
		s.Equal(uint8(2), ev.addr)
		s.False(ev.inside)
		s.Equal("", ev.ref)
	}
}

func (s *MainloopTestSuite) TestEntriesPassEventOrder() {
	report := &hardware.EntryReport{
		TimeFresh:    true,
		MessageFresh: true,
		PlacesFresh:  true,
		OutCount:     1,
		InCount:      1,
	}
	s.reply(0, hardware.CmdGetEntries, report.Encode())

	s.Require().True(s.loop.processEntries(s.ctx, 0))

	// 进出相抵时不更新空位数也不广播
	s.Empty(s.store.adjustCalls)
	s.Empty(s.commandWrites(hardware.CmdSetCounters))

	s.Require().Len(s.store.passEvents, 2)
	s.False(s.store.passEvents[0].inside)
	s.True(s.store.passEvents[1].inside)
}

func (s *MainloopTestSuite) TestEntriesPushStaleConfig() {
	s.reply(0, hardware.CmdGetEntries, (&hardware.EntryReport{}).Encode())

	s.Require().True(s.loop.processEntries(s.ctx, 0))

	s.Len(s.commandWrites(hardware.CmdSetTime), 1)
	s.Len(s.commandWrites(hardware.CmdSetStrings), 1)

	counters := s.commandWrites(hardware.CmdSetCounters)
	s.Require().Len(counters, 1)
	s.Equal(uint8(0), counters[0].Addr)
	s.Equal(uint16(10), binary.BigEndian.Uint16(counters[0].Data))
	s.Empty(s.store.adjustCalls)
}

func (s *MainloopTestSuite) TestEntriesPaperOutNotifies() {
	report := &hardware.EntryReport{
		TimeFresh:    true,
		MessageFresh: true,
		PlacesFresh:  true,
		PaperOut:     true,
	}
	s.reply(3, hardware.CmdGetEntries, report.Encode())

	s.Require().True(s.loop.processEntries(s.ctx, 3))
	s.True(s.notifier.contains("3号车道"))
}

func (s *MainloopTestSuite) TestEntriesHardFailure() {
	// 无应答，读超时
	s.False(s.loop.processEntries(s.ctx, 0))
	s.Empty(s.store.passEvents)
}

func (s *MainloopTestSuite) TestReaderGrantsAccess() {
	s.store.cards["CARD001"] = s.validCard("CARD001")
	pair := &hardware.ReaderPair{
		In:  hardware.ReaderEvent{Elapsed: 1, Status: hardware.CardRead, Serial: "CARD001"},
		Out: hardware.ReaderEvent{Status: hardware.CardEmpty},
	}
	s.reply(0, hardware.CmdGetReaders, pair.Encode())

	s.Require().True(s.loop.processReaders(s.ctx, 0))

	s.Len(s.commandWrites(hardware.CmdAckReaders), 1)
	s.Require().Len(s.store.openEvents, 1)
	s.Equal(openEvent{addr: 0, reason: hardware.ReasonManual, command: hardware.GateInOpen}, s.store.openEvents[0])
	s.Len(s.commandWrites(hardware.CmdShowMessage), 1)
	s.True(s.notifier.contains("王 海"))
}

func (s *MainloopTestSuite) TestReaderUsesOutboundReaderOnOddAddr() {
	card := s.validCard("CARD002")
	card.Status = billing.CardInside
	s.store.cards["CARD002"] = card
	pair := &hardware.ReaderPair{
		In:  hardware.ReaderEvent{Status: hardware.CardEmpty},
		Out: hardware.ReaderEvent{Elapsed: 1, Status: hardware.CardRead, Serial: "CARD002"},
	}
	s.reply(1, hardware.CmdGetReaders, pair.Encode())

	s.Require().True(s.loop.processReaders(s.ctx, 1))

	s.Require().Len(s.store.openEvents, 1)
	s.Equal(uint8(1), s.store.openEvents[0].addr)
}

func (s *MainloopTestSuite) TestReaderDeniesExpiredCard() {
	card := s.validCard("CARD003")
	end := time.Now().AddDate(0, 0, -1)
	card.DateEnd = &end
	s.store.cards["CARD003"] = card
	pair := &hardware.ReaderPair{
		In:  hardware.ReaderEvent{Elapsed: 1, Status: hardware.CardRead, Serial: "CARD003"},
		Out: hardware.ReaderEvent{Status: hardware.CardEmpty},
	}
	s.reply(0, hardware.CmdGetReaders, pair.Encode())

	s.Require().True(s.loop.processReaders(s.ctx, 0))

	s.Empty(s.store.openEvents)
	s.Len(s.commandWrites(hardware.CmdShowMessage), 1)
}

func (s *MainloopTestSuite) TestReaderIndeterminateCardDeniesAndNotifies() {
	card := s.validCard("CARD004")
	card.DateReg = nil
	s.store.cards["CARD004"] = card
	pair := &hardware.ReaderPair{
		In:  hardware.ReaderEvent{Elapsed: 1, Status: hardware.CardRead, Serial: "CARD004"},
		Out: hardware.ReaderEvent{Status: hardware.CardEmpty},
	}
	s.reply(0, hardware.CmdGetReaders, pair.Encode())

	s.Require().True(s.loop.processReaders(s.ctx, 0))

	s.Empty(s.store.openEvents)
	s.True(s.notifier.contains("无法判定"))
	s.Len(s.commandWrites(hardware.CmdShowMessage), 1)
}

func (s *MainloopTestSuite) TestReaderUnknownCardNotifies() {
	pair := &hardware.ReaderPair{
		In:  hardware.ReaderEvent{Elapsed: 1, Status: hardware.CardRead, Serial: "NOPE"},
		Out: hardware.ReaderEvent{Status: hardware.CardEmpty},
	}
	s.reply(0, hardware.CmdGetReaders, pair.Encode())

	s.Require().True(s.loop.processReaders(s.ctx, 0))

	s.Empty(s.store.openEvents)
	s.True(s.notifier.contains("未登记卡片 NOPE"))
}

func (s *MainloopTestSuite) TestReaderStaleEventIgnored() {
	s.store.cards["CARD005"] = s.validCard("CARD005")
	pair := &hardware.ReaderPair{
		In:  hardware.ReaderEvent{Elapsed: 31, Status: hardware.CardRead, Serial: "CARD005"},
		Out: hardware.ReaderEvent{Status: hardware.CardEmpty},
	}
	s.reply(0, hardware.CmdGetReaders, pair.Encode())

	s.Require().True(s.loop.processReaders(s.ctx, 0))

	s.Empty(s.store.openEvents)
	s.Empty(s.commandWrites(hardware.CmdShowMessage))
}

func (s *MainloopTestSuite) TestReaderCrossedFlipsStatus() {
	s.store.cards["CARD006"] = s.validCard("CARD006")
	pair := &hardware.ReaderPair{
		In:  hardware.ReaderEvent{Elapsed: 2, Status: hardware.CardIn, Serial: "CARD006"},
		Out: hardware.ReaderEvent{Status: hardware.CardEmpty},
	}
	s.reply(0, hardware.CmdGetReaders, pair.Encode())

	s.Require().True(s.loop.processReaders(s.ctx, 0))

	s.Require().Len(s.store.cardMoves, 1)
	s.Equal(cardMove{serial: "CARD006", inside: true}, s.store.cardMoves[0])
	s.Require().Len(s.store.passEvents, 1)
	s.Equal("CARD006", s.store.passEvents[0].ref)
	s.True(s.store.passEvents[0].inside)
}

func (s *MainloopTestSuite) TestBarcodeOpensForPaidTicket() {
	bar := "0829093000123"
	s.store.tickets[bar] = s.paidTicket(bar)
	event := &hardware.BarcodeEvent{Elapsed: 1, Status: hardware.BarRead, Code: bar}
	s.reply(1, hardware.CmdGetBarcode, event.Encode())

	s.Require().True(s.loop.processBarcode(s.ctx, 1))

	s.Require().Len(s.store.openEvents, 1)
	s.Equal(openEvent{addr: 1, reason: hardware.ReasonTicket, command: hardware.GateOutOpen}, s.store.openEvents[0])
	s.Len(s.commandWrites(hardware.CmdShowMessage), 1)
}

func (s *MainloopTestSuite) TestBarcodeDeniesUnpaidTicket() {
	bar := "0829093000124"
	ticket := s.paidTicket(bar)
	ticket.Status = billing.TicketIn
	ticket.TimePaid = nil
	s.store.tickets[bar] = ticket
	event := &hardware.BarcodeEvent{Elapsed: 1, Status: hardware.BarRead, Code: bar}
	s.reply(1, hardware.CmdGetBarcode, event.Encode())

	s.Require().True(s.loop.processBarcode(s.ctx, 1))

	s.Empty(s.store.openEvents)
	s.True(s.notifier.contains("未付费"))
	s.Len(s.commandWrites(hardware.CmdShowMessage), 1)
}

func (s *MainloopTestSuite) TestBarcodeUnknownCodeNotifies() {
	event := &hardware.BarcodeEvent{Elapsed: 1, Status: hardware.BarRead, Code: "0829xxxx"}
	s.reply(1, hardware.CmdGetBarcode, event.Encode())

	s.Require().True(s.loop.processBarcode(s.ctx, 1))

	s.Empty(s.store.openEvents)
	s.True(s.notifier.contains("未登记条码"))
}

func (s *MainloopTestSuite) TestBarcodeLeftMarksTicketOut() {
	bar := "0829093000125"
	s.store.tickets[bar] = s.paidTicket(bar)
	event := &hardware.BarcodeEvent{Elapsed: 100, Status: hardware.BarLeft, Code: bar}
	s.reply(1, hardware.CmdGetBarcode, event.Encode())

	s.Require().True(s.loop.processBarcode(s.ctx, 1))
	s.Equal([]string{bar}, s.store.ticketsOut)
}

func (s *MainloopTestSuite) TestBarcodeLeftStaleIgnored() {
	bar := "0829093000126"
	s.store.tickets[bar] = s.paidTicket(bar)
	event := &hardware.BarcodeEvent{Elapsed: 201, Status: hardware.BarLeft, Code: bar}
	s.reply(1, hardware.CmdGetBarcode, event.Encode())

	s.Require().True(s.loop.processBarcode(s.ctx, 1))
	s.Empty(s.store.ticketsOut)
}

func (s *MainloopTestSuite) TestBarcodeStaleReadIgnored() {
	bar := "0829093000127"
	s.store.tickets[bar] = s.paidTicket(bar)
	event := &hardware.BarcodeEvent{Elapsed: 41, Status: hardware.BarRead, Code: bar}
	s.reply(1, hardware.CmdGetBarcode, event.Encode())

	s.Require().True(s.loop.processBarcode(s.ctx, 1))
	s.Empty(s.store.openEvents)
}

func (s *MainloopTestSuite) TestDisplayStringsFromTariffsAndConfig() {
	hourly, err := tariff.New(tariff.Fields{
		ID: 1, Title: "标准小时费率", Type: tariff.TypeFixed, Interval: tariff.IntervalHourly, Cost: "10",
	})
	s.Require().NoError(err)
	s.store.tariffs = []*tariff.Tariff{hourly}

	s.Require().NoError(s.loop.RefreshTariffs(s.ctx))
	s.Require().Len(s.loop.Tariffs(), 1)

	display := s.loop.displayStrings()
	s.Equal("标准小时费率", display.TariffNames[0])
	s.Equal("欢迎光临", display.CheckLines[0])
	s.Equal("请妥善保管停车票", display.CheckLines[1])
}

func (s *MainloopTestSuite) TestStartRequiresAddresses() {
	s.loop.cfg.Addresses = nil
	s.Error(s.loop.Start(s.ctx))
}

func (s *MainloopTestSuite) TestStartStopLifecycle() {
	s.Require().NoError(s.loop.Start(s.ctx))

	// 无终端应答，车道持续失败并最终降级
	s.Eventually(func() bool {
		for _, st := range s.sink.states() {
			if !st.active {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	s.loop.Stop()
	s.False(s.port.IsOpen())
}

func (s *MainloopTestSuite) TestLanePacesEachProcessor() {
	s.loop.cfg.Addresses = []int{0}
	s.loop.cfg.PollInterval = 150 * time.Millisecond
	s.Require().NoError(s.loop.Start(s.ctx))
	defer s.loop.Stop()

	// 无应答时读计数命令先发出，随后立即进入间隔等待
	s.Require().Eventually(func() bool {
		return len(s.port.Writes()) >= 1
	}, time.Second, time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	s.Len(s.port.Writes(), 1)
	s.Require().Len(s.sink.states(), 1)
	s.True(s.sink.states()[0].active)

	// 等待间隔结束后才轮到读头命令
	s.Eventually(func() bool {
		return len(s.commandWrites(hardware.CmdGetReaders)) >= 1
	}, time.Second, 5*time.Millisecond)
}

func (s *MainloopTestSuite) TestOperatorCommands() {
	s.Require().NoError(s.loop.Start(s.ctx))
	defer s.loop.Stop()

	s.Require().True(s.loop.TestDisplay("设备巡检"))
	s.Require().True(s.loop.OpenLane(0))

	s.Eventually(func() bool {
		for _, frame := range s.commandWrites(hardware.CmdShowMessage) {
			if frame.Addr == hardware.BroadcastAddr {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	s.Eventually(func() bool {
		s.store.mu.Lock()
		defer s.store.mu.Unlock()
		for _, ev := range s.store.openEvents {
			if ev.command == hardware.GateInOpen && ev.reason == hardware.ReasonManual {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func (s *MainloopTestSuite) TestSubmitAfterQueueFull() {
	// 未启动时命令堆积，缓冲用尽后拒绝
	for i := 0; i < 16; i++ {
		s.Require().True(s.loop.Submit(func(t *hardware.Terminal) {}))
	}
	s.False(s.loop.Submit(func(t *hardware.Terminal) {}))
	s.False(s.loop.Submit(nil))
}

func TestMainloopTestSuite(t *testing.T) {
	suite.Run(t, &MainloopTestSuite{})
}

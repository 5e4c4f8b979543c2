package hardware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	apperrors "github.com/wfunc/park-gate/internal/errors"
)

type recordedEvent struct {
	addr    uint8
	reason  byte
	command byte
}

type stubRecorder struct {
	events []recordedEvent
}

func (r *stubRecorder) RecordOpenEvent(addr uint8, reason byte, command byte) error {
	r.events = append(r.events, recordedEvent{addr: addr, reason: reason, command: command})
	return nil
}

type TerminalTestSuite struct {
	suite.Suite
	port     *MockPort
	terminal *Terminal
}

func (s *TerminalTestSuite) SetupTest() {
	s.port = NewMockPort()
	s.terminal = NewTerminal(s.port, 1, time.Millisecond)
}

// reply 预置一帧终端应答
func (s *TerminalTestSuite) reply(addr byte, cmd byte, data []byte) {
	s.port.QueueResponse((&Frame{Addr: addr, Command: cmd, Data: data}).Encode())
}

func (s *TerminalTestSuite) TestGetEntries() {
	report := &EntryReport{In1: true, InCount: 1, OutCount: 2, StatusReason: ReasonTicket}
	s.reply(2, CmdGetEntries, report.Encode())

	got, err := s.terminal.GetEntries(2)
	s.Require().NoError(err)
	s.Equal(report, got)

	writes := s.port.Writes()
	s.Require().Len(writes, 1)
	req, err := DecodeFrame(writes[0])
	s.Require().NoError(err)
	s.Equal(byte(2), req.Addr)
	s.Equal(CmdGetEntries, req.Command)
}

func (s *TerminalTestSuite) TestGetReaders() {
	pair := &ReaderPair{
		In:  ReaderEvent{Status: CardRead, Serial: "00DEADBEEF"},
		Out: ReaderEvent{Status: CardEmpty},
	}
	s.reply(1, CmdGetReaders, pair.Encode())

	got, err := s.terminal.GetReaders(1)
	s.Require().NoError(err)
	s.Equal(pair, got)
}

func (s *TerminalTestSuite) TestGetBarcode() {
	event := &BarcodeEvent{Elapsed: 5, Status: BarRead, Code: "1028110005"}
	s.reply(1, CmdGetBarcode, event.Encode())

	got, err := s.terminal.GetBarcode(1)
	s.Require().NoError(err)
	s.Equal(event, got)
}

func (s *TerminalTestSuite) TestSetStateRecordsEvent() {
	recorder := &stubRecorder{}
	state := StateCommand{Reason: ReasonManual, Command: GateOpen}

	err := s.terminal.SetState(3, state, recorder)
	s.Require().NoError(err)
	s.Require().Len(recorder.events, 1)
	s.Equal(recordedEvent{addr: 3, reason: ReasonManual, command: GateOpen}, recorder.events[0])
}

func (s *TerminalTestSuite) TestSetStateRecoversAfterWriteFailure() {
	s.port.FailWrites(1)
	recorder := &stubRecorder{}

	err := s.terminal.SetState(3, StateCommand{Reason: ReasonAuto, Command: GateInOpen}, recorder)
	s.Require().NoError(err)
	s.Len(recorder.events, 1)
}

func (s *TerminalTestSuite) TestSetStateExhaustsRetries() {
	s.port.FailWrites(stateTryCount)
	recorder := &stubRecorder{}

	err := s.terminal.SetState(3, StateCommand{Reason: ReasonManual, Command: GateClose}, recorder)
	s.Require().Error(err)
	s.Empty(recorder.events)
}

func (s *TerminalTestSuite) TestNakResponse() {
	s.reply(1, CmdNak, nil)

	_, err := s.terminal.GetEntries(1)
	s.Require().Error(err)
	s.Equal(apperrors.ErrCommandFailed, apperrors.GetCode(err))
}

func (s *TerminalTestSuite) TestBroadcastCounters() {
	err := s.terminal.SetCounters(BroadcastAddr, 0x0203)
	s.Require().NoError(err)

	writes := s.port.Writes()
	s.Require().Len(writes, 1)
	req, err := DecodeFrame(writes[0])
	s.Require().NoError(err)
	s.Equal(BroadcastAddr, req.Addr)
	s.Equal(CmdSetCounters, req.Command)
	s.Equal([]byte{0x02, 0x03}, req.Data)
}

func (s *TerminalTestSuite) TestGuardReopensClosedPort() {
	s.port.SetOpen(false)
	s.reply(1, CmdGetEntries, (&EntryReport{}).Encode())

	_, err := s.terminal.GetEntries(1)
	s.Require().NoError(err)
	s.True(s.port.IsOpen())
}

func TestTerminalTestSuite(t *testing.T) {
	suite.Run(t, new(TerminalTestSuite))
}

func TestGuardUnavailable(t *testing.T) {
	port := NewMockPort()
	port.SetOpen(false)
	port.FailReopen(true)
	terminal := NewTerminal(port, 1, time.Millisecond)

	_, err := terminal.GetEntries(1)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTerminalUnavailable, apperrors.GetCode(err))
}

package hardware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	f := &Frame{Addr: 3, Command: CmdSetState, Data: []byte{ReasonManual, GateOpen}}
	raw := f.Encode()

	assert.Equal(t, FrameHeader, raw[0])
	assert.Equal(t, FrameTail, raw[len(raw)-1])
	assert.Len(t, raw, MinFrameLen+2)

	decoded, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, f.Addr, decoded.Addr)
	assert.Equal(t, f.Command, decoded.Command)
	assert.Equal(t, f.Data, decoded.Data)
}

func TestFrameCRCMismatch(t *testing.T) {
	raw := (&Frame{Addr: 1, Command: CmdGetEntries}).Encode()
	raw[2] ^= 0xFF

	_, err := DecodeFrame(raw)
	assert.Error(t, err)
}

func TestFrameTooShort(t *testing.T) {
	_, err := DecodeFrame([]byte{FrameHeader, 1, 2})
	assert.Error(t, err)
}

func TestCRC16XMODEM(t *testing.T) {
	// "123456789" 的标准校验值
	assert.Equal(t, uint16(0x31C3), CRC16XMODEM([]byte("123456789")))
	assert.Equal(t, uint16(0x0000), CRC16XMODEM(nil))
}

func TestEntryReportRoundTrip(t *testing.T) {
	r := &EntryReport{
		DTS11: true, Key1: true, In2: true, DTS21: true,
		TimeFresh: true, PlacesFresh: true, PaperOut: true,
		InCount: 2, OutCount: 5, StatusReason: ReasonTicket,
	}

	decoded, err := DecodeEntryReport(r.Encode())
	require.NoError(t, err)
	assert.Equal(t, r, decoded)
}

func TestEntryReportTooShort(t *testing.T) {
	_, err := DecodeEntryReport([]byte{0, 0})
	assert.Error(t, err)
}

func TestStateCommandIsOpen(t *testing.T) {
	open := []byte{GateOpen, GateInOpen, GateOutOpen}
	closed := []byte{GateNone, GateClose, GateInClose, GateOutClose}

	for _, cmd := range open {
		s := StateCommand{Reason: ReasonManual, Command: cmd}
		assert.True(t, s.IsOpen(), GateName(cmd))
	}
	for _, cmd := range closed {
		s := StateCommand{Reason: ReasonManual, Command: cmd}
		assert.False(t, s.IsOpen(), GateName(cmd))
	}
}

func TestStateCommandString(t *testing.T) {
	s := StateCommand{Reason: ReasonTicket, Command: GateOutOpen}
	assert.Equal(t, "{reason: talon, command: out_open}", s.String())
}

func TestPlaceCounterBigEndian(t *testing.T) {
	p := PlaceCounter{FreePlaces: 0x0102}
	assert.Equal(t, []byte{0x01, 0x02}, p.Encode())
}

func TestReaderPairRoundTrip(t *testing.T) {
	p := &ReaderPair{
		In:  ReaderEvent{Elapsed: 1, Status: CardRead, Serial: "A1B2C3D4"},
		Out: ReaderEvent{Status: CardEmpty},
	}

	decoded, err := DecodeReaderPair(p.Encode())
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestBarcodeEventRoundTrip(t *testing.T) {
	e := &BarcodeEvent{Elapsed: 3, Status: BarRead, Code: "1028110005000120"}

	decoded, err := DecodeBarcodeEvent(e.Encode())
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
}

func TestDisplayStringsEncode(t *testing.T) {
	d := &DisplayStrings{}
	d.TariffNames[0] = "标准费率"
	d.CheckLines[0] = "欢迎光临"

	buf := d.Encode()
	assert.Len(t, buf, DisplayStringMax*TariffNameLen+DisplayStringMax*CheckLineLen)
	assert.Equal(t, "标准费率", trimPadding(buf[:TariffNameLen]))
	base := DisplayStringMax * TariffNameLen
	assert.Equal(t, "欢迎光临", trimPadding(buf[base:base+CheckLineLen]))
}

func TestClockSetting(t *testing.T) {
	at := time.Date(2013, 10, 28, 11, 45, 30, 0, time.Local)
	c := NewClockSetting(at)

	assert.Equal(t, []byte{13, 10, 28, 11, 45, 30}, c.Encode())
}

func TestEncodeMessage(t *testing.T) {
	buf := EncodeMessage("hello", 2)

	assert.Len(t, buf, DisplayMessageLen+1)
	assert.Equal(t, "hello", string(buf[:5]))
	assert.Equal(t, byte(' '), buf[5])
	assert.Equal(t, byte(2), buf[DisplayMessageLen])
}
